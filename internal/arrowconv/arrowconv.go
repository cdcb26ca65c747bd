// Package arrowconv converts frames to and from Arrow records. Each field
// carries the column's wire descriptor and bit_settings in its metadata, so
// a frame survives ToRecord followed by FromRecord unchanged. Records built
// elsewhere are read by inferring dtypes from their Arrow types.
package arrowconv

import (
	"fmt"

	"dfserde/internal/engine"
	"dfserde/internal/serde"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
)

// Field metadata keys.
const (
	MetaDataType    = "dfserde.datatype"
	MetaBitSettings = "dfserde.bit_settings"
)

// Schema returns the Arrow schema of df.
func Schema(df *engine.DataFrame) (*arrow.Schema, error) {
	fields := make([]arrow.Field, df.Width())
	for i, s := range df.Columns() {
		f, err := field(s)
		if err != nil {
			return nil, err
		}
		fields[i] = f
	}
	return arrow.NewSchema(fields, nil), nil
}

func field(s *engine.Series) (arrow.Field, error) {
	at, err := ArrowType(s.DType())
	if err != nil {
		return arrow.Field{}, fmt.Errorf("column %q: %w", s.Name(), err)
	}
	desc, err := serde.EncodeDataType(s.DType())
	if err != nil {
		return arrow.Field{}, err
	}
	md := arrow.NewMetadata(
		[]string{MetaDataType, MetaBitSettings},
		[]string{string(desc), serde.EncodeFlags(s.Flags())},
	)
	return arrow.Field{Name: s.Name(), Type: at, Nullable: true, Metadata: md}, nil
}

// ToRecord copies df into a new record allocated from mem. The caller must
// Release it.
func ToRecord(df *engine.DataFrame, mem memory.Allocator) (arrow.Record, error) {
	schema, err := Schema(df)
	if err != nil {
		return nil, err
	}
	cols := make([]arrow.Array, df.Width())
	defer func() {
		for _, c := range cols {
			if c != nil {
				c.Release()
			}
		}
	}()
	for i, s := range df.Columns() {
		if cols[i], err = buildColumn(mem, schema.Field(i).Type, s); err != nil {
			return nil, err
		}
	}
	return array.NewRecord(schema, cols, int64(df.Height())), nil
}

func buildColumn(mem memory.Allocator, at arrow.DataType, s *engine.Series) (arrow.Array, error) {
	b := array.NewBuilder(mem, at)
	defer b.Release()
	b.Reserve(s.Len())
	for i, v := range s.Values() {
		if err := appendValue(b, s.DType(), v); err != nil {
			return nil, fmt.Errorf("column %q[%d]: %w", s.Name(), i, err)
		}
	}
	return b.NewArray(), nil
}

// FromRecord builds a frame from rec. Fields with dfserde metadata keep their
// exact dtype and flags; other fields are inferred.
func FromRecord(rec arrow.Record) (*engine.DataFrame, error) {
	schema := rec.Schema()
	series := make([]*engine.Series, rec.NumCols())
	for j := range series {
		f := schema.Field(j)
		dt, flags, err := fieldType(f)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", f.Name, err)
		}
		values, err := readColumn(rec.Column(j), dt)
		if err != nil {
			return nil, fmt.Errorf("column %q%w", f.Name, err)
		}
		series[j] = engine.NewSeries(f.Name, dt, values).WithFlags(flags)
	}
	return engine.NewDataFrame(series...)
}

func fieldType(f arrow.Field) (engine.DataType, engine.Flags, error) {
	var flags engine.Flags
	if k := f.Metadata.FindKey(MetaBitSettings); k >= 0 {
		var err error
		if flags, err = serde.DecodeFlags(f.Metadata.Values()[k]); err != nil {
			return nil, 0, err
		}
	}
	if k := f.Metadata.FindKey(MetaDataType); k >= 0 {
		dt, err := serde.DecodeDataType([]byte(f.Metadata.Values()[k]))
		if err != nil {
			return nil, 0, err
		}
		at, err := ArrowType(dt)
		if err != nil {
			return nil, 0, err
		}
		if !arrow.TypeEqual(at, f.Type) {
			return nil, 0, fmt.Errorf("%w: %s is stored as %s, want %s", ErrTypeMismatch, dt, f.Type, at)
		}
		return dt, flags, nil
	}
	dt, err := InferType(f.Type)
	return dt, flags, err
}

func readColumn(arr arrow.Array, dt engine.DataType) ([]engine.Value, error) {
	out := make([]engine.Value, arr.Len())
	for i := range out {
		v, err := readValue(arr, dt, i)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}
