package arrowconv

import (
	"errors"
	"fmt"

	"dfserde/internal/engine"

	"github.com/apache/arrow/go/v17/arrow"
)

// ErrUnsupported is returned for Arrow types without an engine counterpart.
var ErrUnsupported = errors.New("arrowconv: unsupported type")

// ErrTypeMismatch means a field's Arrow type disagrees with the dtype in its
// metadata.
var ErrTypeMismatch = errors.New("arrowconv: field type does not match its dtype")

var dictType = &arrow.DictionaryType{
	IndexType: arrow.PrimitiveTypes.Uint32,
	ValueType: arrow.BinaryTypes.String,
}

// ArrowType maps an engine dtype to the Arrow type that stores it.
func ArrowType(dt engine.DataType) (arrow.DataType, error) {
	switch t := dt.(type) {
	case engine.PrimitiveType:
		switch t.ID() {
		case engine.BOOLEAN:
			return arrow.FixedWidthTypes.Boolean, nil
		case engine.INT8:
			return arrow.PrimitiveTypes.Int8, nil
		case engine.INT16:
			return arrow.PrimitiveTypes.Int16, nil
		case engine.INT32:
			return arrow.PrimitiveTypes.Int32, nil
		case engine.INT64:
			return arrow.PrimitiveTypes.Int64, nil
		case engine.UINT8:
			return arrow.PrimitiveTypes.Uint8, nil
		case engine.UINT16:
			return arrow.PrimitiveTypes.Uint16, nil
		case engine.UINT32:
			return arrow.PrimitiveTypes.Uint32, nil
		case engine.UINT64:
			return arrow.PrimitiveTypes.Uint64, nil
		case engine.FLOAT32:
			return arrow.PrimitiveTypes.Float32, nil
		case engine.FLOAT64:
			return arrow.PrimitiveTypes.Float64, nil
		case engine.STRING:
			return arrow.BinaryTypes.String, nil
		case engine.BINARY:
			return arrow.BinaryTypes.Binary, nil
		case engine.DATE:
			return arrow.FixedWidthTypes.Date32, nil
		case engine.TIME:
			return arrow.FixedWidthTypes.Time64ns, nil
		case engine.NULL:
			return arrow.Null, nil
		}
	case *engine.DatetimeType:
		return &arrow.TimestampType{Unit: arrowUnit(t.Unit), TimeZone: t.TimeZone}, nil
	case *engine.DurationType:
		return &arrow.DurationType{Unit: arrowUnit(t.Unit)}, nil
	case *engine.DecimalType:
		p := t.Precision
		if p == 0 {
			p = engine.MaxDecimalPrecision
		}
		return &arrow.Decimal128Type{Precision: int32(p), Scale: int32(t.Scale)}, nil
	case *engine.EnumType, *engine.CategoricalType:
		return dictType, nil
	case *engine.ListType:
		inner, err := ArrowType(t.Inner)
		if err != nil {
			return nil, err
		}
		return arrow.ListOf(inner), nil
	case *engine.ArrayType:
		inner, err := ArrowType(t.Inner)
		if err != nil {
			return nil, err
		}
		return arrow.FixedSizeListOf(int32(t.Shape), inner), nil
	case *engine.StructType:
		fields := make([]arrow.Field, len(t.Fields))
		for i, f := range t.Fields {
			inner, err := ArrowType(f.DType)
			if err != nil {
				return nil, err
			}
			fields[i] = arrow.Field{Name: f.Name, Type: inner, Nullable: true}
		}
		return arrow.StructOf(fields...), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, dt)
}

// InferType maps an Arrow type back to an engine dtype. String dictionaries
// become Categorical since Arrow does not record a fixed category list.
func InferType(at arrow.DataType) (engine.DataType, error) {
	switch t := at.(type) {
	case *arrow.BooleanType:
		return engine.Boolean, nil
	case *arrow.Int8Type:
		return engine.Int8, nil
	case *arrow.Int16Type:
		return engine.Int16, nil
	case *arrow.Int32Type:
		return engine.Int32, nil
	case *arrow.Int64Type:
		return engine.Int64, nil
	case *arrow.Uint8Type:
		return engine.UInt8, nil
	case *arrow.Uint16Type:
		return engine.UInt16, nil
	case *arrow.Uint32Type:
		return engine.UInt32, nil
	case *arrow.Uint64Type:
		return engine.UInt64, nil
	case *arrow.Float32Type:
		return engine.Float32, nil
	case *arrow.Float64Type:
		return engine.Float64, nil
	case *arrow.StringType, *arrow.LargeStringType:
		return engine.String, nil
	case *arrow.BinaryType, *arrow.LargeBinaryType:
		return engine.Binary, nil
	case *arrow.Date32Type:
		return engine.Date, nil
	case *arrow.Time64Type:
		return engine.Time, nil
	case *arrow.TimestampType:
		unit, err := engineUnit(t.Unit)
		if err != nil {
			return nil, err
		}
		return engine.Datetime(unit, t.TimeZone), nil
	case *arrow.DurationType:
		unit, err := engineUnit(t.Unit)
		if err != nil {
			return nil, err
		}
		return engine.Duration(unit), nil
	case *arrow.Decimal128Type:
		return engine.Decimal(int(t.Precision), int(t.Scale)), nil
	case *arrow.DictionaryType:
		switch t.ValueType.(type) {
		case *arrow.StringType, *arrow.LargeStringType:
			return engine.Categorical(), nil
		}
	case *arrow.ListType:
		inner, err := InferType(t.Elem())
		if err != nil {
			return nil, err
		}
		return engine.List(inner), nil
	case *arrow.FixedSizeListType:
		inner, err := InferType(t.Elem())
		if err != nil {
			return nil, err
		}
		return engine.Array(inner, int(t.Len())), nil
	case *arrow.StructType:
		fields := make([]engine.Field, len(t.Fields()))
		for i, f := range t.Fields() {
			inner, err := InferType(f.Type)
			if err != nil {
				return nil, err
			}
			fields[i] = engine.Field{Name: f.Name, DType: inner}
		}
		return engine.Struct(fields...), nil
	case *arrow.NullType:
		return engine.Null, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, at)
}

func arrowUnit(u engine.TimeUnit) arrow.TimeUnit {
	switch u {
	case engine.Microseconds:
		return arrow.Microsecond
	case engine.Milliseconds:
		return arrow.Millisecond
	}
	return arrow.Nanosecond
}

func engineUnit(u arrow.TimeUnit) (engine.TimeUnit, error) {
	switch u {
	case arrow.Nanosecond:
		return engine.Nanoseconds, nil
	case arrow.Microsecond:
		return engine.Microseconds, nil
	case arrow.Millisecond:
		return engine.Milliseconds, nil
	}
	return 0, fmt.Errorf("%w: time unit %s", ErrUnsupported, u)
}

// nanosPer is the number of nanoseconds in one u.
func nanosPer(u arrow.TimeUnit) int64 {
	switch u {
	case arrow.Second:
		return 1e9
	case arrow.Millisecond:
		return 1e6
	case arrow.Microsecond:
		return 1e3
	}
	return 1
}
