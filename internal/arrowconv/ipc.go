package arrowconv

import (
	"fmt"
	"io"

	"dfserde/internal/engine"

	"github.com/apache/arrow/go/v17/arrow/ipc"
	"github.com/apache/arrow/go/v17/arrow/memory"
)

// WriteIPC writes df to w as an Arrow IPC stream holding one record batch.
func WriteIPC(w io.Writer, df *engine.DataFrame, mem memory.Allocator) error {
	rec, err := ToRecord(df, mem)
	if err != nil {
		return err
	}
	defer rec.Release()

	iw := ipc.NewWriter(w, ipc.WithSchema(rec.Schema()), ipc.WithAllocator(mem))
	if err := iw.Write(rec); err != nil {
		iw.Close()
		return fmt.Errorf("arrowconv: write ipc: %w", err)
	}
	if err := iw.Close(); err != nil {
		return fmt.Errorf("arrowconv: close ipc: %w", err)
	}
	return nil
}

// ReadIPC reads an Arrow IPC stream. Record batches are concatenated in
// stream order; a stream without batches yields an empty frame with the
// stream's schema.
func ReadIPC(r io.Reader, mem memory.Allocator) (*engine.DataFrame, error) {
	rdr, err := ipc.NewReader(r, ipc.WithAllocator(mem))
	if err != nil {
		return nil, fmt.Errorf("arrowconv: read ipc: %w", err)
	}
	defer rdr.Release()

	var parts []*engine.DataFrame
	for rdr.Next() {
		df, err := FromRecord(rdr.Record())
		if err != nil {
			return nil, err
		}
		parts = append(parts, df)
	}
	if err := rdr.Err(); err != nil {
		return nil, fmt.Errorf("arrowconv: read ipc: %w", err)
	}
	if len(parts) == 0 {
		return emptyFrame(rdr)
	}
	return concat(parts)
}

func emptyFrame(rdr *ipc.Reader) (*engine.DataFrame, error) {
	schema := rdr.Schema()
	series := make([]*engine.Series, schema.NumFields())
	for j := range series {
		f := schema.Field(j)
		dt, flags, err := fieldType(f)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", f.Name, err)
		}
		series[j] = engine.NewSeries(f.Name, dt, nil).WithFlags(flags)
	}
	return engine.NewDataFrame(series...)
}

// concat appends the rows of every part to the first. All parts come from one
// stream and so share a schema.
func concat(parts []*engine.DataFrame) (*engine.DataFrame, error) {
	if len(parts) == 1 {
		return parts[0], nil
	}
	first := parts[0]
	series := make([]*engine.Series, first.Width())
	for j, s := range first.Columns() {
		values := append([]engine.Value(nil), s.Values()...)
		for _, p := range parts[1:] {
			values = append(values, p.Columns()[j].Values()...)
		}
		series[j] = engine.NewSeries(s.Name(), s.DType(), values).WithFlags(s.Flags())
	}
	return engine.NewDataFrame(series...)
}
