package arrowconv

import (
	"errors"
	"fmt"

	"dfserde/internal/engine"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/decimal128"
	"github.com/shopspring/decimal"
)

var errNotBuilt = errors.New("builder does not match dtype")

func appendTyped[T any](b interface{ Append(T) }, v engine.Value) error {
	x, ok := v.(T)
	if !ok {
		return fmt.Errorf("expected %T, got %T", x, v)
	}
	b.Append(x)
	return nil
}

// appendValue appends v to b, whose Arrow type was derived from dt.
func appendValue(b array.Builder, dt engine.DataType, v engine.Value) error {
	if v == nil {
		b.AppendNull()
		return nil
	}
	switch b := b.(type) {
	case *array.BooleanBuilder:
		return appendTyped[bool](b, v)
	case *array.Int8Builder:
		return appendTyped[int8](b, v)
	case *array.Int16Builder:
		return appendTyped[int16](b, v)
	case *array.Int32Builder:
		return appendTyped[int32](b, v)
	case *array.Int64Builder:
		return appendTyped[int64](b, v)
	case *array.Uint8Builder:
		return appendTyped[uint8](b, v)
	case *array.Uint16Builder:
		return appendTyped[uint16](b, v)
	case *array.Uint32Builder:
		return appendTyped[uint32](b, v)
	case *array.Uint64Builder:
		return appendTyped[uint64](b, v)
	case *array.Float32Builder:
		return appendTyped[float32](b, v)
	case *array.Float64Builder:
		return appendTyped[float64](b, v)
	case *array.StringBuilder:
		return appendTyped[string](b, v)
	case *array.BinaryBuilder:
		return appendTyped[[]byte](b, v)
	case *array.Date32Builder:
		x, ok := v.(engine.Date32)
		if !ok {
			return fmt.Errorf("expected engine.Date32, got %T", v)
		}
		b.Append(arrow.Date32(x))
	case *array.Time64Builder:
		x, ok := v.(engine.Time64)
		if !ok {
			return fmt.Errorf("expected engine.Time64, got %T", v)
		}
		b.Append(arrow.Time64(x))
	case *array.TimestampBuilder:
		x, ok := v.(engine.Timestamp)
		if !ok {
			return fmt.Errorf("expected engine.Timestamp, got %T", v)
		}
		b.Append(arrow.Timestamp(x))
	case *array.DurationBuilder:
		x, ok := v.(engine.TimeDelta)
		if !ok {
			return fmt.Errorf("expected engine.TimeDelta, got %T", v)
		}
		b.Append(arrow.Duration(x))
	case *array.Decimal128Builder:
		d, ok := v.(decimal.Decimal)
		if !ok {
			return fmt.Errorf("expected decimal.Decimal, got %T", v)
		}
		t := dt.(*engine.DecimalType)
		scale := int32(t.Scale)
		if !d.Equal(d.Truncate(scale)) {
			return fmt.Errorf("%s has more than %d fractional digits", d, scale)
		}
		if t.Overflows(d) {
			return fmt.Errorf("%s does not fit in %s", d, t)
		}
		b.Append(decimal128.FromBigInt(d.Shift(scale).BigInt()))
	case *array.BinaryDictionaryBuilder:
		s, err := categoryString(dt, v)
		if err != nil {
			return err
		}
		return b.AppendString(s)
	case *array.ListBuilder:
		elems, ok := v.([]engine.Value)
		if !ok {
			return fmt.Errorf("expected []Value, got %T", v)
		}
		inner := dt.(*engine.ListType).Inner
		b.Append(true)
		for _, e := range elems {
			if err := appendValue(b.ValueBuilder(), inner, e); err != nil {
				return err
			}
		}
	case *array.FixedSizeListBuilder:
		t := dt.(*engine.ArrayType)
		elems, ok := v.([]engine.Value)
		if !ok {
			return fmt.Errorf("expected []Value, got %T", v)
		}
		if len(elems) != t.Shape {
			return fmt.Errorf("expected %d elements, got %d", t.Shape, len(elems))
		}
		b.Append(true)
		for _, e := range elems {
			if err := appendValue(b.ValueBuilder(), t.Inner, e); err != nil {
				return err
			}
		}
	case *array.StructBuilder:
		t := dt.(*engine.StructType)
		members, ok := v.([]engine.Value)
		if !ok || len(members) != len(t.Fields) {
			return fmt.Errorf("expected %d struct members, got %v", len(t.Fields), v)
		}
		b.Append(true)
		for k, f := range t.Fields {
			if err := appendValue(b.FieldBuilder(k), f.DType, members[k]); err != nil {
				return fmt.Errorf("field %q: %w", f.Name, err)
			}
		}
	case *array.NullBuilder:
		return fmt.Errorf("expected null, got %T", v)
	default:
		return fmt.Errorf("%w: %T for %s", errNotBuilt, b, dt)
	}
	return nil
}

func categoryString(dt engine.DataType, v engine.Value) (string, error) {
	switch t := dt.(type) {
	case *engine.EnumType:
		idx, ok := v.(uint32)
		if !ok {
			return "", fmt.Errorf("expected uint32 category index, got %T", v)
		}
		if int(idx) >= len(t.Categories) {
			return "", fmt.Errorf("category index %d out of range for %d categories", idx, len(t.Categories))
		}
		return t.Categories[idx], nil
	case *engine.CategoricalType:
		s, ok := v.(string)
		if !ok {
			return "", fmt.Errorf("expected string, got %T", v)
		}
		return s, nil
	}
	return "", fmt.Errorf("%w: dictionary for %s", errNotBuilt, dt)
}

// readValue reads row i of arr as a value of dt.
func readValue(arr arrow.Array, dt engine.DataType, i int) (engine.Value, error) {
	if arr.IsNull(i) {
		return nil, nil
	}
	switch a := arr.(type) {
	case *array.Boolean:
		return a.Value(i), nil
	case *array.Int8:
		return a.Value(i), nil
	case *array.Int16:
		return a.Value(i), nil
	case *array.Int32:
		return a.Value(i), nil
	case *array.Int64:
		return a.Value(i), nil
	case *array.Uint8:
		return a.Value(i), nil
	case *array.Uint16:
		return a.Value(i), nil
	case *array.Uint32:
		return a.Value(i), nil
	case *array.Uint64:
		return a.Value(i), nil
	case *array.Float32:
		return a.Value(i), nil
	case *array.Float64:
		return a.Value(i), nil
	case *array.String:
		return a.Value(i), nil
	case *array.LargeString:
		return a.Value(i), nil
	case *array.Binary:
		return append([]byte{}, a.Value(i)...), nil
	case *array.LargeBinary:
		return append([]byte{}, a.Value(i)...), nil
	case *array.Date32:
		return engine.Date32(a.Value(i)), nil
	case *array.Time64:
		unit := a.DataType().(*arrow.Time64Type).Unit
		return engine.Time64(int64(a.Value(i)) * nanosPer(unit)), nil
	case *array.Timestamp:
		return engine.Timestamp(a.Value(i)), nil
	case *array.Duration:
		return engine.TimeDelta(a.Value(i)), nil
	case *array.Decimal128:
		scale := a.DataType().(*arrow.Decimal128Type).Scale
		n := a.Value(i)
		return decimal.NewFromBigInt(n.BigInt(), -scale), nil
	case *array.Dictionary:
		return readCategory(a, dt, i)
	case *array.List:
		inner, ok := dt.(*engine.ListType)
		if !ok {
			return nil, fmt.Errorf("%w: list for %s", errNotBuilt, dt)
		}
		start, end := a.ValueOffsets(i)
		return readRange(a.ListValues(), inner.Inner, int(start), int(end))
	case *array.FixedSizeList:
		t, ok := dt.(*engine.ArrayType)
		if !ok {
			return nil, fmt.Errorf("%w: fixed size list for %s", errNotBuilt, dt)
		}
		n := int(a.DataType().(*arrow.FixedSizeListType).Len())
		start := (a.Data().Offset() + i) * n
		return readRange(a.ListValues(), t.Inner, start, start+n)
	case *array.Struct:
		t, ok := dt.(*engine.StructType)
		if !ok || a.NumField() != len(t.Fields) {
			return nil, fmt.Errorf("%w: struct for %s", errNotBuilt, dt)
		}
		members := make([]engine.Value, len(t.Fields))
		for k, f := range t.Fields {
			v, err := readValue(a.Field(k), f.DType, i)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", f.Name, err)
			}
			members[k] = v
		}
		return members, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, arr.DataType())
}

func readRange(values arrow.Array, dt engine.DataType, start, end int) (engine.Value, error) {
	out := make([]engine.Value, end-start)
	for k := range out {
		v, err := readValue(values, dt, start+k)
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}

func readCategory(a *array.Dictionary, dt engine.DataType, i int) (engine.Value, error) {
	var s string
	switch d := a.Dictionary().(type) {
	case *array.String:
		s = d.Value(a.GetValueIndex(i))
	case *array.LargeString:
		s = d.Value(a.GetValueIndex(i))
	default:
		return nil, fmt.Errorf("%w: dictionary of %s", ErrUnsupported, d.DataType())
	}
	switch t := dt.(type) {
	case *engine.CategoricalType:
		return s, nil
	case *engine.EnumType:
		for k, c := range t.Categories {
			if c == s {
				return uint32(k), nil
			}
		}
		return nil, fmt.Errorf("%q is not a category of %s", s, t)
	}
	return nil, fmt.Errorf("%w: dictionary for %s", errNotBuilt, dt)
}
