package engine

import (
	"bytes"
	"math"
	"reflect"
	"time"

	"github.com/shopspring/decimal"
)

// Value is one cell of a Series. nil is the null marker at every nesting
// level. The concrete Go type is fixed by the column's DataType:
//
//	Boolean                 bool
//	Int8..Int64             int8, int16, int32, int64
//	UInt8..UInt64           uint8, uint16, uint32, uint64
//	Float32, Float64        float32, float64
//	String, Categorical     string
//	Binary                  []byte
//	Date                    Date32
//	Time                    Time64
//	Datetime                Timestamp
//	Duration                TimeDelta
//	Decimal                 decimal.Decimal
//	Enum                    uint32 (index into the categories)
//	List, Array, Struct     []Value (struct members follow field order)
type Value = any

// Date32 is the physical form of a Date: days since 1970-01-01.
type Date32 int32

// Time64 is the physical form of a Time: nanoseconds since midnight.
type Time64 int64

// Timestamp is the physical form of a Datetime: a count of the column's
// TimeUnit since the Unix epoch.
type Timestamp int64

// TimeDelta is the physical form of a Duration: a count of the column's
// TimeUnit.
type TimeDelta int64

const nanosPerDay = int64(24 * time.Hour)

// DateOf truncates t to its calendar day in t's location.
func DateOf(t time.Time) Date32 {
	y, m, d := t.Date()
	days := time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400
	return Date32(days)
}

// Time returns midnight UTC of the day.
func (d Date32) Time() time.Time {
	return time.Unix(int64(d)*86400, 0).UTC()
}

// TimeOf returns the time of day of t.
func TimeOf(t time.Time) Time64 {
	h, m, s := t.Clock()
	return Time64(int64(h)*int64(time.Hour) + int64(m)*int64(time.Minute) + int64(s)*int64(time.Second) + int64(t.Nanosecond()))
}

// Duration returns the time of day as an offset from midnight.
func (t Time64) Duration() time.Duration { return time.Duration(int64(t) % nanosPerDay) }

func unitNanos(u TimeUnit) int64 {
	switch u {
	case Microseconds:
		return int64(time.Microsecond)
	case Milliseconds:
		return int64(time.Millisecond)
	}
	return 1
}

// TimestampOf converts t to a count of unit since the epoch. Sub-unit
// precision is truncated.
func TimestampOf(t time.Time, unit TimeUnit) Timestamp {
	switch unit {
	case Microseconds:
		return Timestamp(t.UnixMicro())
	case Milliseconds:
		return Timestamp(t.UnixMilli())
	}
	return Timestamp(t.UnixNano())
}

// Time interprets the timestamp in unit and returns it in UTC.
func (ts Timestamp) Time(unit TimeUnit) time.Time {
	switch unit {
	case Microseconds:
		return time.UnixMicro(int64(ts)).UTC()
	case Milliseconds:
		return time.UnixMilli(int64(ts)).UTC()
	}
	return time.Unix(0, int64(ts)).UTC()
}

// TimeDeltaOf converts d to a count of unit. Sub-unit precision is truncated.
func TimeDeltaOf(d time.Duration, unit TimeUnit) TimeDelta {
	return TimeDelta(int64(d) / unitNanos(unit))
}

// Std converts the delta, counted in unit, to a time.Duration.
func (d TimeDelta) Std(unit TimeUnit) time.Duration {
	return time.Duration(int64(d) * unitNanos(unit))
}

// Overflows reports whether d, written with the type's scale, needs more
// digits than its precision allows. Precision 0 counts as
// MaxDecimalPrecision.
func (t *DecimalType) Overflows(d decimal.Decimal) bool {
	p := t.Precision
	if p == 0 {
		p = MaxDecimalPrecision
	}
	n := d.Shift(int32(t.Scale)).BigInt()
	return len(n.Abs(n).String()) > p
}

// ValuesEqual compares two values of type dt. NaN equals NaN and decimals
// compare by numeric value.
func ValuesEqual(dt DataType, a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch t := dt.(type) {
	case PrimitiveType:
		switch t.ID() {
		case FLOAT32:
			x, ok1 := a.(float32)
			y, ok2 := b.(float32)
			return ok1 && ok2 && (x == y || (math.IsNaN(float64(x)) && math.IsNaN(float64(y))))
		case FLOAT64:
			x, ok1 := a.(float64)
			y, ok2 := b.(float64)
			return ok1 && ok2 && (x == y || (math.IsNaN(x) && math.IsNaN(y)))
		case BINARY:
			x, ok1 := a.([]byte)
			y, ok2 := b.([]byte)
			return ok1 && ok2 && bytes.Equal(x, y)
		}
		return scalarEqual(a, b)
	case *DecimalType:
		x, ok1 := a.(decimal.Decimal)
		y, ok2 := b.(decimal.Decimal)
		return ok1 && ok2 && x.Equal(y)
	case *ListType:
		return elemsEqual(a, b, func(int) DataType { return t.Inner })
	case *ArrayType:
		return elemsEqual(a, b, func(int) DataType { return t.Inner })
	case *StructType:
		x, ok1 := a.([]Value)
		y, ok2 := b.([]Value)
		if !ok1 || !ok2 || len(x) != len(t.Fields) || len(y) != len(t.Fields) {
			return false
		}
		return elemsEqual(a, b, func(i int) DataType { return t.Fields[i].DType })
	}
	return scalarEqual(a, b)
}

// scalarEqual is == that reports false instead of panicking on values of
// incomparable dynamic types.
func scalarEqual(a, b Value) bool {
	if !reflect.TypeOf(a).Comparable() || !reflect.TypeOf(b).Comparable() {
		return false
	}
	return a == b
}

func elemsEqual(a, b Value, typeAt func(int) DataType) bool {
	x, ok1 := a.([]Value)
	y, ok2 := b.([]Value)
	if !ok1 || !ok2 || len(x) != len(y) {
		return false
	}
	for i := range x {
		if !ValuesEqual(typeAt(i), x[i], y[i]) {
			return false
		}
	}
	return true
}
