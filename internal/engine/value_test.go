package engine

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestTemporalConversions(t *testing.T) {
	ts := time.Date(2023, 11, 14, 22, 13, 20, 123456789, time.UTC)

	d := DateOf(ts)
	if got := d.Time(); !got.Equal(time.Date(2023, 11, 14, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("DateOf round trip = %v", got)
	}
	if DateOf(time.Date(1969, 12, 31, 23, 0, 0, 0, time.UTC)) != -1 {
		t.Errorf("Dates before the epoch should be negative")
	}

	clock := TimeOf(ts)
	want := 22*time.Hour + 13*time.Minute + 20*time.Second + 123456789*time.Nanosecond
	if clock.Duration() != want {
		t.Errorf("TimeOf = %v, want %v", clock.Duration(), want)
	}

	tests := []struct {
		unit TimeUnit
		want time.Time
	}{
		{Nanoseconds, ts},
		{Microseconds, ts.Truncate(time.Microsecond)},
		{Milliseconds, ts.Truncate(time.Millisecond)},
	}
	for _, tt := range tests {
		if got := TimestampOf(ts, tt.unit).Time(tt.unit); !got.Equal(tt.want) {
			t.Errorf("Timestamp in %s = %v, want %v", tt.unit, got, tt.want)
		}
		delta := 90*time.Second + 1500*time.Nanosecond
		back := TimeDeltaOf(delta, tt.unit).Std(tt.unit)
		if back != delta.Truncate(time.Duration(unitNanos(tt.unit))) {
			t.Errorf("TimeDelta in %s = %v", tt.unit, back)
		}
	}
}

func TestValuesEqual(t *testing.T) {
	point := Struct(Field{Name: "x", DType: Int8}, Field{Name: "y", DType: Binary})
	tests := []struct {
		name string
		dt   DataType
		a, b Value
		want bool
	}{
		{"ints", Int32, int32(1), int32(1), true},
		{"different go types", Int32, int32(1), int64(1), false},
		{"null vs value", Int32, nil, int32(0), false},
		{"both null", Int32, nil, nil, true},
		{"binary", Binary, []byte{1, 2}, []byte{1, 2}, true},
		{"decimal scale ignored", Decimal(5, 2), decimal.RequireFromString("1.5"), decimal.RequireFromString("1.50"), true},
		{"list", List(String), []Value{"a", nil}, []Value{"a", nil}, true},
		{"list length", List(String), []Value{"a"}, []Value{"a", nil}, false},
		{"struct", point, []Value{int8(1), []byte("z")}, []Value{int8(1), []byte("z")}, true},
		{"struct member", point, []Value{int8(1), []byte("z")}, []Value{int8(2), []byte("z")}, false},
		{"slice in scalar type", Int8, []Value{}, []Value{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValuesEqual(tt.dt, tt.a, tt.b); got != tt.want {
				t.Errorf("ValuesEqual(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestDecimalOverflows(t *testing.T) {
	tests := []struct {
		dt   *DecimalType
		d    string
		want bool
	}{
		{Decimal(4, 1), "123.4", false},
		{Decimal(4, 1), "-123.4", false},
		{Decimal(4, 1), "1234.5", true},
		{Decimal(4, 2), "0.01", false},
		{Decimal(0, 0), "12345678901234567890123456789012345678", false},
		{Decimal(0, 0), "123456789012345678901234567890123456789", true},
	}
	for _, tt := range tests {
		if got := tt.dt.Overflows(decimal.RequireFromString(tt.d)); got != tt.want {
			t.Errorf("%s.Overflows(%s) = %v, want %v", tt.dt, tt.d, got, tt.want)
		}
	}
}
