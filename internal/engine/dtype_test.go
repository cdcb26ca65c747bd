package engine

import "testing"

func TestTypesEqual(t *testing.T) {
	tests := []struct {
		a, b DataType
		want bool
	}{
		{Int64, Int64, true},
		{Int64, UInt64, false},
		{Datetime(Microseconds, ""), Datetime(Microseconds, ""), true},
		{Datetime(Microseconds, ""), Datetime(Microseconds, "UTC"), false},
		{Duration(Nanoseconds), Duration(Milliseconds), false},
		{Decimal(0, 2), Decimal(38, 2), false},
		{Enum("a", "b"), Enum("a", "b"), true},
		{Enum("a", "b"), Enum("b", "a"), false},
		{Categorical(), &CategoricalType{Ordering: OrderLexical}, false},
		{List(Array(Int8, 2)), List(Array(Int8, 2)), true},
		{List(Array(Int8, 2)), List(Array(Int8, 3)), false},
		{Struct(Field{"x", Int8}), Struct(Field{"x", Int8}), true},
		{Struct(Field{"x", Int8}), Struct(Field{"y", Int8}), false},
		{nil, nil, true},
		{Int8, nil, false},
	}
	for _, tt := range tests {
		if got := TypesEqual(tt.a, tt.b); got != tt.want {
			t.Errorf("TypesEqual(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestDataTypeString(t *testing.T) {
	tests := []struct {
		dt   DataType
		want string
	}{
		{Float32, "Float32"},
		{Datetime(Microseconds, "Europe/Prague"), "Datetime(us, Europe/Prague)"},
		{Duration(Milliseconds), "Duration(ms)"},
		{Decimal(0, 3), "Decimal(None, 3)"},
		{Enum("lo", "hi"), `Enum(["lo", "hi"])`},
		{List(Array(Int8, 2)), "List(Array(Int8, shape=2))"},
		{Struct(Field{"x", Int8}), `Struct({"x": Int8})`},
	}
	for _, tt := range tests {
		if got := tt.dt.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestParseNames(t *testing.T) {
	for _, u := range []TimeUnit{Nanoseconds, Microseconds, Milliseconds} {
		if got, ok := ParseTimeUnit(u.String()); !ok || got != u {
			t.Errorf("ParseTimeUnit(%q) = %v, %v", u, got, ok)
		}
	}
	if _, ok := ParseTimeUnit("Seconds"); ok {
		t.Error("Seconds is not a supported unit")
	}
	if o, ok := ParseOrdering("Lexical"); !ok || o != OrderLexical {
		t.Errorf("ParseOrdering(Lexical) = %v, %v", o, ok)
	}
	if IsNested(String) || !IsNested(Struct()) {
		t.Error("IsNested misclassifies types")
	}
}
