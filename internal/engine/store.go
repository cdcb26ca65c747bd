package engine

import (
	"errors"
	"fmt"
	"strings"
)

// ErrLengthMismatch is returned when the columns of a frame differ in length.
var ErrLengthMismatch = errors.New("lengths don't match")

// Flags are column metadata bits that cannot be derived from the values.
type Flags uint8

const (
	SortedAsc Flags = 1 << iota
	SortedDesc
	FastExplodeList
)

// Has reports whether every bit of f2 is set in f.
func (f Flags) Has(f2 Flags) bool { return f&f2 == f2 }

func (f Flags) String() string {
	var parts []string
	if f.Has(SortedAsc) {
		parts = append(parts, "SortedAsc")
	}
	if f.Has(SortedDesc) {
		parts = append(parts, "SortedDesc")
	}
	if f.Has(FastExplodeList) {
		parts = append(parts, "FastExplodeList")
	}
	if len(parts) == 0 {
		return "None"
	}
	return strings.Join(parts, "|")
}

// Series is one named, typed column.
type Series struct {
	name   string
	dtype  DataType
	flags  Flags
	values []Value
}

// NewSeries wraps values without copying them. Values are checked against
// dtype when the series is serialized.
func NewSeries(name string, dtype DataType, values []Value) *Series {
	if values == nil {
		values = []Value{}
	}
	return &Series{name: name, dtype: dtype, values: values}
}

func (s *Series) Name() string      { return s.name }
func (s *Series) DType() DataType   { return s.dtype }
func (s *Series) Flags() Flags      { return s.flags }
func (s *Series) Len() int          { return len(s.values) }
func (s *Series) Values() []Value   { return s.values }
func (s *Series) Value(i int) Value { return s.values[i] }

// WithFlags returns s after replacing its flags.
func (s *Series) WithFlags(f Flags) *Series {
	s.flags = f
	return s
}

// NullCount counts top-level nulls.
func (s *Series) NullCount() int {
	n := 0
	for _, v := range s.values {
		if v == nil {
			n++
		}
	}
	return n
}

// Equal reports whether both series have the same name, dtype, flags and
// values.
func (s *Series) Equal(o *Series) bool {
	if s.name != o.name || s.flags != o.flags || len(s.values) != len(o.values) {
		return false
	}
	if !TypesEqual(s.dtype, o.dtype) {
		return false
	}
	for i := range s.values {
		if !ValuesEqual(s.dtype, s.values[i], o.values[i]) {
			return false
		}
	}
	return true
}

// DataFrame holds data in column-major format: an ordered list of equally
// long series. Names are not required to be unique.
type DataFrame struct {
	columns []*Series
}

// NewDataFrame builds a frame from columns, keeping their order.
func NewDataFrame(columns ...*Series) (*DataFrame, error) {
	if err := CheckLengths(columns); err != nil {
		return nil, err
	}
	cols := make([]*Series, len(columns))
	copy(cols, columns)
	return &DataFrame{columns: cols}, nil
}

// CheckLengths fails with ErrLengthMismatch naming the first column whose
// length differs from the first column's.
func CheckLengths(columns []*Series) error {
	if len(columns) == 0 {
		return nil
	}
	want := columns[0].Len()
	for _, c := range columns[1:] {
		if c.Len() != want {
			return fmt.Errorf("%w: column %q has length %d, column %q has length %d",
				ErrLengthMismatch, columns[0].Name(), want, c.Name(), c.Len())
		}
	}
	return nil
}

func (df *DataFrame) Columns() []*Series { return df.columns }
func (df *DataFrame) Width() int         { return len(df.columns) }

// Height is the number of rows.
func (df *DataFrame) Height() int {
	if len(df.columns) == 0 {
		return 0
	}
	return df.columns[0].Len()
}

// Column returns the first column called name.
func (df *DataFrame) Column(name string) (*Series, bool) {
	for _, c := range df.columns {
		if c.name == name {
			return c, true
		}
	}
	return nil, false
}

// Schema lists column names and dtypes in order.
func (df *DataFrame) Schema() []Field {
	out := make([]Field, len(df.columns))
	for i, c := range df.columns {
		out[i] = Field{Name: c.name, DType: c.dtype}
	}
	return out
}

// SetSorted marks the named column as sorted. The caller vouches for the
// order; values are not inspected.
func (df *DataFrame) SetSorted(name string, descending bool) error {
	c, ok := df.Column(name)
	if !ok {
		return fmt.Errorf("column %q not found", name)
	}
	f := c.flags &^ (SortedAsc | SortedDesc)
	if descending {
		f |= SortedDesc
	} else {
		f |= SortedAsc
	}
	c.flags = f
	return nil
}

// Equal compares column order, names, dtypes, flags and values.
func (df *DataFrame) Equal(o *DataFrame) bool {
	if len(df.columns) != len(o.columns) {
		return false
	}
	for i := range df.columns {
		if !df.columns[i].Equal(o.columns[i]) {
			return false
		}
	}
	return true
}
