package engine

import (
	"fmt"
	"strings"
)

// TypeID identifies the variant of a DataType.
type TypeID uint8

const (
	BOOLEAN TypeID = iota
	INT8
	INT16
	INT32
	INT64
	UINT8
	UINT16
	UINT32
	UINT64
	FLOAT32
	FLOAT64
	STRING
	BINARY
	DATE
	TIME
	NULL
	DATETIME
	DURATION
	DECIMAL
	ENUM
	CATEGORICAL
	LIST
	ARRAY
	STRUCT
)

// MaxDecimalPrecision is the precision a Decimal gets when none was given.
const MaxDecimalPrecision = 38

// DataType is the logical type of a column. The set of implementations is
// closed: PrimitiveType plus the pointer types declared in this file.
type DataType interface {
	ID() TypeID
	String() string
	dataType()
}

// PrimitiveType covers every type without parameters.
type PrimitiveType struct {
	id   TypeID
	name string
}

func (t PrimitiveType) ID() TypeID     { return t.id }
func (t PrimitiveType) String() string { return t.name }
func (PrimitiveType) dataType()        {}

var (
	Boolean = PrimitiveType{BOOLEAN, "Boolean"}
	Int8    = PrimitiveType{INT8, "Int8"}
	Int16   = PrimitiveType{INT16, "Int16"}
	Int32   = PrimitiveType{INT32, "Int32"}
	Int64   = PrimitiveType{INT64, "Int64"}
	UInt8   = PrimitiveType{UINT8, "UInt8"}
	UInt16  = PrimitiveType{UINT16, "UInt16"}
	UInt32  = PrimitiveType{UINT32, "UInt32"}
	UInt64  = PrimitiveType{UINT64, "UInt64"}
	Float32 = PrimitiveType{FLOAT32, "Float32"}
	Float64 = PrimitiveType{FLOAT64, "Float64"}
	String  = PrimitiveType{STRING, "String"}
	Binary  = PrimitiveType{BINARY, "Binary"}
	Date    = PrimitiveType{DATE, "Date"}
	Time    = PrimitiveType{TIME, "Time"}
	Null    = PrimitiveType{NULL, "Null"}
)

// Primitives lists every PrimitiveType, in TypeID order.
var Primitives = []PrimitiveType{
	Boolean, Int8, Int16, Int32, Int64, UInt8, UInt16, UInt32, UInt64,
	Float32, Float64, String, Binary, Date, Time, Null,
}

// TimeUnit is the resolution of Datetime and Duration values.
type TimeUnit uint8

const (
	Nanoseconds TimeUnit = iota
	Microseconds
	Milliseconds
)

func (u TimeUnit) String() string {
	switch u {
	case Nanoseconds:
		return "Nanoseconds"
	case Microseconds:
		return "Microseconds"
	case Milliseconds:
		return "Milliseconds"
	}
	return fmt.Sprintf("TimeUnit(%d)", uint8(u))
}

// Abbrev returns the short form used in type names ("ns", "us", "ms").
func (u TimeUnit) Abbrev() string {
	switch u {
	case Nanoseconds:
		return "ns"
	case Microseconds:
		return "us"
	case Milliseconds:
		return "ms"
	}
	return "?"
}

// ParseTimeUnit accepts the long names written by TimeUnit.String.
func ParseTimeUnit(s string) (TimeUnit, bool) {
	switch s {
	case "Nanoseconds":
		return Nanoseconds, true
	case "Microseconds":
		return Microseconds, true
	case "Milliseconds":
		return Milliseconds, true
	}
	return 0, false
}

// CategoricalOrdering controls how categories compare.
type CategoricalOrdering uint8

const (
	OrderPhysical CategoricalOrdering = iota
	OrderLexical
)

func (o CategoricalOrdering) String() string {
	if o == OrderLexical {
		return "Lexical"
	}
	return "Physical"
}

// ParseOrdering accepts "Physical" and "Lexical".
func ParseOrdering(s string) (CategoricalOrdering, bool) {
	switch s {
	case "Physical":
		return OrderPhysical, true
	case "Lexical":
		return OrderLexical, true
	}
	return 0, false
}

// DatetimeType is a point in time stored as an int64 count of Unit since
// the Unix epoch. TimeZone is empty for naive datetimes.
type DatetimeType struct {
	Unit     TimeUnit
	TimeZone string
}

func (*DatetimeType) ID() TypeID { return DATETIME }
func (t *DatetimeType) String() string {
	if t.TimeZone == "" {
		return fmt.Sprintf("Datetime(%s)", t.Unit.Abbrev())
	}
	return fmt.Sprintf("Datetime(%s, %s)", t.Unit.Abbrev(), t.TimeZone)
}
func (*DatetimeType) dataType() {}

// DurationType is an elapsed time stored as an int64 count of Unit.
type DurationType struct {
	Unit TimeUnit
}

func (*DurationType) ID() TypeID       { return DURATION }
func (t *DurationType) String() string { return fmt.Sprintf("Duration(%s)", t.Unit.Abbrev()) }
func (*DurationType) dataType()        {}

// DecimalType is a fixed point number. Precision 0 means unspecified.
type DecimalType struct {
	Precision int
	Scale     int
}

func (*DecimalType) ID() TypeID { return DECIMAL }
func (t *DecimalType) String() string {
	if t.Precision == 0 {
		return fmt.Sprintf("Decimal(None, %d)", t.Scale)
	}
	return fmt.Sprintf("Decimal(%d, %d)", t.Precision, t.Scale)
}
func (*DecimalType) dataType() {}

// EnumType has a fixed, ordered category list. Values are uint32 indexes
// into Categories.
type EnumType struct {
	Categories []string
	Ordering   CategoricalOrdering
}

func (*EnumType) ID() TypeID { return ENUM }
func (t *EnumType) String() string {
	return fmt.Sprintf("Enum([%s])", strings.Join(quoteAll(t.Categories), ", "))
}
func (*EnumType) dataType() {}

// CategoricalType has categories discovered from the data. Values are the
// category strings themselves.
type CategoricalType struct {
	Ordering CategoricalOrdering
}

func (*CategoricalType) ID() TypeID     { return CATEGORICAL }
func (*CategoricalType) String() string { return "Categorical" }
func (*CategoricalType) dataType()      {}

// ListType holds a variable number of Inner values per row.
type ListType struct {
	Inner DataType
}

func (*ListType) ID() TypeID       { return LIST }
func (t *ListType) String() string { return fmt.Sprintf("List(%s)", t.Inner) }
func (*ListType) dataType()        {}

// ArrayType holds exactly Shape Inner values per non-null row.
type ArrayType struct {
	Inner DataType
	Shape int
}

func (*ArrayType) ID() TypeID       { return ARRAY }
func (t *ArrayType) String() string { return fmt.Sprintf("Array(%s, shape=%d)", t.Inner, t.Shape) }
func (*ArrayType) dataType()        {}

// Field is a named member of a StructType.
type Field struct {
	Name  string
	DType DataType
}

// StructType is an ordered list of named fields.
type StructType struct {
	Fields []Field
}

func (*StructType) ID() TypeID { return STRUCT }
func (t *StructType) String() string {
	parts := make([]string, len(t.Fields))
	for i, f := range t.Fields {
		parts[i] = fmt.Sprintf("%q: %s", f.Name, f.DType)
	}
	return "Struct({" + strings.Join(parts, ", ") + "})"
}
func (*StructType) dataType() {}

func Datetime(unit TimeUnit, tz string) *DatetimeType { return &DatetimeType{Unit: unit, TimeZone: tz} }
func Duration(unit TimeUnit) *DurationType            { return &DurationType{Unit: unit} }
func Decimal(precision, scale int) *DecimalType       { return &DecimalType{Precision: precision, Scale: scale} }
func Enum(categories ...string) *EnumType             { return &EnumType{Categories: categories} }
func Categorical() *CategoricalType                   { return &CategoricalType{} }
func List(inner DataType) *ListType                   { return &ListType{Inner: inner} }
func Array(inner DataType, shape int) *ArrayType      { return &ArrayType{Inner: inner, Shape: shape} }
func Struct(fields ...Field) *StructType              { return &StructType{Fields: fields} }

// TypesEqual reports whether a and b describe the same logical type.
func TypesEqual(a, b DataType) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.ID() != b.ID() {
		return false
	}
	switch at := a.(type) {
	case PrimitiveType:
		return true
	case *DatetimeType:
		bt := b.(*DatetimeType)
		return at.Unit == bt.Unit && at.TimeZone == bt.TimeZone
	case *DurationType:
		return at.Unit == b.(*DurationType).Unit
	case *DecimalType:
		bt := b.(*DecimalType)
		return at.Precision == bt.Precision && at.Scale == bt.Scale
	case *EnumType:
		bt := b.(*EnumType)
		if at.Ordering != bt.Ordering || len(at.Categories) != len(bt.Categories) {
			return false
		}
		for i := range at.Categories {
			if at.Categories[i] != bt.Categories[i] {
				return false
			}
		}
		return true
	case *CategoricalType:
		return at.Ordering == b.(*CategoricalType).Ordering
	case *ListType:
		return TypesEqual(at.Inner, b.(*ListType).Inner)
	case *ArrayType:
		bt := b.(*ArrayType)
		return at.Shape == bt.Shape && TypesEqual(at.Inner, bt.Inner)
	case *StructType:
		bt := b.(*StructType)
		if len(at.Fields) != len(bt.Fields) {
			return false
		}
		for i := range at.Fields {
			if at.Fields[i].Name != bt.Fields[i].Name || !TypesEqual(at.Fields[i].DType, bt.Fields[i].DType) {
				return false
			}
		}
		return true
	}
	return false
}

// IsNested reports whether values of t hold other values.
func IsNested(t DataType) bool {
	switch t.ID() {
	case LIST, ARRAY, STRUCT:
		return true
	}
	return false
}

func quoteAll(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = fmt.Sprintf("%q", s)
	}
	return out
}
