package serde

import (
	"bytes"
	"fmt"
	"math"
	"sort"
	"strconv"

	"dfserde/internal/engine"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"golang.org/x/exp/constraints"
)

var nullLiteral = []byte("null")

// appendValues writes the JSON array of a column's values.
func appendValues(buf []byte, dt engine.DataType, values []engine.Value) ([]byte, error) {
	buf = append(buf, '[')
	for i, v := range values {
		if i > 0 {
			buf = append(buf, ',')
		}
		var err error
		if buf, err = appendValue(buf, dt, v); err != nil {
			return buf, atPath(err, "["+strconv.Itoa(i)+"]")
		}
	}
	return append(buf, ']'), nil
}

func appendValue(buf []byte, dt engine.DataType, v engine.Value) ([]byte, error) {
	if v == nil {
		return append(buf, nullLiteral...), nil
	}
	var ok bool
	switch t := dt.(type) {
	case engine.PrimitiveType:
		return appendPrimitive(buf, t, v)
	case *engine.DatetimeType:
		buf, ok = appendSigned[engine.Timestamp](buf, v)
	case *engine.DurationType:
		buf, ok = appendSigned[engine.TimeDelta](buf, v)
	case *engine.DecimalType:
		var d decimal.Decimal
		if d, ok = v.(decimal.Decimal); ok {
			scale := int32(t.Scale)
			if !d.Equal(d.Truncate(scale)) {
				return buf, encErr("%s has more than %d fractional digits", d, t.Scale)
			}
			if t.Overflows(d) {
				return buf, encErr("%s does not fit in %s", d, t)
			}
			buf = append(buf, d.StringFixed(scale)...)
		}
	case *engine.EnumType:
		var idx uint32
		if idx, ok = v.(uint32); ok {
			if int(idx) >= len(t.Categories) {
				return buf, encErr("category index %d out of range for %d categories", idx, len(t.Categories))
			}
			buf = strconv.AppendUint(buf, uint64(idx), 10)
		}
	case *engine.CategoricalType:
		var s string
		if s, ok = v.(string); ok {
			return appendString(buf, s)
		}
	case *engine.ListType:
		var elems []engine.Value
		if elems, ok = v.([]engine.Value); ok {
			return appendValues(buf, t.Inner, elems)
		}
	case *engine.ArrayType:
		var elems []engine.Value
		if elems, ok = v.([]engine.Value); ok {
			if len(elems) != t.Shape {
				return buf, &Error{Kind: ErrShapeMismatch, Msg: fmt.Sprintf("expected %d elements, got %d", t.Shape, len(elems))}
			}
			return appendValues(buf, t.Inner, elems)
		}
	case *engine.StructType:
		var members []engine.Value
		if members, ok = v.([]engine.Value); ok {
			if len(members) != len(t.Fields) {
				return buf, encErr("expected %d struct members, got %d", len(t.Fields), len(members))
			}
			return appendStruct(buf, t, members)
		}
	default:
		return buf, encErr("unsupported data type %T", dt)
	}
	if !ok {
		return buf, mismatch(dt, v)
	}
	return buf, nil
}

func appendPrimitive(buf []byte, t engine.PrimitiveType, v engine.Value) ([]byte, error) {
	var ok bool
	switch t.ID() {
	case engine.BOOLEAN:
		var b bool
		if b, ok = v.(bool); ok {
			buf = strconv.AppendBool(buf, b)
		}
	case engine.INT8:
		buf, ok = appendSigned[int8](buf, v)
	case engine.INT16:
		buf, ok = appendSigned[int16](buf, v)
	case engine.INT32:
		buf, ok = appendSigned[int32](buf, v)
	case engine.INT64:
		buf, ok = appendSigned[int64](buf, v)
	case engine.UINT8:
		buf, ok = appendUnsigned[uint8](buf, v)
	case engine.UINT16:
		buf, ok = appendUnsigned[uint16](buf, v)
	case engine.UINT32:
		buf, ok = appendUnsigned[uint32](buf, v)
	case engine.UINT64:
		buf, ok = appendUnsigned[uint64](buf, v)
	case engine.FLOAT32:
		buf, ok = appendFloat[float32](buf, v, 32)
	case engine.FLOAT64:
		buf, ok = appendFloat[float64](buf, v, 64)
	case engine.STRING:
		var s string
		if s, ok = v.(string); ok {
			return appendString(buf, s)
		}
	case engine.BINARY:
		var p []byte
		if p, ok = v.([]byte); ok {
			buf = append(buf, '[')
			for i, c := range p {
				if i > 0 {
					buf = append(buf, ',')
				}
				buf = strconv.AppendUint(buf, uint64(c), 10)
			}
			buf = append(buf, ']')
		}
	case engine.DATE:
		buf, ok = appendSigned[engine.Date32](buf, v)
	case engine.TIME:
		buf, ok = appendSigned[engine.Time64](buf, v)
	case engine.NULL:
		// only nil is valid here and it was handled by the caller
	}
	if !ok {
		return buf, mismatch(t, v)
	}
	return buf, nil
}

func appendStruct(buf []byte, t *engine.StructType, members []engine.Value) ([]byte, error) {
	buf = append(buf, '{')
	for i, f := range t.Fields {
		if i > 0 {
			buf = append(buf, ',')
		}
		var err error
		if buf, err = appendString(buf, f.Name); err != nil {
			return buf, err
		}
		buf = append(buf, ':')
		if buf, err = appendValue(buf, f.DType, members[i]); err != nil {
			return buf, atPath(err, "."+f.Name)
		}
	}
	return append(buf, '}'), nil
}

func appendSigned[T constraints.Signed](buf []byte, v engine.Value) ([]byte, bool) {
	x, ok := v.(T)
	if !ok {
		return buf, false
	}
	return strconv.AppendInt(buf, int64(x), 10), true
}

func appendUnsigned[T constraints.Unsigned](buf []byte, v engine.Value) ([]byte, bool) {
	x, ok := v.(T)
	if !ok {
		return buf, false
	}
	return strconv.AppendUint(buf, uint64(x), 10), true
}

// appendFloat writes non-finite values as null: the JSON number grammar has
// no spelling for them, so they do not survive a round trip.
func appendFloat[T constraints.Float](buf []byte, v engine.Value, bits int) ([]byte, bool) {
	x, ok := v.(T)
	if !ok {
		return buf, false
	}
	f := float64(x)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return append(buf, nullLiteral...), true
	}
	return strconv.AppendFloat(buf, f, 'g', -1, bits), true
}

func appendString(buf []byte, s string) ([]byte, error) {
	b, err := json.MarshalNoEscape(s)
	if err != nil {
		return buf, encErr("%v", err)
	}
	return append(buf, b...), nil
}

func encErr(format string, args ...any) error {
	return &Error{Kind: ErrValueEncode, Msg: fmt.Sprintf(format, args...)}
}

func mismatch(dt engine.DataType, v engine.Value) error {
	return encErr("expected a %s value, got %T", dt, v)
}

// decodeValues decodes the elements of a column's values array.
func decodeValues(dt engine.DataType, elems []json.RawMessage) ([]engine.Value, error) {
	out := make([]engine.Value, len(elems))
	for i, raw := range elems {
		v, err := decodeValue(dt, raw)
		if err != nil {
			return nil, atPath(err, "["+strconv.Itoa(i)+"]")
		}
		out[i] = v
	}
	return out, nil
}

func decodeValue(dt engine.DataType, raw json.RawMessage) (engine.Value, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, decErr("missing value")
	}
	if isNull(raw) {
		return nil, nil
	}
	switch t := dt.(type) {
	case engine.PrimitiveType:
		return decodePrimitive(t, raw)
	case *engine.DatetimeType:
		return parseSigned[engine.Timestamp](dt, raw, 64)
	case *engine.DurationType:
		return parseSigned[engine.TimeDelta](dt, raw, 64)
	case *engine.DecimalType:
		return decodeDecimal(t, raw)
	case *engine.EnumType:
		idx, err := parseUnsigned[uint32](dt, raw, 32)
		if err != nil {
			return nil, err
		}
		if int(idx) >= len(t.Categories) {
			return nil, decErr("category index %d out of range for %d categories", idx, len(t.Categories))
		}
		return idx, nil
	case *engine.CategoricalType:
		return decodeString(dt, raw)
	case *engine.ListType:
		elems, err := splitArray(dt, raw)
		if err != nil {
			return nil, err
		}
		return decodeValues(t.Inner, elems)
	case *engine.ArrayType:
		elems, err := splitArray(dt, raw)
		if err != nil {
			return nil, err
		}
		if len(elems) != t.Shape {
			return nil, &Error{Kind: ErrShapeMismatch, Msg: fmt.Sprintf("expected %d elements, got %d", t.Shape, len(elems))}
		}
		return decodeValues(t.Inner, elems)
	case *engine.StructType:
		return decodeStruct(t, raw)
	}
	return nil, decErr("unsupported data type %T", dt)
}

func decodePrimitive(t engine.PrimitiveType, raw json.RawMessage) (engine.Value, error) {
	switch t.ID() {
	case engine.BOOLEAN:
		switch string(raw) {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
		return nil, unexpected(t, raw)
	case engine.INT8:
		return parseSigned[int8](t, raw, 8)
	case engine.INT16:
		return parseSigned[int16](t, raw, 16)
	case engine.INT32:
		return parseSigned[int32](t, raw, 32)
	case engine.INT64:
		return parseSigned[int64](t, raw, 64)
	case engine.UINT8:
		return parseUnsigned[uint8](t, raw, 8)
	case engine.UINT16:
		return parseUnsigned[uint16](t, raw, 16)
	case engine.UINT32:
		return parseUnsigned[uint32](t, raw, 32)
	case engine.UINT64:
		return parseUnsigned[uint64](t, raw, 64)
	case engine.FLOAT32:
		return parseFloat[float32](t, raw, 32)
	case engine.FLOAT64:
		return parseFloat[float64](t, raw, 64)
	case engine.STRING:
		return decodeString(t, raw)
	case engine.BINARY:
		elems, err := splitArray(t, raw)
		if err != nil {
			return nil, err
		}
		out := make([]byte, len(elems))
		for i, e := range elems {
			c, err := parseUnsigned[uint8](engine.UInt8, bytes.TrimSpace(e), 8)
			if err != nil {
				return nil, atPath(err, "["+strconv.Itoa(i)+"]")
			}
			out[i] = c
		}
		return out, nil
	case engine.DATE:
		return parseSigned[engine.Date32](t, raw, 32)
	case engine.TIME:
		return parseSigned[engine.Time64](t, raw, 64)
	case engine.NULL:
		return nil, unexpected(t, raw)
	}
	return nil, decErr("unsupported data type %s", t)
}

func decodeStruct(t *engine.StructType, raw json.RawMessage) (engine.Value, error) {
	if raw[0] != '{' {
		return nil, unexpected(t, raw)
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, unexpected(t, raw)
	}
	var unknown []string
	for name := range obj {
		if !hasField(t, name) {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, decErr("unknown struct field %q", unknown[0])
	}
	members := make([]engine.Value, len(t.Fields))
	for i, f := range t.Fields {
		m, ok := obj[f.Name]
		if !ok {
			continue
		}
		v, err := decodeValue(f.DType, m)
		if err != nil {
			return nil, atPath(err, "."+f.Name)
		}
		members[i] = v
	}
	return members, nil
}

func hasField(t *engine.StructType, name string) bool {
	for _, f := range t.Fields {
		if f.Name == name {
			return true
		}
	}
	return false
}

func decodeDecimal(t *engine.DecimalType, raw json.RawMessage) (engine.Value, error) {
	text := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return nil, unexpected(t, raw)
		}
	} else if !isNumberStart(raw[0]) {
		return nil, unexpected(t, raw)
	}
	d, err := decimal.NewFromString(text)
	if err != nil {
		return nil, unexpected(t, raw)
	}
	if !d.Equal(d.Truncate(int32(t.Scale))) {
		return nil, decErr("%s has more than %d fractional digits", text, t.Scale)
	}
	if t.Overflows(d) {
		return nil, decErr("%s does not fit in %s", text, t)
	}
	return d, nil
}

func decodeString(dt engine.DataType, raw json.RawMessage) (engine.Value, error) {
	if raw[0] != '"' {
		return nil, unexpected(dt, raw)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, unexpected(dt, raw)
	}
	return s, nil
}

func splitArray(dt engine.DataType, raw json.RawMessage) ([]json.RawMessage, error) {
	if raw[0] != '[' {
		return nil, unexpected(dt, raw)
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, unexpected(dt, raw)
	}
	return elems, nil
}

func parseSigned[T constraints.Signed](dt engine.DataType, raw json.RawMessage, bits int) (T, error) {
	if !isNumberStart(raw[0]) {
		return 0, unexpected(dt, raw)
	}
	n, err := strconv.ParseInt(string(raw), 10, bits)
	if err != nil {
		return 0, unexpected(dt, raw)
	}
	return T(n), nil
}

func parseUnsigned[T constraints.Unsigned](dt engine.DataType, raw json.RawMessage, bits int) (T, error) {
	if !isNumberStart(raw[0]) {
		return 0, unexpected(dt, raw)
	}
	n, err := strconv.ParseUint(string(raw), 10, bits)
	if err != nil {
		return 0, unexpected(dt, raw)
	}
	return T(n), nil
}

func parseFloat[T constraints.Float](dt engine.DataType, raw json.RawMessage, bits int) (T, error) {
	if !isNumberStart(raw[0]) {
		return 0, unexpected(dt, raw)
	}
	f, err := strconv.ParseFloat(string(raw), bits)
	if err != nil {
		return 0, unexpected(dt, raw)
	}
	return T(f), nil
}

func isNumberStart(c byte) bool {
	return c == '-' || (c >= '0' && c <= '9')
}

func decErr(format string, args ...any) error {
	return &Error{Kind: ErrValueDecode, Msg: fmt.Sprintf(format, args...)}
}

func unexpected(dt engine.DataType, raw []byte) error {
	return decErr("expected a %s value, got %s", dt, clip(raw))
}
