package serde

import (
	"bytes"
	"fmt"

	"dfserde/internal/engine"

	"github.com/goccy/go-json"
)

var primitivesByName = func() map[string]engine.PrimitiveType {
	m := make(map[string]engine.PrimitiveType, len(engine.Primitives))
	for _, p := range engine.Primitives {
		m[p.String()] = p
	}
	return m
}()

type fieldDescriptor struct {
	Name  string `json:"name"`
	DType any    `json:"dtype"`
}

// EncodeDataType renders dt as its wire descriptor: a bare name for types
// without parameters, a single-key object otherwise.
func EncodeDataType(dt engine.DataType) ([]byte, error) {
	d, err := descriptor(dt)
	if err != nil {
		return nil, err
	}
	return json.MarshalNoEscape(d)
}

func descriptor(dt engine.DataType) (any, error) {
	switch t := dt.(type) {
	case engine.PrimitiveType:
		return t.String(), nil
	case *engine.DatetimeType:
		var tz any
		if t.TimeZone != "" {
			tz = t.TimeZone
		}
		return map[string]any{"Datetime": []any{t.Unit.String(), tz}}, nil
	case *engine.DurationType:
		return map[string]any{"Duration": t.Unit.String()}, nil
	case *engine.DecimalType:
		var precision any
		if t.Precision != 0 {
			precision = t.Precision
		}
		return map[string]any{"Decimal": []any{precision, t.Scale}}, nil
	case *engine.EnumType:
		cats := t.Categories
		if cats == nil {
			cats = []string{}
		}
		return map[string]any{"Enum": []any{cats, t.Ordering.String()}}, nil
	case *engine.CategoricalType:
		return map[string]any{"Categorical": []any{nil, t.Ordering.String()}}, nil
	case *engine.ListType:
		inner, err := descriptor(t.Inner)
		if err != nil {
			return nil, err
		}
		return map[string]any{"List": inner}, nil
	case *engine.ArrayType:
		if t.Shape < 0 {
			return nil, descErr("array shape must not be negative, got %d", t.Shape)
		}
		inner, err := descriptor(t.Inner)
		if err != nil {
			return nil, err
		}
		return map[string]any{"Array": []any{inner, t.Shape}}, nil
	case *engine.StructType:
		if name, ok := duplicateField(t.Fields); ok {
			return nil, descErr("duplicate Struct field %q", name)
		}
		fields := make([]fieldDescriptor, len(t.Fields))
		for i, f := range t.Fields {
			inner, err := descriptor(f.DType)
			if err != nil {
				return nil, err
			}
			fields[i] = fieldDescriptor{Name: f.Name, DType: inner}
		}
		return map[string]any{"Struct": fields}, nil
	}
	return nil, descErr("unsupported data type %T", dt)
}

// DecodeDataType parses a wire descriptor. A Decimal without precision
// decodes to engine.MaxDecimalPrecision.
func DecodeDataType(raw []byte) (engine.DataType, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || isNull(raw) {
		return nil, descErr("missing datatype")
	}
	switch raw[0] {
	case '"':
		var name string
		if err := json.Unmarshal(raw, &name); err != nil {
			return nil, descErr("invalid type name %s", clip(raw))
		}
		if p, ok := primitivesByName[name]; ok {
			return p, nil
		}
		return nil, descErr("unknown type %q", name)
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, descErr("invalid type descriptor %s", clip(raw))
		}
		if len(obj) != 1 {
			return nil, descErr("type descriptor must have exactly one key, got %d", len(obj))
		}
		for name, params := range obj {
			return decodeParameterized(name, params)
		}
	}
	return nil, descErr("expected a type name or object, got %s", clip(raw))
}

func decodeParameterized(name string, params json.RawMessage) (engine.DataType, error) {
	switch name {
	case "Datetime":
		args, err := tuple(name, params, 1, 2)
		if err != nil {
			return nil, err
		}
		unit, err := timeUnit(name, args[0])
		if err != nil {
			return nil, err
		}
		var tz *string
		if len(args) == 2 {
			if err := json.Unmarshal(args[1], &tz); err != nil {
				return nil, descErr("Datetime time zone must be a string or null, got %s", clip(args[1]))
			}
		}
		dt := &engine.DatetimeType{Unit: unit}
		if tz != nil {
			dt.TimeZone = *tz
		}
		return dt, nil

	case "Duration":
		unit, err := timeUnit(name, params)
		if err != nil {
			return nil, err
		}
		return &engine.DurationType{Unit: unit}, nil

	case "Decimal":
		args, err := tuple(name, params, 2, 2)
		if err != nil {
			return nil, err
		}
		var precision, scale *int
		if err := json.Unmarshal(args[0], &precision); err != nil {
			return nil, descErr("Decimal precision must be an integer or null, got %s", clip(args[0]))
		}
		if err := json.Unmarshal(args[1], &scale); err != nil || scale == nil {
			return nil, descErr("Decimal scale must be an integer, got %s", clip(args[1]))
		}
		p := engine.MaxDecimalPrecision
		if precision != nil {
			p = *precision
		}
		if p < 1 || p > engine.MaxDecimalPrecision {
			return nil, descErr("Decimal precision %d out of range [1, %d]", p, engine.MaxDecimalPrecision)
		}
		if *scale < 0 || *scale > p {
			return nil, descErr("Decimal scale %d out of range [0, %d]", *scale, p)
		}
		return &engine.DecimalType{Precision: p, Scale: *scale}, nil

	case "Enum":
		args, err := tuple(name, params, 1, 2)
		if err != nil {
			return nil, err
		}
		var cats []string
		if err := json.Unmarshal(args[0], &cats); err != nil || isNull(bytes.TrimSpace(args[0])) {
			return nil, descErr("Enum categories must be a list of strings, got %s", clip(args[0]))
		}
		if cats == nil {
			cats = []string{}
		}
		dt := &engine.EnumType{Categories: cats}
		if len(args) == 2 {
			if dt.Ordering, err = ordering(name, args[1]); err != nil {
				return nil, err
			}
		}
		return dt, nil

	case "Categorical":
		args, err := tuple(name, params, 1, 2)
		if err != nil {
			return nil, err
		}
		dt := &engine.CategoricalType{}
		// The first element is the category mapping, which travels with the
		// values instead.
		if len(args) == 2 {
			if dt.Ordering, err = ordering(name, args[1]); err != nil {
				return nil, err
			}
		}
		return dt, nil

	case "List":
		inner, err := DecodeDataType(params)
		if err != nil {
			return nil, err
		}
		return &engine.ListType{Inner: inner}, nil

	case "Array":
		args, err := tuple(name, params, 2, 2)
		if err != nil {
			return nil, err
		}
		inner, err := DecodeDataType(args[0])
		if err != nil {
			return nil, err
		}
		var shape *int
		if err := json.Unmarshal(args[1], &shape); err != nil || shape == nil || *shape < 0 {
			return nil, descErr("Array shape must be a non-negative integer, got %s", clip(args[1]))
		}
		return &engine.ArrayType{Inner: inner, Shape: *shape}, nil

	case "Struct":
		var fields []struct {
			Name  *string         `json:"name"`
			DType json.RawMessage `json:"dtype"`
		}
		if err := json.Unmarshal(params, &fields); err != nil || isNull(bytes.TrimSpace(params)) {
			return nil, descErr("Struct fields must be a list of {name, dtype}, got %s", clip(params))
		}
		out := make([]engine.Field, len(fields))
		for i, f := range fields {
			if f.Name == nil {
				return nil, descErr("Struct field %d has no name", i)
			}
			dt, err := DecodeDataType(f.DType)
			if err != nil {
				return nil, err
			}
			out[i] = engine.Field{Name: *f.Name, DType: dt}
		}
		if name, ok := duplicateField(out); ok {
			return nil, descErr("duplicate Struct field %q", name)
		}
		return &engine.StructType{Fields: out}, nil
	}
	return nil, descErr("unknown type %q", name)
}

// duplicateField reports the first field name that appears twice. Struct
// values travel as JSON objects, so names must be unique.
func duplicateField(fields []engine.Field) (string, bool) {
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if _, ok := seen[f.Name]; ok {
			return f.Name, true
		}
		seen[f.Name] = struct{}{}
	}
	return "", false
}

func tuple(name string, raw json.RawMessage, minLen, maxLen int) ([]json.RawMessage, error) {
	var args []json.RawMessage
	if err := json.Unmarshal(raw, &args); err != nil || len(args) < minLen || len(args) > maxLen {
		if minLen == maxLen {
			return nil, descErr("%s parameters must be a list of %d, got %s", name, minLen, clip(raw))
		}
		return nil, descErr("%s parameters must be a list of %d to %d, got %s", name, minLen, maxLen, clip(raw))
	}
	return args, nil
}

func timeUnit(name string, raw json.RawMessage) (engine.TimeUnit, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if u, ok := engine.ParseTimeUnit(s); ok {
			return u, nil
		}
	}
	return 0, descErr("%s has invalid time unit %s", name, clip(raw))
}

func ordering(name string, raw json.RawMessage) (engine.CategoricalOrdering, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if o, ok := engine.ParseOrdering(s); ok {
			return o, nil
		}
	}
	return 0, descErr("%s has invalid ordering %s", name, clip(raw))
}

func descErr(format string, args ...any) error {
	return &Error{Kind: ErrTypeDescriptor, Msg: fmt.Sprintf(format, args...)}
}

func isNull(raw []byte) bool {
	return bytes.Equal(raw, []byte("null"))
}

// clip shortens raw JSON for error messages.
func clip(raw []byte) string {
	const limit = 40
	raw = bytes.TrimSpace(raw)
	if len(raw) > limit {
		return string(raw[:limit]) + "..."
	}
	return string(raw)
}
