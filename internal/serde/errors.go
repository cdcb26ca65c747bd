package serde

import (
	"errors"
	"strings"

	"dfserde/internal/engine"
)

// ErrCompute is the umbrella kind: every failure returned by the
// deserializer matches it with errors.Is.
var ErrCompute = errors.New("compute error")

var (
	ErrParse          = errors.New("parse error")
	ErrTypeDescriptor = errors.New("type descriptor error")
	ErrFlagDecode     = errors.New("flag decode error")
	ErrShapeMismatch  = errors.New("shape mismatch")
	ErrValueDecode    = errors.New("value decode error")
	ErrValueEncode    = errors.New("value encode error")
	ErrLengthMismatch = engine.ErrLengthMismatch
)

// Error carries the failing column and the position inside its values.
type Error struct {
	Kind   error
	Column string // empty when the failure is not tied to one column
	Path   string // e.g. "[3][1].x", empty for column-level failures
	Msg    string
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(ErrCompute.Error())
	b.WriteString(": ")
	b.WriteString(e.Kind.Error())
	if e.Column != "" || e.Path != "" {
		b.WriteString(": column ")
		b.WriteString(quote(e.Column))
		b.WriteString(e.Path)
	}
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	return b.String()
}

func (e *Error) Is(target error) bool {
	return target == ErrCompute || target == e.Kind
}

func (e *Error) Unwrap() error { return e.Kind }

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

// inColumn fills in the column of err when it is an *Error without one.
func inColumn(err error, column string) error {
	var se *Error
	if errors.As(err, &se) && se.Column == "" {
		se.Column = column
	}
	return err
}

// atPath prefixes the position of err, building paths like "[3][1].x" as
// the error unwinds through nested values.
func atPath(err error, seg string) error {
	var se *Error
	if errors.As(err, &se) {
		se.Path = seg + se.Path
	}
	return err
}
