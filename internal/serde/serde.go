// Package serde converts a DataFrame to and from its JSON document:
//
//	{"columns":[{"name":..,"datatype":..,"bit_settings":..,"values":[..]},..]}
//
// Column order, logical types, flags and null positions survive the round
// trip. Two exceptions are part of the format: non-finite floats are written
// as null, and a Decimal without precision reads back with precision 38.
package serde

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"runtime"
	"strconv"

	"dfserde/internal/engine"

	"github.com/goccy/go-json"
	"github.com/valyala/bytebufferpool"
	"github.com/zeebo/xxh3"
	"golang.org/x/sync/errgroup"
)

// Codec serializes frames. Columns are encoded and decoded on up to Workers
// goroutines; zero means runtime.NumCPU().
type Codec struct {
	Workers int
}

var defaultCodec = &Codec{}

func Marshal(df *engine.DataFrame) ([]byte, error)           { return defaultCodec.Marshal(df) }
func Write(w io.Writer, df *engine.DataFrame) error          { return defaultCodec.Write(w, df) }
func WriteFile(path string, df *engine.DataFrame) error      { return defaultCodec.WriteFile(path, df) }
func Unmarshal(data []byte) (*engine.DataFrame, error)       { return defaultCodec.Unmarshal(data) }
func Read(r io.Reader) (*engine.DataFrame, error)            { return defaultCodec.Read(r) }
func ReadFile(path string) (*engine.DataFrame, error)        { return defaultCodec.ReadFile(path) }
func Fingerprint(df *engine.DataFrame) (uint64, error)       { return defaultCodec.Fingerprint(df) }
func EncodeSeries(s *engine.Series) (json.RawMessage, error) { return defaultCodec.EncodeSeries(s) }

// encodedColumn is one column record, every part already in wire form.
type encodedColumn struct {
	name     string
	datatype []byte
	flags    string
	values   []byte
}

// Marshal renders df as a compact document.
func (c *Codec) Marshal(df *engine.DataFrame) ([]byte, error) {
	cols := df.Columns()
	encoded := make([]encodedColumn, len(cols))
	errs := c.forEach(len(cols), func(i int) error {
		s := cols[i]
		dt, err := EncodeDataType(s.DType())
		if err != nil {
			return inColumn(err, s.Name())
		}
		values, err := c.EncodeSeries(s)
		if err != nil {
			return err
		}
		encoded[i] = encodedColumn{name: s.Name(), datatype: dt, flags: EncodeFlags(s.Flags()), values: values}
		return nil
	})
	if err := firstErr(errs); err != nil {
		return nil, err
	}

	bb := bytebufferpool.Get()
	defer bytebufferpool.Put(bb)
	buf := append(bb.B[:0], `{"columns":[`...)
	for i, col := range encoded {
		if i > 0 {
			buf = append(buf, ',')
		}
		var err error
		buf = append(buf, `{"name":`...)
		if buf, err = appendString(buf, col.name); err != nil {
			return nil, inColumn(err, col.name)
		}
		buf = append(buf, `,"datatype":`...)
		buf = append(buf, col.datatype...)
		buf = append(buf, `,"bit_settings":`...)
		if buf, err = appendString(buf, col.flags); err != nil {
			return nil, inColumn(err, col.name)
		}
		buf = append(buf, `,"values":`...)
		buf = append(buf, col.values...)
		buf = append(buf, '}')
	}
	buf = append(buf, "]}"...)
	bb.B = buf
	return append([]byte(nil), buf...), nil
}

// EncodeSeries renders the values array of one column.
func (c *Codec) EncodeSeries(s *engine.Series) (json.RawMessage, error) {
	bb := bytebufferpool.Get()
	defer bytebufferpool.Put(bb)
	var err error
	bb.B, err = appendValues(bb.B[:0], s.DType(), s.Values())
	if err != nil {
		return nil, inColumn(err, s.Name())
	}
	return append(json.RawMessage(nil), bb.B...), nil
}

func (c *Codec) Write(w io.Writer, df *engine.DataFrame) error {
	data, err := c.Marshal(df)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("serde: write: %w", err)
	}
	return nil
}

// WriteFile creates or truncates path. The parent directory must exist.
func (c *Codec) WriteFile(path string, df *engine.DataFrame) error {
	data, err := c.Marshal(df)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("serde: write %s: %w", path, err)
	}
	return nil
}

// Fingerprint hashes the canonical serialization of df with xxh3. Equal
// frames have equal fingerprints.
func (c *Codec) Fingerprint(df *engine.DataFrame) (uint64, error) {
	data, err := c.Marshal(df)
	if err != nil {
		return 0, err
	}
	return xxh3.Hash(data), nil
}

type rawDocument struct {
	Columns *[]rawColumn `json:"columns"`
}

type rawColumn struct {
	Name        *string         `json:"name"`
	Datatype    json.RawMessage `json:"datatype"`
	BitSettings json.RawMessage `json:"bit_settings"`
	Values      json.RawMessage `json:"values"`
}

// columnHeader is a column record whose dtype and flags are decoded and
// whose values are split into elements but not yet decoded.
type columnHeader struct {
	name  string
	dtype engine.DataType
	flags engine.Flags
	elems []json.RawMessage
}

// Unmarshal parses a document. Either the whole document is valid and a
// frame is returned, or an error matching ErrCompute is.
func (c *Codec) Unmarshal(data []byte) (*engine.DataFrame, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, &Error{Kind: ErrParse, Msg: "document must be a JSON object"}
	}
	var doc rawDocument
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, &Error{Kind: ErrParse, Msg: err.Error()}
	}
	if doc.Columns == nil {
		return nil, &Error{Kind: ErrParse, Msg: `missing "columns"`}
	}
	raw := *doc.Columns

	headers := make([]columnHeader, len(raw))
	errs := c.forEach(len(raw), func(i int) error {
		h, err := decodeHeader(i, raw[i])
		if err != nil {
			return err
		}
		headers[i] = h
		return nil
	})
	if err := firstErr(errs); err != nil {
		return nil, err
	}

	values, err := c.validate(headers)
	if err != nil {
		return nil, err
	}

	series := make([]*engine.Series, len(headers))
	for i, h := range headers {
		series[i] = engine.NewSeries(h.name, h.dtype, values[i]).WithFlags(h.flags)
	}
	df, err := engine.NewDataFrame(series...)
	if err != nil {
		return nil, &Error{Kind: ErrLengthMismatch, Msg: err.Error()}
	}
	return df, nil
}

func (c *Codec) Read(r io.Reader) (*engine.DataFrame, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("serde: read: %w", err)
	}
	return c.Unmarshal(data)
}

func (c *Codec) ReadFile(path string) (*engine.DataFrame, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("serde: read %s: %w", path, err)
	}
	return c.Unmarshal(data)
}

func decodeHeader(i int, rc rawColumn) (columnHeader, error) {
	if rc.Name == nil {
		return columnHeader{}, &Error{Kind: ErrParse, Msg: "column record " + strconv.Itoa(i) + ` has no "name"`}
	}
	h := columnHeader{name: *rc.Name}

	dt, err := DecodeDataType(rc.Datatype)
	if err != nil {
		return h, inColumn(err, h.name)
	}
	h.dtype = dt

	// bit_settings is optional; absent or null means no flags.
	if bs := bytes.TrimSpace(rc.BitSettings); len(bs) > 0 && !isNull(bs) {
		var s string
		if err := json.Unmarshal(bs, &s); err != nil {
			return h, &Error{Kind: ErrFlagDecode, Column: h.name, Msg: "bit_settings must be a string, got " + clip(bs)}
		}
		if h.flags, err = DecodeFlags(s); err != nil {
			return h, inColumn(err, h.name)
		}
	}

	vs := bytes.TrimSpace(rc.Values)
	if len(vs) == 0 {
		return h, &Error{Kind: ErrValueDecode, Column: h.name, Msg: `missing "values"`}
	}
	if h.elems, err = splitArray(dt, vs); err != nil {
		return h, &Error{Kind: ErrValueDecode, Column: h.name, Msg: `"values" must be an array, got ` + clip(vs)}
	}
	return h, nil
}

func (c *Codec) workers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.NumCPU()
}

// forEach runs fn for every index in [0, n) on the codec's worker pool. The
// error of index i lands in slot i, so callers can report failures in
// column order no matter which goroutine finished first.
func (c *Codec) forEach(n int, fn func(i int) error) []error {
	errs := make([]error, n)
	workers := c.workers()
	if n <= 1 || workers == 1 {
		for i := 0; i < n; i++ {
			errs[i] = fn(i)
		}
		return errs
	}
	var g errgroup.Group
	g.SetLimit(workers)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			errs[i] = fn(i)
			return nil
		})
	}
	_ = g.Wait()
	return errs
}

func firstErr(errs []error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
