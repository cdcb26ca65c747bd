package api

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"dfserde/internal/arrowconv"
	"dfserde/internal/engine"
	"dfserde/internal/models"

	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/goccy/go-json"
	"github.com/labstack/echo/v4"
)

const sampleDoc = `{"columns":[{"name":"a","datatype":"Int64","bit_settings":"SORTED_ASC","values":[1,2,3]},{"name":"b","datatype":"String","bit_settings":"","values":["x",null,"x"]}]}`

func newTestServer(t *testing.T, doc string) (*echo.Echo, *Handler) {
	t.Helper()
	h, err := NewHandler(nil, nil)
	if err != nil {
		t.Fatalf("NewHandler failed: %v", err)
	}
	if doc != "" {
		df, err := h.codec.Unmarshal([]byte(doc))
		if err != nil {
			t.Fatalf("Unmarshal failed: %v", err)
		}
		if err := h.SetFrame(df); err != nil {
			t.Fatalf("SetFrame failed: %v", err)
		}
	}
	return NewServer(h, ServerOptions{}), h
}

func do(e *echo.Echo, method, target, body string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decoding %q: %v", rec.Body.String(), err)
	}
}

func TestEndpointsWhileLoading(t *testing.T) {
	e, _ := newTestServer(t, "")
	for _, target := range []string{"/api/frame", "/api/schema", "/api/columns/a", "/api/stats", "/api/arrow/schema", "/api/arrow"} {
		rec := do(e, http.MethodGet, target, "")
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("GET %s = %d, want 503", target, rec.Code)
		}
	}
}

func TestGetFrame(t *testing.T) {
	// 1. Setup
	e, _ := newTestServer(t, sampleDoc)

	// 2. Run
	rec := do(e, http.MethodGet, "/api/frame", "")

	// 3. Assertions
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != sampleDoc {
		t.Errorf("body =\n%s\nwant\n%s", rec.Body.String(), sampleDoc)
	}
	etag := rec.Header().Get(headerETag)
	if etag == "" {
		t.Fatal("missing ETag")
	}

	rec = do(e, http.MethodGet, "/api/frame", "", headerIfNoneMatch, etag)
	if rec.Code != http.StatusNotModified {
		t.Errorf("conditional GET = %d, want 304", rec.Code)
	}
}

func TestPutFrame(t *testing.T) {
	e, h := newTestServer(t, "")

	rec := do(e, http.MethodPut, "/api/frame", sampleDoc)
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var resp models.ValidateResponse
	decode(t, rec, &resp)
	if !resp.Valid || resp.Rows != 3 || resp.Columns != 2 {
		t.Errorf("response = %+v, want valid 3x2", resp)
	}
	_, etag := h.current()

	bad := `{"columns":[{"name":"a","datatype":"Int64","values":[1]},{"name":"b","datatype":"Int64","values":[]}]}`
	rec = do(e, http.MethodPut, "/api/frame", bad)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("PUT bad document = %d, want 422", rec.Code)
	}
	var errResp models.ErrorResponse
	decode(t, rec, &errResp)
	if !strings.Contains(errResp.Error, "lengths don't match") {
		t.Errorf("error = %q, want a length mismatch", errResp.Error)
	}
	if _, after := h.current(); after != etag {
		t.Errorf("rejected PUT replaced the frame")
	}
}

func TestValidate(t *testing.T) {
	e, _ := newTestServer(t, "")
	tests := []struct {
		name  string
		doc   string
		valid bool
		want  string
	}{
		{"valid", sampleDoc, true, ""},
		{"bad flag", `{"columns":[{"name":"a","datatype":"Int8","bit_settings":"NOPE","values":[]}]}`, false, "flag decode error"},
		{"garbage", `not json`, false, "parse error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(e, http.MethodPost, "/api/validate", tt.doc)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rec.Code)
			}
			var resp models.ValidateResponse
			decode(t, rec, &resp)
			if resp.Valid != tt.valid {
				t.Errorf("valid = %v, want %v (%s)", resp.Valid, tt.valid, resp.Error)
			}
			if !strings.Contains(resp.Error, tt.want) {
				t.Errorf("error = %q, want it to contain %q", resp.Error, tt.want)
			}
		})
	}
}

func TestGetSchema(t *testing.T) {
	e, h := newTestServer(t, sampleDoc)

	rec := do(e, http.MethodGet, "/api/schema", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp models.SchemaResponse
	decode(t, rec, &resp)

	_, etag := h.current()
	if resp.Rows != 3 || resp.Fingerprint != etag || len(resp.Columns) != 2 {
		t.Fatalf("unexpected schema response: %+v", resp)
	}
	if resp.Columns[0].Name != "a" || string(resp.Columns[0].DataType) != `"Int64"` || resp.Columns[0].Flags != "SORTED_ASC" {
		t.Errorf("column 0 = %+v", resp.Columns[0])
	}
}

func TestGetColumnPagination(t *testing.T) {
	e, _ := newTestServer(t, sampleDoc)
	tests := []struct {
		target string
		values string
	}{
		{"/api/columns/a", `[1,2,3]`},
		{"/api/columns/a?limit=2", `[1,2]`},
		{"/api/columns/b?limit=2&offset=1", `[null,"x"]`},
		{"/api/columns/a?offset=10", `[]`},
		{"/api/columns/a?limit=-4&offset=-1", `[1,2,3]`},
		{"/api/columns/a?offset=1&limit=9223372036854775807", `[2,3]`},
		{"/api/columns/a?offset=9223372036854775807&limit=9223372036854775807", `[]`},
	}
	for _, tt := range tests {
		rec := do(e, http.MethodGet, tt.target, "")
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", tt.target, rec.Code)
			continue
		}
		var page models.ColumnPage
		decode(t, rec, &page)
		if string(page.Values) != tt.values || page.Total != 3 {
			t.Errorf("GET %s = %s (total %d), want %s (total 3)", tt.target, page.Values, page.Total, tt.values)
		}
	}

	if rec := do(e, http.MethodGet, "/api/columns/zzz", ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown column = %d, want 404", rec.Code)
	}
}

func TestGetStats(t *testing.T) {
	e, _ := newTestServer(t, sampleDoc)

	rec := do(e, http.MethodGet, "/api/stats", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var stats models.FrameStats
	decode(t, rec, &stats)
	if stats.Rows != 3 || len(stats.Columns) != 2 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	b := stats.Columns[1]
	if b.NullCount != 1 || b.Distinct != 1 {
		t.Errorf("column b stats = %+v, want 1 null and 1 distinct value", b)
	}
}

func TestArrowEndpoints(t *testing.T) {
	e, h := newTestServer(t, sampleDoc)

	rec := do(e, http.MethodGet, "/api/arrow/schema", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "int64") {
		t.Errorf("arrow schema = %d %q", rec.Code, rec.Body.String())
	}

	rec = do(e, http.MethodGet, "/api/arrow", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("arrow stream = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get(echo.HeaderContentType); ct != arrowStreamMIME {
		t.Errorf("content type = %q, want %q", ct, arrowStreamMIME)
	}
	got, err := arrowconv.ReadIPC(bytes.NewReader(rec.Body.Bytes()), memory.NewGoAllocator())
	if err != nil {
		t.Fatalf("ReadIPC failed: %v", err)
	}
	want, _ := h.current()
	if !got.Equal(want) {
		t.Errorf("frame read from the arrow stream differs from the served frame")
	}
}

func TestPutArrow(t *testing.T) {
	src, _ := newTestServer(t, sampleDoc)
	stream := do(src, http.MethodGet, "/api/arrow", "").Body.String()

	// 1. Replace an empty server's frame with the stream
	e, h := newTestServer(t, "")
	rec := do(e, http.MethodPut, "/api/arrow", stream)
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get(headerETag) == "" {
		t.Error("PUT response has no ETag")
	}

	// 2. The served document matches the source
	got := do(e, http.MethodGet, "/api/frame", "")
	if got.Body.String() != sampleDoc {
		t.Errorf("frame = %s, want %s", got.Body.String(), sampleDoc)
	}

	// 3. A broken stream is rejected and leaves the frame alone
	_, etag := h.current()
	rec = do(e, http.MethodPut, "/api/arrow", "not arrow")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("PUT garbage = %d, want 422", rec.Code)
	}
	if _, after := h.current(); after != etag {
		t.Errorf("rejected PUT replaced the frame")
	}
}

func TestRateLimit(t *testing.T) {
	h, err := NewHandler(nil, nil)
	if err != nil {
		t.Fatalf("NewHandler failed: %v", err)
	}
	e := NewServer(h, ServerOptions{Rate: 1})

	first := do(e, http.MethodPost, "/api/validate", sampleDoc)
	second := do(e, http.MethodPost, "/api/validate", sampleDoc)
	if first.Code != http.StatusOK {
		t.Errorf("first request = %d, want 200", first.Code)
	}
	if second.Code != http.StatusTooManyRequests {
		t.Errorf("second request = %d, want 429", second.Code)
	}
}

func TestSetFrameRejectsUnencodableFrame(t *testing.T) {
	h, _ := NewHandler(nil, nil)
	df, err := engine.NewDataFrame(engine.NewSeries("a", engine.Int8, []engine.Value{"x"}))
	if err != nil {
		t.Fatalf("NewDataFrame failed: %v", err)
	}
	if err := h.SetFrame(df); err == nil {
		t.Error("expected SetFrame to fail")
	}
	if got, _ := h.current(); got != nil {
		t.Error("frame was set despite the error")
	}
}
