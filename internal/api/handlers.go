package api

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strconv"
	"sync"

	"dfserde/internal/arrowconv"
	"dfserde/internal/engine"
	"dfserde/internal/models"
	"dfserde/internal/serde"

	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/labstack/echo/v4"
)

const (
	defaultPageSize = 100
	arrowStreamMIME = "application/vnd.apache.arrow.stream"

	headerETag        = "ETag"
	headerIfNoneMatch = "If-None-Match"
)

type Handler struct {
	codec *serde.Codec
	mem   memory.Allocator

	mu    sync.RWMutex
	frame *engine.DataFrame
	etag  string
}

// NewHandler serves df, which may be nil until SetFrame is called.
func NewHandler(df *engine.DataFrame, codec *serde.Codec) (*Handler, error) {
	if codec == nil {
		codec = &serde.Codec{}
	}
	h := &Handler{codec: codec, mem: memory.NewGoAllocator()}
	if df != nil {
		if err := h.SetFrame(df); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// SetFrame swaps in df. Its fingerprint becomes the ETag of GET /api/frame.
func (h *Handler) SetFrame(df *engine.DataFrame) error {
	fp, err := h.codec.Fingerprint(df)
	if err != nil {
		return err
	}
	h.mu.Lock()
	h.frame = df
	h.etag = `"` + strconv.FormatUint(fp, 16) + `"`
	h.mu.Unlock()
	return nil
}

func (h *Handler) current() (*engine.DataFrame, string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.frame, h.etag
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	api := e.Group("/api")
	api.GET("/frame", h.GetFrame)
	api.PUT("/frame", h.PutFrame)
	api.POST("/validate", h.Validate)
	api.GET("/schema", h.GetSchema)
	api.GET("/columns/:name", h.GetColumn)
	api.GET("/stats", h.GetStats)
	api.GET("/arrow/schema", h.GetArrowSchema)
	api.GET("/arrow", h.GetArrow)
	api.PUT("/arrow", h.PutArrow)
}

// --- HANDLERS ---
func getPaginationParams(c echo.Context, defaultLimit int) (int, int) {
	limit, err := strconv.Atoi(c.QueryParam("limit"))
	if err != nil || limit <= 0 {
		limit = defaultLimit
	}
	offset, err := strconv.Atoi(c.QueryParam("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}

func loading(c echo.Context) error {
	return c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{Error: "frame is loading"})
}

func (h *Handler) GetFrame(c echo.Context) error {
	df, etag := h.current()
	if df == nil {
		return loading(c)
	}
	if c.Request().Header.Get(headerIfNoneMatch) == etag {
		return c.NoContent(http.StatusNotModified)
	}
	data, err := h.codec.Marshal(df)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	c.Response().Header().Set(headerETag, etag)
	return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, data)
}

func readDocument(c echo.Context) ([]byte, error) {
	data, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return data, nil
}

// PutFrame replaces the served frame. The old frame stays in place when the
// document is rejected.
func (h *Handler) PutFrame(c echo.Context) error {
	data, err := readDocument(c)
	if err != nil {
		return err
	}
	df, err := h.codec.Unmarshal(data)
	if err != nil {
		return c.JSON(http.StatusUnprocessableEntity, models.ErrorResponse{Error: err.Error()})
	}
	return h.replaceFrame(c, df)
}

// PutArrow replaces the served frame from an Arrow IPC stream.
func (h *Handler) PutArrow(c echo.Context) error {
	df, err := arrowconv.ReadIPC(c.Request().Body, h.mem)
	if err != nil {
		return c.JSON(http.StatusUnprocessableEntity, models.ErrorResponse{Error: err.Error()})
	}
	return h.replaceFrame(c, df)
}

func (h *Handler) replaceFrame(c echo.Context, df *engine.DataFrame) error {
	if err := h.SetFrame(df); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, models.ErrorResponse{Error: err.Error()})
	}
	c.Logger().Infof("frame replaced: %d rows, %d columns", df.Height(), df.Width())
	_, etag := h.current()
	c.Response().Header().Set(headerETag, etag)
	return c.JSON(http.StatusOK, models.ValidateResponse{Valid: true, Rows: df.Height(), Columns: df.Width()})
}

func (h *Handler) Validate(c echo.Context) error {
	data, err := readDocument(c)
	if err != nil {
		return err
	}
	df, err := h.codec.Unmarshal(data)
	if err != nil {
		return c.JSON(http.StatusOK, models.ValidateResponse{Valid: false, Error: err.Error()})
	}
	return c.JSON(http.StatusOK, models.ValidateResponse{Valid: true, Rows: df.Height(), Columns: df.Width()})
}

func (h *Handler) GetSchema(c echo.Context) error {
	df, etag := h.current()
	if df == nil {
		return loading(c)
	}
	cols := make([]models.SchemaColumn, df.Width())
	for i, s := range df.Columns() {
		desc, err := serde.EncodeDataType(s.DType())
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		cols[i] = models.SchemaColumn{Name: s.Name(), DataType: desc, Flags: serde.EncodeFlags(s.Flags())}
	}
	return c.JSON(http.StatusOK, models.SchemaResponse{Columns: cols, Rows: df.Height(), Fingerprint: etag})
}

// GetColumn pages through the encoded values of one column.
func (h *Handler) GetColumn(c echo.Context) error {
	df, _ := h.current()
	if df == nil {
		return loading(c)
	}
	name := c.Param("name")
	s, ok := df.Column(name)
	if !ok {
		return c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "column " + strconv.Quote(name) + " not found"})
	}

	total := s.Len()
	limit, offset := getPaginationParams(c, defaultPageSize)
	start := min(offset, total)
	end := total
	if limit < total-start {
		end = start + limit
	}

	page := engine.NewSeries(s.Name(), s.DType(), s.Values()[start:end])
	values, err := h.codec.EncodeSeries(page)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, models.ColumnPage{
		Name:   s.Name(),
		Values: values,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

func (h *Handler) GetStats(c echo.Context) error {
	df, _ := h.current()
	if df == nil {
		return loading(c)
	}
	return c.JSON(http.StatusOK, df.Describe())
}

func (h *Handler) GetArrowSchema(c echo.Context) error {
	df, _ := h.current()
	if df == nil {
		return loading(c)
	}
	schema, err := arrowconv.Schema(df)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.String(http.StatusOK, schema.String())
}

func (h *Handler) GetArrow(c echo.Context) error {
	df, _ := h.current()
	if df == nil {
		return loading(c)
	}
	var buf bytes.Buffer
	if err := arrowconv.WriteIPC(&buf, df, h.mem); err != nil {
		if errors.Is(err, arrowconv.ErrUnsupported) {
			return echo.NewHTTPError(http.StatusNotImplemented, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.Blob(http.StatusOK, arrowStreamMIME, buf.Bytes())
}
