package api

import (
	"net/http"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// ServerOptions configures NewServer.
type ServerOptions struct {
	// Rate is the allowed requests per second per client IP; 0 disables
	// rate limiting.
	Rate float64
	// BodyLimit caps request bodies, e.g. "64M". Empty means no limit.
	BodyLimit string
}

// NewServer returns an echo instance with the standard middleware stack and
// h's routes registered.
func NewServer(h *Handler, opts ServerOptions) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.JSONSerializer = jsonSerializer{}

	e.Use(middleware.CORS())
	e.Use(middleware.Recover())
	e.Use(middleware.Logger())
	if opts.BodyLimit != "" {
		e.Use(middleware.BodyLimit(opts.BodyLimit))
	}
	if opts.Rate > 0 {
		store := middleware.NewRateLimiterMemoryStore(rate.Limit(opts.Rate))
		e.Use(middleware.RateLimiter(store))
	}

	h.RegisterRoutes(e)
	return e
}

// jsonSerializer implements echo.JSONSerializer with goccy/go-json.
type jsonSerializer struct{}

func (jsonSerializer) Serialize(c echo.Context, i interface{}, indent string) error {
	enc := json.NewEncoder(c.Response())
	if indent != "" {
		enc.SetIndent("", indent)
	}
	return enc.Encode(i)
}

func (jsonSerializer) Deserialize(c echo.Context, i interface{}) error {
	err := json.NewDecoder(c.Request().Body).Decode(i)
	if ute, ok := err.(*json.UnmarshalTypeError); ok {
		return echo.NewHTTPError(http.StatusBadRequest, "Unmarshal type error: expected="+ute.Type.String()+", got="+ute.Value).SetInternal(err)
	}
	if se, ok := err.(*json.SyntaxError); ok {
		return echo.NewHTTPError(http.StatusBadRequest, "Syntax error: "+se.Error()).SetInternal(err)
	}
	return err
}
