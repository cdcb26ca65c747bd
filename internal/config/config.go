package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/labstack/gommon/log"
)

// Config holds the server settings. Environment variables set the defaults
// and command line flags override them.
type Config struct {
	Addr     string  // DFSERDE_ADDR
	DataPath string  // DFSERDE_DATA: frame document loaded at startup, optional
	Workers  int     // DFSERDE_WORKERS: codec goroutines, 0 = NumCPU
	LogLevel log.Lvl // DFSERDE_LOG_LEVEL: debug|info|warn|error|off
	Rate     float64 // DFSERDE_RATE: requests per second per client, 0 = unlimited
}

// Load parses args (without the program name).
func Load(args []string) (*Config, error) {
	level, err := ParseLevel(getenv("DFSERDE_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("DFSERDE_LOG_LEVEL: %w", err)
	}
	cfg := &Config{
		Addr:     getenv("DFSERDE_ADDR", ":8080"),
		DataPath: getenv("DFSERDE_DATA", ""),
		Workers:  getenvInt("DFSERDE_WORKERS", 0),
		LogLevel: level,
		Rate:     getenvFloat("DFSERDE_RATE", 0),
	}

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "listen address")
	fs.StringVar(&cfg.DataPath, "data", cfg.DataPath, "frame document to serve at startup")
	fs.IntVar(&cfg.Workers, "workers", cfg.Workers, "codec worker goroutines (0 = NumCPU)")
	fs.Float64Var(&cfg.Rate, "rate", cfg.Rate, "requests per second per client (0 = unlimited)")
	levelName := fs.String("log-level", levelString(cfg.LogLevel), "debug|info|warn|error|off")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if cfg.LogLevel, err = ParseLevel(*levelName); err != nil {
		return nil, fmt.Errorf("-log-level: %w", err)
	}
	if cfg.Workers < 0 {
		return nil, fmt.Errorf("-workers must not be negative, got %d", cfg.Workers)
	}
	if cfg.Rate < 0 {
		return nil, fmt.Errorf("-rate must not be negative, got %g", cfg.Rate)
	}
	return cfg, nil
}

// ParseLevel maps a level name to a gommon log level.
func ParseLevel(s string) (log.Lvl, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return log.DEBUG, nil
	case "info", "":
		return log.INFO, nil
	case "warn", "warning":
		return log.WARN, nil
	case "error":
		return log.ERROR, nil
	case "off":
		return log.OFF, nil
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}

func levelString(l log.Lvl) string {
	switch l {
	case log.DEBUG:
		return "debug"
	case log.WARN:
		return "warn"
	case log.ERROR:
		return "error"
	case log.OFF:
		return "off"
	}
	return "info"
}

func getenv(k, def string) string {
	if s := os.Getenv(k); s != "" {
		return s
	}
	return def
}

func getenvInt(k string, def int) int {
	if s := os.Getenv(k); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return def
}

func getenvFloat(k string, def float64) float64 {
	if s := os.Getenv(k); s != "" {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	return def
}
