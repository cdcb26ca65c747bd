package main

import (
	"log"
	"os"
	"time"

	"dfserde/internal/api"
	"dfserde/internal/config"
	"dfserde/internal/engine"
	"dfserde/internal/serde"

	"github.com/labstack/echo/v4"
	glog "github.com/labstack/gommon/log"
	"github.com/mattn/go-isatty"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	codec := &serde.Codec{Workers: cfg.Workers}

	// 1. Handler starts without a frame: frame endpoints return 503 until the
	// background load below calls SetFrame.
	h, err := api.NewHandler(nil, codec)
	if err != nil {
		log.Fatalf("handler: %v", err)
	}
	e := api.NewServer(h, api.ServerOptions{Rate: cfg.Rate, BodyLimit: "256M"})
	configureLogger(e, cfg.LogLevel)

	// 2. Load the initial frame in the background
	go func() {
		if cfg.DataPath == "" {
			df, _ := engine.NewDataFrame()
			if err := h.SetFrame(df); err != nil {
				e.Logger.Errorf("empty frame: %v", err)
			}
			return
		}

		log.Printf("BACKGROUND: loading %s...", cfg.DataPath)
		t0 := time.Now()
		df, err := codec.ReadFile(cfg.DataPath)
		if err != nil {
			e.Logger.Errorf("load %s: %v", cfg.DataPath, err)
			return
		}
		if err := h.SetFrame(df); err != nil {
			e.Logger.Errorf("serve %s: %v", cfg.DataPath, err)
			return
		}
		log.Printf("BACKGROUND: loaded %d rows x %d columns in %v", df.Height(), df.Width(), time.Since(t0))
	}()

	// 3. Start server
	log.Printf("Server ready on %s", cfg.Addr)
	e.Logger.Fatal(e.Start(cfg.Addr))
}

func configureLogger(e *echo.Echo, level glog.Lvl) {
	e.Logger.SetLevel(level)
	l, ok := e.Logger.(*glog.Logger)
	if !ok {
		return
	}
	if fd := os.Stdout.Fd(); isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
		l.EnableColor()
	} else {
		l.DisableColor()
	}
}
