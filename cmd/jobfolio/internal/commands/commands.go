package commands

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"jobfolio/web/internal/config"
	"jobfolio/web/internal/export"
	"jobfolio/web/internal/logger"
)

type Globals struct {
	Debug   bool
	Version string
}

func setupLogger(cfg config.Config, globals *Globals) zerolog.Logger {
	level := cfg.LogLevel
	if globals.Debug {
		level = "debug"
	}
	return logger.Setup(level, cfg.LogFormat)
}

func newExportService(cfg config.Config, sinks ...export.Sink) *export.Service {
	var docx export.DOCXEncoder = export.NativeDOCXEncoder{}
	if cfg.DOCXEngine == "pandoc" {
		docx = export.PandocDOCXEncoder{}
	}
	return export.NewService(export.Options{
		Renderer: export.NewChromeRenderer(cfg.ChromePath),
		DOCX:     docx,
		Settle:   cfg.ExportSettle,
		Timeout:  cfg.ExportTimeout,
		Sinks:    sinks,
	})
}

func configureHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		// exports may take as long as the render timeout
		WriteTimeout:   2 * time.Minute,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 16 * 1024,
	}
}
