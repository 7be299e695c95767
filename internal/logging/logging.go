package logging

import (
	"io"
	"os"

	"github.com/phuslu/log"

	"docparser/internal/config"
)

// Setup configures the process-wide logger from cfg.
func Setup(cfg config.LogConfig) {
	log.DefaultLogger = New(cfg, os.Stderr)
}

// New builds a logger writing to w. Format "json" emits one JSON object per
// line; anything else uses the human-readable console writer.
func New(cfg config.LogConfig, w io.Writer) log.Logger {
	logger := log.Logger{
		Level:      log.ParseLevel(cfg.Level),
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	}
	if cfg.Format == "json" {
		logger.Writer = &log.IOWriter{Writer: w}
	} else {
		logger.Writer = &log.ConsoleWriter{
			Writer:         w,
			ColorOutput:    w == os.Stderr,
			EndWithMessage: true,
		}
	}
	return logger
}
