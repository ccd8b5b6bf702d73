package app

import (
	"log/slog"
	"os"
)

// NewLogger builds the process logger: JSON when LOG_FORMAT=json (the
// deployed default for api and worker), text otherwise.
func NewLogger(cfg *Config) *slog.Logger {
	if cfg != nil && cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{AddSource: true}))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{AddSource: true}))
}
