package app

import (
	"log/slog"
	"os"
)

// NewLogger returns the process logger, tagged with the app name so the API
// and the worker are distinguishable when their logs land in one stream.
func NewLogger(cfg *Config) *slog.Logger {
	var handler slog.Handler
	if cfg != nil && cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{AddSource: true})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{AddSource: true})
	}
	return slog.New(handler).With(slog.String("app", "gasflow"))
}
