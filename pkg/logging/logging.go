// Package logging builds the structured application logger.
package logging

import (
	"io"
	"log/slog"
	"os"

	"github.com/doodlesbykumbi/saasgate/pkg/config"
)

// New returns a slog.Logger writing to stdout in the configured format.
func New(cfg *config.Config) *slog.Logger {
	return NewWithWriter(cfg, os.Stdout)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(cfg *config.Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	format := "text"
	if cfg != nil {
		opts.Level = cfg.SlogLevel()
		opts.AddSource = cfg.SlogLevel() == slog.LevelDebug
		format = cfg.LogFormat
	}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Discard returns a logger that drops every record. Used by tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
