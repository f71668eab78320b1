// Package logging builds the structured logger shared by the command and the
// converter.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"ddsconv/contracts"
)

// Config captures logging configuration options.
type Config struct {
	Level string
	JSON  bool
}

// ParseLevel maps a config level name to a slog.Level.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, contracts.New(contracts.KindValidation, "parse log level", fmt.Sprintf("unknown log level %q, want debug, info, warn or error", level))
}

// New returns a logger writing to w, text by default.
func New(cfg Config, w io.Writer) (*slog.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.JSON {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}
