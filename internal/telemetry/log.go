package telemetry

import (
	"io"
	"log/slog"
	"strings"
)

type LogConfig struct {
	// Format is "json" (default) or "text".
	Format string
	Level  string
}

// NewLogger builds the process logger. Unknown levels fall back to info.
func NewLogger(w io.Writer, c LogConfig) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Level)); err != nil {
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(c.Format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
