// Package obs holds the logging and metrics plumbing shared by the
// server and the shell.
package obs

import (
	"fmt"
	"io"
	"log/slog"
)

// ParseLevel maps a LOG_LEVEL value to a slog level. Unknown values map
// to info.
func ParseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// CheckLevel returns an error unless level is one ParseLevel knows.
func CheckLevel(level string) error {
	switch level {
	case "debug", "info", "warn", "error":
		return nil
	}
	return fmt.Errorf("invalid log level %q, must be one of: debug, info, warn, error", level)
}

// NewLogger returns a JSON slog logger writing to w at the given level.
func NewLogger(w io.Writer, level string) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: ParseLevel(level),
	}))
}
