package internal

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// ParseLogLevel converts a log level name to a slog.Level. Recognized values
// are "debug", "info", "warning"/"warn" and "error", in any case.
func ParseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warning", "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q (use debug, info, warn, or error)", level)
	}
}

// NewLogger returns a text logger writing to w at the given level.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// SetupLogger installs a text logger on w as the slog default. Stdout is
// never a valid w for the MCP server, which owns it for the protocol.
func SetupLogger(w io.Writer, level string) error {
	lvl, err := ParseLogLevel(level)
	if err != nil {
		return err
	}
	slog.SetDefault(NewLogger(w, lvl))
	return nil
}
