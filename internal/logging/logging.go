// Package logging builds the slog logger used by aws-switch from a textual level.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// LevelTrace is more verbose than debug.
const LevelTrace = slog.LevelDebug - 4

// Level is a parsed log level. Off disables logging entirely.
type Level struct {
	slog.Level
	Off bool
}

// Levels lists the accepted level names from least to most verbose.
var Levels = []string{"off", "error", "warn", "info", "debug", "trace"}

// ParseLevel accepts one of Levels, case-insensitively.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off":
		return Level{Off: true}, nil
	case "error":
		return Level{Level: slog.LevelError}, nil
	case "warn":
		return Level{Level: slog.LevelWarn}, nil
	case "info":
		return Level{Level: slog.LevelInfo}, nil
	case "debug":
		return Level{Level: slog.LevelDebug}, nil
	case "trace":
		return Level{Level: LevelTrace}, nil
	}
	return Level{}, fmt.Errorf("invalid log level %q (expected one of %s)", s, strings.Join(Levels, ", "))
}

// New returns a text logger writing to w at the given level.
func New(w io.Writer, level Level) *slog.Logger {
	if level.Off {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level.Level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey && len(groups) == 0 {
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl <= LevelTrace {
					a.Value = slog.StringValue("TRACE")
				}
			}
			return a
		},
	}))
}
