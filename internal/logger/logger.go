package logger

import (
	"log/slog"
	"os"
	"strings"
)

// levelVar holds the level shared by every logger derived from L.
var levelVar = new(slog.LevelVar)

// L is the process-wide JSON logger. It writes to stderr so that stdout
// carries only rendered results.
var L = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: levelVar}))

// SetLevel configures the global log level (debug, info, warn, error).
func SetLevel(lvl string) {
	switch strings.ToLower(lvl) {
	case "debug":
		levelVar.Set(slog.LevelDebug)
	case "warn":
		levelVar.Set(slog.LevelWarn)
	case "error":
		levelVar.Set(slog.LevelError)
	default:
		levelVar.Set(slog.LevelInfo)
	}
}

// Component returns L tagged with the given component name.
func Component(name string) *slog.Logger {
	return L.With("component", name)
}
