// Package logging sets up the process-wide structured logger.
package logging

import (
    "log/slog"
    "os"
    "strings"
)

// Init builds a JSON slog logger at the given level, installs it as the
// default, and returns it. Call once at startup.
func Init(levelStr string) *slog.Logger {
    var level slog.Level
    switch strings.ToLower(levelStr) {
    case "debug":
        level = slog.LevelDebug
    case "warn":
        level = slog.LevelWarn
    case "error":
        level = slog.LevelError
    default:
        level = slog.LevelInfo
    }
    handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
    log := slog.New(handler)
    slog.SetDefault(log)
    return log
}
