package ggcore

import (
	"log/slog"

	"github.com/gogpu/ggcore/internal/logging"
)

// SetLogger configures the logger for ggcore and all its sub-packages.
// By default, ggcore produces no log output. Call SetLogger to enable logging.
//
// SetLogger is safe for concurrent use: it stores the new logger atomically.
// Pass nil to disable logging (restore default silent behavior).
//
// Log levels used by ggcore:
//   - [slog.LevelDebug]: internal diagnostics (buffer growth, query recycling)
//   - [slog.LevelInfo]: lifecycle events (core thread start, backend selected)
//   - [slog.LevelWarn]: failed core commands (allocation or query errors)
//
// Example:
//
//	ggcore.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	logging.Set(l)
}

// Logger returns the current logger used by ggcore.
//
// Logger is safe for concurrent use.
func Logger() *slog.Logger {
	return logging.Logger()
}
