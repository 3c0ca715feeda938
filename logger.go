package moxpaper

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/mox-desktop/moxpaper/internal/gpu"
	"github.com/mox-desktop/moxpaper/internal/slots"
)

// nopHandler is a slog.Handler that silently discards all log records.
// Enabled returns false so callers skip message formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called concurrently with logging from any goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger for moxpaper and its internal packages.
// By default nothing is logged. Pass nil to restore the silent default.
//
// Log levels used by moxpaper:
//   - [slog.LevelDebug]: per-frame diagnostics (pass plans, stale results)
//   - [slog.LevelInfo]: lifecycle events (outputs added, wallpapers set)
//   - [slog.LevelWarn]: recovered problems (degenerate geometry, deferred
//     requests, lost surfaces)
//
// Example:
//
//	moxpaper.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
	gpu.SetLogger(l)
	slots.SetLogger(l)
}

// Logger returns the current logger.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

func slogger() *slog.Logger {
	return loggerPtr.Load()
}
