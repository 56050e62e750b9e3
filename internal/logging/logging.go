// Package logging holds the zap logger shared by the backends, the buffer
// exchange, and the dispatcher. The default logger discards everything.
package logging

import (
	"sync/atomic"

	"go.uber.org/zap"
)

// loggerPtr stores the active logger. Accessed atomically so that Set can
// be called concurrently with logging from command goroutines.
var loggerPtr atomic.Pointer[zap.Logger]

func init() {
	loggerPtr.Store(zap.NewNop())
}

// Set configures the shared logger. Pass nil to restore silent logging.
//
// Levels used:
//   - Debug: per-command diagnostics (enqueue, wait lists, buffer sizes)
//   - Info: lifecycle events (device selected, session opened)
//   - Warn: non-fatal issues (shader compiler fallback, release errors)
func Set(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	loggerPtr.Store(l)
}

// L returns the current shared logger.
func L() *zap.Logger {
	return loggerPtr.Load()
}

// Named returns the shared logger scoped to a component.
func Named(component string) *zap.Logger {
	return L().Named(component)
}
