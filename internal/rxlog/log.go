// Package rxlog provides the small leveled-logging seam the compiler and
// dispatch layer use to report engine-selection decisions and safety
// verdicts. Matching itself never logs: this is strictly a compile-time
// diagnostics path, off the hot Find/Match/Replace loop.
package rxlog

import (
	"fmt"
	"log/slog"
)

// Logger is satisfied by a no-op default and, in tests and CLI-adjacent
// code, by an adapter over log/slog. Kept minimal and printf-shaped rather
// than structured-field-shaped because compile-time messages here are
// human debugging aids, not metrics to aggregate.
type Logger interface {
	Debugf(format string, args ...any)
	Warnf(format string, args ...any)
}

// noop discards everything; it is the default logger a *Pattern uses
// unless the caller supplies one via CompileWithLogger.
type noop struct{}

func (noop) Debugf(string, ...any) {}
func (noop) Warnf(string, ...any)  {}

// Noop returns a Logger that discards all messages.
func Noop() Logger { return noop{} }

// Slog adapts a *slog.Logger to the Logger interface.
type Slog struct {
	L *slog.Logger
}

func (s Slog) Debugf(format string, args ...any) {
	s.L.Debug(fmt.Sprintf(format, args...))
}

func (s Slog) Warnf(format string, args ...any) {
	s.L.Warn(fmt.Sprintf(format, args...))
}
