package log

import (
	"go.uber.org/zap"
)

// SugaredLogger is the printf-style flavour of the logger, used by the
// command line tools where structured output is not needed.
type SugaredLogger = zap.SugaredLogger

// Logger is the structured logger used across curling. Requests carry one
// through SetLogger or through the context given to Send.
type Logger interface {
	// Named adds a new path segment to the logger's name.
	Named(s string) Logger

	// With creates a child logger carrying the given fields.
	With(fields ...Field) Logger

	// WithLevel creates a child logger restricted to lvl and above.
	WithLevel(lvl Level) Logger

	// Sugar converts the logger into a SugaredLogger.
	Sugar() *SugaredLogger

	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)

	// Enabled reports whether entries at lvl would be written.
	Enabled(lvl Level) bool

	// Sync flushes any buffered entries.
	Sync() error
}
