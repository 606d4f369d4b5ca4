package log

import (
	"context"
)

type logCtxKey struct{}

// Context returns a copy of ctx carrying the given logger. Code running with
// that context should log through the static functions of this package.
func Context(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, logCtxKey{}, l)
}

// FromContext returns the logger stored in ctx by Context, or nil.
func FromContext(ctx context.Context) Logger {
	l, _ := ctx.Value(logCtxKey{}).(Logger)
	return l
}

// With returns a context whose logger carries the extra fields.
func With(ctx context.Context, fields ...Field) context.Context {
	return Context(ctx, getLogger(ctx).With(fields...))
}

// Named returns a context whose logger has s appended to its name.
func Named(ctx context.Context, s string) context.Context {
	return Context(ctx, getLogger(ctx).Named(s))
}

// Sugar returns the printf-style logger for ctx.
func Sugar(ctx context.Context) *SugaredLogger {
	return getLogger(ctx).Sugar()
}

// Enabled reports whether the context logger writes entries at lvl.
func Enabled(ctx context.Context, lvl Level) bool {
	return getLogger(ctx).Enabled(lvl)
}

// Debug logs msg at DebugLevel with the context logger.
func Debug(ctx context.Context, msg string, fields ...Field) {
	getLogger(ctx).Debug(msg, fields...)
}

// Info logs msg at InfoLevel with the context logger.
func Info(ctx context.Context, msg string, fields ...Field) {
	getLogger(ctx).Info(msg, fields...)
}

// Warn logs msg at WarnLevel with the context logger.
func Warn(ctx context.Context, msg string, fields ...Field) {
	getLogger(ctx).Warn(msg, fields...)
}

// Error logs msg at ErrorLevel with the context logger.
func Error(ctx context.Context, msg string, fields ...Field) {
	getLogger(ctx).Error(msg, fields...)
}

func getLogger(ctx context.Context) Logger {
	if l, ok := ctx.Value(logCtxKey{}).(Logger); ok {
		return l
	}
	return DefaultLogger
}
