package log

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// A Level is a logging priority. Higher levels are more important.
type Level = zapcore.Level

const (
	DebugLevel = zapcore.DebugLevel
	InfoLevel  = zapcore.InfoLevel
	WarnLevel  = zapcore.WarnLevel
	ErrorLevel = zapcore.ErrorLevel
)

// AtomicLevel is a level that can be changed at runtime for a whole tree of
// loggers.
type AtomicLevel = zap.AtomicLevel

// NewAtomicLevelAt returns an AtomicLevel set to l.
func NewAtomicLevelAt(l Level) AtomicLevel {
	return zap.NewAtomicLevelAt(l)
}

// ParseLevel parses names such as "debug" or "WARN". Unknown names fall back
// to InfoLevel together with the parse error.
func ParseLevel(s string) (Level, error) {
	lvl, err := zapcore.ParseLevel(s)
	if err != nil {
		return InfoLevel, err
	}
	return lvl, nil
}
