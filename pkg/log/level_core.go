package log

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// coreWithLevel restricts a core to an atomic level. It can only narrow what
// the wrapped core already accepts, so loggers are built on a Debug core and
// narrowed here.
type coreWithLevel struct {
	zapcore.Core

	lvl *zap.AtomicLevel
}

func (c *coreWithLevel) Enabled(level zapcore.Level) bool {
	return c.lvl.Enabled(level) && c.Core.Enabled(level)
}

func (c *coreWithLevel) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.lvl.Enabled(e.Level) {
		return ce
	}
	// The wrapped core adds itself to ce only when it accepts the entry.
	return c.Core.Check(e, ce)
}

func (c *coreWithLevel) With(fields []zapcore.Field) zapcore.Core {
	return &coreWithLevel{
		Core: c.Core.With(fields),
		lvl:  c.lvl,
	}
}

// wrapCoreWithLevel replaces the level restriction of a logger. An existing
// coreWithLevel is unwrapped first so restrictions never stack.
func wrapCoreWithLevel(l *zap.AtomicLevel) zap.Option {
	return zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		if lc, ok := core.(*coreWithLevel); ok {
			core = lc.Core
		}
		return &coreWithLevel{Core: core, lvl: l}
	})
}
