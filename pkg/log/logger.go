package log

import (
	"io"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultLogger is used when a context carries no logger. It discards
// everything; replace it to get output from code that logs through a bare
// context.
var DefaultLogger Logger = &logger{Logger: zap.NewNop()}

// NewProductionLogger builds a JSON logger writing to stderr at lvl and above.
// The level may be changed later through lvl. Error entries carry a
// stacktrace unless disabled with WithStacktraceOnError(false).
func NewProductionLogger(lvl *AtomicLevel, opts ...Option) Logger {
	cfg := logConfig{
		writer:         _stderr,
		levelKey:       "level",
		caller:         true,
		callerSkip:     1,
		stacktrace:     true,
		encoderFactory: zapcore.NewJSONEncoder,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	var zapOptions []zap.Option
	if cfg.caller {
		zapOptions = append(zapOptions, zap.AddCaller(), zap.AddCallerSkip(cfg.callerSkip))
	}
	if cfg.stacktrace {
		zapOptions = append(zapOptions, zap.AddStacktrace(zap.ErrorLevel))
	}
	zapOptions = append(zapOptions, wrapCoreWithLevel(lvl))

	return &logger{Logger: zap.New(newCore(cfg), zapOptions...)}
}

// NewConsoleLogger builds a human readable logger without caller or
// stacktrace annotations. It backs the verbose wire log and the CLI.
func NewConsoleLogger(w io.Writer, lvl Level) Logger {
	atomic := NewAtomicLevelAt(lvl)
	return NewProductionLogger(&atomic,
		WithWriter(zapcore.AddSync(w)),
		WithConsoleEncoding(),
		WithCaller(false),
		WithStacktraceOnError(false),
	)
}

type logger struct {
	*zap.Logger
}

var _ Logger = (*logger)(nil)

func (l *logger) WithLevel(level Level) Logger {
	lvl := zap.NewAtomicLevelAt(level)
	return &logger{Logger: l.Logger.WithOptions(wrapCoreWithLevel(&lvl))}
}

func (l *logger) With(fields ...Field) Logger {
	return &logger{Logger: l.Logger.With(fields...)}
}

func (l *logger) Named(s string) Logger {
	return &logger{Logger: l.Logger.Named(s)}
}

func (l *logger) Enabled(lvl Level) bool {
	return l.Core().Enabled(lvl)
}

// WriteSyncer is an io.Writer that can flush.
type WriteSyncer = zapcore.WriteSyncer

type logConfig struct {
	levelKey   string
	caller     bool
	callerSkip int
	stacktrace bool
	writer     WriteSyncer

	encoderFactory func(zapcore.EncoderConfig) zapcore.Encoder
}

// Option configures a Logger built by NewProductionLogger.
type Option func(*logConfig)

// WithLevelKey sets the key used for the level. Defaults to "level".
func WithLevelKey(key string) Option {
	return func(c *logConfig) { c.levelKey = key }
}

// WithCaller toggles the "caller" annotation. Enabled by default.
func WithCaller(t bool) Option {
	return func(c *logConfig) { c.caller = t }
}

// WithCallerSkip sets how many frames are skipped when annotating the caller.
func WithCallerSkip(skip int) Option {
	return func(c *logConfig) { c.callerSkip = skip }
}

// WithStacktraceOnError toggles stacktraces on ErrorLevel entries.
func WithStacktraceOnError(b bool) Option {
	return func(c *logConfig) { c.stacktrace = b }
}

// WithJSONEncoding selects JSON output. This is the default.
func WithJSONEncoding() Option {
	return func(c *logConfig) { c.encoderFactory = zapcore.NewJSONEncoder }
}

// WithConsoleEncoding selects zap's tab separated console output.
func WithConsoleEncoding() Option {
	return func(c *logConfig) { c.encoderFactory = zapcore.NewConsoleEncoder }
}

// WithWriter sets the destination. Defaults to a locked stderr.
func WithWriter(w WriteSyncer) Option {
	return func(c *logConfig) { c.writer = w }
}

// Shared so that concurrent loggers don't interleave partial lines.
var _stderr = zapcore.Lock(zapcore.AddSync(os.Stderr))

func newCore(cfg logConfig) zapcore.Core {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       cfg.levelKey,
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     rfc3339MicroTimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	return zapcore.NewCore(cfg.encoderFactory(encoderConfig), cfg.writer, zap.DebugLevel)
}

func rfc3339MicroTimeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	const RFC3339Micro = "2006-01-02T15:04:05.000000Z07:00"

	enc.AppendString(t.UTC().Format(RFC3339Micro))
}
