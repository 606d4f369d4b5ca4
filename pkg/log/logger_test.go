package log_test

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/luizaranda/curling/pkg/log"
)

func newBufferLogger(buf *bytes.Buffer, lvl log.Level) log.Logger {
	atomic := log.NewAtomicLevelAt(lvl)
	return log.NewProductionLogger(&atomic, log.WithWriter(zapcore.AddSync(buf)), log.WithCaller(false))
}

func TestProductionLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(&buf, log.InfoLevel)

	l.With(log.String("method", "GET")).Info("request sent", log.Int("status", 200))
	l.Debug("dropped")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "request sent", entry["msg"])
	assert.Equal(t, "GET", entry["method"])
	assert.EqualValues(t, 200, entry["status"])
}

func TestLogger_WithLevelRestricts(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(&buf, log.DebugLevel).WithLevel(log.WarnLevel)

	l.Info("hidden")
	l.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
	assert.False(t, l.Enabled(log.InfoLevel))
	assert.True(t, l.Enabled(log.ErrorLevel))
}

func TestContext(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, log.FromContext(ctx))

	// No logger in context: the default logger swallows the entry.
	assert.NotPanics(t, func() { log.Info(ctx, "nothing") })

	var buf bytes.Buffer
	ctx = log.Context(ctx, newBufferLogger(&buf, log.DebugLevel))
	ctx = log.With(ctx, log.String("request_id", "abc"))

	log.Debug(ctx, "hello")
	assert.Contains(t, buf.String(), `"request_id":"abc"`)
	assert.True(t, log.Enabled(ctx, log.DebugLevel))
}

func TestConsoleLogger(t *testing.T) {
	var buf bytes.Buffer
	l := log.NewConsoleLogger(&buf, log.InfoLevel)
	l.Info("> GET / HTTP/1.1")

	out := buf.String()
	assert.Contains(t, out, "info")
	assert.Contains(t, out, "> GET / HTTP/1.1")
	assert.False(t, strings.HasPrefix(strings.TrimSpace(out), "{"))
}

func TestParseLevel(t *testing.T) {
	lvl, err := log.ParseLevel("warn")
	require.NoError(t, err)
	assert.Equal(t, log.WarnLevel, lvl)

	lvl, err = log.ParseLevel("loud")
	assert.Error(t, err)
	assert.Equal(t, log.InfoLevel, lvl)
}
