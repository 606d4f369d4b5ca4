package app_test

import (
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luizaranda/curling/pkg/app"
	"github.com/luizaranda/curling/pkg/httpbin"
	"github.com/luizaranda/curling/pkg/log"
	"github.com/luizaranda/curling/pkg/telemetry"
)

func TestApplication_Run(t *testing.T) {
	t.Setenv("PORT", "0")
	t.Setenv("DD_AGENT_HOST", "")
	t.Setenv("OTEL_AGENT_ENABLED", "")

	defaultLogger, defaultTracer := log.DefaultLogger, telemetry.DefaultTracer
	t.Cleanup(func() {
		log.DefaultLogger = defaultLogger
		telemetry.DefaultTracer = defaultTracer
	})

	a, err := app.NewWebApplication(httpbin.New(), app.WithServiceName("httpbin"), app.WithEnableProfiling())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- a.Run() }()
	<-a.Running()

	base := fmt.Sprintf("http://localhost:%d", a.Port())
	get := func(path string) (int, string) {
		t.Helper()
		res, err := http.Get(base + path)
		require.NoError(t, err)
		defer res.Body.Close()
		b, err := io.ReadAll(res.Body)
		require.NoError(t, err)
		return res.StatusCode, string(b)
	}

	t.Run("ping", func(t *testing.T) {
		status, body := get("/ping")
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "pong", body)
	})

	t.Run("handler", func(t *testing.T) {
		status, body := get("/get?key=value")
		assert.Equal(t, http.StatusOK, status)
		assert.Contains(t, body, `"key": "value"`)

		status, _ = get("/status/418")
		assert.Equal(t, http.StatusTeapot, status)
	})

	t.Run("log level", func(t *testing.T) {
		status, body := get("/debug/log/level")
		assert.Equal(t, http.StatusOK, status)
		assert.Contains(t, body, `"level":"info"`)
	})

	t.Run("profiling", func(t *testing.T) {
		status, body := get("/debug/vars")
		assert.Equal(t, http.StatusOK, status)
		assert.Contains(t, body, "memstats")
	})

	a.Shutdown()
	assert.NoError(t, <-done)
}

func TestApplication_RunListenError(t *testing.T) {
	t.Setenv("PORT", "-1")
	t.Setenv("DD_AGENT_HOST", "")
	t.Setenv("OTEL_AGENT_ENABLED", "")

	defaultLogger, defaultTracer := log.DefaultLogger, telemetry.DefaultTracer
	t.Cleanup(func() {
		log.DefaultLogger = defaultLogger
		telemetry.DefaultTracer = defaultTracer
	})

	a, err := app.NewWebApplication(httpbin.New())
	require.NoError(t, err)
	assert.Error(t, a.Run())
}
