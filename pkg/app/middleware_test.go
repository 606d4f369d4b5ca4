package app

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap/zapcore"

	"github.com/luizaranda/curling/pkg/log"
	"github.com/luizaranda/curling/pkg/telemetry"
	"github.com/luizaranda/curling/pkg/telemetry/telemetrytest"
	"github.com/luizaranda/curling/pkg/transport"
)

func TestTelemetryAndPanics(t *testing.T) {
	rec := &telemetrytest.Recorder{}

	r := chi.NewRouter()
	r.Use(Telemetry(rec), Panics())
	r.Get("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		if chi.URLParam(r, "id") == "boom" {
			panic("boom")
		}
		w.WriteHeader(http.StatusAccepted)
	})

	for _, id := range []string{"1", "boom"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/items/"+id, nil))
		if id == "boom" {
			assert.Equal(t, http.StatusInternalServerError, w.Code)
		} else {
			assert.Equal(t, http.StatusAccepted, w.Code)
		}
	}

	requests := rec.Metrics("curling.http.server.request")
	require.Len(t, requests, 2)
	assert.Contains(t, requests[0].Tags, "status:202")
	assert.Contains(t, requests[0].Tags, "status_class:2xx")
	assert.Contains(t, requests[0].Tags, "handler:/items/_id")
	assert.Contains(t, requests[1].Tags, "status:500")
	assert.Len(t, rec.Metrics("curling.http.server.request.time"), 2)

	panics := rec.Metrics("curling.http.server.panic_recovered")
	require.Len(t, panics, 1)
	assert.Equal(t, []string{"method:GET", "handler:/items/_id"}, panics[0].Tags)
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	lvl := log.NewAtomicLevelAt(log.InfoLevel)
	logger := log.NewProductionLogger(&lvl, log.WithWriter(zapcore.AddSync(&buf)), log.WithCaller(false))

	h := Logger(logger)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		log.Debug(r.Context(), "handling")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Empty(t, buf.String())

	req.Header.Set("x-debug", "true")
	req.Header.Set("x-request-id", "abc-123")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Contains(t, buf.String(), `"request_id":"abc-123"`)
	assert.Contains(t, buf.String(), `"msg":"handling"`)
}

func TestOpenTelemetry(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	otel.SetTracerProvider(trace.NewTracerProvider(trace.WithSpanProcessor(sr)))
	defer otel.SetTracerProvider(noop.NewTracerProvider())

	r := chi.NewRouter()
	r.Use(OpenTelemetry())
	r.Get("/items/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/items/7", nil))

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "/items/{id}", spans[0].Name())

	attrs := map[string]any{}
	for _, kv := range spans[0].Attributes() {
		attrs[string(kv.Key)] = kv.Value.AsInterface()
	}
	assert.EqualValues(t, 404, attrs["http.status_code"])
	assert.Equal(t, "/items/{id}", attrs["http.route"])
}

func TestExportConnPools(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	pooled := transport.NewPooled("apptest")
	defer pooled.CloseIdleConnections()

	res, err := (&http.Client{Transport: pooled}).Get(srv.URL)
	require.NoError(t, err)
	_, _ = io.Copy(io.Discard, res.Body)
	require.NoError(t, res.Body.Close())

	rec := &telemetrytest.Recorder{}
	exportConnPools(telemetry.Context(t.Context(), rec))

	var found bool
	for _, m := range rec.Metrics(_connPoolMetric) {
		if slices.Contains(m.Tags, "pool:apptest") {
			found = true
			assert.Contains(t, m.Tags, "network:tcp")
			assert.EqualValues(t, 1, m.Value)
		}
	}
	assert.True(t, found)
}
