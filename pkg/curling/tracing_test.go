package curling_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestSend_Span(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr)))
	defer otel.SetTracerProvider(noop.NewTracerProvider())

	srv := newServer(t)

	res, err := newRequest(t).SetURL(srv.URL+"/status/{code}").SetPathParam("code", "503").SetTargetID("httpbin").Send(t.Context())
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, res.StatusCode)

	_, err = newRequest(t).SetURL("http://curling-test.invalid/").SendWithRetry(t.Context(), 2, 20*time.Millisecond)
	require.Error(t, err)

	var spans []sdktrace.ReadOnlySpan
	for _, s := range sr.Ended() {
		if s.Name() == "curling GET" {
			spans = append(spans, s)
		}
	}
	require.Len(t, spans, 2)

	attrs := func(s sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
		out := map[attribute.Key]attribute.Value{}
		for _, kv := range s.Attributes() {
			out[kv.Key] = kv.Value
		}
		return out
	}

	ok := attrs(spans[0])
	assert.Equal(t, "httpbin", ok["curling.target_id"].AsString())
	assert.EqualValues(t, 1, ok["curling.attempts"].AsInt64())
	assert.EqualValues(t, 503, ok["http.status_code"].AsInt64())

	failed := attrs(spans[1])
	assert.EqualValues(t, 2, failed["curling.attempts"].AsInt64())
	require.Len(t, spans[1].Events(), 2) // one retry, one recorded error
	retry := spans[1].Events()[0]
	assert.Equal(t, "retry", retry.Name)
	for _, kv := range retry.Attributes {
		switch kv.Key {
		case "attempt":
			assert.EqualValues(t, 1, kv.Value.AsInt64())
		case "wait_ms":
			assert.EqualValues(t, 20, kv.Value.AsInt64())
		}
	}
}
