package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luizaranda/curling/pkg/telemetry"
	"github.com/luizaranda/curling/pkg/telemetry/telemetrytest"
)

func TestTags(t *testing.T) {
	tags := telemetry.Tags("method", "GET", "status", 200, "retry", true, "attempt", uint8(2))
	assert.Equal(t, []string{"method:GET", "status:200", "retry:true", "attempt:2"}, tags)

	assert.Panics(t, func() { telemetry.Tags("odd") })
	assert.Panics(t, func() { telemetry.Tags("float", 1.5) })
}

func TestSanitizeMetricTagValue(t *testing.T) {
	tests := map[string]string{
		"":                   "",
		"/":                  "/",
		"///":                "/",
		"/users/{id}/":       "/users/_id",
		"/users/{id}/orders": "/users/_id/orders",
	}
	for in, want := range tests {
		assert.Equal(t, want, telemetry.SanitizeMetricTagValue(in), in)
	}
}

func TestContextClient(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, telemetry.DefaultTracer, telemetry.FromContext(ctx))

	rec := &telemetrytest.Recorder{}
	ctx = telemetry.Context(ctx, rec)

	telemetry.Incr(ctx, "curling.request.retry.count", telemetry.Tags("attempt", 1))
	telemetry.Timing(ctx, "curling.http.request.time", 1500*time.Millisecond, nil)

	retries := rec.Metrics("curling.request.retry.count")
	require.Len(t, retries, 1)
	assert.Equal(t, []string{"attempt:1"}, retries[0].Tags)

	timings := rec.Metrics("curling.http.request.time")
	require.Len(t, timings, 1)
	assert.EqualValues(t, 1500, timings[0].Value)
}

func TestNoOpClient(t *testing.T) {
	c := telemetry.NewNoOpClient()
	ctx, span := c.StartSpan(context.Background(), "curling")
	require.NotNil(t, span)
	require.NotNil(t, ctx)

	assert.NotPanics(t, func() {
		span.SetLabel("status", 200)
		span.Finish()
		c.Incr("x", nil)
	})
	assert.NoError(t, c.Close())
}
