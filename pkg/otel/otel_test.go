package otel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestConfig_Defaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Equal(t, DefaultEndpoint, cfg.Endpoint)
	assert.Equal(t, DefaultServiceName, cfg.ServiceName)
	assert.Equal(t, 1.0, cfg.SampleRatio)

	cfg = Config{Endpoint: "collector:4317", ServiceName: "cli"}.withDefaults()
	assert.Equal(t, "collector:4317", cfg.Endpoint)
	assert.Equal(t, "cli", cfg.ServiceName)
}

func TestTracerProvider_Sampling(t *testing.T) {
	res := newResource(Config{}.withDefaults())

	for name, tc := range map[string]struct {
		ratio float64
		want  int
	}{
		"all":  {ratio: 1, want: 1},
		"none": {ratio: 0, want: 0},
	} {
		t.Run(name, func(t *testing.T) {
			exp := tracetest.NewInMemoryExporter()
			tp := newTracerProvider(exp, res, tc.ratio)

			_, span := tp.Tracer("test").Start(context.Background(), "curling GET")
			span.End()
			require.NoError(t, tp.ForceFlush(context.Background()))
			defer tp.Shutdown(context.Background())

			spans := exp.GetSpans()
			require.Len(t, spans, tc.want)
			if tc.want > 0 {
				assert.Equal(t, "curling GET", spans[0].Name)
				assert.Equal(t, res, spans[0].Resource)
			}
		})
	}
}

func TestPropagator(t *testing.T) {
	fields := newPropagator().Fields()
	assert.Contains(t, fields, "traceparent")
	assert.Contains(t, fields, "baggage")
	assert.Contains(t, fields, "x-b3-traceid")
}
