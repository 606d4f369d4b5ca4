// Package otel bootstraps the OpenTelemetry tracer and meter providers used
// by the curling spans and the otelhttp client instrumentation. Data is
// exported over OTLP gRPC.
package otel

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.7.0"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

const (
	DefaultEndpoint    = "otel-agent:4317"
	DefaultServiceName = "curling"
)

// Config selects where telemetry goes.
type Config struct {
	// Endpoint is the host:port of the OTLP gRPC collector.
	Endpoint string
	// ServiceName is reported as service.name.
	ServiceName string
	// SampleRatio is the fraction of root traces kept, between 0 and 1.
	// Zero keeps every trace. Child spans follow their parent's decision.
	SampleRatio float64
}

func (c Config) withDefaults() Config {
	if c.Endpoint == "" {
		c.Endpoint = DefaultEndpoint
	}
	if c.ServiceName == "" {
		c.ServiceName = DefaultServiceName
	}
	if c.SampleRatio <= 0 {
		c.SampleRatio = 1
	}
	return c
}

// ShutdownFunc flushes and stops the providers started by Start.
type ShutdownFunc func(ctx context.Context) error

// Start installs global tracer and meter providers exporting to
// cfg.Endpoint, together with W3C and B3 propagation.
func Start(ctx context.Context, cfg Config) (ShutdownFunc, error) {
	cfg = cfg.withDefaults()
	res := newResource(cfg)

	tracingShutdown, err := startTracerProvider(ctx, cfg, res)
	if err != nil {
		return nil, err
	}

	metricsShutdown, err := startMetricsProvider(ctx, cfg, res)
	if err != nil {
		_ = tracingShutdown(ctx)
		setDefaults()
		return nil, err
	}

	return func(ctx context.Context) error {
		defer setDefaults()
		return errors.Join(tracingShutdown(ctx), metricsShutdown(ctx))
	}, nil
}

func newResource(cfg Config) *resource.Resource {
	return resource.NewSchemaless(semconv.ServiceNameKey.String(cfg.ServiceName))
}

// setDefaults puts back the no-op global providers.
func setDefaults() {
	otel.SetTracerProvider(tracenoop.NewTracerProvider())
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator())
	otel.SetMeterProvider(metricnoop.NewMeterProvider())
}
