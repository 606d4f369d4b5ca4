package telemetry

import (
	"context"
)

type telemetryClientCtxKey struct{}

// Context returns a copy of ctx carrying client. Metrics recorded through the
// static functions of this package with that context go to client.
func Context(ctx context.Context, client Client) context.Context {
	return context.WithValue(ctx, telemetryClientCtxKey{}, client)
}

// FromContext returns the client stored in ctx, or DefaultTracer.
func FromContext(ctx context.Context) Client {
	client, _ := ctx.Value(telemetryClientCtxKey{}).(Client)
	if client == nil {
		return DefaultTracer
	}
	return client
}
