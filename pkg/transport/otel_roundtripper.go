package transport

import (
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// OpenTelemetryDecorator returns a decorator creating a client span per round
// trip and injecting the trace context into the outgoing headers. The span
// status is only set to error when no response was received.
func OpenTelemetryDecorator(opts ...otelhttp.Option) RoundTripDecorator {
	opts = append([]otelhttp.Option{
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return "HTTP " + r.Method
		}),
	}, opts...)

	return func(base http.RoundTripper) http.RoundTripper {
		return otelhttp.NewTransport(base, opts...)
	}
}
