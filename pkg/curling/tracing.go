package curling

import (
	"context"
	"net/url"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.7.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/luizaranda/curling/pkg/internal"
)

const (
	_instrumentationName = "github.com/luizaranda/curling/pkg/curling"
	_spanNamePrefix      = "curling"

	_targetSpanAttribute   = attribute.Key("curling.target_id")
	_attemptsSpanAttribute = attribute.Key("curling.attempts")
	_requestIDAttribute    = attribute.Key("curling.request_id")
)

func startSpan(ctx context.Context, method string, u *url.URL, requestID, targetID string) (context.Context, trace.Span) {
	tracer := otel.Tracer(_instrumentationName, trace.WithInstrumentationVersion(internal.Version))

	ctx, span := tracer.Start(ctx, _spanNamePrefix+" "+method, trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(
		semconv.HTTPMethodKey.String(method),
		semconv.HTTPURLKey.String(u.Redacted()),
		_requestIDAttribute.String(requestID),
	)
	if targetID != "" {
		span.SetAttributes(_targetSpanAttribute.String(targetID))
	}

	return ctx, span
}

func recordRetry(span trace.Span, attempt int, err error, wait time.Duration) {
	span.AddEvent("retry", trace.WithAttributes(
		attribute.Int("attempt", attempt),
		attribute.String("error", err.Error()),
		attribute.Int64("wait_ms", wait.Milliseconds()),
	))
}

func recordResult(span trace.Span, attempts int, res *Response, err error) {
	span.SetAttributes(_attemptsSpanAttribute.Int(attempts))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}

	span.SetAttributes(semconv.HTTPAttributesFromHTTPStatusCode(res.StatusCode)...)
	span.SetStatus(semconv.SpanStatusFromHTTPStatusCode(res.StatusCode))
}
