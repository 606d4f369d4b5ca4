package app

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.7.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/luizaranda/curling/pkg/internal"
	"github.com/luizaranda/curling/pkg/log"
	"github.com/luizaranda/curling/pkg/telemetry"
)

const (
	_requestIDHeader = "x-request-id"
	_debugHeader     = "x-debug"

	_instrumentationName = "github.com/luizaranda/curling/pkg/app"
	_durationMetricName  = "http.server.duration"
	_unitKey             = attribute.Key("unit")
)

// Panics recovers from a panicking handler, logs the error, counts it and
// answers with a status code 500.
func Panics() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					if rvr == http.ErrAbortHandler {
						panic(rvr)
					}

					err, ok := rvr.(error)
					if !ok {
						err = fmt.Errorf("%v", rvr)
					}

					log.Error(r.Context(), "panic recover", log.Err(err))

					tags := []string{
						"method:" + r.Method,
						"handler:" + telemetry.SanitizeMetricTagValue(routePattern(r)),
					}
					telemetry.Incr(r.Context(), "curling.http.server.panic_recovered", tags)

					w.WriteHeader(http.StatusInternalServerError)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// Logger decorates the request context with logger. A request carrying
// "x-debug: true" logs at debug level and "x-request-id" is added to every
// entry.
func Logger(logger log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Per request copy; logger itself is shared.
			l := logger

			if r.Header.Get(_debugHeader) == "true" {
				l = l.WithLevel(log.DebugLevel)
			}

			if reqID := r.Header.Get(_requestIDHeader); reqID != "" {
				l = l.With(log.String("request_id", reqID))
			}

			next.ServeHTTP(w, r.WithContext(log.Context(r.Context(), l)))
		})
	}
}

// Telemetry starts a span per request on tracer, puts tracer in the request
// context and records:
// - Count of requests per handler by {method,status}
// - Timing of response per handler by {method,status}.
func Telemetry(tracer telemetry.Client) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := telemetry.Context(r.Context(), tracer)
			ctx, span := tracer.StartSpan(ctx, r.Method+" "+r.URL.Path)
			defer span.Finish()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r.WithContext(ctx))

			route := routePattern(r)
			span.SetLabel("handler", route)
			recordRequest(tracer, ww.Status(), time.Since(start), r.Method, route)
		})
	}
}

func recordRequest(tracer telemetry.Client, status int, delta time.Duration, method, route string) {
	// A handler that never writes the header answers 200.
	if status == 0 {
		status = http.StatusOK
	}

	tags := []string{
		"status:" + strconv.Itoa(status),
		"status_class:" + strconv.Itoa(status/100) + "xx",
		"method:" + method,
		"handler:" + telemetry.SanitizeMetricTagValue(route),
	}

	tracer.Incr("curling.http.server.request", tags)
	tracer.Timing("curling.http.server.request.time", delta, tags)
}

// OpenTelemetry traces the incoming requests with the global providers,
// continuing the trace found in the request headers. Spans are named after
// the chi route pattern, which is only known once the request was routed.
func OpenTelemetry() func(http.Handler) http.Handler {
	tracer := otel.GetTracerProvider().Tracer(
		_instrumentationName,
		trace.WithInstrumentationVersion(internal.Version),
	)
	propagator := otel.GetTextMapPropagator()

	duration, err := otel.Meter(_instrumentationName).Int64Histogram(_durationMetricName)
	if err != nil {
		otel.Handle(err)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ctx := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
			ctx, span := tracer.Start(ctx, "HTTP "+r.Method,
				trace.WithAttributes(semconv.NetAttributesFromHTTPRequest("tcp", r)...),
				trace.WithAttributes(semconv.EndUserAttributesFromHTTPRequest(r)...),
				trace.WithAttributes(semconv.HTTPServerAttributesFromHTTPRequest("", "", r)...),
				trace.WithSpanKind(trace.SpanKindServer),
			)
			defer span.End()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			route := routePattern(r)
			span.SetName(route)
			span.SetAttributes(semconv.HTTPRouteKey.String(route))
			span.SetAttributes(semconv.HTTPAttributesFromHTTPStatusCode(status)...)
			span.SetStatus(semconv.SpanStatusFromHTTPStatusCodeAndSpanKind(status, trace.SpanKindServer))

			if duration == nil {
				return
			}

			attrs := semconv.HTTPServerMetricAttributesFromHTTPRequest("", r)
			attrs = append(attrs,
				semconv.HTTPRouteKey.String(route),
				semconv.HTTPStatusCodeKey.Int(status),
				_unitKey.String("ms"),
			)
			duration.Record(ctx, time.Since(start).Milliseconds(), otelmetric.WithAttributes(attrs...))
		})
	}
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
		return rctx.RoutePattern()
	}
	return r.URL.Path
}
