package httpbin

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/luizaranda/curling/pkg/log"
)

// logRequests logs every handled request at debug level. A nil logger
// means the one in the request context, else log.DefaultLogger.
func logRequests(logger log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := logger
			if logger == nil {
				logger = log.FromContext(r.Context())
			}
			if logger == nil {
				logger = log.DefaultLogger
			}

			if !logger.Enabled(log.DebugLevel) {
				next.ServeHTTP(w, r)
				return
			}

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}

			logger.Debug("request handled",
				log.String("method", r.Method),
				log.String("route", route),
				log.Stringer("url", r.URL),
				log.Int("status", ww.Status()),
				log.Int("bytes", ww.BytesWritten()),
				log.Duration("elapsed", time.Since(start)),
			)
		})
	}
}
