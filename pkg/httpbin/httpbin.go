// Package httpbin serves a subset of the httpbin.org API. It backs the
// integration tests of curling and can be run locally with cmd/httpbin.
//
// JSON responses are indented with two spaces, so a body echoing the query
// "key=value" contains `"key": "value"`.
package httpbin

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/luizaranda/curling/pkg/log"
)

// MaxDelay caps the /delay endpoint.
const MaxDelay = 10

type config struct {
	logger log.Logger
}

// Option configures the handler returned by New.
type Option func(*config)

// WithLogger logs every request at debug level through l. By default the
// logger carried by the request context is used.
func WithLogger(l log.Logger) Option {
	return func(c *config) { c.logger = l }
}

// New returns the httpbin handler.
func New(opts ...Option) http.Handler {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(logRequests(cfg.logger))

	r.Method(http.MethodGet, "/get", handlerFunc(echo))
	r.Method(http.MethodHead, "/get", handlerFunc(echo))
	r.Method(http.MethodPost, "/post", handlerFunc(echo))
	r.Method(http.MethodPut, "/put", handlerFunc(echo))
	r.Method(http.MethodPatch, "/patch", handlerFunc(echo))
	r.Method(http.MethodDelete, "/delete", handlerFunc(echo))
	r.Handle("/anything", handlerFunc(echo))
	r.Handle("/anything/*", handlerFunc(echo))

	r.Method(http.MethodGet, "/headers", handlerFunc(headers))
	r.Method(http.MethodGet, "/user-agent", handlerFunc(userAgent))
	r.Method(http.MethodGet, "/response-headers", handlerFunc(responseHeaders))

	r.Method(http.MethodGet, "/basic-auth/{user}/{passwd}", handlerFunc(basicAuth))
	r.Method(http.MethodGet, "/bearer", handlerFunc(bearer))
	r.Method(http.MethodGet, "/digest-auth/{qop}/{user}/{passwd}", newDigestAuth())

	r.Method(http.MethodGet, "/cookies", handlerFunc(cookies))
	r.Method(http.MethodGet, "/cookies/set", handlerFunc(setCookies))
	r.Method(http.MethodGet, "/cookies/delete", handlerFunc(deleteCookies))

	r.Handle("/status/{code}", handlerFunc(status))
	r.Handle("/delay/{n}", handlerFunc(delay))
	r.Method(http.MethodGet, "/bytes/{n}", handlerFunc(randomBytes))
	r.Method(http.MethodGet, "/redirect-to", handlerFunc(redirectTo))
	r.Method(http.MethodGet, "/redirect/{n}", handlerFunc(redirect))

	return r
}
