package curling

import (
	"time"

	"github.com/luizaranda/curling/pkg/log"
)

// defaults are the values a Request starts with, and returns to on Reset
// for the fields Reset doesn't keep.
type defaults struct {
	logger     log.Logger
	cookiePath string
	userAgent  string
	timeout    time.Duration
}

// Option configures a Request at creation time.
type Option func(*defaults)

// WithLogger sets the logger used for attempt logs and verbose output. It
// survives Reset.
func WithLogger(l log.Logger) Option {
	return func(d *defaults) { d.logger = l }
}

// WithCookiePath sets the cookie file. It survives Reset.
func WithCookiePath(path string) Option {
	return func(d *defaults) { d.cookiePath = path }
}

// WithUserAgent sets the User-Agent restored by Reset.
func WithUserAgent(agent string) Option {
	return func(d *defaults) { d.userAgent = agent }
}

// WithTimeout sets the overall timeout restored by Reset. Zero means none.
func WithTimeout(timeout time.Duration) Option {
	return func(d *defaults) { d.timeout = timeout }
}
