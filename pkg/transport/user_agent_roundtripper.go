package transport

import (
	"net/http"

	"github.com/luizaranda/curling/pkg/internal"
)

// DefaultUserAgent is sent when neither the request nor the decorator sets a
// User-Agent.
var DefaultUserAgent = "curling/" + internal.Version

// UserAgentDecorator returns a RoundTripDecorator setting the User-Agent of
// requests that don't carry one. An empty agent means DefaultUserAgent.
func UserAgentDecorator(agent string) RoundTripDecorator {
	if agent == "" {
		agent = DefaultUserAgent
	}
	return func(base http.RoundTripper) http.RoundTripper {
		return &UserAgentRoundTripper{Transport: base, UserAgent: agent}
	}
}

// UserAgentRoundTripper fills in a User-Agent header when missing.
type UserAgentRoundTripper struct {
	Transport http.RoundTripper
	UserAgent string
}

func (ua *UserAgentRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", ua.UserAgent)
	}

	return ua.Transport.RoundTrip(req)
}
