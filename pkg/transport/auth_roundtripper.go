package transport

import (
	"net/http"

	ntlmssp "github.com/Azure/go-ntlmssp"
	"github.com/icholy/digest"
)

// BasicAuthDecorator sets Basic credentials on requests without an
// Authorization header.
func BasicAuthDecorator(username, password string) RoundTripDecorator {
	return func(base http.RoundTripper) http.RoundTripper {
		return roundTripperFunc(func(req *http.Request) (*http.Response, error) {
			return base.RoundTrip(withBasicAuth(req, username, password))
		})
	}
}

// DigestAuthDecorator answers Digest challenges with the given credentials.
// Challenges are cached per host for the life of the decorated transport.
func DigestAuthDecorator(username, password string) RoundTripDecorator {
	return func(base http.RoundTripper) http.RoundTripper {
		return &digest.Transport{
			Username:  username,
			Password:  password,
			Transport: base,
		}
	}
}

// NTLMAuthDecorator negotiates NTLM with servers asking for it. Servers
// challenging with Basic get the credentials as Basic instead.
func NTLMAuthDecorator(username, password string) RoundTripDecorator {
	return func(base http.RoundTripper) http.RoundTripper {
		negotiator := ntlmssp.Negotiator{RoundTripper: base}
		return roundTripperFunc(func(req *http.Request) (*http.Response, error) {
			return negotiator.RoundTrip(withBasicAuth(req, username, password))
		})
	}
}

func withBasicAuth(req *http.Request, username, password string) *http.Request {
	if req.Header.Get("Authorization") != "" {
		return req
	}
	req = req.Clone(req.Context())
	req.SetBasicAuth(username, password)
	return req
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }
