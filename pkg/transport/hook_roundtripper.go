package transport

import (
	"net/http"
)

// HookDecorator returns a RoundTripDecorator running the given hooks around
// every round trip.
func HookDecorator(req []RequestHook, res []ResponseHook) RoundTripDecorator {
	if len(req) == 0 && len(res) == 0 {
		return nil
	}
	return func(base http.RoundTripper) http.RoundTripper {
		return &HookRoundTripper{
			Transport:    base,
			RequestHook:  req,
			ResponseHook: res,
		}
	}
}

// RequestHook runs before each round trip. Only the context and headers of
// the request may be changed. A non-nil error aborts the round trip and is
// returned as is.
type RequestHook func(*http.Request) error

// ResponseHook runs after each round trip, including failed ones, in which
// case the response is nil. Reading or closing the body affects the caller.
type ResponseHook func(*http.Request, *http.Response, error)

// HookRoundTripper runs hooks before and after the wrapped transport.
type HookRoundTripper struct {
	Transport http.RoundTripper

	RequestHook  []RequestHook
	ResponseHook []ResponseHook
}

// RoundTrip runs the request hooks in order, the wrapped round trip, then
// every response hook.
func (t *HookRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	for _, hook := range t.RequestHook {
		if err := hook(req); err != nil {
			if req.Body != nil {
				_ = req.Body.Close()
			}
			return nil, err
		}
	}

	res, err := t.Transport.RoundTrip(req)

	for _, hook := range t.ResponseHook {
		hook(req, res, err)
	}

	return res, err
}
