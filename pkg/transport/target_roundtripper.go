package transport

import (
	"net/http"

	"github.com/luizaranda/curling/pkg/telemetry/tracing"
)

// TargetDecorator returns a RoundTripDecorator labelling requests with
// targetID for metrics and New Relic segments. Requests already carrying a
// target id keep theirs.
func TargetDecorator(targetID string) RoundTripDecorator {
	if targetID == "" {
		return nil
	}
	return func(base http.RoundTripper) http.RoundTripper {
		return &TargetRoundTripper{Transport: base, TargetID: targetID}
	}
}

// TargetRoundTripper adds a target id to the request context.
type TargetRoundTripper struct {
	Transport http.RoundTripper
	TargetID  string
}

func (t *TargetRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if tracing.TargetID(req.Context()) == "" {
		req = req.WithContext(tracing.WithTargetID(req.Context(), t.TargetID))
	}
	return t.Transport.RoundTrip(req)
}
