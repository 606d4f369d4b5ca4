package transport

import (
	"crypto/tls"
	"net/http"
	"net/http/httptrace"
	"sort"
	"strings"

	"github.com/luizaranda/curling/pkg/log"
)

// VerboseDecorator returns a RoundTripDecorator writing a curl -v like trace
// of every round trip to l at InfoLevel: connection events prefixed with "*",
// request lines with ">" and response lines with "<". Authorization headers
// are redacted.
func VerboseDecorator(l log.Logger) RoundTripDecorator {
	return func(base http.RoundTripper) http.RoundTripper {
		return &VerboseRoundTripper{Transport: base, Logger: l}
	}
}

// VerboseRoundTripper logs wire level events of each round trip.
type VerboseRoundTripper struct {
	Transport http.RoundTripper
	Logger    log.Logger
}

func (t *VerboseRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	l := t.Logger

	trace := &httptrace.ClientTrace{
		DNSDone: func(info httptrace.DNSDoneInfo) {
			if info.Err != nil {
				l.Info("* Could not resolve host", log.Err(info.Err))
			}
		},
		ConnectDone: func(network, addr string, err error) {
			if err != nil {
				l.Info("* connect to "+addr+" failed", log.Err(err))
				return
			}
			l.Info("* Connected to " + req.URL.Host + " (" + addr + ")")
		},
		TLSHandshakeDone: func(state tls.ConnectionState, err error) {
			if err != nil {
				l.Info("* TLS handshake failed", log.Err(err))
				return
			}
			l.Info("* SSL connection using "+tls.VersionName(state.Version)+" / "+tls.CipherSuiteName(state.CipherSuite),
				log.String("alpn", state.NegotiatedProtocol))
		},
		GotConn: func(info httptrace.GotConnInfo) {
			if info.Reused {
				l.Info("* Re-using existing connection with host " + req.URL.Host)
			}
		},
	}
	req = req.WithContext(httptrace.WithClientTrace(req.Context(), trace))

	l.Info("> " + req.Method + " " + req.URL.RequestURI() + " " + req.Proto)
	host := req.Host
	if host == "" {
		host = req.URL.Host
	}
	l.Info("> Host: " + host)
	for _, line := range headerLines(req.Header) {
		l.Info("> " + line)
	}

	res, err := t.Transport.RoundTrip(req)
	if err != nil {
		l.Info("* Request failed", log.Err(err))
		return res, err
	}

	l.Info("< " + res.Proto + " " + res.Status)
	for _, line := range headerLines(res.Header) {
		l.Info("< " + line)
	}

	return res, nil
}

func headerLines(h http.Header) []string {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var lines []string
	for _, k := range keys {
		for _, v := range h[k] {
			if strings.EqualFold(k, "Authorization") || strings.EqualFold(k, "Proxy-Authorization") {
				v = redact(v)
			}
			lines = append(lines, k+": "+v)
		}
	}
	return lines
}

func redact(v string) string {
	scheme, _, ok := strings.Cut(v, " ")
	if !ok {
		return "[redacted]"
	}
	return scheme + " [redacted]"
}
