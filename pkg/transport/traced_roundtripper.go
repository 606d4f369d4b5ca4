package transport

import (
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"net/http/httptrace"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"

	"github.com/luizaranda/curling/pkg/telemetry"
	"github.com/luizaranda/curling/pkg/telemetry/tracing"
)

const (
	_httpDNSTimingMetric          = "curling.http.client.dns.time"
	_httpTCPConnectTimingMetric   = "curling.http.client.tcp_connect.time"
	_httpTLSHandshakeTimingMetric = "curling.http.client.tls_handshake.time"

	_httpConnectionGotTimingMetric = "curling.http.client.got_connection.time"

	_httpRequestMetric                    = "curling.http.client.request.time"
	_httpGotFirstResponseByteTimingMetric = "curling.http.client.response_first_byte.time"
	_httpResponseFullyReadTimingMetric    = "curling.http.client.response_fully_read.time"
)

// TraceDecorator returns a RoundTripDecorator recording one timing metric per
// round trip and a New Relic external segment when the request context
// carries a transaction. With extended set, connection phase timings and the
// time to fully read the body are recorded too.
func TraceDecorator(extended bool) RoundTripDecorator {
	return func(base http.RoundTripper) http.RoundTripper {
		return &TracedRoundTripper{Transport: base, Extended: extended}
	}
}

// TracedRoundTripper records metrics through pkg/telemetry, so the request
// context must carry a telemetry.Client for anything to be sent. Metrics are
// tagged with the target id from pkg/telemetry/tracing when present.
type TracedRoundTripper struct {
	Transport http.RoundTripper
	Extended  bool
}

func (t *TracedRoundTripper) RoundTrip(request *http.Request) (*http.Response, error) {
	// StartExternalSegment adds distributed tracing headers to request.
	segment := newrelic.StartExternalSegment(nil, request)
	segment.Procedure = buildSegmentProcedure(request)

	ctx := request.Context()
	commonTags := tracedCommonTags(request)
	startTime := time.Now()

	outgoing := request
	if t.Extended {
		outgoing = newTracedRequest(request, commonTags, startTime)
	}

	response, err := t.Transport.RoundTrip(outgoing)
	if err != nil {
		segment.AddAttribute("error", err.Error())
	} else if t.Extended {
		response.Body = &errorReadCloser{
			R: response.Body,
			OnErr: func(err error) {
				if err == io.EOF {
					err = nil
				}
				recordResponse(ctx, commonTags, startTime, _httpResponseFullyReadTimingMetric, response, err)
			},
		}
	}
	segment.Response = response
	segment.End()

	recordResponse(ctx, commonTags, startTime, _httpRequestMetric, response, err)

	return response, err
}

func tracedCommonTags(req *http.Request) []string {
	tags := []string{"method:" + strings.ToLower(req.Method)}
	if targetID := tracing.TargetID(req.Context()); targetID != "" {
		tags = append(tags, "target_id:"+targetID)
	}
	if tpl := tracing.EndpointTemplate(req.Context()); tpl != "" {
		tags = append(tags, "endpoint:"+telemetry.SanitizeMetricTagValue(tpl))
	}
	return tags
}

func buildSegmentProcedure(request *http.Request) string {
	ctx := request.Context()

	if tpl := tracing.EndpointTemplate(ctx); tpl != "" {
		return request.Method + " " + tpl
	}

	if targetID := tracing.TargetID(ctx); targetID != "" {
		return request.Method + " " + targetID
	}

	return ""
}

func recordResponse(ctx context.Context, tags []string, startTime time.Time, metric string, response *http.Response, err error) {
	status, statusClass := "error", "error"
	if err == nil {
		status = strconv.Itoa(response.StatusCode)
		statusClass = strconv.Itoa(response.StatusCode/100) + "xx"
	} else if os.IsTimeout(err) {
		status = "timeout"
	}

	recordTimeSince(ctx, metric, startTime, withTags(tags, "status:"+status, "status_class:"+statusClass))
}

func newTracedRequest(request *http.Request, tags []string, startTime time.Time) *http.Request {
	ctx := request.Context()

	var dnsStart, tlsHandshakeStart, tcpConnectStart time.Time

	// Connection phases only fire for new connections; GotConn fires for
	// every request and tells whether the connection was reused.
	tracer := &httptrace.ClientTrace{
		DNSStart:          func(httptrace.DNSStartInfo) { dnsStart = time.Now() },
		ConnectStart:      func(string, string) { tcpConnectStart = time.Now() },
		TLSHandshakeStart: func() { tlsHandshakeStart = time.Now() },
		DNSDone: func(info httptrace.DNSDoneInfo) {
			recordTimeSince(ctx, _httpDNSTimingMetric, dnsStart, withTags(tags, statusTag(info.Err)))
		},
		ConnectDone: func(_, _ string, err error) {
			recordTimeSince(ctx, _httpTCPConnectTimingMetric, tcpConnectStart, withTags(tags, statusTag(err)))
		},
		TLSHandshakeDone: func(_ tls.ConnectionState, err error) {
			recordTimeSince(ctx, _httpTLSHandshakeTimingMetric, tlsHandshakeStart, withTags(tags, statusTag(err)))
		},
		GotConn: func(info httptrace.GotConnInfo) {
			recordTimeSince(ctx, _httpConnectionGotTimingMetric, startTime, withTags(tags,
				"reused:"+strconv.FormatBool(info.Reused),
				"was_idle:"+strconv.FormatBool(info.WasIdle)))
		},
		GotFirstResponseByte: func() {
			recordTimeSince(ctx, _httpGotFirstResponseByteTimingMetric, startTime, tags)
		},
	}

	return request.WithContext(httptrace.WithClientTrace(ctx, tracer))
}

// withTags appends to a copy so that callbacks sharing a base slice never
// overwrite each other's tags.
func withTags(base []string, extra ...string) []string {
	out := make([]string, 0, len(base)+len(extra))
	return append(append(out, base...), extra...)
}

func statusTag(err error) string {
	if err == nil {
		return "status:ok"
	}

	if os.IsTimeout(err) {
		return "status:timeout"
	}

	return "status:error"
}

func recordTimeSince(ctx context.Context, metric string, start time.Time, tags []string) {
	if start.IsZero() {
		return
	}

	telemetry.Timing(ctx, metric, time.Since(start), tags)
}

// errorReadCloser calls OnErr with the first error returned by Read, io.EOF
// included.
type errorReadCloser struct {
	R     io.ReadCloser
	OnErr func(error)

	done bool
}

func (r *errorReadCloser) Read(p []byte) (n int, err error) {
	n, err = r.R.Read(p)
	if err != nil && !r.done {
		r.done = true
		r.OnErr(err)
	}
	return n, err
}

func (r *errorReadCloser) Close() error {
	return r.R.Close()
}
