package transport_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luizaranda/curling/pkg/log"
	"github.com/luizaranda/curling/pkg/telemetry"
	"github.com/luizaranda/curling/pkg/telemetry/telemetrytest"
	"github.com/luizaranda/curling/pkg/telemetry/tracing"
	"github.com/luizaranda/curling/pkg/transport"
)

type recordingTripper struct {
	last *http.Request
	res  *http.Response
	err  error
}

func (r *recordingTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	r.last = req
	if r.err != nil {
		return nil, r.err
	}
	if r.res != nil {
		return r.res, nil
	}
	return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader("ok")), Request: req}, nil
}

func TestRoundTripChain_Order(t *testing.T) {
	var order []string
	mark := func(name string) transport.RoundTripDecorator {
		return func(base http.RoundTripper) http.RoundTripper {
			return roundTripFunc(func(req *http.Request) (*http.Response, error) {
				order = append(order, name)
				return base.RoundTrip(req)
			})
		}
	}

	rt := transport.RoundTripChain{mark("outer"), nil, mark("inner")}.Apply(&recordingTripper{})

	req := httptest.NewRequest(http.MethodGet, "http://example.com", nil)
	_, err := rt.RoundTrip(req)
	require.NoError(t, err)
	assert.Equal(t, []string{"outer", "inner"}, order)
}

func TestHookRoundTripper(t *testing.T) {
	t.Run("hooks run around the round trip", func(t *testing.T) {
		var responses int32
		base := &recordingTripper{}
		rt := transport.HookDecorator(
			[]transport.RequestHook{func(r *http.Request) error {
				r.Header.Set("X-Hooked", "yes")
				return nil
			}},
			[]transport.ResponseHook{func(_ *http.Request, res *http.Response, err error) {
				atomic.AddInt32(&responses, 1)
			}},
		)(base)

		req := httptest.NewRequest(http.MethodGet, "http://example.com", nil)
		_, err := rt.RoundTrip(req)
		require.NoError(t, err)
		assert.Equal(t, "yes", base.last.Header.Get("X-Hooked"))
		assert.EqualValues(t, 1, responses)
	})

	t.Run("response hooks see failures", func(t *testing.T) {
		boom := errors.New("boom")
		var seen error
		rt := transport.HookDecorator(nil, []transport.ResponseHook{
			func(_ *http.Request, res *http.Response, err error) {
				assert.Nil(t, res)
				seen = err
			},
		})(&recordingTripper{err: boom})

		_, err := rt.RoundTrip(httptest.NewRequest(http.MethodGet, "http://example.com", nil))
		assert.ErrorIs(t, err, boom)
		assert.ErrorIs(t, seen, boom)
	})

	t.Run("request hook error aborts", func(t *testing.T) {
		stop := errors.New("stop")
		base := &recordingTripper{}
		rt := transport.HookDecorator([]transport.RequestHook{func(*http.Request) error { return stop }}, nil)(base)

		_, err := rt.RoundTrip(httptest.NewRequest(http.MethodGet, "http://example.com", nil))
		assert.ErrorIs(t, err, stop)
		assert.Nil(t, base.last)
	})

	t.Run("no hooks means no decorator", func(t *testing.T) {
		assert.Nil(t, transport.HookDecorator(nil, nil))
	})
}

func TestUserAgentDecorator(t *testing.T) {
	base := &recordingTripper{}

	rt := transport.UserAgentDecorator("")(base)
	_, err := rt.RoundTrip(httptest.NewRequest(http.MethodGet, "http://example.com", nil))
	require.NoError(t, err)
	assert.Equal(t, transport.DefaultUserAgent, base.last.UserAgent())
	assert.True(t, strings.HasPrefix(transport.DefaultUserAgent, "curling/"))

	req := httptest.NewRequest(http.MethodGet, "http://example.com", nil)
	req.Header.Set("User-Agent", "mine/1.0")
	_, err = transport.UserAgentDecorator("other/2.0")(base).RoundTrip(req)
	require.NoError(t, err)
	assert.Equal(t, "mine/1.0", base.last.UserAgent())
}

func TestTargetAndTraceDecorators(t *testing.T) {
	rec := &telemetrytest.Recorder{}
	base := &recordingTripper{}

	rt := transport.RoundTripChain{
		transport.TargetDecorator("echo"),
		transport.TraceDecorator(true),
	}.Apply(base)

	ctx := telemetry.Context(context.Background(), rec)
	req := httptest.NewRequest(http.MethodGet, "http://example.com/users/1", nil).WithContext(ctx)

	res, err := rt.RoundTrip(req)
	require.NoError(t, err)
	assert.Equal(t, "echo", tracing.TargetID(base.last.Context()))

	_, err = io.ReadAll(res.Body)
	require.NoError(t, err)

	requests := rec.Metrics("curling.http.client.request.time")
	require.Len(t, requests, 1)
	assert.Contains(t, requests[0].Tags, "target_id:echo")
	assert.Contains(t, requests[0].Tags, "method:get")
	assert.Contains(t, requests[0].Tags, "status:200")
	assert.Contains(t, requests[0].Tags, "status_class:2xx")

	assert.Len(t, rec.Metrics("curling.http.client.response_fully_read.time"), 1)

	assert.Nil(t, transport.TargetDecorator(""))
}

func TestTraceDecorator_Error(t *testing.T) {
	rec := &telemetrytest.Recorder{}
	rt := transport.TraceDecorator(false)(&recordingTripper{err: errors.New("refused")})

	ctx := telemetry.Context(context.Background(), rec)
	_, err := rt.RoundTrip(httptest.NewRequest(http.MethodPost, "http://example.com", nil).WithContext(ctx))
	require.Error(t, err)

	requests := rec.Metrics("curling.http.client.request.time")
	require.Len(t, requests, 1)
	assert.Contains(t, requests[0].Tags, "status:error")
	assert.Contains(t, requests[0].Tags, "method:post")
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

func TestVerboseDecorator_Host(t *testing.T) {
	tests := []struct {
		name string
		host string
		want string
	}{
		{name: "from url", want: "> Host: example.com\n"},
		{name: "overridden", host: "virtual.example", want: "> Host: virtual.example\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			rt := transport.VerboseDecorator(log.NewConsoleLogger(&buf, log.InfoLevel))(&recordingTripper{})

			req := httptest.NewRequest(http.MethodGet, "http://example.com/path", nil)
			if tt.host != "" {
				req.Host = tt.host
			}
			_, err := rt.RoundTrip(req)
			require.NoError(t, err)

			assert.Contains(t, buf.String(), "> GET /path HTTP/1.1")
			assert.Contains(t, buf.String(), tt.want)
		})
	}
}
