package transport

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/net/http2"
)

var (
	// DefaultDialTimeout is the connect timeout used when none is configured.
	DefaultDialTimeout = 30 * time.Second

	// DefaultKeepAliveProbeInterval is the TCP keep-alive probe interval.
	DefaultKeepAliveProbeInterval = 15 * time.Second
)

// ErrUnsupportedProtocol is returned for protocol versions this build can't
// speak.
var ErrUnsupportedProtocol = errors.New("transport: unsupported protocol")

// Protocol selects the HTTP version negotiated by a transport.
type Protocol int

const (
	// ProtocolAuto lets TLS negotiation pick HTTP/2 or HTTP/1.1.
	ProtocolAuto Protocol = iota
	// ProtocolHTTP1 disables HTTP/2.
	ProtocolHTTP1
	// ProtocolHTTP2 configures the transport through golang.org/x/net/http2.
	ProtocolHTTP2
	// ProtocolHTTP3 is recognised but not supported.
	ProtocolHTTP3
)

func (p Protocol) String() string {
	switch p {
	case ProtocolAuto:
		return "auto"
	case ProtocolHTTP1:
		return "HTTP/1.1"
	case ProtocolHTTP2:
		return "HTTP/2"
	case ProtocolHTTP3:
		return "HTTP/3"
	default:
		return fmt.Sprintf("Protocol(%d)", int(p))
	}
}

// An Option configures a http.Transport or its net.Dialer.
type Option interface {
	applyTransport(*http.Transport)
	applyDialer(*net.Dialer)
}

type transportOptFunc func(*http.Transport)

func (f transportOptFunc) applyTransport(t *http.Transport) { f(t) }
func (f transportOptFunc) applyDialer(*net.Dialer)          {}

type dialerOptFunc func(*net.Dialer)

func (f dialerOptFunc) applyTransport(*http.Transport) {}
func (f dialerOptFunc) applyDialer(d *net.Dialer)      { f(d) }

// OptionDialTimeout sets the connect timeout.
func OptionDialTimeout(timeout time.Duration) Option {
	return dialerOptFunc(func(d *net.Dialer) {
		if timeout > 0 {
			d.Timeout = timeout
		}
	})
}

// OptionIdleConnTimeout sets how long idle connections are kept.
func OptionIdleConnTimeout(timeout time.Duration) Option {
	return transportOptFunc(func(t *http.Transport) {
		t.IdleConnTimeout = timeout
	})
}

// OptionTLSHandshakeTimeout sets the TLS handshake timeout.
func OptionTLSHandshakeTimeout(timeout time.Duration) Option {
	return transportOptFunc(func(t *http.Transport) {
		t.TLSHandshakeTimeout = timeout
	})
}


// OptionInsecureSkipVerify disables certificate verification when skip is
// true.
func OptionInsecureSkipVerify(skip bool) Option {
	return transportOptFunc(func(t *http.Transport) {
		if !skip {
			return
		}
		if t.TLSClientConfig == nil {
			t.TLSClientConfig = &tls.Config{} //nolint:gosec
		}
		t.TLSClientConfig.InsecureSkipVerify = true
	})
}

// OptionProxy routes every request through proxy. Credentials in the URL are
// sent as Basic proxy authorization. A nil proxy keeps the environment
// settings (HTTP_PROXY, HTTPS_PROXY, NO_PROXY).
func OptionProxy(proxy *url.URL) Option {
	return transportOptFunc(func(t *http.Transport) {
		if proxy != nil {
			t.Proxy = http.ProxyURL(proxy)
		}
	})
}

// NewTransport returns an *http.Transport with sane defaults, modified by
// opts.
func NewTransport(opts ...Option) *http.Transport {
	dialer := &net.Dialer{
		Timeout:   DefaultDialTimeout,
		KeepAlive: DefaultKeepAliveProbeInterval,
	}

	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConnsPerHost:   100,
		Proxy:                 http.ProxyFromEnvironment,
		ExpectContinueTimeout: 1 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
	}

	for _, opt := range opts {
		opt.applyDialer(dialer)
		opt.applyTransport(transport)
	}

	return transport
}

// ConfigureProtocol restricts t to protocol p. It must run after every Option
// since HTTP/2 support is wired into the TLS configuration.
func ConfigureProtocol(t *http.Transport, p Protocol) error {
	switch p {
	case ProtocolAuto:
		return nil
	case ProtocolHTTP1:
		t.ForceAttemptHTTP2 = false
		// A non-nil empty map disables the automatic HTTP/2 upgrade.
		t.TLSNextProto = map[string]func(string, *tls.Conn) http.RoundTripper{}
		if t.TLSClientConfig != nil {
			t.TLSClientConfig.NextProtos = []string{"http/1.1"}
		}
		return nil
	case ProtocolHTTP2:
		t.ForceAttemptHTTP2 = false
		if _, err := http2.ConfigureTransports(t); err != nil {
			return fmt.Errorf("transport: configuring HTTP/2: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedProtocol, p)
	}
}
