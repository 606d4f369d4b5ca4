package transport

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/karlseguin/ccache/v2"
)

const (
	// DefaultRegistrySize is the number of distinct transports kept alive.
	DefaultRegistrySize = 64

	// Transports unused for this long are rebuilt on next use. Every Get
	// extends the lifetime of the returned transport. Connections of the
	// replaced transport are closed once idle.
	_registryTTL = 10 * time.Minute
)

// Config is the part of a request configuration that needs a dedicated
// transport. Requests with equal Configs share connections.
type Config struct {
	Proxy              *url.URL
	ConnectTimeout     time.Duration
	Protocol           Protocol
	InsecureSkipVerify bool
}

func (c Config) key() string {
	proxy := ""
	if c.Proxy != nil {
		proxy = c.Proxy.String()
	}
	sum := sha256.Sum256([]byte(proxy))

	return hex.EncodeToString(sum[:8]) +
		"|" + c.ConnectTimeout.String() +
		"|" + c.Protocol.String() +
		"|" + strconv.FormatBool(c.InsecureSkipVerify)
}

// Registry caches pooled transports by Config. It is safe for concurrent
// use.
type Registry struct {
	name  string
	ttl   time.Duration
	mu    sync.Mutex
	cache *ccache.Cache
}

// NewRegistry returns a registry keeping at most size transports. Evicted
// transports get their idle connections closed. name prefixes the expvar
// entries of the transports.
func NewRegistry(name string, size int64) *Registry {
	if size <= 0 {
		size = DefaultRegistrySize
	}

	cfg := ccache.Configure().
		MaxSize(size).
		ItemsToPrune(1).
		OnDelete(func(item *ccache.Item) {
			if t, ok := item.Value().(*PooledTransport); ok {
				t.CloseIdleConnections()
				t.unregister()
			}
		})

	return &Registry{name: name, ttl: _registryTTL, cache: ccache.New(cfg)}
}

// Get returns the transport for cfg, building it on first use.
func (r *Registry) Get(cfg Config) (*PooledTransport, error) {
	if cfg.Protocol == ProtocolHTTP3 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProtocol, cfg.Protocol)
	}

	key := cfg.key()

	r.mu.Lock()
	defer r.mu.Unlock()

	item, err := r.cache.Fetch(key, r.ttl, func() (any, error) {
		return r.build(key, cfg)
	})
	if err != nil {
		return nil, err
	}
	// Fetch does not refresh the expiry of a hit.
	item.Extend(r.ttl)
	return item.Value().(*PooledTransport), nil
}

func (r *Registry) build(key string, cfg Config) (*PooledTransport, error) {
	opts := []Option{
		OptionProxy(cfg.Proxy),
		OptionDialTimeout(cfg.ConnectTimeout),
		OptionInsecureSkipVerify(cfg.InsecureSkipVerify),
	}
	// The connect timeout covers the TLS handshake too.
	if cfg.ConnectTimeout > 0 {
		opts = append(opts, OptionTLSHandshakeTimeout(cfg.ConnectTimeout))
	}
	t := NewTransport(opts...)
	if err := ConfigureProtocol(t, cfg.Protocol); err != nil {
		return nil, err
	}
	return NewPooledFromTransport(r.name+"."+key, t), nil
}

// Len returns the number of cached transports.
func (r *Registry) Len() int {
	return r.cache.ItemCount()
}

// Close closes idle connections of every cached transport and stops the
// cache. The registry can't be used afterwards.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cache.ForEachFunc(func(_ string, item *ccache.Item) bool {
		if t, ok := item.Value().(*PooledTransport); ok {
			t.CloseIdleConnections()
			t.unregister()
		}
		return true
	})
	r.cache.Clear()
	r.cache.Stop()
}
