package transport

import (
	"expvar"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/luizaranda/curling/pkg/telemetry/dialtrace"
)

const _expvarPrefix = "curling.http.client.conn_pools"

var (
	_expvar = expvar.NewMap(_expvarPrefix)

	// _owners maps an expvar name to the transport that registered it last.
	_owners sync.Map
)

// NewPooled builds a transport with opts and wraps it in a PooledTransport.
func NewPooled(name string, opts ...Option) *PooledTransport {
	return NewPooledFromTransport(name, NewTransport(opts...))
}

// NewPooledFromTransport wraps transport so that the number of open
// connections per network address is tracked and exported through expvar
// under name.
func NewPooledFromTransport(name string, transport *http.Transport) *PooledTransport {
	t := &PooledTransport{
		Transport: transport,
		Name:      name,
	}

	t.DialContext = dialtrace.NewTracedDialer(t.DialContext, dialtrace.DialerTrace{
		GotConn:   t.traceConn(1),
		CloseConn: t.traceConn(-1),
	})

	_owners.Store(t.Name, t)
	_expvar.Set(t.Name, expvar.Func(func() any { return t.Stats() }))

	return t
}

// PooledTransport is an *http.Transport reporting its open connections per
// network address.
type PooledTransport struct {
	*http.Transport

	Name  string
	stats sync.Map
}

func (t *PooledTransport) traceConn(delta int64) func(network, address string) {
	return func(network, address string) {
		value, _ := t.stats.LoadOrStore(network+":"+address, new(int64))
		atomic.AddInt64(value.(*int64), delta)
	}
}

// Stats returns the open connection count keyed by "network:address".
func (t *PooledTransport) Stats() map[string]int64 {
	stats := map[string]int64{}

	t.stats.Range(func(key, value any) bool {
		stats[key.(string)] = atomic.LoadInt64(value.(*int64))
		return true
	})

	return stats
}

// OpenConns is the total of Stats.
func (t *PooledTransport) OpenConns() int64 {
	var n int64
	for _, v := range t.Stats() {
		n += v
	}
	return n
}

// unregister removes the expvar entry of t, unless a newer transport took
// the name over.
func (t *PooledTransport) unregister() {
	if _owners.CompareAndDelete(t.Name, t) {
		_expvar.Delete(t.Name)
	}
}
