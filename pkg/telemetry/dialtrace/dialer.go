// Package dialtrace observes connections opened by a dialer.
package dialtrace

import (
	"context"
	"net"
	"sync"
)

// DialContextFunc has the signature of net.Dialer.DialContext.
type DialContextFunc func(ctx context.Context, network, address string) (net.Conn, error)

// DialContext calls d.
func (d DialContextFunc) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	return d(ctx, network, address)
}

// DialerTrace holds hooks run around a dial. Any hook may be nil and hooks
// may be called concurrently.
type DialerTrace struct {
	// GotConn runs after a connection was established.
	GotConn func(network, address string)

	// ConnError runs after a dial failed.
	ConnError func(network, address string, err error)

	// CloseConn runs once after a traced connection is closed.
	CloseConn func(network, address string)
}

// NewTracedDialer wraps dial so that trace hooks run on connection events.
func NewTracedDialer(dial DialContextFunc, trace DialerTrace) DialContextFunc {
	return func(ctx context.Context, network, address string) (net.Conn, error) {
		conn, err := dial(ctx, network, address)
		if err != nil {
			if trace.ConnError != nil {
				trace.ConnError(network, address, err)
			}
			return nil, err
		}

		if trace.GotConn != nil {
			trace.GotConn(network, address)
		}

		tc := &tracedConn{Conn: conn}
		if trace.CloseConn != nil {
			tc.onClose = func() { trace.CloseConn(network, address) }
		}
		return tc, nil
	}
}

type tracedConn struct {
	net.Conn

	once    sync.Once
	onClose func()
}

// Close closes the connection and runs the CloseConn hook the first time.
func (c *tracedConn) Close() error {
	err := c.Conn.Close()
	if c.onClose != nil {
		c.once.Do(c.onClose)
	}
	return err
}
