package dialtrace_test

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luizaranda/curling/pkg/telemetry/dialtrace"
)

func TestTracedDialer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			_ = c.Close()
		}
	}()

	var got, closed, failed int32
	var d net.Dialer
	dial := dialtrace.NewTracedDialer(d.DialContext, dialtrace.DialerTrace{
		GotConn:   func(string, string) { atomic.AddInt32(&got, 1) },
		CloseConn: func(string, string) { atomic.AddInt32(&closed, 1) },
		ConnError: func(string, string, error) { atomic.AddInt32(&failed, 1) },
	})

	conn, err := dial(context.Background(), "tcp", ln.Addr().String())
	require.NoError(t, err)
	require.NoError(t, conn.Close())
	_ = conn.Close()

	assert.EqualValues(t, 1, atomic.LoadInt32(&got))
	assert.EqualValues(t, 1, atomic.LoadInt32(&closed))

	boom := errors.New("boom")
	failing := dialtrace.NewTracedDialer(func(context.Context, string, string) (net.Conn, error) {
		return nil, boom
	}, dialtrace.DialerTrace{ConnError: func(string, string, error) { atomic.AddInt32(&failed, 1) }})

	_, err = failing.DialContext(context.Background(), "tcp", "example.invalid:80")
	assert.ErrorIs(t, err, boom)
	assert.EqualValues(t, 1, atomic.LoadInt32(&failed))
}
