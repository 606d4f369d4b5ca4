package app

import (
	"context"
	"encoding/json"
	"errors"
	"expvar"
	"net"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/luizaranda/curling/pkg/log"
	"github.com/luizaranda/curling/pkg/telemetry"
)

const (
	_connPoolsVar    = "curling.http.client.conn_pools"
	_connPoolMetric  = "curling.http.client.conn_pool"
	_pollingInterval = 10 * time.Second
)

func runListener(ctx context.Context, ln net.Listener, tracer telemetry.Client, logger log.Logger, timeouts Timeouts, h http.Handler) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go exportedVarPolling(ctx, tracer)

	logger.Info("running", log.String("address", ln.Addr().String()))

	srv := &http.Server{
		Handler:           h,
		ReadTimeout:       timeouts.ReadTimeout,
		ReadHeaderTimeout: timeouts.ReadHeaderTimeout,
		WriteTimeout:      timeouts.WriteTimeout,
		IdleTimeout:       timeouts.IdleTimeout,
		BaseContext:       func(net.Listener) context.Context { return log.Context(context.Background(), logger) },
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutting down", log.Duration("timeout", timeouts.ShutdownTimeout))

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), timeouts.ShutdownTimeout)
		defer cancelShutdown()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			_ = srv.Close()
			return err
		}
	}

	// From this point onwards we are on "clean-up" state.
	return tracer.Close()
}

func exportedVarPolling(ctx context.Context, tracer telemetry.Client) {
	ctx = telemetry.Context(ctx, tracer)

	ticker := time.NewTicker(_pollingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			exportConnPools(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// pool name -> "network:address" -> open connections.
type connPools map[string]map[string]int64

// exportConnPools reports the open connections of every transport
// registry as gauges to the client in ctx.
func exportConnPools(ctx context.Context) {
	v := expvar.Get(_connPoolsVar)
	if v == nil {
		return
	}

	var pools connPools
	if err := json.Unmarshal([]byte(v.String()), &pools); err != nil {
		return
	}

	for pool, stats := range pools {
		for addr, conns := range stats {
			network, address, _ := strings.Cut(addr, ":")
			telemetry.Gauge(ctx, _connPoolMetric, float64(conns), telemetry.Tags("pool", pool, "network", network, "address", address))
		}
	}
}
