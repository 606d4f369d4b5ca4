// Command curling is a small curl look-alike built on pkg/curling.
//
//	curling -X POST -H "Accept: application/json" -d name=gopher https://httpbin.org/post
//
// Defaults are read from CURLING_* environment variables. Traces are
// exported when OTEL_AGENT_ENABLED=true and metrics are sent to the Datadog
// agent at DD_AGENT_HOST.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/luizaranda/curling/pkg/curling"
	"github.com/luizaranda/curling/pkg/log"
	"github.com/luizaranda/curling/pkg/otel"
	"github.com/luizaranda/curling/pkg/telemetry"
)

const (
	_exitOK    = 0
	_exitError = 1
	_exitUsage = 2
	// _exitHTTPError matches curl --fail.
	_exitHTTPError = 22
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(stderr, "curling:", err)
		return _exitUsage
	}

	opts, err := parseArgs(args, cfg, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return _exitOK
	}
	if err != nil {
		fmt.Fprintln(stderr, "curling:", err)
		return _exitUsage
	}

	if opts.version {
		fmt.Fprintln(stdout, "curling", curling.Version())
		return _exitOK
	}

	level, _ := log.ParseLevel(cfg.LogLevel)
	if opts.silent {
		level = log.ErrorLevel + 1
	}
	logger := log.NewConsoleLogger(stderr, level)
	ctx = log.Context(ctx, logger)

	shutdown, err := startTelemetry(ctx)
	if err != nil {
		logger.Warn("telemetry disabled", log.Err(err))
	}
	defer shutdown()
	ctx = telemetry.Context(ctx, telemetry.DefaultTracer)

	req, err := curling.New(append(cfg.options(), curling.WithLogger(logger))...)
	if err != nil {
		fmt.Fprintln(stderr, "curling:", err)
		return _exitError
	}
	defer req.Close()

	if err := opts.apply(req); err != nil {
		fmt.Fprintln(stderr, "curling:", err)
		return _exitUsage
	}

	if opts.progressBar && !opts.silent {
		req.SetProgressCallback(newProgressBar(stderr))
	}

	res, err := req.SendWithRetry(ctx, opts.retry+1, opts.retryDelay)
	if opts.progressBar && !opts.silent {
		fmt.Fprintln(stderr)
	}
	if err != nil {
		if !opts.silent {
			fmt.Fprintln(stderr, "curling:", err)
		}
		if errors.Is(err, curling.ErrLogic) || errors.Is(err, curling.ErrHeader) || errors.Is(err, curling.ErrMultipart) {
			return _exitUsage
		}
		return _exitError
	}

	writeResponse(stdout, res, opts.include)

	if opts.fail && res.StatusCode >= 400 {
		return _exitHTTPError
	}
	return _exitOK
}

func writeResponse(w io.Writer, res *curling.Response, include bool) {
	if include {
		fmt.Fprintf(w, "status: %d\n", res.StatusCode)
		for _, k := range res.Header.Keys() {
			fmt.Fprintf(w, "%s: %s\n", k, strings.Join(res.Header.Values(k), ", "))
		}
		fmt.Fprintln(w)
	}
	_, _ = w.Write(res.Body)
}

// newProgressBar reports the download, or the upload while nothing was
// received yet, on a single rewritten line.
func newProgressBar(w io.Writer) curling.ProgressFunc {
	return func(dlTotal, dlNow, ulTotal, ulNow int64) bool {
		total, now := dlTotal, dlNow
		if dlNow == 0 && ulTotal > 0 {
			total, now = ulTotal, ulNow
		}
		if total > 0 {
			fmt.Fprintf(w, "\r%3d%% %d/%d bytes", now*100/total, now, total)
		} else {
			fmt.Fprintf(w, "\r%d bytes", now)
		}
		return false
	}
}

// startTelemetry installs the OpenTelemetry providers and the statsd client
// when their agents are configured. The returned func flushes both.
func startTelemetry(ctx context.Context) (func(), error) {
	var errs []error
	var otelShutdown otel.ShutdownFunc
	var statsd telemetry.Client

	if strings.EqualFold(os.Getenv("OTEL_AGENT_ENABLED"), "true") {
		s, err := otel.Start(ctx, otel.Config{
			Endpoint:    os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
			ServiceName: "curling",
		})
		if err != nil {
			errs = append(errs, err)
		} else {
			otelShutdown = s
		}
	}

	if host := os.Getenv("DD_AGENT_HOST"); host != "" {
		c, err := telemetry.NewClient(telemetry.Config{
			ApplicationName: "curling",
			DatadogAddress:  net.JoinHostPort(host, "8125"),
			Tags:            []string{"service:curling"},
		})
		if err != nil {
			errs = append(errs, err)
		} else {
			statsd = c
			telemetry.DefaultTracer = c
		}
	}

	return func() {
		if otelShutdown != nil {
			_ = otelShutdown(context.Background())
		}
		if statsd != nil {
			_ = statsd.Close()
		}
	}, errors.Join(errs...)
}
