// Package app runs an http.Handler as a service: it wires the logger, the
// telemetry client and OpenTelemetry, adds health and debug routes, and
// shuts the server down gracefully on SIGINT or SIGTERM.
package app

import (
	"context"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/luizaranda/curling/pkg/log"
	"github.com/luizaranda/curling/pkg/otel"
	"github.com/luizaranda/curling/pkg/telemetry"
)

const (
	_defaultWebApplicationPort = "8080"
	_defaultServiceName        = "curling"

	_otelAgentEnabledEnv  = "OTEL_AGENT_ENABLED"
	_otelAgentDisabledEnv = "OTEL_AGENT_DISABLED"
	_otelEndpointEnv      = "OTEL_EXPORTER_OTLP_ENDPOINT"
	_otelServiceNameEnv   = "OTEL_SERVICE_NAME"
	_datadogHostEnv       = "DD_AGENT_HOST"
	_newRelicLicenseEnv   = "NEW_RELIC_LICENSE_KEY"
)

// Application serves a handler together with /ping and /debug/log/level.
type Application struct {
	Router chi.Router
	Tracer telemetry.Client
	Logger log.Logger

	mutex sync.Mutex // guards port
	port  int

	running chan struct{}
	ctx     context.Context
	cancel  context.CancelFunc

	network        string
	address        string
	serverTimeouts Timeouts

	otelShutdownFunc otel.ShutdownFunc
}

// NewWebApplication instantiates an Application serving handler on $PORT.
// Sane defaults are provided.
func NewWebApplication(handler http.Handler, opts ...AppOptFunc) (*Application, error) {
	var config Config
	for _, opt := range opts {
		opt(&config)
	}

	if config.LogLevel == 0 {
		config.LogLevel = log.InfoLevel
	}

	if config.ServiceName == "" {
		config.ServiceName = os.Getenv(_otelServiceNameEnv)
	}
	if config.ServiceName == "" {
		config.ServiceName = _defaultServiceName
	}

	if config.ServerTimeouts == (Timeouts{}) {
		config.ServerTimeouts = Timeouts{
			IdleTimeout:     75 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		}
	}

	// OTel goes first: the middlewares read the global providers.
	otelShutdownFunc, err := startOTel(config.ServiceName)
	if err != nil {
		return nil, err
	}

	tracer, err := newTracer(config.ServiceName)
	if err != nil {
		_ = otelShutdownFunc(context.Background())
		return nil, err
	}

	logger, level := newLogger(config)

	// Package level defaults let code without an injected logger or client
	// reach the application ones.
	log.DefaultLogger = logger
	telemetry.DefaultTracer = tracer

	port := os.Getenv("PORT")
	if port == "" {
		port = _defaultWebApplicationPort
	}

	router := chi.NewRouter()

	// Health checks are registered before the middlewares so that pings
	// are not reported.
	router.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("pong"))
	})
	router.Handle("/debug/log/level", level)
	if config.EnableProfiling {
		router.Mount("/debug", middleware.Profiler())
	}

	router.Group(func(r chi.Router) {
		r.Use(
			OpenTelemetry(),
			Telemetry(tracer),
			Logger(logger),
			Panics(),
		)
		r.Mount("/", handler)
	})

	// Context that will be canceled when calling Shutdown.
	ctx, cancel := context.WithCancel(context.Background())

	return &Application{
		Router: router,
		Tracer: tracer,
		Logger: logger,

		network:          "tcp",
		address:          ":" + port,
		running:          make(chan struct{}),
		ctx:              ctx,
		cancel:           cancel,
		serverTimeouts:   config.ServerTimeouts,
		otelShutdownFunc: otelShutdownFunc,
	}, nil
}

// Run starts your Application using a predefined network and address.
// It blocks until SIGTERM o SIGINT is received by the running process or Shutdown is called, whichever happens first.
func (a *Application) Run() error {
	defer func() { _ = a.otelShutdownFunc(context.Background()) }()

	ln, err := net.Listen(a.network, a.address)
	if err != nil {
		return err
	}

	a.mutex.Lock()
	// Once assigned, the application is ready to enqueue SYN messages.
	a.port = ln.Addr().(*net.TCPAddr).Port
	a.mutex.Unlock()

	close(a.running)
	return runListener(a.ctx, ln, a.Tracer, a.Logger, a.serverTimeouts, a.Router)
}

// Running returns a channel to signal a caller that the Application is ready to receive a SYN packet.
// Since Run is a blocking operation, this method comes handy specially when executing tests.
// Example:
//
//	func Test_App(t *testing.T) {
//		t.Setenv("PORT", "0")
//		app, err := app.NewWebApplication(httpbin.New())
//		if err != nil {
//			t.Fatal(err)
//		}
//
//		go app.Run()
//		<-app.Running()
//
//		r, err := http.Get(fmt.Sprintf("http://localhost:%d/ping", app.Port()))
//		...
//	}
func (a *Application) Running() chan struct{} {
	return a.running
}

// Port returns the port number where this application is running.
func (a *Application) Port() int {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	return a.port
}

// Shutdown shutdowns the application.
// Run method will return once all ongoing requests have been handled by the server
// or the ShutdownTimeout is reached.
func (a *Application) Shutdown() {
	a.cancel()
}

func newLogger(cfg Config) (log.Logger, *log.AtomicLevel) {
	l := log.NewAtomicLevelAt(cfg.LogLevel)
	return log.NewProductionLogger(&l, cfg.LogOptions...), &l
}

// newTracer reports to the Datadog agent at DD_AGENT_HOST, and to New Relic
// as well when a license key is present. Without an agent it discards
// everything.
func newTracer(serviceName string) (telemetry.Client, error) {
	host := os.Getenv(_datadogHostEnv)
	if host == "" {
		return telemetry.NewNoOpClient(), nil
	}

	return telemetry.NewClient(telemetry.Config{
		ApplicationName: serviceName,
		NewRelicLicense: os.Getenv(_newRelicLicenseEnv),
		DatadogAddress:  net.JoinHostPort(host, "8125"),
		Tags:            []string{"service:" + serviceName},
	})
}

func startOTel(serviceName string) (otel.ShutdownFunc, error) {
	if isOpenTelemetryEnabled() {
		return otel.Start(context.Background(), otel.Config{
			Endpoint:    os.Getenv(_otelEndpointEnv),
			ServiceName: serviceName,
		})
	}

	return func(context.Context) error { return nil }, nil
}

func isOpenTelemetryEnabled() bool {
	return strings.EqualFold(os.Getenv(_otelAgentEnabledEnv), "true") &&
		!strings.EqualFold(os.Getenv(_otelAgentDisabledEnv), "true")
}
