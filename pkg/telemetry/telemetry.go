package telemetry

import (
	"context"
	"time"

	"github.com/DataDog/datadog-go/v5/statsd"
	"github.com/newrelic/go-agent/v3/newrelic"
)

var (
	_defaultBufferLen = 500
	_defaultTimeout   = 200 * time.Millisecond
	_defaultRate      = 1.0
	_shutdownTimeout  = 5 * time.Second
)

// DefaultTracer is used when a context carries no Client. It discards
// everything.
var DefaultTracer = NewNoOpClient()

type client struct {
	nrApp  *newrelic.Application
	statsd statsd.ClientInterface
}

var _ Client = (*client)(nil)

// Config contains attributes required by NewClient to bootstrap itself.
type Config struct {
	// ApplicationName is the name reported to New Relic.
	ApplicationName string

	// NewRelicLicense enables the New Relic agent when not empty.
	NewRelicLicense string

	// DatadogAddress is the statsd address of the Datadog agent, for example
	// "localhost:8125".
	DatadogAddress string

	// Namespace is prepended to every metric name. Datadog expects it to end
	// with a dot.
	Namespace string

	// Tags are added to every metric.
	Tags []string
}

// NewClient returns a client reporting to the configured providers.
func NewClient(cfg Config) (Client, error) {
	nrApp, err := newrelic.NewApplication(
		newrelic.ConfigEnabled(cfg.NewRelicLicense != ""),
		newrelic.ConfigLicense(cfg.NewRelicLicense),
		newrelic.ConfigAppName(cfg.ApplicationName),
		newrelic.ConfigDistributedTracerEnabled(false),
		newrelic.ConfigFromEnvironment(),
	)
	if err != nil {
		return nil, err
	}

	opts := []statsd.Option{
		statsd.WithMaxMessagesPerPayload(_defaultBufferLen),
		statsd.WithWriteTimeout(_defaultTimeout),
		statsd.WithTags(cfg.Tags),
	}
	if cfg.Namespace != "" {
		opts = append(opts, statsd.WithNamespace(cfg.Namespace))
	}

	s, err := statsd.New(cfg.DatadogAddress, opts...)
	if err != nil {
		nrApp.Shutdown(0)
		return nil, err
	}

	return &client{nrApp: nrApp, statsd: s}, nil
}

// NewNoOpClient returns a client that does nothing.
func NewNoOpClient() Client {
	nrApp, _ := newrelic.NewApplication(newrelic.ConfigEnabled(false))
	return &client{
		statsd: &statsd.NoOpClient{},
		nrApp:  nrApp,
	}
}

// Close flushes buffered metrics and shuts the New Relic agent down.
func (c *client) Close() error {
	if c.nrApp != nil {
		c.nrApp.Shutdown(_shutdownTimeout)
	}
	return c.statsd.Close()
}

// StartSpan starts a New Relic transaction named name, or a segment when ctx
// already carries one. Outgoing requests made with the returned context are
// recorded as external segments of it.
func (c *client) StartSpan(ctx context.Context, name string) (context.Context, Span) {
	if tx := newrelic.FromContext(ctx); tx != nil {
		return StartSpan(ctx, name)
	}

	tx := c.nrApp.StartTransaction(name)
	return Context(newrelic.NewContext(ctx, tx), c), &nrTransactionSpan{Transaction: tx}
}

func (c *client) Gauge(name string, value float64, tags []string) {
	_ = c.statsd.Gauge(name, value, tags, _defaultRate)
}

func (c *client) Count(name string, value int64, tags []string) {
	_ = c.statsd.Count(name, value, tags, _defaultRate)
}

func (c *client) Incr(name string, tags []string) {
	_ = c.statsd.Incr(name, tags, _defaultRate)
}

func (c *client) Histogram(name string, value float64, tags []string) {
	_ = c.statsd.Histogram(name, value, tags, _defaultRate)
}

func (c *client) Timing(name string, value time.Duration, tags []string) {
	_ = c.statsd.Timing(name, value, tags, _defaultRate)
}
