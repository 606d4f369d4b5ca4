// Package telemetrytest provides a telemetry.Client that records metrics in
// memory.
package telemetrytest

import (
	"context"
	"sync"
	"time"

	"github.com/luizaranda/curling/pkg/telemetry"
)

// Metric is one recorded call.
type Metric struct {
	Kind  string
	Name  string
	Value float64
	Tags  []string
}

// Recorder is a telemetry.Client keeping every metric it receives.
type Recorder struct {
	mu      sync.Mutex
	metrics []Metric
}

var _ telemetry.Client = (*Recorder)(nil)

func (r *Recorder) record(kind, name string, value float64, tags []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics = append(r.metrics, Metric{Kind: kind, Name: name, Value: value, Tags: append([]string(nil), tags...)})
}

// Metrics returns the recorded metrics named name, in order.
func (r *Recorder) Metrics(name string) []Metric {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Metric
	for _, m := range r.metrics {
		if m.Name == name {
			out = append(out, m)
		}
	}
	return out
}

func (r *Recorder) Close() error { return nil }

func (r *Recorder) StartSpan(ctx context.Context, _ string) (context.Context, telemetry.Span) {
	return ctx, noopSpan{}
}

func (r *Recorder) Gauge(name string, value float64, tags []string) {
	r.record("gauge", name, value, tags)
}

func (r *Recorder) Count(name string, value int64, tags []string) {
	r.record("count", name, float64(value), tags)
}

func (r *Recorder) Incr(name string, tags []string) { r.record("count", name, 1, tags) }

func (r *Recorder) Histogram(name string, value float64, tags []string) {
	r.record("histogram", name, value, tags)
}

func (r *Recorder) Timing(name string, value time.Duration, tags []string) {
	r.record("timing", name, float64(value.Milliseconds()), tags)
}

type noopSpan struct{}

func (noopSpan) Finish()              {}
func (noopSpan) SetLabel(string, any) {}
func (noopSpan) NoticeError(error)    {}
