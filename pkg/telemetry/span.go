package telemetry

import (
	"context"

	"github.com/newrelic/go-agent/v3/newrelic"
)

// Span is a provider independent view of a New Relic transaction or segment.
// Nothing is recorded until Finish is called.
type Span interface {
	Finish()
	SetLabel(key string, value any)
	NoticeError(err error)
}

// StartSpan starts a segment under the transaction carried by ctx. Without a
// transaction the DefaultTracer decides what to do, which by default is
// nothing.
func StartSpan(ctx context.Context, name string) (context.Context, Span) {
	tx := newrelic.FromContext(ctx)
	if tx == nil {
		return DefaultTracer.StartSpan(ctx, name)
	}

	return ctx, &nrSegmentSpan{
		Transaction: tx,
		Segment:     tx.StartSegment(name),
	}
}

type nrTransactionSpan struct{ *newrelic.Transaction }

func (s *nrTransactionSpan) Finish() { s.Transaction.End() }
func (s *nrTransactionSpan) SetLabel(key string, value any) {
	s.Transaction.AddAttribute(key, value)
}

var _ Span = (*nrTransactionSpan)(nil)

type nrSegmentSpan struct {
	*newrelic.Transaction
	*newrelic.Segment
}

func (s *nrSegmentSpan) Finish() { s.Segment.End() }
func (s *nrSegmentSpan) SetLabel(key string, value any) {
	s.Segment.AddAttribute(key, value)
}

var _ Span = (*nrSegmentSpan)(nil)
