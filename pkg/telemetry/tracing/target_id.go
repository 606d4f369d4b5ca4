// Package tracing carries request labels used by metrics and spans of
// outgoing requests.
package tracing

import (
	"context"
)

type targetIDCtxKey struct{}

// WithTargetID labels outgoing requests made with ctx as going to targetID,
// for example "payments-api". Metrics use it as the "target_id" tag.
func WithTargetID(ctx context.Context, targetID string) context.Context {
	return context.WithValue(ctx, targetIDCtxKey{}, targetID)
}

// TargetID returns the label set by WithTargetID, or "".
func TargetID(ctx context.Context) string {
	value, _ := ctx.Value(targetIDCtxKey{}).(string)
	return value
}

type endpointTemplateKey struct{}

// WithEndpointTemplate records the unexpanded URL template, for example
// "/users/{id}", so that metrics are not tagged with one value per id.
func WithEndpointTemplate(ctx context.Context, endpointTemplate string) context.Context {
	return context.WithValue(ctx, endpointTemplateKey{}, endpointTemplate)
}

// EndpointTemplate returns the template set by WithEndpointTemplate, or "".
func EndpointTemplate(ctx context.Context) string {
	value, _ := ctx.Value(endpointTemplateKey{}).(string)
	return value
}
