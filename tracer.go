package sharedkernel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/omnipulse/go-shared-kernel/reqctx"
)

// Span attribute keys set from the request context.
const (
	AttrCorrelationID = attribute.Key("omnipulse.correlation_id")
	AttrUserID        = attribute.Key("enduser.id")
	AttrTenantID      = attribute.Key("omnipulse.tenant_id")
)

// annotateSpan copies the request ids onto the span active in ctx. It does
// nothing when no span is recording.
func annotateSpan(ctx context.Context, store *reqctx.Store) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	attrs := make([]attribute.KeyValue, 0, 3)
	if v, ok := store.Correlation(); ok {
		attrs = append(attrs, AttrCorrelationID.String(v))
	}
	if v, ok := store.User(); ok {
		attrs = append(attrs, AttrUserID.String(v))
	}
	if v, ok := store.Tenant(); ok {
		attrs = append(attrs, AttrTenantID.String(v))
	}
	span.SetAttributes(attrs...)
}
