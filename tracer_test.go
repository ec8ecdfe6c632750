package sharedkernel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/omnipulse/go-shared-kernel/reqctx"
)

func TestAnnotateSpanWithoutRecordingSpan(t *testing.T) {
	store := reqctx.New()
	store.SetCorrelation("corr-1")

	assert.NotPanics(t, func() { annotateSpan(context.Background(), store) })

	ctx, span := noop.NewTracerProvider().Tracer("test").Start(context.Background(), "request")
	defer span.End()
	assert.NotPanics(t, func() { annotateSpan(ctx, store) })
}
