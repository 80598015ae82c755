package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/trace"
)

func TestNoOpProbeKeepsContext(t *testing.T) {
	parent := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{7},
		SpanID:     trace.SpanID{7},
		TraceFlags: trace.FlagsSampled,
	}))

	probe := NewNoOpProbe()

	ctx, span := probe.StartServiceSpan(parent, "task", "Create", 1, map[string]interface{}{"k": "v"})
	span.SetStatus("error", "boom")
	span.RecordError(errors.New("boom"))
	span.End()

	assert.Equal(t, trace.TraceID{7}, trace.SpanContextFromContext(ctx).TraceID())

	probe.RecordRepositoryOperation(ctx, "Create", "task", 0, nil)
	probe.RecordBusinessEvent(ctx, "task.created", "task", "id", 1, nil)
}
