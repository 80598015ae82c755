package telemetry

import (
	"context"
	"time"

	"tasktracker/internal/core/port"
)

var (
	_ port.Telemetry = noopProbe{}
	_ port.Span      = noopSpan{}
)

// NewNoOpProbe discards every span and measurement. Tests and tools that do
// not start the telemetry container use it, and the context passes through
// untouched so request trace ids survive.
func NewNoOpProbe() port.Telemetry {
	return noopProbe{}
}

type noopProbe struct{}

type noopSpan struct{}

func (noopSpan) End()                                 {}
func (noopSpan) SetAttributes(map[string]interface{}) {}
func (noopSpan) SetStatus(string, string)             {}
func (noopSpan) RecordError(error)                    {}

func (noopProbe) StartRepositorySpan(ctx context.Context, _, _ string, _ map[string]interface{}) (context.Context, port.Span) {
	return ctx, noopSpan{}
}

func (noopProbe) StartServiceSpan(ctx context.Context, _, _ string, _ int, _ map[string]interface{}) (context.Context, port.Span) {
	return ctx, noopSpan{}
}

func (noopProbe) StartHTTPSpan(ctx context.Context, _, _ string, _ map[string]interface{}) (context.Context, port.Span) {
	return ctx, noopSpan{}
}

func (noopProbe) RecordRepositoryOperation(context.Context, string, string, time.Duration, error) {}

func (noopProbe) RecordRepositoryQuery(context.Context, string, string, string, []interface{}) {}

func (noopProbe) RecordServiceOperation(context.Context, string, string, int, time.Duration, error) {}

func (noopProbe) RecordBusinessEvent(context.Context, string, string, string, int, map[string]interface{}) {
}

func (noopProbe) RecordHTTPOperation(context.Context, string, string, int, time.Duration) {}

func (noopProbe) RecordError(context.Context, string, error, map[string]interface{}) {}
