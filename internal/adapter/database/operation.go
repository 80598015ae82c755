package database

import (
	"context"
	"time"

	"tasktracker/internal/core/port"
)

// Operation is one traced repository call.
type Operation struct {
	ctx       context.Context
	telemetry port.Telemetry
	span      port.Span
	name      string
	entity    string
	startTime time.Time
}

func StartOperation(ctx context.Context, telemetry port.Telemetry, name, entity string, attrs map[string]interface{}) (context.Context, *Operation) {
	ctx, span := telemetry.StartRepositorySpan(ctx, name, entity, attrs)

	return ctx, &Operation{
		ctx:       ctx,
		telemetry: telemetry,
		span:      span,
		name:      name,
		entity:    entity,
		startTime: time.Now(),
	}
}

func (o *Operation) Query(query string, args []interface{}) {
	o.telemetry.RecordRepositoryQuery(o.ctx, o.name, o.entity, query, args)
}

func (o *Operation) SetAttributes(attrs map[string]interface{}) {
	o.span.SetAttributes(attrs)
}

// End closes the span and returns err unchanged so callers can
// `return op.End(err)`.
func (o *Operation) End(err error) error {
	duration := time.Since(o.startTime)

	o.span.SetAttributes(map[string]interface{}{
		"operation.duration_ns": duration.Nanoseconds(),
	})

	if err != nil {
		o.span.SetStatus("error", err.Error())
		o.span.RecordError(err)
	} else {
		o.span.SetStatus("ok", "")
	}

	o.telemetry.RecordRepositoryOperation(o.ctx, o.name, o.entity, duration, err)
	o.span.End()

	return err
}
