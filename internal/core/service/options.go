package service

import (
	"context"
	"log/slog"
	"time"

	"tasktracker/internal/core/port"
	tel "tasktracker/internal/core/telemetry"
)

type Option func(*options)

type options struct {
	now       func() time.Time
	telemetry port.Telemetry
	events    port.EventPublisher
}

func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func WithTelemetry(t port.Telemetry) Option {
	return func(o *options) { o.telemetry = t }
}

// WithEvents sets the publisher for domain events. Without it events are
// only recorded through telemetry.
func WithEvents(p port.EventPublisher) Option {
	return func(o *options) { o.events = p }
}

func newOptions(opts []Option) options {
	o := options{now: time.Now, telemetry: tel.NewNoOpProbe()}
	for _, opt := range opts {
		opt(&o)
	}

	return o
}

// start opens a service span; the returned func records the outcome and
// passes err through.
func (o options) start(ctx context.Context, service, operation string, accountID int, attrs map[string]interface{}) (context.Context, func(error) error) {
	began := time.Now()
	ctx, span := o.telemetry.StartServiceSpan(ctx, service, operation, accountID, attrs)

	return ctx, func(err error) error {
		if err != nil {
			span.RecordError(err)
		}
		o.telemetry.RecordServiceOperation(ctx, service, operation, accountID, time.Since(began), err)
		span.End()
		return err
	}
}

// publish never fails the caller: a lost event is logged and dropped.
func (o options) publish(ctx context.Context, event port.Event) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = o.now().UTC()
	}

	o.telemetry.RecordBusinessEvent(ctx, event.Name, event.Entity, event.EntityID, event.AccountID, event.Payload)

	if o.events == nil {
		return
	}

	if err := o.events.Publish(ctx, event); err != nil {
		slog.Warn("Event publish failed", "event", event.Name, "entity_id", event.EntityID, "error", err)
	}
}
