package rabbitmq

import (
	"context"
	"log/slog"

	"tasktracker/internal/core/port"
)

// NoopPublisher is used when no broker is configured. Events are only
// logged at debug level.
type NoopPublisher struct{}

func NewNoopPublisher() port.EventPublisher {
	return NoopPublisher{}
}

func (NoopPublisher) Publish(ctx context.Context, event port.Event) error {
	slog.Debug("event", "name", event.Name, "entity", event.Entity, "entity_id", event.EntityID)
	return nil
}

func (NoopPublisher) Close() error {
	return nil
}
