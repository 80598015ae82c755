package port

import (
	"context"
	"time"
)

type Event struct {
	Name       string
	Entity     string
	EntityID   string
	AccountID  int
	OccurredAt time.Time
	Payload    map[string]interface{}
}

type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

const (
	EventAccountRegistered  = "account.registered"
	EventAccountDeactivated = "account.deactivated"
	EventAccountDeleted     = "account.deleted"
	EventTaskCreated        = "task.created"
	EventTaskUpdated        = "task.updated"
	EventTaskCompleted      = "task.completed"
	EventTaskReopened       = "task.reopened"
	EventTaskDeleted        = "task.deleted"
	EventSessionRevoked     = "session.revoked"
	EventSessionEvicted     = "session.evicted"
)
