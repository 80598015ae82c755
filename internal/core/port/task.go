package port

import (
	"context"

	"github.com/google/uuid"

	"tasktracker/internal/core/domain"
	"tasktracker/internal/core/model/request"
)

// TaskStore is the record store for tasks. Every method is scoped by the
// owning account id; a task of another account behaves as missing.
type TaskStore interface {
	GetByUUID(ctx context.Context, accountID int, id uuid.UUID) (domain.Task, error)
	List(ctx context.Context, accountID int, query domain.TaskQuery) ([]domain.Task, error)
	Count(ctx context.Context, accountID int, filter domain.TaskFilter) (int, error)
	Create(ctx context.Context, task domain.Task) (domain.Task, error)
	Update(ctx context.Context, task domain.Task) (domain.Task, error)
	DeleteByUUID(ctx context.Context, accountID int, id uuid.UUID) error
}

type TaskService interface {
	List(ctx context.Context, accountID int, input domain.TaskQueryInput) (domain.Page[domain.Task], error)
	Get(ctx context.Context, accountID int, id uuid.UUID) (domain.Task, error)
	Create(ctx context.Context, accountID int, req request.CreateTaskRequest) (domain.Task, error)
	Update(ctx context.Context, accountID int, id uuid.UUID, req request.UpdateTaskRequest) (domain.Task, error)
	MarkComplete(ctx context.Context, accountID int, id uuid.UUID) (domain.Task, error)
	MarkIncomplete(ctx context.Context, accountID int, id uuid.UUID) (domain.Task, error)
	Delete(ctx context.Context, accountID int, id uuid.UUID) error
}
