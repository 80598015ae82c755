package repository

import (
	"context"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"tasktracker/internal/adapter/database"
	"tasktracker/internal/adapter/database/postgres"
	"tasktracker/internal/core/domain"
	"tasktracker/internal/core/port"
	tel "tasktracker/internal/core/telemetry"
)

type TaskRepository struct {
	db        *postgres.DB
	telemetry port.Telemetry
}

func NewTaskRepository(db *postgres.DB, telemetry port.Telemetry) port.TaskStore {
	if telemetry == nil {
		telemetry = tel.NewNoOpProbe()
	}

	return &TaskRepository{db: db, telemetry: telemetry}
}

// byOwner matches one task of one account. The uuid goes through Expr so
// squirrel does not expand the [16]byte into an IN list.
func byOwner(accountID int, id uuid.UUID) sq.And {
	return sq.And{sq.Expr("uuid = ?", id), sq.Eq{"account_id": accountID}}
}

func (tr *TaskRepository) GetByUUID(ctx context.Context, accountID int, id uuid.UUID) (domain.Task, error) {
	ctx, op := database.StartOperation(ctx, tr.telemetry, "GetByUUID", "task", map[string]interface{}{
		"db.system":  "postgresql",
		"db.table":   "tasks",
		"account.id": accountID,
		"task.uuid":  id.String(),
	})

	query, args, err := tr.db.QueryBuilder.Select(database.TaskColumns).
		From("tasks").
		Where(byOwner(accountID, id)).
		Limit(1).
		ToSql()

	if err != nil {
		return domain.Task{}, op.End(err)
	}

	op.Query(query, args)

	task, err := scanTask(tr.db.QueryRow(ctx, query, args...))
	if err != nil {
		if postgres.IsNoRows(err) {
			return domain.Task{}, op.End(domain.ErrTaskNotFound)
		}

		slog.Error("Error getting task by uuid", "error", err)
		return domain.Task{}, op.End(err)
	}

	return task, op.End(nil)
}

func (tr *TaskRepository) List(ctx context.Context, accountID int, query domain.TaskQuery) ([]domain.Task, error) {
	ctx, op := database.StartOperation(ctx, tr.telemetry, "List", "task", map[string]interface{}{
		"db.system":           "postgresql",
		"db.table":            "tasks",
		"account.id":          accountID,
		"pagination.page":     query.Page,
		"pagination.pageSize": query.PageSize,
		"sort.by":             string(query.SortBy),
		"sort.direction":      string(query.SortDirection),
	})

	sqlQuery, args, err := database.SelectTaskPage(*tr.db.QueryBuilder, accountID, query).ToSql()
	if err != nil {
		return nil, op.End(err)
	}

	op.Query(sqlQuery, args)

	rows, err := tr.db.Query(ctx, sqlQuery, args...)
	if err != nil {
		return nil, op.End(err)
	}
	defer rows.Close()

	tasks := []domain.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, op.End(err)
		}
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, op.End(err)
	}

	op.SetAttributes(map[string]interface{}{
		"db.rows_returned": len(tasks),
	})

	return tasks, op.End(nil)
}

func (tr *TaskRepository) Count(ctx context.Context, accountID int, filter domain.TaskFilter) (int, error) {
	ctx, op := database.StartOperation(ctx, tr.telemetry, "Count", "task", map[string]interface{}{
		"db.system":  "postgresql",
		"db.table":   "tasks",
		"account.id": accountID,
	})

	sqlQuery, args, err := database.CountTasks(*tr.db.QueryBuilder, accountID, filter).ToSql()
	if err != nil {
		return 0, op.End(err)
	}

	op.Query(sqlQuery, args)

	var total int
	if err := tr.db.QueryRow(ctx, sqlQuery, args...).Scan(&total); err != nil {
		return 0, op.End(err)
	}

	return total, op.End(nil)
}

func (tr *TaskRepository) Create(ctx context.Context, task domain.Task) (domain.Task, error) {
	ctx, op := database.StartOperation(ctx, tr.telemetry, "Create", "task", map[string]interface{}{
		"db.system":    "postgresql",
		"db.table":     "tasks",
		"db.operation": "INSERT",
		"task.uuid":    task.UUID.String(),
		"account.id":   task.AccountID,
	})

	query, args, err := tr.db.QueryBuilder.Insert("tasks").
		Columns("uuid", "account_id", "title", "description", "is_completed", "completed_at", "priority", "category", "due_date", "tags", "created_at", "updated_at").
		Values(task.UUID, task.AccountID, task.Title, task.Description, task.IsCompleted, task.CompletedAt, int(task.Priority), int(task.Category), task.DueDate, task.Tags, task.CreatedAt, task.UpdatedAt).
		Suffix("RETURNING id").
		ToSql()

	if err != nil {
		return domain.Task{}, op.End(err)
	}

	op.Query(query, args)

	if err := tr.db.QueryRow(ctx, query, args...).Scan(&task.ID); err != nil {
		if postgres.IsForeignKeyViolation(err) {
			return domain.Task{}, op.End(domain.ErrAccountNotFound)
		}
		slog.Error("Insert task failed", "error", err, "uuid", task.UUID)
		return domain.Task{}, op.End(err)
	}

	return task, op.End(nil)
}

func (tr *TaskRepository) Update(ctx context.Context, task domain.Task) (domain.Task, error) {
	ctx, op := database.StartOperation(ctx, tr.telemetry, "Update", "task", map[string]interface{}{
		"db.system":    "postgresql",
		"db.table":     "tasks",
		"db.operation": "UPDATE",
		"task.uuid":    task.UUID.String(),
		"account.id":   task.AccountID,
	})

	query, args, err := tr.db.QueryBuilder.Update("tasks").
		Set("title", task.Title).
		Set("description", task.Description).
		Set("is_completed", task.IsCompleted).
		Set("completed_at", task.CompletedAt).
		Set("priority", int(task.Priority)).
		Set("category", int(task.Category)).
		Set("due_date", task.DueDate).
		Set("tags", task.Tags).
		Set("updated_at", task.UpdatedAt).
		Where(byOwner(task.AccountID, task.UUID)).
		ToSql()

	if err != nil {
		return domain.Task{}, op.End(err)
	}

	op.Query(query, args)

	tag, err := tr.db.Exec(ctx, query, args...)
	if err != nil {
		return domain.Task{}, op.End(err)
	}

	if tag.RowsAffected() == 0 {
		return domain.Task{}, op.End(domain.ErrTaskNotFound)
	}

	return task, op.End(nil)
}

func (tr *TaskRepository) DeleteByUUID(ctx context.Context, accountID int, id uuid.UUID) error {
	ctx, op := database.StartOperation(ctx, tr.telemetry, "DeleteByUUID", "task", map[string]interface{}{
		"db.system":    "postgresql",
		"db.table":     "tasks",
		"db.operation": "DELETE",
		"task.uuid":    id.String(),
		"account.id":   accountID,
	})

	query, args, err := tr.db.QueryBuilder.Delete("tasks").
		Where(byOwner(accountID, id)).
		ToSql()

	if err != nil {
		return op.End(err)
	}

	op.Query(query, args)

	tag, err := tr.db.Exec(ctx, query, args...)
	if err != nil {
		return op.End(err)
	}

	if tag.RowsAffected() == 0 {
		return op.End(domain.ErrTaskNotFound)
	}

	return op.End(nil)
}
