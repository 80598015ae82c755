package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"tasktracker/internal/adapter/database"
	"tasktracker/internal/adapter/database/sqlite"
	"tasktracker/internal/core/domain"
	"tasktracker/internal/core/port"
	tel "tasktracker/internal/core/telemetry"
)

type TaskRepository struct {
	db        *sqlite.DB
	scanner   *sqlite.Scanner
	telemetry port.Telemetry
}

func NewTaskRepository(db *sqlite.DB, telemetry port.Telemetry) port.TaskStore {
	if telemetry == nil {
		telemetry = tel.NewNoOpProbe()
	}

	return &TaskRepository{
		db:        db,
		scanner:   sqlite.NewScanner(),
		telemetry: telemetry,
	}
}

func (tr *TaskRepository) GetByUUID(ctx context.Context, accountID int, id uuid.UUID) (domain.Task, error) {
	ctx, op := database.StartOperation(ctx, tr.telemetry, "GetByUUID", "task", map[string]interface{}{
		"db.system":  "sqlite",
		"db.table":   "tasks",
		"account.id": accountID,
		"task.uuid":  id.String(),
	})

	query, args, err := tr.db.QueryBuilder.Select(database.TaskColumns).
		From("tasks").
		Where(sq.Eq{"uuid": id.String(), "account_id": accountID}).
		Limit(1).
		ToSql()

	if err != nil {
		return domain.Task{}, op.End(err)
	}

	op.Query(query, args)

	rows, err := tr.db.QueryContext(ctx, query, args...)
	if err != nil {
		return domain.Task{}, op.End(err)
	}
	defer rows.Close()

	var task domain.Task
	if err := tr.scanner.ScanRowToStruct(rows, &task); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Task{}, op.End(domain.ErrTaskNotFound)
		}

		slog.Error("Error getting task by uuid", "error", err)
		return domain.Task{}, op.End(err)
	}

	return task, op.End(nil)
}

func (tr *TaskRepository) List(ctx context.Context, accountID int, query domain.TaskQuery) ([]domain.Task, error) {
	ctx, op := database.StartOperation(ctx, tr.telemetry, "List", "task", map[string]interface{}{
		"db.system":           "sqlite",
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

	rows, err := tr.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, op.End(err)
	}
	defer rows.Close()

	tasks := []domain.Task{}
	if err := tr.scanner.ScanRowsToSlice(rows, &tasks); err != nil {
		return nil, op.End(err)
	}

	op.SetAttributes(map[string]interface{}{
		"db.rows_returned": len(tasks),
	})

	return tasks, op.End(nil)
}

func (tr *TaskRepository) Count(ctx context.Context, accountID int, filter domain.TaskFilter) (int, error) {
	ctx, op := database.StartOperation(ctx, tr.telemetry, "Count", "task", map[string]interface{}{
		"db.system":  "sqlite",
		"db.table":   "tasks",
		"account.id": accountID,
	})

	sqlQuery, args, err := database.CountTasks(*tr.db.QueryBuilder, accountID, filter).ToSql()
	if err != nil {
		return 0, op.End(err)
	}

	op.Query(sqlQuery, args)

	var total int
	if err := tr.db.QueryRowContext(ctx, sqlQuery, args...).Scan(&total); err != nil {
		return 0, op.End(err)
	}

	return total, op.End(nil)
}

func (tr *TaskRepository) Create(ctx context.Context, task domain.Task) (domain.Task, error) {
	ctx, op := database.StartOperation(ctx, tr.telemetry, "Create", "task", map[string]interface{}{
		"db.system":    "sqlite",
		"db.table":     "tasks",
		"db.operation": "INSERT",
		"task.uuid":    task.UUID.String(),
		"account.id":   task.AccountID,
	})

	query, args, err := tr.db.QueryBuilder.Insert("tasks").
		Columns("uuid", "account_id", "title", "description", "is_completed", "completed_at", "priority", "category", "due_date", "tags", "created_at", "updated_at").
		Values(task.UUID.String(), task.AccountID, task.Title, task.Description, task.IsCompleted, utcOrNil(task.CompletedAt), int(task.Priority), int(task.Category), utcOrNil(task.DueDate), task.Tags, task.CreatedAt.UTC(), task.UpdatedAt.UTC()).
		ToSql()

	if err != nil {
		return domain.Task{}, op.End(err)
	}

	op.Query(query, args)

	result, err := tr.db.ExecContext(ctx, query, args...)
	if err != nil {
		if sqlite.IsForeignKeyViolation(err) {
			return domain.Task{}, op.End(domain.ErrAccountNotFound)
		}
		slog.Error("Insert task failed", "error", err, "uuid", task.UUID)
		return domain.Task{}, op.End(err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return domain.Task{}, op.End(err)
	}

	task.ID = int(id)

	return task, op.End(nil)
}

func (tr *TaskRepository) Update(ctx context.Context, task domain.Task) (domain.Task, error) {
	ctx, op := database.StartOperation(ctx, tr.telemetry, "Update", "task", map[string]interface{}{
		"db.system":    "sqlite",
		"db.table":     "tasks",
		"db.operation": "UPDATE",
		"task.uuid":    task.UUID.String(),
		"account.id":   task.AccountID,
	})

	query, args, err := tr.db.QueryBuilder.Update("tasks").
		Set("title", task.Title).
		Set("description", task.Description).
		Set("is_completed", task.IsCompleted).
		Set("completed_at", utcOrNil(task.CompletedAt)).
		Set("priority", int(task.Priority)).
		Set("category", int(task.Category)).
		Set("due_date", utcOrNil(task.DueDate)).
		Set("tags", task.Tags).
		Set("updated_at", task.UpdatedAt.UTC()).
		Where(sq.Eq{"uuid": task.UUID.String(), "account_id": task.AccountID}).
		ToSql()

	if err != nil {
		return domain.Task{}, op.End(err)
	}

	op.Query(query, args)

	result, err := tr.db.ExecContext(ctx, query, args...)
	if err != nil {
		return domain.Task{}, op.End(err)
	}

	if n, _ := result.RowsAffected(); n == 0 {
		return domain.Task{}, op.End(domain.ErrTaskNotFound)
	}

	return task, op.End(nil)
}

func (tr *TaskRepository) DeleteByUUID(ctx context.Context, accountID int, id uuid.UUID) error {
	ctx, op := database.StartOperation(ctx, tr.telemetry, "DeleteByUUID", "task", map[string]interface{}{
		"db.system":    "sqlite",
		"db.table":     "tasks",
		"db.operation": "DELETE",
		"task.uuid":    id.String(),
		"account.id":   accountID,
	})

	query, args, err := tr.db.QueryBuilder.Delete("tasks").
		Where(sq.Eq{"uuid": id.String(), "account_id": accountID}).
		ToSql()

	if err != nil {
		return op.End(err)
	}

	op.Query(query, args)

	result, err := tr.db.ExecContext(ctx, query, args...)
	if err != nil {
		return op.End(err)
	}

	if n, _ := result.RowsAffected(); n == 0 {
		return op.End(domain.ErrTaskNotFound)
	}

	return op.End(nil)
}
