package factory

import (
	"time"

	fab "github.com/Goldziher/fabricator"
	"github.com/google/uuid"

	"tasktracker/internal/core/domain"
)

// NewTask builds a task owned by accountID without running domain
// validation, so tests can store tasks whose due date already passed.
// Pointer fields (Description, Tags, DueDate, CompletedAt) accept either a
// value or a pointer.
func NewTask(accountID int, customData ...map[string]any) domain.Task {
	data := merge(map[string]any{
		"Title":       "Task",
		"AccountID":   accountID,
		"IsCompleted": false,
		"Priority":    domain.PriorityMedium,
		"Category":    domain.CategoryGeneral,
	}, customData)

	now := time.Now().UTC()

	description := pointerField[string](data, "Description")
	tags := pointerField[string](data, "Tags")
	dueDate := pointerField[time.Time](data, "DueDate")
	completedAt := pointerField[time.Time](data, "CompletedAt")
	createdAt := timeField(data, "CreatedAt", now)
	updatedAt := timeField(data, "UpdatedAt", createdAt)

	task := fab.New(domain.Task{}).Build(data)

	task.ID = 0
	task.UUID = uuid.New()
	task.Description = description
	task.Tags = tags
	task.CreatedAt = createdAt
	task.UpdatedAt = updatedAt

	if dueDate != nil {
		d := dueDate.UTC()
		task.DueDate = &d
	} else {
		task.DueDate = nil
	}

	task.CompletedAt = completedAt
	if task.IsCompleted && task.CompletedAt == nil {
		task.CompletedAt = &updatedAt
	}
	if !task.IsCompleted {
		task.CompletedAt = nil
	}

	return task
}

// Overdue returns a due date d in the past.
func Overdue(d time.Duration) time.Time {
	return time.Now().UTC().Add(-d)
}
