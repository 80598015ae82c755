package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"tasktracker/internal/core/domain"
	"tasktracker/internal/core/model/request"
	"tasktracker/internal/core/port"
)

const taskService = "task"

type TaskService struct {
	store port.TaskStore
	options
}

func NewTaskService(store port.TaskStore, opts ...Option) *TaskService {
	return &TaskService{store: store, options: newOptions(opts)}
}

// List runs the page query and the count query with the same filter.
func (ts *TaskService) List(ctx context.Context, accountID int, input domain.TaskQueryInput) (domain.Page[domain.Task], error) {
	ctx, done := ts.start(ctx, taskService, "List", accountID, map[string]interface{}{
		"pagination.page":     input.Page,
		"pagination.pageSize": input.PageSize,
	})

	query, err := domain.NewTaskQuery(input)
	if err != nil {
		return domain.Page[domain.Task]{}, done(err)
	}

	// Page and count must agree on which tasks are overdue.
	query.Filter.AsOf = ts.now()

	items, err := ts.store.List(ctx, accountID, query)
	if err != nil {
		return domain.Page[domain.Task]{}, done(err)
	}

	total, err := ts.store.Count(ctx, accountID, query.Filter)
	if err != nil {
		return domain.Page[domain.Task]{}, done(err)
	}

	return domain.NewPage(items, total, query.Page, query.PageSize), done(nil)
}

func (ts *TaskService) Get(ctx context.Context, accountID int, id uuid.UUID) (domain.Task, error) {
	ctx, done := ts.start(ctx, taskService, "Get", accountID, map[string]interface{}{"task.uuid": id.String()})

	task, err := ts.store.GetByUUID(ctx, accountID, id)
	return task, done(err)
}

func (ts *TaskService) Create(ctx context.Context, accountID int, req request.CreateTaskRequest) (domain.Task, error) {
	ctx, done := ts.start(ctx, taskService, "Create", accountID, nil)

	now := ts.now()

	task, err := domain.NewTask(accountID, req.Title, now)
	if err != nil {
		return domain.Task{}, done(err)
	}

	var errs domain.ValidationErrors

	collect(&errs, task.SetDescription(req.Description, now))
	collect(&errs, task.SetTags(req.Tags, now))

	if req.Priority != nil {
		collect(&errs, setPriority(task, *req.Priority, now))
	}

	if req.Category != nil {
		collect(&errs, setCategory(task, *req.Category, now))
	}

	if req.DueDate != nil {
		collect(&errs, task.SetDueDate(req.DueDate, now))
	}

	if err := errs.Err(); err != nil {
		return domain.Task{}, done(err)
	}

	saved, err := ts.store.Create(ctx, *task)
	if err != nil {
		return domain.Task{}, done(err)
	}

	ts.publishTask(ctx, port.EventTaskCreated, saved)

	return saved, done(nil)
}

// Update applies only the fields present in req. Completion goes through
// the same rules as MarkComplete and MarkIncomplete.
func (ts *TaskService) Update(ctx context.Context, accountID int, id uuid.UUID, req request.UpdateTaskRequest) (domain.Task, error) {
	ctx, done := ts.start(ctx, taskService, "Update", accountID, map[string]interface{}{"task.uuid": id.String()})

	task, err := ts.store.GetByUUID(ctx, accountID, id)
	if err != nil {
		return domain.Task{}, done(err)
	}

	now := ts.now()
	var errs domain.ValidationErrors

	if req.Title.Present {
		if v, ok := req.Title.Get(); ok {
			collect(&errs, task.SetTitle(v, now))
		} else {
			errs.Add("title", "title is required")
		}
	}

	if req.Description.Present {
		collect(&errs, task.SetDescription(pointer(req.Description), now))
	}

	if req.Priority.Present {
		if v, ok := req.Priority.Get(); ok {
			collect(&errs, setPriority(&task, v, now))
		} else {
			errs.Add("priority", "priority cannot be null")
		}
	}

	if req.Category.Present {
		if v, ok := req.Category.Get(); ok {
			collect(&errs, setCategory(&task, v, now))
		} else {
			errs.Add("category", "category cannot be null")
		}
	}

	if req.DueDate.Present {
		collect(&errs, task.SetDueDate(pointer(req.DueDate), now))
	}

	if req.Tags.Present {
		collect(&errs, task.SetTags(pointer(req.Tags), now))
	}

	completed := false
	if req.IsCompleted.Present {
		if v, ok := req.IsCompleted.Get(); !ok {
			errs.Add("isCompleted", "isCompleted cannot be null")
		} else if v {
			collect(&errs, domain.AsValidation(task.MarkComplete(now), "isCompleted"))
			completed = true
		} else {
			collect(&errs, domain.AsValidation(task.MarkIncomplete(now), "isCompleted"))
		}
	}

	if err := errs.Err(); err != nil {
		return domain.Task{}, done(err)
	}

	saved, err := ts.store.Update(ctx, task)
	if err != nil {
		return domain.Task{}, done(err)
	}

	event := port.EventTaskUpdated
	if completed {
		event = port.EventTaskCompleted
	}
	ts.publishTask(ctx, event, saved)

	return saved, done(nil)
}

func (ts *TaskService) MarkComplete(ctx context.Context, accountID int, id uuid.UUID) (domain.Task, error) {
	return ts.toggle(ctx, "MarkComplete", accountID, id, (*domain.Task).MarkComplete, port.EventTaskCompleted)
}

func (ts *TaskService) MarkIncomplete(ctx context.Context, accountID int, id uuid.UUID) (domain.Task, error) {
	return ts.toggle(ctx, "MarkIncomplete", accountID, id, (*domain.Task).MarkIncomplete, port.EventTaskReopened)
}

func (ts *TaskService) toggle(ctx context.Context, operation string, accountID int, id uuid.UUID, apply func(*domain.Task, time.Time) error, event string) (domain.Task, error) {
	ctx, done := ts.start(ctx, taskService, operation, accountID, map[string]interface{}{"task.uuid": id.String()})

	task, err := ts.store.GetByUUID(ctx, accountID, id)
	if err != nil {
		return domain.Task{}, done(err)
	}

	if err := apply(&task, ts.now()); err != nil {
		return domain.Task{}, done(domain.AsValidation(err, "isCompleted"))
	}

	saved, err := ts.store.Update(ctx, task)
	if err != nil {
		return domain.Task{}, done(err)
	}

	ts.publishTask(ctx, event, saved)

	return saved, done(nil)
}

func (ts *TaskService) Delete(ctx context.Context, accountID int, id uuid.UUID) error {
	ctx, done := ts.start(ctx, taskService, "Delete", accountID, map[string]interface{}{"task.uuid": id.String()})

	if err := ts.store.DeleteByUUID(ctx, accountID, id); err != nil {
		return done(err)
	}

	ts.publish(ctx, port.Event{
		Name:      port.EventTaskDeleted,
		Entity:    "task",
		EntityID:  id.String(),
		AccountID: accountID,
	})

	return done(nil)
}

func (ts *TaskService) publishTask(ctx context.Context, name string, task domain.Task) {
	ts.publish(ctx, port.Event{
		Name:      name,
		Entity:    "task",
		EntityID:  task.UUID.String(),
		AccountID: task.AccountID,
		Payload: map[string]interface{}{
			"title":       task.Title,
			"isCompleted": task.IsCompleted,
			"priority":    task.Priority.String(),
			"category":    task.Category.String(),
		},
	})
}

func setPriority(task *domain.Task, name string, now time.Time) error {
	p, err := domain.ParsePriority(name)
	if err != nil {
		return domain.NewValidationError("priority", err.Error())
	}

	return task.SetPriority(p, now)
}

func setCategory(task *domain.Task, name string, now time.Time) error {
	c, err := domain.ParseCategory(name)
	if err != nil {
		return domain.NewValidationError("category", err.Error())
	}

	return task.SetCategory(c, now)
}

// collect appends the field errors of a validation error. Other errors
// cannot come out of the task setters.
func collect(errs *domain.ValidationErrors, err error) {
	if err == nil {
		return
	}

	var de *domain.Error
	if errors.As(err, &de) && len(de.Fields) > 0 {
		*errs = append(*errs, de.Fields...)
		return
	}

	errs.Add("", err.Error())
}

func pointer[T any](o domain.Optional[T]) *T {
	if v, ok := o.Get(); ok {
		return &v
	}

	return nil
}
