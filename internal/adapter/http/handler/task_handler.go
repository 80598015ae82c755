package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	. "tasktracker/internal/adapter/http/helper"
	. "tasktracker/internal/adapter/http/validation"
	"tasktracker/internal/core/domain"
	"tasktracker/internal/core/model/request"
	"tasktracker/internal/core/model/response"
	"tasktracker/internal/core/port"
	"tasktracker/internal/core/util"
	"tasktracker/pkg/auth"
	"tasktracker/pkg/config"
	. "tasktracker/pkg/tracing"
)

const dateLayout = "2006-01-02"

type TaskHandler struct {
	svc    port.TaskService
	Logger *config.LokiLogger
	now    func() time.Time
}

func NewTaskHandler(svc port.TaskService, logger *config.LokiLogger) *TaskHandler {
	return &TaskHandler{
		svc:    svc,
		Logger: logger,
		now:    time.Now,
	}
}

// WithClock sets the time used to compute isOverdue in responses.
func (t *TaskHandler) WithClock(now func() time.Time) *TaskHandler {
	t.now = now
	return t
}

func (t *TaskHandler) toResponse(task domain.Task) response.TaskResponse {
	return response.NewTaskResponse(task, t.now())
}

// ListTasks godoc
// @Summary      List tasks
// @Description  Filtered, sorted and paginated tasks of the current account
// @Tags         Tasks
// @Produce      json
// @Security     BearerAuth
// @Param        isCompleted    query     bool    false  "Completion state"
// @Param        priority       query     string  false  "Low, Medium, High or Critical"
// @Param        category       query     string  false  "Category name"
// @Param        dueDateFrom    query     string  false  "RFC3339 or YYYY-MM-DD"
// @Param        dueDateTo      query     string  false  "RFC3339 or YYYY-MM-DD"
// @Param        search         query     string  false  "Substring of title or description"
// @Param        tags           query     string  false  "Substring of tags"
// @Param        isOverdue      query     bool    false  "Only overdue or only not overdue"
// @Param        sortBy         query     string  false  "id, title, createdAt, updatedAt, priority, category, dueDate, isCompleted"
// @Param        sortDirection  query     string  false  "asc or desc"
// @Param        page           query     int     false  "Page number, default 1"
// @Param        pageSize       query     int     false  "Page size, default 10, max 100"
// @Success      200            {object}  response.SuccessResponse{data=response.PagedResponse[response.TaskResponse]}
// @Failure      400            {object}  response.ErrorResponse
// @Router       /tasks [get]
func (t *TaskHandler) ListTasks(c *gin.Context) {
	ctx, span := CreateChildSpan(c.Request.Context(), "handler.task.ListTasks", []attribute.KeyValue{
		attribute.String("handler.operation", "ListTasks"),
		attribute.String("handler.method", c.Request.Method),
		attribute.String("handler.path", c.FullPath()),
	})
	defer span.End()

	accountID, ok := auth.AccountID(c)
	if !ok {
		SendUnauthorizedError(c, "Unauthorized request")
		return
	}

	params, err := util.BindQuery[request.TaskQueryRequest](c)
	if err != nil {
		SendBadRequestError(c, "query", "Invalid query parameters")
		return
	}

	if err := Validator.Struct(params); err != nil {
		SendValidationError(c, err)
		return
	}

	input, err := toTaskQueryInput(params)
	if err != nil {
		SendDomainError(c, t.Logger, err)
		return
	}

	span.SetAttributes(
		attribute.Int("account.id", accountID),
		attribute.Int("pagination.page", input.Page),
		attribute.Int("pagination.pageSize", input.PageSize),
	)

	page, err := t.svc.List(ctx, accountID, input)
	if err != nil {
		AddSpanError(span, err)
		SendDomainError(c, t.Logger, err)
		return
	}

	SendSuccess(c, http.StatusOK, response.NewPagedResponse(page, t.toResponse))
}

// toTaskQueryInput parses the string filters. Sort keys and page bounds are
// checked by domain.NewTaskQuery.
func toTaskQueryInput(params request.TaskQueryRequest) (domain.TaskQueryInput, error) {
	var errs domain.ValidationErrors

	input := domain.TaskQueryInput{
		SortBy:        params.SortBy,
		SortDirection: params.SortDirection,
		Page:          domain.DefaultPage,
		PageSize:      domain.DefaultPageSize,
	}

	if params.Page != nil {
		input.Page = *params.Page
	}

	if params.PageSize != nil {
		input.PageSize = *params.PageSize
	}

	f := &input.Filter
	f.IsCompleted = params.IsCompleted
	f.IsOverdue = params.IsOverdue

	if params.Priority != "" {
		p, err := domain.ParsePriority(params.Priority)
		if err != nil {
			errs.Add("priority", err.Error())
		} else {
			f.Priority = &p
		}
	}

	if params.Category != "" {
		cat, err := domain.ParseCategory(params.Category)
		if err != nil {
			errs.Add("category", err.Error())
		} else {
			f.Category = &cat
		}
	}

	if params.DueDateFrom != "" {
		from, err := parseDate(params.DueDateFrom, false)
		if err != nil {
			errs.Add("dueDateFrom", "dueDateFrom must be an RFC3339 timestamp or a YYYY-MM-DD date")
		} else {
			f.DueDateFrom = &from
		}
	}

	if params.DueDateTo != "" {
		to, err := parseDate(params.DueDateTo, true)
		if err != nil {
			errs.Add("dueDateTo", "dueDateTo must be an RFC3339 timestamp or a YYYY-MM-DD date")
		} else {
			f.DueDateTo = &to
		}
	}

	if s := strings.TrimSpace(params.Search); s != "" {
		f.Search = &s
	}

	if s := strings.TrimSpace(params.Tags); s != "" {
		f.Tags = &s
	}

	return input, errs.Err()
}

// parseDate accepts RFC3339 or a bare date. A bare upper bound covers the
// whole day.
func parseDate(value string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}

	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, err
	}

	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}

	return t, nil
}

// taskUUID treats an unparseable id like an unknown task.
func taskUUID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("uuid"))
	if err != nil {
		SendNotFoundError(c, domain.ErrTaskNotFound.Message)
		return uuid.Nil, false
	}

	return id, true
}

// GetTask godoc
// @Summary      Get a task
// @Tags         Tasks
// @Produce      json
// @Security     BearerAuth
// @Param        uuid  path      string  true  "Task id"
// @Success      200   {object}  response.SuccessResponse{data=response.TaskResponse}
// @Failure      404   {object}  response.ErrorResponse
// @Router       /tasks/{uuid} [get]
func (t *TaskHandler) GetTask(c *gin.Context) {
	accountID, ok := auth.AccountID(c)
	if !ok {
		SendUnauthorizedError(c, "Unauthorized request")
		return
	}

	id, ok := taskUUID(c)
	if !ok {
		return
	}

	task, err := t.svc.Get(c.Request.Context(), accountID, id)
	if err != nil {
		SendDomainError(c, t.Logger, err)
		return
	}

	SendSuccess(c, http.StatusOK, t.toResponse(task))
}

// CreateTask godoc
// @Summary      Create a task
// @Tags         Tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      request.CreateTaskRequest  true  "Task"
// @Success      201   {object}  response.SuccessResponse{data=response.TaskResponse}
// @Failure      400   {object}  response.ErrorResponse
// @Router       /tasks [post]
func (t *TaskHandler) CreateTask(c *gin.Context) {
	accountID, ok := auth.AccountID(c)
	if !ok {
		SendUnauthorizedError(c, "Unauthorized request")
		return
	}

	params, err := util.BindJSON[request.CreateTaskRequest](c)
	if err != nil {
		SendBadRequestError(c, "request", "Invalid request parameters")
		return
	}

	if err := Validator.Struct(params); err != nil {
		SendValidationError(c, err)
		return
	}

	task, err := t.svc.Create(c.Request.Context(), accountID, params)
	if err != nil {
		SendDomainError(c, t.Logger, err)
		return
	}

	SendSuccess(c, http.StatusCreated, t.toResponse(task))
}

// UpdateTask godoc
// @Summary      Update a task
// @Description  Only fields present in the body change; null clears nullable fields
// @Tags         Tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        uuid  path      string                     true  "Task id"
// @Param        body  body      request.UpdateTaskRequest  true  "Fields to change"
// @Success      200   {object}  response.SuccessResponse{data=response.TaskResponse}
// @Failure      400   {object}  response.ErrorResponse
// @Failure      404   {object}  response.ErrorResponse
// @Router       /tasks/{uuid} [put]
func (t *TaskHandler) UpdateTask(c *gin.Context) {
	accountID, ok := auth.AccountID(c)
	if !ok {
		SendUnauthorizedError(c, "Unauthorized request")
		return
	}

	id, ok := taskUUID(c)
	if !ok {
		return
	}

	params, err := util.BindJSON[request.UpdateTaskRequest](c)
	if err != nil {
		SendBadRequestError(c, "request", "Invalid request parameters")
		return
	}

	task, err := t.svc.Update(c.Request.Context(), accountID, id, params)
	if err != nil {
		SendDomainError(c, t.Logger, err)
		return
	}

	SendSuccess(c, http.StatusOK, t.toResponse(task))
}

// CompleteTask godoc
// @Summary      Mark a task complete
// @Tags         Tasks
// @Produce      json
// @Security     BearerAuth
// @Param        uuid  path      string  true  "Task id"
// @Success      200   {object}  response.SuccessResponse{data=response.TaskResponse}
// @Failure      400   {object}  response.ErrorResponse
// @Failure      404   {object}  response.ErrorResponse
// @Router       /tasks/{uuid}/complete [patch]
func (t *TaskHandler) CompleteTask(c *gin.Context) {
	t.toggle(c, t.svc.MarkComplete)
}

// IncompleteTask godoc
// @Summary      Mark a task incomplete
// @Tags         Tasks
// @Produce      json
// @Security     BearerAuth
// @Param        uuid  path      string  true  "Task id"
// @Success      200   {object}  response.SuccessResponse{data=response.TaskResponse}
// @Failure      400   {object}  response.ErrorResponse
// @Failure      404   {object}  response.ErrorResponse
// @Router       /tasks/{uuid}/incomplete [patch]
func (t *TaskHandler) IncompleteTask(c *gin.Context) {
	t.toggle(c, t.svc.MarkIncomplete)
}

func (t *TaskHandler) toggle(c *gin.Context, apply func(ctx context.Context, accountID int, id uuid.UUID) (domain.Task, error)) {
	accountID, ok := auth.AccountID(c)
	if !ok {
		SendUnauthorizedError(c, "Unauthorized request")
		return
	}

	id, ok := taskUUID(c)
	if !ok {
		return
	}

	task, err := apply(c.Request.Context(), accountID, id)
	if err != nil {
		SendDomainError(c, t.Logger, err)
		return
	}

	SendSuccess(c, http.StatusOK, t.toResponse(task))
}

// DeleteTask godoc
// @Summary      Delete a task
// @Tags         Tasks
// @Security     BearerAuth
// @Param        uuid  path  string  true  "Task id"
// @Success      204
// @Failure      404   {object}  response.ErrorResponse
// @Router       /tasks/{uuid} [delete]
func (t *TaskHandler) DeleteTask(c *gin.Context) {
	accountID, ok := auth.AccountID(c)
	if !ok {
		SendUnauthorizedError(c, "Unauthorized request")
		return
	}

	id, ok := taskUUID(c)
	if !ok {
		return
	}

	if err := t.svc.Delete(c.Request.Context(), accountID, id); err != nil {
		SendDomainError(c, t.Logger, err)
		return
	}

	c.Status(http.StatusNoContent)
}
