package request

import (
	"strings"
	"time"

	"tasktracker/internal/core/domain"
)

type RegisterRequest struct {
	Username  string  `json:"username" validate:"required,min=3,max=50"`
	Email     string  `json:"email" validate:"required,email,max=255"`
	Password  string  `json:"password" validate:"required,min=8,max=100"`
	FirstName *string `json:"firstName,omitempty" validate:"omitempty,max=100"`
	LastName  *string `json:"lastName,omitempty" validate:"omitempty,max=100"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required,max=50"`
	Password string `json:"password" validate:"required,max=100"`
}

func (r *RegisterRequest) Normalize() {
	r.Username = strings.TrimSpace(r.Username)
	r.Email = strings.TrimSpace(r.Email)
}

func (r *LoginRequest) Normalize() {
	r.Username = strings.TrimSpace(r.Username)
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type CreateTaskRequest struct {
	Title       string     `json:"title" validate:"required,max=500"`
	Description *string    `json:"description,omitempty" validate:"omitempty,max=2000"`
	Priority    *string    `json:"priority,omitempty" validate:"omitempty,priority"`
	Category    *string    `json:"category,omitempty" validate:"omitempty,category"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	Tags        *string    `json:"tags,omitempty" validate:"omitempty,max=500"`
}

func (r *CreateTaskRequest) Normalize() {
	r.Title = strings.TrimSpace(r.Title)
}

// UpdateTaskRequest only touches the fields present in the payload. An
// explicit null clears the nullable fields.
type UpdateTaskRequest struct {
	Title       domain.Optional[string]    `json:"title"`
	Description domain.Optional[string]    `json:"description"`
	IsCompleted domain.Optional[bool]      `json:"isCompleted"`
	Priority    domain.Optional[string]    `json:"priority"`
	Category    domain.Optional[string]    `json:"category"`
	DueDate     domain.Optional[time.Time] `json:"dueDate"`
	Tags        domain.Optional[string]    `json:"tags"`
}

// TaskQueryRequest is bound from the query string of GET /tasks.
type TaskQueryRequest struct {
	IsCompleted   *bool  `form:"isCompleted"`
	Priority      string `form:"priority"`
	Category      string `form:"category"`
	DueDateFrom   string `form:"dueDateFrom"`
	DueDateTo     string `form:"dueDateTo"`
	Search        string `form:"search" validate:"max=200"`
	Tags          string `form:"tags" validate:"max=200"`
	IsOverdue     *bool  `form:"isOverdue"`
	SortBy        string `form:"sortBy"`
	SortDirection string `form:"sortDirection"`
	Page          *int   `form:"page"`
	PageSize      *int   `form:"pageSize"`
}
