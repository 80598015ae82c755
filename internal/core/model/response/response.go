package response

import (
	"time"

	"github.com/google/uuid"

	"tasktracker/internal/core/domain"
	"tasktracker/internal/core/port"
)

type AccountResponse struct {
	UUID        string     `json:"uuid"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	FirstName   *string    `json:"firstName,omitempty"`
	LastName    *string    `json:"lastName,omitempty"`
	IsActive    bool       `json:"isActive"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

type AuthResponse struct {
	AccessToken           string          `json:"accessToken"`
	TokenType             string          `json:"tokenType"`
	AccessTokenExpiresAt  time.Time       `json:"accessTokenExpiresAt"`
	RefreshToken          string          `json:"refreshToken"`
	RefreshTokenExpiresAt time.Time       `json:"refreshTokenExpiresAt"`
	Account               AccountResponse `json:"account"`
}

type TaskResponse struct {
	UUID        uuid.UUID  `json:"uuid"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	IsCompleted bool       `json:"isCompleted"`
	CompletedAt *time.Time `json:"completedAt"`
	Priority    string     `json:"priority"`
	Category    string     `json:"category"`
	DueDate     *time.Time `json:"dueDate"`
	Tags        *string    `json:"tags"`
	IsOverdue   bool       `json:"isOverdue"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

type SessionResponse struct {
	ID        int       `json:"id"`
	Preview   string    `json:"preview"`
	UserAgent string    `json:"userAgent,omitempty"`
	IPAddress string    `json:"ipAddress,omitempty"`
	Current   bool      `json:"current"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type PagedResponse[T any] struct {
	Items           []T  `json:"items"`
	TotalCount      int  `json:"totalCount"`
	Page            int  `json:"page"`
	PageSize        int  `json:"pageSize"`
	TotalPages      int  `json:"totalPages"`
	HasNextPage     bool `json:"hasNextPage"`
	HasPreviousPage bool `json:"hasPreviousPage"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ResponseError struct {
	Code    string            `json:"code"`
	Errors  []ValidationError `json:"errors"`
	Details any               `json:"details,omitempty"`
}

type SuccessResponse struct {
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

type ErrorResponse struct {
	Error ResponseError `json:"error"`
}

func NewAccountResponse(a domain.Account) AccountResponse {
	return AccountResponse{
		UUID:        a.UUID.String(),
		Username:    a.Username,
		Email:       a.Email,
		FirstName:   a.FirstName,
		LastName:    a.LastName,
		IsActive:    a.IsActive,
		LastLoginAt: a.LastLoginAt,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

func NewAuthResponse(r *port.AuthResult) AuthResponse {
	return AuthResponse{
		AccessToken:           r.AccessToken,
		TokenType:             "Bearer",
		AccessTokenExpiresAt:  r.AccessTokenExpiresAt,
		RefreshToken:          r.RefreshToken,
		RefreshTokenExpiresAt: r.RefreshTokenExpiresAt,
		Account:               NewAccountResponse(r.Account),
	}
}

func NewTaskResponse(t domain.Task, now time.Time) TaskResponse {
	return TaskResponse{
		UUID:        t.UUID,
		Title:       t.Title,
		Description: t.Description,
		IsCompleted: t.IsCompleted,
		CompletedAt: t.CompletedAt,
		Priority:    t.Priority.String(),
		Category:    t.Category.String(),
		DueDate:     t.DueDate,
		Tags:        t.Tags,
		IsOverdue:   t.IsOverdue(now),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// NewSessionResponse marks the session matching currentHash as current.
func NewSessionResponse(r domain.RefreshToken, currentHash string) SessionResponse {
	return SessionResponse{
		ID:        r.ID,
		Preview:   r.TokenPreview,
		UserAgent: r.UserAgent,
		IPAddress: r.IPAddress,
		Current:   currentHash != "" && r.TokenHash == currentHash,
		CreatedAt: r.CreatedAt,
		ExpiresAt: r.ExpiresAt,
	}
}

func NewPagedResponse[T, R any](p domain.Page[T], fn func(T) R) PagedResponse[R] {
	mapped := domain.MapPage(p, fn)

	return PagedResponse[R]{
		Items:           mapped.Items,
		TotalCount:      mapped.TotalCount,
		Page:            mapped.Page,
		PageSize:        mapped.PageSize,
		TotalPages:      mapped.TotalPages,
		HasNextPage:     mapped.HasNextPage,
		HasPreviousPage: mapped.HasPreviousPage,
	}
}

type RevokedResponse struct {
	Revoked int `json:"revoked"`
}
