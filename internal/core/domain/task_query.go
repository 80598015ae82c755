package domain

import (
	"strings"
	"time"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100
)

type SortField string

const (
	SortByID          SortField = "id"
	SortByTitle       SortField = "title"
	SortByCreatedAt   SortField = "createdAt"
	SortByUpdatedAt   SortField = "updatedAt"
	SortByPriority    SortField = "priority"
	SortByCategory    SortField = "category"
	SortByDueDate     SortField = "dueDate"
	SortByIsCompleted SortField = "isCompleted"
)

var sortFields = []SortField{
	SortByID, SortByTitle, SortByCreatedAt, SortByUpdatedAt,
	SortByPriority, SortByCategory, SortByDueDate, SortByIsCompleted,
}

type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// TaskFilter holds the optional predicates. Nil means "do not filter".
type TaskFilter struct {
	IsCompleted *bool
	Priority    *Priority
	Category    *Category
	DueDateFrom *time.Time
	DueDateTo   *time.Time
	Search      *string
	Tags        *string
	IsOverdue   *bool

	// AsOf is the instant isOverdue is evaluated at. Zero means time.Now().
	AsOf time.Time
}

func (f TaskFilter) ReferenceTime() time.Time {
	if f.AsOf.IsZero() {
		return time.Now().UTC()
	}

	return f.AsOf.UTC()
}

type TaskQuery struct {
	Filter        TaskFilter
	SortBy        SortField
	SortDirection SortDirection
	Page          int
	PageSize      int
}

// TaskQueryInput is the raw, unvalidated query as received from a caller.
// Transports fill Page and PageSize with DefaultPage/DefaultPageSize when the
// caller omits them.
type TaskQueryInput struct {
	Filter        TaskFilter
	SortBy        string
	SortDirection string
	Page          int
	PageSize      int
}

// NewTaskQuery validates the sort key and direction and clamps the page
// bounds. Unknown sort keys are errors, never a silent fallback.
func NewTaskQuery(in TaskQueryInput) (TaskQuery, error) {
	var errs ValidationErrors

	q := TaskQuery{
		Filter:        in.Filter,
		SortBy:        SortByCreatedAt,
		SortDirection: SortDesc,
		Page:          ClampPage(in.Page),
		PageSize:      ClampPageSize(in.PageSize),
	}

	if key := strings.TrimSpace(in.SortBy); key != "" {
		field, ok := ParseSortField(key)
		if !ok {
			errs.Add("sortBy", "sortBy must be one of id, title, createdAt, updatedAt, priority, category, dueDate, isCompleted")
		}
		q.SortBy = field
	}

	if dir := strings.TrimSpace(in.SortDirection); dir != "" {
		switch strings.ToLower(dir) {
		case "asc":
			q.SortDirection = SortAsc
		case "desc":
			q.SortDirection = SortDesc
		default:
			errs.Add("sortDirection", "sortDirection must be asc or desc")
		}
	}

	f := in.Filter
	if f.DueDateFrom != nil && f.DueDateTo != nil && f.DueDateFrom.After(*f.DueDateTo) {
		errs.Add("dueDateFrom", "dueDateFrom must not be after dueDateTo")
	}

	if f.Priority != nil && !f.Priority.IsValid() {
		errs.Add("priority", "priority must be one of Low, Medium, High, Critical")
	}

	if f.Category != nil && !f.Category.IsValid() {
		errs.Add("category", "category is not a known category")
	}

	if err := errs.Err(); err != nil {
		return TaskQuery{}, err
	}

	return q, nil
}

func ParseSortField(key string) (SortField, bool) {
	for _, f := range sortFields {
		if strings.EqualFold(string(f), key) {
			return f, true
		}
	}

	return "", false
}

func ClampPage(page int) int {
	if page < 1 {
		return DefaultPage
	}

	return page
}

func ClampPageSize(size int) int {
	switch {
	case size < 1:
		return 1
	case size > MaxPageSize:
		return MaxPageSize
	default:
		return size
	}
}

func (q TaskQuery) Offset() int {
	return (q.Page - 1) * q.PageSize
}

type Page[T any] struct {
	Items           []T
	TotalCount      int
	Page            int
	PageSize        int
	TotalPages      int
	HasNextPage     bool
	HasPreviousPage bool
}

func NewPage[T any](items []T, total, page, pageSize int) Page[T] {
	if items == nil {
		items = []T{}
	}

	totalPages := 0
	if pageSize > 0 {
		totalPages = (total + pageSize - 1) / pageSize
	}

	return Page[T]{
		Items:           items,
		TotalCount:      total,
		Page:            page,
		PageSize:        pageSize,
		TotalPages:      totalPages,
		HasNextPage:     page < totalPages,
		HasPreviousPage: page > 1,
	}
}

// MapPage converts the items of a page, keeping the counters.
func MapPage[T, R any](p Page[T], fn func(T) R) Page[R] {
	items := make([]R, 0, len(p.Items))
	for _, it := range p.Items {
		items = append(items, fn(it))
	}

	return Page[R]{
		Items:           items,
		TotalCount:      p.TotalCount,
		Page:            p.Page,
		PageSize:        p.PageSize,
		TotalPages:      p.TotalPages,
		HasNextPage:     p.HasNextPage,
		HasPreviousPage: p.HasPreviousPage,
	}
}
