package domain

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	TitleMaxLength       = 500
	DescriptionMaxLength = 2000
	TagsMaxLength        = 500
)

type Task struct {
	ID          int
	UUID        uuid.UUID
	AccountID   int
	Title       string
	Description *string
	IsCompleted bool
	CompletedAt *time.Time
	Priority    Priority
	Category    Category
	DueDate     *time.Time
	Tags        *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewTask builds a task with default priority and category. Title is trimmed
// and validated.
func NewTask(accountID int, title string, now time.Time) (*Task, error) {
	title, err := validateTitle(title)
	if err != nil {
		return nil, err
	}

	now = now.UTC()

	return &Task{
		UUID:      uuid.New(),
		AccountID: accountID,
		Title:     title,
		Priority:  PriorityMedium,
		Category:  CategoryGeneral,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (t *Task) BelongsTo(accountID int) bool {
	return t.AccountID == accountID
}

func (t *Task) IsOverdue(now time.Time) bool {
	return !t.IsCompleted && t.DueDate != nil && t.DueDate.Before(now)
}

func (t *Task) SetTitle(title string, now time.Time) error {
	title, err := validateTitle(title)
	if err != nil {
		return err
	}

	t.Title = title
	t.touch(now)

	return nil
}

// SetDescription clears the description when given nil or blank text.
func (t *Task) SetDescription(description *string, now time.Time) error {
	if description != nil && utf8.RuneCountInString(*description) > DescriptionMaxLength {
		return NewValidationError("description", "description must have at most 2000 characters")
	}

	t.Description = trimmedOrNil(description)
	t.touch(now)

	return nil
}

func (t *Task) SetPriority(p Priority, now time.Time) error {
	if !p.IsValid() {
		return NewValidationError("priority", "priority must be one of Low, Medium, High, Critical")
	}

	t.Priority = p
	t.touch(now)

	return nil
}

func (t *Task) SetCategory(c Category, now time.Time) error {
	if !c.IsValid() {
		return NewValidationError("category", "category is not a known category")
	}

	t.Category = c
	t.touch(now)

	return nil
}

// SetDueDate rejects dates before now. A nil due date always succeeds.
func (t *Task) SetDueDate(due *time.Time, now time.Time) error {
	if due == nil {
		t.DueDate = nil
		t.touch(now)
		return nil
	}

	if due.Before(now) {
		return NewValidationError("dueDate", "due date cannot be in the past")
	}

	d := due.UTC()
	t.DueDate = &d
	t.touch(now)

	return nil
}

func (t *Task) SetTags(tags *string, now time.Time) error {
	if tags != nil && utf8.RuneCountInString(*tags) > TagsMaxLength {
		return NewValidationError("tags", "tags must have at most 500 characters")
	}

	t.Tags = trimmedOrNil(tags)
	t.touch(now)

	return nil
}

func (t *Task) MarkComplete(now time.Time) error {
	if t.IsCompleted {
		return ErrTaskAlreadyCompleted
	}

	completedAt := now.UTC()
	t.IsCompleted = true
	t.CompletedAt = &completedAt
	t.touch(now)

	return nil
}

func (t *Task) MarkIncomplete(now time.Time) error {
	if !t.IsCompleted {
		return ErrTaskNotCompleted
	}

	t.IsCompleted = false
	t.CompletedAt = nil
	t.touch(now)

	return nil
}

// TagList splits the comma separated tags, dropping blanks.
func (t *Task) TagList() []string {
	if t.Tags == nil {
		return []string{}
	}

	tags := []string{}
	for _, tag := range strings.Split(*t.Tags, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}

	return tags
}

func (t *Task) touch(now time.Time) {
	t.UpdatedAt = now.UTC()
}

func validateTitle(title string) (string, error) {
	title = strings.TrimSpace(title)

	if title == "" {
		return "", NewValidationError("title", "title is required")
	}

	if utf8.RuneCountInString(title) > TitleMaxLength {
		return "", NewValidationError("title", "title must have at most 500 characters")
	}

	return title, nil
}
