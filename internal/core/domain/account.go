package domain

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	UsernameMinLength = 3
	UsernameMaxLength = 50
	NameMaxLength     = 100
)

type Account struct {
	ID           int
	UUID         uuid.UUID
	Username     string
	Email        string
	PasswordHash string
	FirstName    *string
	LastName     *string
	IsActive     bool
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NewAccount validates the registration fields and returns an active account.
func NewAccount(username, email, passwordHash string, firstName, lastName *string, now time.Time) (*Account, error) {
	var errs ValidationErrors

	username = strings.TrimSpace(username)
	email = NormalizeEmail(email)

	if n := utf8.RuneCountInString(username); n < UsernameMinLength || n > UsernameMaxLength {
		errs.Add("username", "username must have between 3 and 50 characters")
	}

	if email == "" {
		errs.Add("email", "email is required")
	}

	if passwordHash == "" {
		errs.Add("password", "password is required")
	}

	firstName = trimmedOrNil(firstName)
	lastName = trimmedOrNil(lastName)

	if firstName != nil && utf8.RuneCountInString(*firstName) > NameMaxLength {
		errs.Add("firstName", "first name must have at most 100 characters")
	}

	if lastName != nil && utf8.RuneCountInString(*lastName) > NameMaxLength {
		errs.Add("lastName", "last name must have at most 100 characters")
	}

	if err := errs.Err(); err != nil {
		return nil, err
	}

	now = now.UTC()

	return &Account{
		UUID:         uuid.New(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		FirstName:    firstName,
		LastName:     lastName,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (a *Account) RecordLogin(now time.Time) {
	now = now.UTC()
	a.LastLoginAt = &now
	a.UpdatedAt = now
}

func (a *Account) Deactivate(now time.Time) {
	a.IsActive = false
	a.UpdatedAt = now.UTC()
}

func (a *Account) Activate(now time.Time) {
	a.IsActive = true
	a.UpdatedAt = now.UTC()
}

func (a *Account) FullName() string {
	var parts []string

	if a.FirstName != nil {
		parts = append(parts, *a.FirstName)
	}

	if a.LastName != nil {
		parts = append(parts, *a.LastName)
	}

	return strings.Join(parts, " ")
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}

	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}

	return &v
}
