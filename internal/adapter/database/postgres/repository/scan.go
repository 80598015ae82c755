package repository

import (
	"time"

	"tasktracker/internal/core/domain"
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (domain.Account, error) {
	var a domain.Account

	err := row.Scan(&a.ID, &a.UUID, &a.Username, &a.Email, &a.PasswordHash, &a.FirstName, &a.LastName,
		&a.IsActive, &a.LastLoginAt, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return domain.Account{}, err
	}

	a.LastLoginAt = utcOrNil(a.LastLoginAt)
	a.CreatedAt = a.CreatedAt.UTC()
	a.UpdatedAt = a.UpdatedAt.UTC()

	return a, nil
}

func scanTask(row rowScanner) (domain.Task, error) {
	var t domain.Task

	err := row.Scan(&t.ID, &t.UUID, &t.AccountID, &t.Title, &t.Description, &t.IsCompleted, &t.CompletedAt,
		&t.Priority, &t.Category, &t.DueDate, &t.Tags, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return domain.Task{}, err
	}

	t.CompletedAt = utcOrNil(t.CompletedAt)
	t.DueDate = utcOrNil(t.DueDate)
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()

	return t, nil
}

func scanRefreshToken(row rowScanner) (domain.RefreshToken, error) {
	var r domain.RefreshToken

	err := row.Scan(&r.ID, &r.AccountID, &r.TokenHash, &r.TokenPreview, &r.ExpiresAt, &r.IsRevoked, &r.RevokedAt,
		&r.UserAgent, &r.IPAddress, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return domain.RefreshToken{}, err
	}

	r.ExpiresAt = r.ExpiresAt.UTC()
	r.RevokedAt = utcOrNil(r.RevokedAt)
	r.CreatedAt = r.CreatedAt.UTC()
	r.UpdatedAt = r.UpdatedAt.UTC()

	return r, nil
}

func utcOrNil(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}

	u := t.UTC()
	return &u
}
