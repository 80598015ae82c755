package port

import (
	"context"
	"time"

	"tasktracker/internal/core/domain"
)

// RefreshTokenRepository is the persistent side of the session directory.
type RefreshTokenRepository interface {
	// Save purges the account's expired tokens, evicts the oldest active
	// token when maxActive is reached and inserts token, in one transaction.
	Save(ctx context.Context, token domain.RefreshToken, maxActive int, now time.Time) (domain.RefreshToken, error)
	// Replace is Save that also revokes the active token oldID in the same
	// transaction. It fails with ErrInvalidOrExpiredToken and stores nothing
	// when oldID is no longer active.
	Replace(ctx context.Context, oldID int, token domain.RefreshToken, maxActive int, now time.Time) (domain.RefreshToken, error)
	FindByHash(ctx context.Context, tokenHash string) (domain.RefreshToken, error)
	FindByID(ctx context.Context, id int) (domain.RefreshToken, error)
	ListActive(ctx context.Context, accountID int, now time.Time) ([]domain.RefreshToken, error)
	RevokeByID(ctx context.Context, id int, now time.Time) error
	RevokeAllForAccount(ctx context.Context, accountID int, exceptHash string, now time.Time) (int, error)
}

type SessionService interface {
	ListActive(ctx context.Context, accountID int) ([]domain.RefreshToken, error)
	RevokeByID(ctx context.Context, accountID int, tokenID int) error
	RevokeAllExceptCurrent(ctx context.Context, accountID int, currentToken string) (int, error)
	RevokeAll(ctx context.Context, accountID int) (int, error)
}
