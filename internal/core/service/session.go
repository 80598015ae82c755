package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"tasktracker/internal/core/domain"
	"tasktracker/internal/core/port"
)

const sessionService = "session"

// SessionDirectory keeps the bounded set of refresh tokens of every account.
// Writes for one account are serialized through the locker so the cap holds
// across concurrent logins.
type SessionDirectory struct {
	repo      port.RefreshTokenRepository
	locker    port.Locker
	maxActive int
	options
}

func NewSessionDirectory(repo port.RefreshTokenRepository, locker port.Locker, opts ...Option) *SessionDirectory {
	return &SessionDirectory{
		repo:      repo,
		locker:    locker,
		maxActive: domain.MaxActiveSessions,
		options:   newOptions(opts),
	}
}

func (d *SessionDirectory) lock(ctx context.Context, accountID int) (func(), error) {
	release, err := d.locker.Lock(ctx, "session:"+strconv.Itoa(accountID))
	if err != nil {
		return nil, fmt.Errorf("lock sessions of account %d: %w", accountID, err)
	}

	return release, nil
}

// Open stores token as a new session, evicting the oldest active session
// when the account is at the cap.
func (d *SessionDirectory) Open(ctx context.Context, token domain.RefreshToken) (domain.RefreshToken, error) {
	ctx, done := d.start(ctx, sessionService, "Open", token.AccountID, nil)

	release, err := d.lock(ctx, token.AccountID)
	if err != nil {
		return domain.RefreshToken{}, done(err)
	}
	defer release()

	saved, err := d.save(ctx, token)
	return saved, done(err)
}

// Rotate revokes old and opens next in one critical section and one store
// transaction, so a failed insert leaves old usable. old is re-read under
// the lock so a token can be rotated only once.
func (d *SessionDirectory) Rotate(ctx context.Context, old, next domain.RefreshToken) (domain.RefreshToken, error) {
	ctx, done := d.start(ctx, sessionService, "Rotate", old.AccountID, map[string]interface{}{
		"refresh_token.id": old.ID,
	})

	release, err := d.lock(ctx, old.AccountID)
	if err != nil {
		return domain.RefreshToken{}, done(err)
	}
	defer release()

	current, err := d.repo.FindByID(ctx, old.ID)
	if err != nil {
		return domain.RefreshToken{}, done(err)
	}

	if !current.IsActive(d.now()) {
		return domain.RefreshToken{}, done(domain.ErrInvalidOrExpiredToken)
	}

	saved, err := d.store(ctx, next, true, func(now time.Time) (domain.RefreshToken, error) {
		return d.repo.Replace(ctx, current.ID, next, d.maxActive, now)
	})
	return saved, done(err)
}

func (d *SessionDirectory) save(ctx context.Context, token domain.RefreshToken) (domain.RefreshToken, error) {
	return d.store(ctx, token, false, func(now time.Time) (domain.RefreshToken, error) {
		return d.repo.Save(ctx, token, d.maxActive, now)
	})
}

// store runs write and reports how many sessions the cap pushed out. A
// rotation frees the slot of the token it replaces before the cap is checked.
func (d *SessionDirectory) store(ctx context.Context, token domain.RefreshToken, replacing bool, write func(now time.Time) (domain.RefreshToken, error)) (domain.RefreshToken, error) {
	now := d.now()

	active, err := d.repo.ListActive(ctx, token.AccountID, now)
	if err != nil {
		return domain.RefreshToken{}, err
	}

	saved, err := write(now)
	if err != nil {
		return domain.RefreshToken{}, err
	}

	evicted := len(active) - d.maxActive + 1
	if replacing {
		evicted--
	}

	if evicted > 0 {
		slog.Info("Evicted oldest sessions", "account_id", token.AccountID, "count", evicted)
		d.telemetry.RecordBusinessEvent(ctx, port.EventSessionEvicted, "refresh_token", strconv.Itoa(saved.ID), token.AccountID, map[string]interface{}{
			"count": evicted,
		})
	}

	return saved, nil
}

func (d *SessionDirectory) ListActive(ctx context.Context, accountID int) ([]domain.RefreshToken, error) {
	ctx, done := d.start(ctx, sessionService, "ListActive", accountID, nil)

	tokens, err := d.repo.ListActive(ctx, accountID, d.now())
	return tokens, done(err)
}

// RevokeByID only revokes sessions in the caller's active set.
func (d *SessionDirectory) RevokeByID(ctx context.Context, accountID int, tokenID int) error {
	ctx, done := d.start(ctx, sessionService, "RevokeByID", accountID, map[string]interface{}{
		"refresh_token.id": tokenID,
	})

	now := d.now()

	active, err := d.repo.ListActive(ctx, accountID, now)
	if err != nil {
		return done(err)
	}

	owned := false
	for _, t := range active {
		if t.ID == tokenID {
			owned = true
			break
		}
	}

	if !owned {
		return done(domain.ErrSessionNotOwned)
	}

	if err := d.repo.RevokeByID(ctx, tokenID, now); err != nil {
		return done(err)
	}

	d.publishRevoked(ctx, accountID, strconv.Itoa(tokenID), 1)

	return done(nil)
}

// RevokeToken logs a raw refresh token out. Unknown and already inactive
// tokens are ignored; an active token of another account is forbidden.
func (d *SessionDirectory) RevokeToken(ctx context.Context, accountID int, rawToken string) error {
	ctx, done := d.start(ctx, sessionService, "RevokeToken", accountID, nil)

	token, err := d.repo.FindByHash(ctx, domain.HashToken(rawToken))
	if err != nil {
		if errors.Is(err, domain.ErrInvalidOrExpiredToken) {
			return done(nil)
		}
		return done(err)
	}

	now := d.now()

	if !token.IsActive(now) {
		return done(nil)
	}

	if token.AccountID != accountID {
		return done(domain.ErrSessionNotOwned)
	}

	if err := d.repo.RevokeByID(ctx, token.ID, now); err != nil {
		return done(err)
	}

	d.publishRevoked(ctx, accountID, strconv.Itoa(token.ID), 1)

	return done(nil)
}

func (d *SessionDirectory) RevokeAllExceptCurrent(ctx context.Context, accountID int, currentToken string) (int, error) {
	ctx, done := d.start(ctx, sessionService, "RevokeAllExceptCurrent", accountID, nil)

	if currentToken == "" {
		return 0, done(domain.NewValidationError("refreshToken", "refresh token is required"))
	}

	n, err := d.repo.RevokeAllForAccount(ctx, accountID, domain.HashToken(currentToken), d.now())
	if err != nil {
		return 0, done(err)
	}

	if n > 0 {
		d.publishRevoked(ctx, accountID, "", n)
	}

	return n, done(nil)
}

func (d *SessionDirectory) RevokeAll(ctx context.Context, accountID int) (int, error) {
	ctx, done := d.start(ctx, sessionService, "RevokeAll", accountID, nil)

	n, err := d.repo.RevokeAllForAccount(ctx, accountID, "", d.now())
	if err != nil {
		return 0, done(err)
	}

	if n > 0 {
		d.publishRevoked(ctx, accountID, "", n)
	}

	return n, done(nil)
}

func (d *SessionDirectory) publishRevoked(ctx context.Context, accountID int, tokenID string, count int) {
	d.publish(ctx, port.Event{
		Name:      port.EventSessionRevoked,
		Entity:    "refresh_token",
		EntityID:  tokenID,
		AccountID: accountID,
		Payload:   map[string]interface{}{"count": count},
	})
}
