package service

import (
	"context"
	"log/slog"

	"tasktracker/internal/core/domain"
	"tasktracker/internal/core/port"
)

const accountService = "account"

type AccountService struct {
	accounts port.AccountRepository
	sessions *SessionDirectory
	options
}

func NewAccountService(accounts port.AccountRepository, sessions *SessionDirectory, opts ...Option) *AccountService {
	return &AccountService{accounts: accounts, sessions: sessions, options: newOptions(opts)}
}

func (s *AccountService) GetProfile(ctx context.Context, accountID int) (domain.Account, error) {
	ctx, done := s.start(ctx, accountService, "GetProfile", accountID, nil)

	account, err := s.accounts.GetByID(ctx, accountID)
	return account, done(err)
}

// Deactivate blocks future logins and revokes every open session.
func (s *AccountService) Deactivate(ctx context.Context, accountID int) error {
	ctx, done := s.start(ctx, accountService, "Deactivate", accountID, nil)

	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return done(err)
	}

	account.Deactivate(s.now())

	if _, err := s.accounts.Update(ctx, account); err != nil {
		return done(err)
	}

	revoked, err := s.sessions.RevokeAll(ctx, accountID)
	if err != nil {
		return done(err)
	}

	slog.Info("Account deactivated", "account_id", accountID, "sessions_revoked", revoked)

	s.publish(ctx, port.Event{
		Name:      port.EventAccountDeactivated,
		Entity:    "account",
		EntityID:  account.UUID.String(),
		AccountID: accountID,
	})

	return done(nil)
}

// Activate reopens a deactivated account. No HTTP route reaches it since a
// deactivated account cannot authenticate; operators call it directly.
func (s *AccountService) Activate(ctx context.Context, accountID int) error {
	ctx, done := s.start(ctx, accountService, "Activate", accountID, nil)

	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return done(err)
	}

	if account.IsActive {
		return done(nil)
	}

	account.Activate(s.now())

	_, err = s.accounts.Update(ctx, account)
	return done(err)
}

// Delete removes the account together with its tasks and sessions.
func (s *AccountService) Delete(ctx context.Context, accountID int) error {
	ctx, done := s.start(ctx, accountService, "Delete", accountID, nil)

	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return done(err)
	}

	if err := s.accounts.DeleteByID(ctx, accountID); err != nil {
		return done(err)
	}

	s.publish(ctx, port.Event{
		Name:      port.EventAccountDeleted,
		Entity:    "account",
		EntityID:  account.UUID.String(),
		AccountID: accountID,
	})

	return done(nil)
}
