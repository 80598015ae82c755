package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"tasktracker/internal/core/domain"
	"tasktracker/internal/core/model/request"
	"tasktracker/internal/core/port"
	"tasktracker/internal/core/util"
	ct "tasktracker/pkg/context"
)

const authService = "auth"

type AuthService struct {
	accounts   port.AccountRepository
	sessions   *SessionDirectory
	tokens     port.TokenService
	hasher     *util.PasswordHasher
	refreshTTL time.Duration
	options
}

func NewAuthService(accounts port.AccountRepository, sessions *SessionDirectory, tokens port.TokenService, hasher *util.PasswordHasher, refreshTTL time.Duration, opts ...Option) *AuthService {
	return &AuthService{
		accounts:   accounts,
		sessions:   sessions,
		tokens:     tokens,
		hasher:     hasher,
		refreshTTL: refreshTTL,
		options:    newOptions(opts),
	}
}

func (as *AuthService) Register(ctx context.Context, req request.RegisterRequest) (*port.AuthResult, error) {
	ctx, done := as.start(ctx, authService, "Register", 0, nil)

	exists, err := as.accounts.ExistsByUsernameOrEmail(ctx, req.Username, req.Email)
	if err != nil {
		return nil, done(err)
	}

	if exists {
		return nil, done(domain.ErrDuplicateAccount)
	}

	hash, err := as.hasher.Hash(req.Password)
	if err != nil {
		return nil, done(fmt.Errorf("hash password: %w", err))
	}

	account, err := domain.NewAccount(req.Username, req.Email, hash, req.FirstName, req.LastName, as.now())
	if err != nil {
		return nil, done(err)
	}

	saved, err := as.accounts.Create(ctx, *account)
	if err != nil {
		return nil, done(err)
	}

	slog.Info("Account registered", "account_id", saved.ID, "username", saved.Username)

	as.publish(ctx, port.Event{
		Name:      port.EventAccountRegistered,
		Entity:    "account",
		EntityID:  saved.UUID.String(),
		AccountID: saved.ID,
		Payload:   map[string]interface{}{"username": saved.Username},
	})

	result, err := as.startSession(ctx, saved)
	return result, done(err)
}

func (as *AuthService) Authenticate(ctx context.Context, req request.LoginRequest) (*port.AuthResult, error) {
	ctx, done := as.start(ctx, authService, "Authenticate", 0, nil)

	account, err := as.accounts.GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, done(domain.ErrInvalidCredentials)
		}
		return nil, done(err)
	}

	ok, err := as.hasher.Matches(req.Password, account.PasswordHash)
	if err != nil {
		slog.Error("Auth#Authenticate", "compare_password", err, "account_id", account.ID)
		return nil, done(domain.ErrInvalidCredentials)
	}

	if !ok {
		return nil, done(domain.ErrInvalidCredentials)
	}

	if !account.IsActive {
		return nil, done(domain.ErrAccountDeactivated)
	}

	result, err := as.startSession(ctx, account)
	return result, done(err)
}

// startSession records the login and issues a fresh token pair.
func (as *AuthService) startSession(ctx context.Context, account domain.Account) (*port.AuthResult, error) {
	now := as.now()

	account.RecordLogin(now)

	account, err := as.accounts.Update(ctx, account)
	if err != nil {
		return nil, err
	}

	access, claims, err := as.tokens.IssueAccessToken(account.ID, account.Username)
	if err != nil {
		return nil, err
	}

	raw, err := as.tokens.IssueRefreshToken()
	if err != nil {
		return nil, err
	}

	token := as.newRefreshToken(ctx, account.ID, raw, now)

	saved, err := as.sessions.Open(ctx, token)
	if err != nil {
		return nil, err
	}

	return &port.AuthResult{
		AccessToken:           access,
		AccessTokenExpiresAt:  claims.ExpiresAt,
		RefreshToken:          raw,
		RefreshTokenExpiresAt: saved.ExpiresAt,
		Account:               account,
	}, nil
}

// RotateRefreshToken exchanges an active refresh token for a new pair. The
// presented token is revoked.
func (as *AuthService) RotateRefreshToken(ctx context.Context, refreshToken string) (*port.AuthResult, error) {
	ctx, done := as.start(ctx, authService, "RotateRefreshToken", 0, nil)

	now := as.now()

	old, err := as.sessions.repo.FindByHash(ctx, domain.HashToken(refreshToken))
	if err != nil {
		return nil, done(err)
	}

	if !old.IsActive(now) {
		return nil, done(domain.ErrInvalidOrExpiredToken)
	}

	account, err := as.accounts.GetByID(ctx, old.AccountID)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, done(domain.ErrInvalidOrExpiredToken)
		}
		return nil, done(err)
	}

	if !account.IsActive {
		return nil, done(domain.ErrAccountDeactivated)
	}

	access, claims, err := as.tokens.IssueAccessToken(account.ID, account.Username)
	if err != nil {
		return nil, done(err)
	}

	raw, err := as.tokens.IssueRefreshToken()
	if err != nil {
		return nil, done(err)
	}

	saved, err := as.sessions.Rotate(ctx, old, as.newRefreshToken(ctx, account.ID, raw, now))
	if err != nil {
		return nil, done(err)
	}

	return &port.AuthResult{
		AccessToken:           access,
		AccessTokenExpiresAt:  claims.ExpiresAt,
		RefreshToken:          raw,
		RefreshTokenExpiresAt: saved.ExpiresAt,
		Account:               account,
	}, done(nil)
}

func (as *AuthService) ValidateRefreshTokenActive(ctx context.Context, refreshToken string) (bool, error) {
	token, err := as.sessions.repo.FindByHash(ctx, domain.HashToken(refreshToken))
	if err != nil {
		if errors.Is(err, domain.ErrInvalidOrExpiredToken) {
			return false, nil
		}
		return false, err
	}

	return token.IsActive(as.now()), nil
}

func (as *AuthService) RevokeRefreshToken(ctx context.Context, accountID int, refreshToken string) error {
	return as.sessions.RevokeToken(ctx, accountID, refreshToken)
}

// newRefreshToken tags the token with the client of the current request.
func (as *AuthService) newRefreshToken(ctx context.Context, accountID int, raw string, now time.Time) domain.RefreshToken {
	token := domain.NewRefreshToken(accountID, raw, now.Add(as.refreshTTL), now)

	current := ct.GetCurrent(ctx)
	token.UserAgent, _ = current.GetString("user_agent")
	token.IPAddress, _ = current.GetString("ip_address")

	return *token
}
