package port

import (
	"context"
	"time"

	"tasktracker/internal/core/domain"
	"tasktracker/internal/core/model/request"
)

// AccessClaims are the claims embedded in an access token.
type AccessClaims struct {
	AccountID int
	Username  string
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type TokenService interface {
	IssueAccessToken(accountID int, username string) (token string, claims AccessClaims, err error)
	IssueRefreshToken() (string, error)
	// ValidateAccessToken reports false for any invalid, forged or expired
	// token instead of returning an error.
	ValidateAccessToken(token string) (*AccessClaims, bool)
}

type AuthResult struct {
	AccessToken           string
	AccessTokenExpiresAt  time.Time
	RefreshToken          string
	RefreshTokenExpiresAt time.Time
	Account               domain.Account
}

type AuthService interface {
	Register(ctx context.Context, req request.RegisterRequest) (*AuthResult, error)
	Authenticate(ctx context.Context, req request.LoginRequest) (*AuthResult, error)
	RotateRefreshToken(ctx context.Context, refreshToken string) (*AuthResult, error)
	ValidateRefreshTokenActive(ctx context.Context, refreshToken string) (bool, error)
	RevokeRefreshToken(ctx context.Context, accountID int, refreshToken string) error
}
