package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

const (
	MaxActiveSessions  = 5
	tokenPreviewLength = 8
)

// RefreshToken is one session. Only the SHA-256 of the raw token is kept;
// the raw value leaves the service once, in the login response.
type RefreshToken struct {
	ID           int
	AccountID    int
	TokenHash    string
	TokenPreview string
	ExpiresAt    time.Time
	IsRevoked    bool
	RevokedAt    *time.Time
	UserAgent    string
	IPAddress    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func NewRefreshToken(accountID int, rawToken string, expiresAt, now time.Time) *RefreshToken {
	now = now.UTC()

	return &RefreshToken{
		AccountID:    accountID,
		TokenHash:    HashToken(rawToken),
		TokenPreview: PreviewToken(rawToken),
		ExpiresAt:    expiresAt.UTC(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func HashToken(rawToken string) string {
	sum := sha256.Sum256([]byte(rawToken))
	return hex.EncodeToString(sum[:])
}

func PreviewToken(rawToken string) string {
	if len(rawToken) <= tokenPreviewLength {
		return "..."
	}

	return rawToken[:tokenPreviewLength] + "..."
}

func (r *RefreshToken) IsExpired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

func (r *RefreshToken) IsActive(now time.Time) bool {
	return !r.IsRevoked && !r.IsExpired(now)
}

func (r *RefreshToken) Revoke(now time.Time) {
	if r.IsRevoked {
		return
	}

	now = now.UTC()
	r.IsRevoked = true
	r.RevokedAt = &now
	r.UpdatedAt = now
}
