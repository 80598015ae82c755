package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	nanoid "github.com/jaevor/go-nanoid"

	"tasktracker/internal/core/port"
)

const refreshTokenBytes = 32

type Config struct {
	Secret         string
	Issuer         string
	Audience       string
	AccessTokenTTL time.Duration
}

type Claims struct {
	Name string `json:"name"`
	jwt.RegisteredClaims
}

// JWTManager issues HS256 access tokens and opaque refresh tokens.
type JWTManager struct {
	config Config
	now    func() time.Time
	newID  func() string
}

func NewJWTManager(config Config) (*JWTManager, error) {
	if config.Secret == "" {
		return nil, errors.New("jwt secret is empty")
	}

	if config.AccessTokenTTL <= 0 {
		return nil, errors.New("access token ttl must be positive")
	}

	gen, err := nanoid.Standard(21)
	if err != nil {
		return nil, err
	}

	return &JWTManager{config: config, now: time.Now, newID: gen}, nil
}

// WithClock replaces the time source used for iat, exp and validation.
func (m *JWTManager) WithClock(now func() time.Time) *JWTManager {
	m.now = now
	return m
}

func (m *JWTManager) IssueAccessToken(accountID int, username string) (string, port.AccessClaims, error) {
	now := m.now().UTC().Truncate(time.Second)

	claims := Claims{
		Name: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.Itoa(accountID),
			ID:        m.newID(),
			Issuer:    m.config.Issuer,
			Audience:  jwt.ClaimStrings{m.config.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.AccessTokenTTL)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(m.config.Secret))
	if err != nil {
		return "", port.AccessClaims{}, fmt.Errorf("sign access token: %w", err)
	}

	return signed, toAccessClaims(accountID, claims), nil
}

// IssueRefreshToken returns 32 random bytes, base64url encoded without
// padding.
func (m *JWTManager) IssueRefreshToken() (string, error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func (m *JWTManager) ValidateAccessToken(token string) (*port.AccessClaims, bool) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(m.config.Secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.config.Issuer),
		jwt.WithAudience(m.config.Audience),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(0),
		jwt.WithTimeFunc(m.now),
	)

	if err != nil {
		slog.Debug("Access token rejected", "error", err)
		return nil, false
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, false
	}

	accountID, err := strconv.Atoi(claims.Subject)
	if err != nil || accountID <= 0 {
		return nil, false
	}

	result := toAccessClaims(accountID, *claims)
	return &result, true
}

func toAccessClaims(accountID int, c Claims) port.AccessClaims {
	return port.AccessClaims{
		AccountID: accountID,
		Username:  c.Name,
		TokenID:   c.ID,
		IssuedAt:  c.IssuedAt.Time.UTC(),
		ExpiresAt: c.ExpiresAt.Time.UTC(),
	}
}
