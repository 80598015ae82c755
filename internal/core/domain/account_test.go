package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewAccount(t *testing.T) {
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	first := "  Alice "
	blank := " "

	t.Run("should normalize email and names", func(t *testing.T) {
		account, err := NewAccount("alice", "  Alice@Example.COM ", "hash", &first, &blank, now)

		assert.NoError(t, err)
		assert.Equal(t, "alice@example.com", account.Email)
		assert.Equal(t, "Alice", *account.FirstName)
		assert.Nil(t, account.LastName)
		assert.True(t, account.IsActive)
		assert.Nil(t, account.LastLoginAt)
		assert.Equal(t, "Alice", account.FullName())
	})

	t.Run("should collect every invalid field", func(t *testing.T) {
		_, err := NewAccount("al", "", "", nil, nil, now)

		de, ok := err.(*Error)
		assert.True(t, ok)
		assert.Equal(t, KindValidation, de.Kind)
		assert.Len(t, de.Fields, 3)
	})
}

func TestAccount_Lifecycle(t *testing.T) {
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	account, _ := NewAccount("alice", "alice@x.com", "hash", nil, nil, now)

	later := now.Add(time.Hour)
	account.RecordLogin(later)
	assert.Equal(t, later, *account.LastLoginAt)

	account.Deactivate(later)
	assert.False(t, account.IsActive)

	account.Activate(later)
	assert.True(t, account.IsActive)
}

func TestRefreshToken_State(t *testing.T) {
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	token := NewRefreshToken(1, "abcdefghijklmnopqrstuvwxyz", now.Add(time.Hour), now)

	assert.Equal(t, "abcdefgh...", token.TokenPreview)
	assert.Equal(t, HashToken("abcdefghijklmnopqrstuvwxyz"), token.TokenHash)
	assert.Len(t, token.TokenHash, 64)
	assert.True(t, token.IsActive(now))

	assert.True(t, token.IsExpired(now.Add(time.Hour)))
	assert.False(t, token.IsActive(now.Add(time.Hour)))

	token.Revoke(now)
	assert.True(t, token.IsRevoked)
	assert.False(t, token.IsActive(now))

	revokedAt := *token.RevokedAt
	token.Revoke(now.Add(time.Minute))
	assert.Equal(t, revokedAt, *token.RevokedAt)
}

func TestOptional_UnmarshalJSON(t *testing.T) {
	var body struct {
		Title       Optional[string]  `json:"title"`
		Description Optional[*string] `json:"description"`
		Tags        Optional[string]  `json:"tags"`
	}

	err := json.Unmarshal([]byte(`{"title":"new","description":null}`), &body)

	assert.NoError(t, err)

	title, ok := body.Title.Get()
	assert.True(t, ok)
	assert.Equal(t, "new", title)

	assert.True(t, body.Description.Present)
	assert.True(t, body.Description.Null)

	assert.False(t, body.Tags.Present)
}

func TestAsValidation(t *testing.T) {
	err := AsValidation(ErrTaskAlreadyCompleted, "isCompleted")

	assert.Equal(t, KindValidation, KindOf(err))
	assert.ErrorIs(t, err, ErrTaskAlreadyCompleted)
	assert.Equal(t, ErrTaskNotFound, AsValidation(ErrTaskNotFound, "id"))
}
