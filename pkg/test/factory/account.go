package factory

import (
	"strings"
	"time"

	fab "github.com/Goldziher/fabricator"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"tasktracker/internal/core/domain"
)

const DefaultPassword = "password123"

// NewAccount builds an active account ready to be stored. Username and email
// are unique unless overridden; PasswordHash is DefaultPassword hashed.
func NewAccount(customData ...map[string]any) domain.Account {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:10]

	data := merge(map[string]any{
		"Username": "user_" + suffix,
		"Email":    "user_" + suffix + "@example.com",
		"IsActive": true,
	}, customData)

	if _, ok := data["PasswordHash"]; !ok {
		hash, _ := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.MinCost)
		data["PasswordHash"] = string(hash)
	}

	now := time.Now().UTC()

	firstName := pointerField[string](data, "FirstName")
	lastName := pointerField[string](data, "LastName")
	lastLoginAt := pointerField[time.Time](data, "LastLoginAt")
	createdAt := timeField(data, "CreatedAt", now)
	updatedAt := timeField(data, "UpdatedAt", now)

	account := fab.New(domain.Account{}).Build(data)

	account.ID = 0
	account.UUID = uuid.New()
	account.Email = domain.NormalizeEmail(account.Email)
	account.FirstName = firstName
	account.LastName = lastName
	account.LastLoginAt = lastLoginAt
	account.CreatedAt = createdAt
	account.UpdatedAt = updatedAt

	return account
}
