package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"tasktracker/internal/core/model/response"
	"tasktracker/internal/core/port"
)

const (
	AccountIDKey = "x-user-id"
	UsernameKey  = "x-username"
	TokenIDKey   = "x-token-id"
)

func unauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, response.ErrorResponse{
		Error: response.ResponseError{
			Code:    "UNAUTHORIZED",
			Errors:  []response.ValidationError{{Field: "authorization", Message: message}},
			Details: message,
		},
	})
}

// GinJwtMiddleware rejects requests without a valid bearer access token and
// exposes the account id under AccountIDKey.
func GinJwtMiddleware(tokens port.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		bearer := c.GetHeader("Authorization")

		if bearer == "" {
			unauthorized(c, "Unauthorized request")
			return
		}

		if !strings.HasPrefix(bearer, "Bearer ") {
			unauthorized(c, "Invalid authorization format")
			return
		}

		claims, ok := tokens.ValidateAccessToken(strings.TrimSpace(bearer[len("Bearer "):]))
		if !ok {
			unauthorized(c, "Invalid or expired access token")
			return
		}

		c.Set(AccountIDKey, claims.AccountID)
		c.Set(UsernameKey, claims.Username)
		c.Set(TokenIDKey, claims.TokenID)
		c.Next()
	}
}

// AccountID returns the authenticated account id set by GinJwtMiddleware.
func AccountID(c *gin.Context) (int, bool) {
	id, ok := c.Get(AccountIDKey)
	if !ok {
		return 0, false
	}

	accountID, ok := id.(int)
	return accountID, ok
}
