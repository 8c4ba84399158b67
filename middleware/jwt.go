package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/xamogh/casbin-test/services"
)

// BearerTokenAuth verifies the Authorization header against the token
// service. Missing or malformed tokens get 401; a valid token for the wrong
// account gets 403. The verified account id lands in the request context
// under ACCOUNT_ID_KEY.
func BearerTokenAuth(tokens *services.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.Request.Header.Get("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "no Authorization header provided"})
			c.Abort()
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == authHeader {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "could not find bearer token in Authorization header"})
			c.Abort()
			return
		}

		accountID, err := tokens.Verify(token)
		if err != nil {
			if errors.Is(err, services.ErrWrongAccount) {
				slog.Warn("Rejected token for untrusted account")
				c.JSON(http.StatusForbidden, gin.H{"error": "account is not authorized"})
				c.Abort()
				return
			}
			slog.Debug("Token verification failed", "error", err)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization header is invalid"})
			c.Abort()
			return
		}

		c.Set(ACCOUNT_ID_KEY, accountID)
		c.Next()
	}
}

const ACCOUNT_ID_KEY = "account_ID"
