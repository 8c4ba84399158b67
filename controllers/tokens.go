package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xamogh/casbin-test/logging"
	"github.com/xamogh/casbin-test/services"
)

// TokenController exposes the development-only token issue endpoint. It is
// routed only when auth.enable_token_endpoint is set.
type TokenController struct {
	Tokens *services.TokenService
}

// IssueToken returns a fresh service token for the trusted account.
func (tc *TokenController) IssueToken(c *gin.Context) {
	token, err := tc.Tokens.Issue(tc.Tokens.TrustedAccount)
	if err != nil {
		logging.From(c.Request.Context()).Error("Token issue failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unexpected error occurred"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}
