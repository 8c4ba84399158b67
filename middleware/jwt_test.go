package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xamogh/casbin-test/services"
)

func testRouter(tokens *services.TokenService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/protected", BearerTokenAuth(tokens), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"account": c.GetString(ACCOUNT_ID_KEY)})
	})
	return r
}

func TestBearerTokenAuth(t *testing.T) {
	tokens := services.NewTokenService("secret", "gateway-client", 60*time.Second)
	r := testRouter(tokens)

	valid, err := tokens.Issue("gateway-client")
	require.NoError(t, err)
	wrongAccount, err := tokens.Issue("intruder")
	require.NoError(t, err)

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"no_header", "", http.StatusUnauthorized},
		{"not_bearer", "Basic abc", http.StatusUnauthorized},
		{"garbage_token", "Bearer garbage", http.StatusUnauthorized},
		{"wrong_account", "Bearer " + wrongAccount, http.StatusForbidden},
		{"valid", "Bearer " + valid, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestBearerTokenAuthSetsAccount(t *testing.T) {
	tokens := services.NewTokenService("secret", "gateway-client", 60*time.Second)
	r := testRouter(tokens)

	token, err := tokens.Issue("gateway-client")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"account":"gateway-client"`)
}
