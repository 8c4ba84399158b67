package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xamogh/casbin-test/config"
	"github.com/xamogh/casbin-test/services"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Port: 0},
		Auth: config.AuthConfig{
			SigningKey:     "test-secret",
			TrustedAccount: "gateway-client",
			TokenTTL:       60 * time.Second,
		},
	}
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	app, err := NewApp(testConfig())
	require.NoError(t, err)
	return app
}

func issueToken(t *testing.T, accountID string) string {
	t.Helper()
	tokens := services.NewTokenService("test-secret", "gateway-client", 60*time.Second)
	token, err := tokens.Issue(accountID)
	require.NoError(t, err)
	return token
}

func request(app *App, method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	app.Router().ServeHTTP(w, req)
	return w
}

func TestHealthNeedsNoAuth(t *testing.T) {
	app := newTestApp(t)

	w := request(app, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestAllOtherRoutesRequireAuth(t *testing.T) {
	app := newTestApp(t)

	routes := []struct{ method, path string }{
		{http.MethodGet, "/policies"},
		{http.MethodPost, "/policy"},
		{http.MethodPost, "/policies"},
		{http.MethodDelete, "/policy"},
		{http.MethodDelete, "/policies"},
		{http.MethodGet, "/policy"},
		{http.MethodDelete, "/filtered_policy"},
		{http.MethodPost, "/enforce"},
	}
	for _, rt := range routes {
		t.Run(rt.method+"_"+rt.path, func(t *testing.T) {
			w := request(app, rt.method, rt.path, "", nil)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestWrongAccountIsForbidden(t *testing.T) {
	app := newTestApp(t)
	token := issueToken(t, "intruder")

	w := request(app, http.MethodGet, "/policies", token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestUnmatchedRouteIs404(t *testing.T) {
	app := newTestApp(t)

	w := request(app, http.MethodGet, "/nope", "", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), `"error"`)
}

func TestAddEnforceRemoveRoundtrip(t *testing.T) {
	app := newTestApp(t)
	token := issueToken(t, "gateway-client")

	tuple := map[string]string{"sub": "alice", "obj": "doc1", "act": "read"}

	w := request(app, http.MethodPost, "/policy", token, tuple)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"added":true`)

	w = request(app, http.MethodPost, "/enforce", token, tuple)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"allowed":true`)

	w = request(app, http.MethodDelete, "/policy", token, tuple)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"removed":true`)

	w = request(app, http.MethodPost, "/enforce", token, tuple)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"allowed":false`)
}

func TestFilteredQueryAndDelete(t *testing.T) {
	app := newTestApp(t)
	token := issueToken(t, "gateway-client")

	w := request(app, http.MethodPost, "/policies", token, []map[string]string{
		{"sub": "alice", "obj": "doc1", "act": "read"},
		{"sub": "alice", "obj": "doc2", "act": "write"},
		{"sub": "bob", "obj": "doc1", "act": "read"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = request(app, http.MethodGet, "/policy?sub=alice", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Policies []map[string]string `json:"policies"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Policies, 2)

	w = request(app, http.MethodDelete, "/filtered_policy", token, map[string]any{
		"fieldIndex": 0,
		"sub":        "alice",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"removed":2`)

	w = request(app, http.MethodGet, "/policies", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Policies, 1)
}

func TestTokenEndpointDisabledByDefault(t *testing.T) {
	app := newTestApp(t)

	w := request(app, http.MethodPost, "/tokens/issue", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTokenEndpointWhenEnabled(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.EnableTokenEndpoint = true
	app, err := NewApp(cfg)
	require.NoError(t, err)

	w := request(app, http.MethodPost, "/tokens/issue", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)

	// the issued token works against protected routes
	w = request(app, http.MethodGet, "/policies", resp.Token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestServeReturnsOnListenFailure(t *testing.T) {
	// occupy a port so ListenAndServe fails immediately
	ln, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer ln.Close()

	cfg := testConfig()
	cfg.Server.Port = ln.Addr().(*net.TCPAddr).Port
	app, err := NewApp(cfg)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- app.Serve() }()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "http server error")
	case <-time.After(3 * time.Second):
		t.Fatal("Serve did not return after the listener failed to bind")
	}
}

func TestConcurrentEnforceRequests(t *testing.T) {
	app := newTestApp(t)
	token := issueToken(t, "gateway-client")

	var tuples []map[string]string
	for i := 0; i < 10; i++ {
		tuples = append(tuples, map[string]string{
			"sub": fmt.Sprintf("user-%d", i),
			"obj": fmt.Sprintf("doc-%d", i),
			"act": "read",
		})
	}
	w := request(app, http.MethodPost, "/policies", token, tuples)
	require.Equal(t, http.StatusOK, w.Code)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		for j := 0; j < 5; j++ {
			wg.Add(1)
			go func(tuple map[string]string) {
				defer wg.Done()
				w := request(app, http.MethodPost, "/enforce", token, tuple)
				assert.Equal(t, http.StatusOK, w.Code)
				assert.Contains(t, w.Body.String(), `"allowed":true`)
			}(tuples[i])
		}
	}
	wg.Wait()
}
