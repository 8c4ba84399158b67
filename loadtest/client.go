package loadtest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/xamogh/casbin-test/models"
	"github.com/xamogh/casbin-test/services"
)

// Client is an authenticated gateway API client. It self-signs service
// tokens with the shared secret and re-issues them shortly before expiry,
// so long harness runs never send a stale token.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client

	tokens *services.TokenService

	mu          sync.Mutex
	cachedToken string
	tokenExpiry time.Time
}

func NewClient(baseURL, signingKey, accountID string) *Client {
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: http.DefaultClient,
		tokens:     services.NewTokenService(signingKey, accountID, 60*time.Second),
	}
}

func (c *Client) token() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// refresh with margin so an in-flight request never carries a token
	// that expires before the gateway verifies it
	if c.cachedToken != "" && time.Now().Add(10*time.Second).Before(c.tokenExpiry) {
		return c.cachedToken, nil
	}

	token, err := c.tokens.Issue(c.tokens.TrustedAccount)
	if err != nil {
		return "", err
	}
	c.cachedToken = token
	c.tokenExpiry = time.Now().Add(c.tokens.TTL)
	return token, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("parse gateway url: %w", err)
	}
	u.Path = path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var payload io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		payload = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), payload)
	if err != nil {
		return err
	}
	token, err := c.token()
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, raw)
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func (c *Client) AddPolicy(ctx context.Context, tuple models.PolicyTuple) (bool, error) {
	var resp struct {
		Added bool `json:"added"`
	}
	err := c.do(ctx, http.MethodPost, "/policy", nil, tuple, &resp)
	return resp.Added, err
}

func (c *Client) RemovePolicy(ctx context.Context, tuple models.PolicyTuple) (bool, error) {
	var resp struct {
		Removed bool `json:"removed"`
	}
	err := c.do(ctx, http.MethodDelete, "/policy", nil, tuple, &resp)
	return resp.Removed, err
}

func (c *Client) Enforce(ctx context.Context, tuple models.PolicyTuple) (bool, error) {
	var resp struct {
		Allowed bool `json:"allowed"`
	}
	err := c.do(ctx, http.MethodPost, "/enforce", nil, tuple, &resp)
	return resp.Allowed, err
}

var fieldNames = [3]string{"sub", "obj", "act"}

// GetFilteredPolicy queries with a single field value at the given tuple
// slot, the harness's single-value translator path.
func (c *Client) GetFilteredPolicy(ctx context.Context, fieldIndex int, value string) ([]models.PolicyTuple, error) {
	if fieldIndex < 0 || fieldIndex >= len(fieldNames) {
		return nil, fmt.Errorf("field index %d out of range", fieldIndex)
	}

	query := url.Values{}
	query.Set("fieldIndex", fmt.Sprintf("%d", fieldIndex))
	query.Set(fieldNames[fieldIndex], value)

	var resp struct {
		Policies []models.PolicyTuple `json:"policies"`
	}
	err := c.do(ctx, http.MethodGet, "/policy", query, nil, &resp)
	return resp.Policies, err
}
