// Package provider is a thin client for the external auth provider's token
// endpoint. The provider owns credential issuance entirely; this service only
// exchanges one-time authorization codes for sessions during the OAuth
// redirect flow.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jtsaich/fda-search-sub000/internal/session"
)

// ErrExchangeFailed means the provider rejected the authorization code.
var ErrExchangeFailed = errors.New("provider: code exchange failed")

// Client calls the auth provider's REST API.
type Client struct {
	baseURL string
	anonKey string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// New constructs a Client. anonKey is the provider's publishable API key,
// sent with every request alongside the grant payload.
func New(baseURL, anonKey string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("provider: base URL is required")
	}
	if strings.TrimSpace(anonKey) == "" {
		return nil, errors.New("provider: anon key is required")
	}
	c := &Client{
		baseURL: baseURL,
		anonKey: anonKey,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"`
	ExpiresIn    int64  `json:"expires_in"`
	User         struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

// ExchangeCode trades a one-time authorization code for a session. Codes are
// single-use; a replayed code fails at the provider and surfaces as
// ErrExchangeFailed.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*session.Session, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrExchangeFailed
	}

	payload, err := json.Marshal(map[string]string{"auth_code": code})
	if err != nil {
		return nil, err
	}
	url := c.baseURL + "/auth/v1/token?grant_type=pkce"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.anonKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("provider: token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", ErrExchangeFailed, resp.StatusCode, bytes.TrimSpace(body))
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return nil, fmt.Errorf("%w: malformed response: %v", ErrExchangeFailed, err)
	}
	if tok.AccessToken == "" || tok.User.ID == "" {
		return nil, fmt.Errorf("%w: response missing credentials", ErrExchangeFailed)
	}

	expiresAt := tok.ExpiresAt
	if expiresAt == 0 && tok.ExpiresIn > 0 {
		expiresAt = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second).Unix()
	}
	return &session.Session{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		UserID:       tok.User.ID,
		ExpiresAt:    expiresAt,
	}, nil
}

// Email returns the address the provider associated with the exchanged code.
// Kept separate from ExchangeCode's session because the session payload never
// carries PII beyond the opaque user id.
func (c *Client) EmailForToken(ctx context.Context, accessToken string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("provider: user request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("provider: user request returned %d", resp.StatusCode)
	}

	var user struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return "", err
	}
	return user.Email, nil
}
