package idoklad

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
)

// TokenCache holds the last-known-good access token for the whole process.
// No expiry is tracked locally; expiry is discovered reactively through a
// 401 response, which clears the cache and forces one re-authentication.
type TokenCache struct {
	mu    sync.Mutex
	token string
}

func NewTokenCache() *TokenCache {
	return &TokenCache{}
}

// Get returns the cached token, or "" when none is cached.
func (c *TokenCache) Get() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

func (c *TokenCache) Set(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// Clear drops the cached token so the next call re-authenticates.
func (c *TokenCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = ""
}

// fetchToken obtains a fresh access token using the OAuth2
// client-credentials grant.
func (cl *Client) fetchToken(ctx context.Context) (string, error) {
	form := url.Values{
		"scope":         {"idoklad_api"},
		"client_id":     {cl.cfg.ClientID},
		"client_secret": {cl.cfg.ClientSecret},
		"grant_type":    {"client_credentials"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cl.cfg.AuthURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := cl.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token request returned status %d", resp.StatusCode)
	}

	var body struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if body.AccessToken == "" {
		return "", fmt.Errorf("token response contained no access_token")
	}
	return body.AccessToken, nil
}

// token returns a cached token or fetches and caches a new one.
func (cl *Client) token(ctx context.Context) (string, error) {
	if t := cl.tokens.Get(); t != "" {
		return t, nil
	}
	t, err := cl.fetchToken(ctx)
	if err != nil {
		return "", err
	}
	cl.tokens.Set(t)
	return t, nil
}
