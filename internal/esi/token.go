package esi

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// expiryMargin keeps us from presenting a token that expires mid-request.
const expiryMargin = 30 * time.Second

// accessToken is process-local, in-memory only, owned by the Client.
type accessToken struct {
	value    string
	expireAt time.Time
}

func (t accessToken) valid(now time.Time) bool {
	return t.value != "" && now.Before(t.expireAt.Add(-expiryMargin))
}

// ensureToken returns a usable bearer token, exchanging the refresh token
// when the cached one is absent or within the expiry margin. Exchange
// failure leaves the cache empty so the next call retries the exchange.
func (c *Client) ensureToken(ctx context.Context) (string, error) {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()

	if c.token.valid(c.now()) {
		return c.token.value, nil
	}
	c.token = accessToken{}

	if c.creds.RefreshToken == "" || c.creds.ClientID == "" || c.creds.ClientSecret == "" {
		return "", ErrMissingCredentials
	}

	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {c.creds.RefreshToken},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.loginBase+"/v2/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	basic := base64.StdEncoding.EncodeToString([]byte(c.creds.ClientID + ":" + c.creds.ClientSecret))
	req.Header.Set("Authorization", "Basic "+basic)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return "", fmt.Errorf("token exchange: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{StatusCode: resp.StatusCode, URL: c.loginBase + "/v2/oauth/token"}
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if payload.AccessToken == "" {
		return "", fmt.Errorf("token response carried no access_token")
	}
	expiresIn := payload.ExpiresIn
	if expiresIn < 30 {
		expiresIn = 30
	}
	c.token = accessToken{
		value:    payload.AccessToken,
		expireAt: c.now().Add(time.Duration(expiresIn) * time.Second),
	}
	return c.token.value, nil
}
