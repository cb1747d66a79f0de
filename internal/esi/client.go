// Package esi is the rate-limited client for the primary upstream API.
// Three policies compose here: the auth token lifecycle, the sliding-window
// limiter on the killmail detail endpoint class, and the retry/backoff stack
// in internal/httpclient underneath everything.
package esi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/besra/killfeed/internal/httpclient"
	"github.com/besra/killfeed/internal/ratelimit"
)

const (
	DefaultBaseURL  = "https://esi.evetech.net"
	DefaultLoginURL = "https://login.eveonline.com"

	// detail endpoint class: at most 3 requests per rolling second
	detailWindowLimit = 3
	detailWindowSpan  = time.Second
)

type Credentials struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
}

type Client struct {
	http       *httpclient.Client
	base       string
	loginBase  string
	compatDate string
	creds      Credentials
	now        func() time.Time

	tokenMu sync.Mutex
	token   accessToken

	detailWindow  *ratelimit.Window
	marketLimiter *rate.Limiter
}

type Option func(*Client)

func WithBaseURL(u string) Option      { return func(c *Client) { c.base = u } }
func WithLoginURL(u string) Option     { return func(c *Client) { c.loginBase = u } }
func WithCompatDate(d string) Option   { return func(c *Client) { c.compatDate = d } }
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}
func WithHTTPClient(h *httpclient.Client) Option {
	return func(c *Client) { c.http = h }
}
func WithDetailWindow(w *ratelimit.Window) Option {
	return func(c *Client) { c.detailWindow = w }
}

func NewClient(creds Credentials, opts ...Option) *Client {
	c := &Client{
		http:      httpclient.New(httpclient.DefaultConfig()),
		base:      DefaultBaseURL,
		loginBase: DefaultLoginURL,
		creds:     creds,
		now:       time.Now,
		// market history is not under the detail window; a token bucket
		// keeps us polite without serializing cache warm-up
		marketLimiter: rate.NewLimiter(rate.Limit(5), 5),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.detailWindow == nil {
		c.detailWindow = ratelimit.NewWindow(detailWindowLimit, detailWindowSpan)
	}
	return c
}

// do issues an authenticated request against the API base and maps any
// non-2xx status (other than 304, which the caller handles) to a StatusError.
func (c *Client) do(ctx context.Context, method, path string, headers map[string]string, body []byte) (*http.Response, error) {
	token, err := c.ensureToken(ctx)
	if err != nil {
		return nil, err
	}

	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Language", "en")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.compatDate != "" {
		req.Header.Set("X-Compatibility-Date", c.compatDate)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		resp.Body.Close()
		return nil, &StatusError{StatusCode: resp.StatusCode, URL: c.base + path}
	}
	return resp, nil
}

func (c *Client) getJSON(ctx context.Context, path string, headers map[string]string, out interface{}) error {
	resp, err := c.do(ctx, http.MethodGet, path, headers, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("parse %s response: %w", path, err)
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, path string, in, out interface{}) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", path, err)
	}
	resp, err := c.do(ctx, http.MethodPost, path, nil, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("parse %s response: %w", path, err)
	}
	return nil
}
