// Package httpclient wraps net/http with the retry policies every upstream
// call in the engine goes through: exponential backoff with jitter for
// transport errors and 5xx, and a separate Retry-After driven policy for 429.
// The two are distinct because 429 carries an authoritative wait hint while
// transport errors do not.
package httpclient

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

type Config struct {
	MaxConcurrency    int
	RequestTimeout    time.Duration
	MaxAttempts       int // transport errors and 5xx, total tries
	RateLimitAttempts int // 429 responses, total tries
	BackoffBase       time.Duration
	BackoffMax        time.Duration
	UserAgent         string
}

func DefaultConfig() Config {
	return Config{
		MaxConcurrency:    8,
		RequestTimeout:    15 * time.Second,
		MaxAttempts:       5,
		RateLimitAttempts: 3,
		BackoffBase:       500 * time.Millisecond,
		BackoffMax:        10 * time.Second,
		UserAgent:         "killfeed/1.0 (+https://github.com/besra/killfeed)",
	}
}

type Client struct {
	cfg       Config
	semaphore chan struct{}
	http      *http.Client

	// sleep is swapped out in tests to avoid real waits.
	sleep func(ctx context.Context, d time.Duration) error
}

func New(cfg Config) *Client {
	if cfg.MaxConcurrency < 1 {
		cfg.MaxConcurrency = 1
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.RateLimitAttempts < 1 {
		cfg.RateLimitAttempts = 1
	}
	return &Client{
		cfg:       cfg,
		semaphore: make(chan struct{}, cfg.MaxConcurrency),
		http:      &http.Client{Timeout: cfg.RequestTimeout},
		sleep:     sleepCtx,
	}
}

// Do issues the request, retrying per policy. On success or on a
// non-retryable status the response is returned with its body open; the
// caller owns closing it. Transport-level failure after all attempts returns
// the last error.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	select {
	case c.semaphore <- struct{}{}:
		defer func() { <-c.semaphore }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if c.cfg.UserAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	var lastErr error
	transportTries := 0
	throttledTries := 0

	for {
		attempt, err := c.cloneRequest(ctx, req)
		if err != nil {
			return nil, err
		}

		resp, err := c.http.Do(attempt)
		if err != nil {
			transportTries++
			lastErr = err
			if transportTries >= c.cfg.MaxAttempts {
				return nil, fmt.Errorf("giving up after %d attempts: %w", transportTries, lastErr)
			}
			backoff := c.backoff(transportTries)
			log.Debug().Err(err).
				Dur("backoff", backoff).
				Int("attempt", transportTries).
				Str("url", req.URL.String()).
				Msg("Transport error, retrying")
			if err := c.sleep(ctx, backoff); err != nil {
				return nil, err
			}
			continue
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			throttledTries++
			if throttledTries >= c.cfg.RateLimitAttempts {
				return resp, nil
			}
			wait := retryAfter(resp)
			resp.Body.Close()
			log.Debug().
				Dur("retry_after", wait).
				Int("attempt", throttledTries).
				Str("url", req.URL.String()).
				Msg("Rate limited upstream, honoring Retry-After")
			if err := c.sleep(ctx, wait); err != nil {
				return nil, err
			}
			continue

		case resp.StatusCode >= 500:
			transportTries++
			if transportTries >= c.cfg.MaxAttempts {
				return resp, nil
			}
			resp.Body.Close()
			backoff := c.backoff(transportTries)
			log.Debug().
				Int("status", resp.StatusCode).
				Dur("backoff", backoff).
				Int("attempt", transportTries).
				Str("url", req.URL.String()).
				Msg("Upstream 5xx, retrying")
			if err := c.sleep(ctx, backoff); err != nil {
				return nil, err
			}
			continue
		}

		return resp, nil
	}
}

func (c *Client) cloneRequest(ctx context.Context, req *http.Request) (*http.Request, error) {
	attempt := req.Clone(ctx)
	if req.Body != nil {
		if req.GetBody == nil {
			return nil, fmt.Errorf("request body is not replayable for %s %s", req.Method, req.URL)
		}
		body, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("replay request body: %w", err)
		}
		attempt.Body = body
	}
	return attempt, nil
}

func (c *Client) backoff(attempt int) time.Duration {
	backoff := c.cfg.BackoffBase * time.Duration(1<<uint(attempt-1))
	if backoff > c.cfg.BackoffMax {
		backoff = c.cfg.BackoffMax
	}
	// up to 10% jitter so synchronized callers spread out
	jitter := time.Duration(rand.Float64() * 0.1 * float64(backoff))
	return backoff + jitter
}

// retryAfter reads the server's wait hint, falling back to 60s plus a one
// second margin when the header is absent or unparsable.
func retryAfter(resp *http.Response) time.Duration {
	const fallback = 61 * time.Second
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return fallback
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
		return 0
	}
	return fallback
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
