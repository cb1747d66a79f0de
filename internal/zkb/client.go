// Package zkb talks to the secondary killmail feed. It supplements the
// primary poll with records the primary misses; every ref it surfaces goes
// through the exact same claim-then-process pipeline.
package zkb

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/besra/killfeed/internal/httpclient"
	"github.com/besra/killfeed/internal/killmail"
)

const DefaultBaseURL = "https://zkillboard.com/api"

type Client struct {
	http    *httpclient.Client
	base    string
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

type Option func(*Client)

func WithBaseURL(u string) Option { return func(c *Client) { c.base = u } }
func WithHTTPClient(h *httpclient.Client) Option {
	return func(c *Client) { c.http = h }
}

func NewClient(opts ...Option) *Client {
	settings := gobreaker.Settings{Name: "zkb"}
	settings.Interval = 60 * time.Second
	settings.Timeout = 60 * time.Second
	settings.ReadyToTrip = func(counts gobreaker.Counts) bool {
		return counts.ConsecutiveFailures >= 3
	}

	c := &Client{
		http:    httpclient.New(httpclient.DefaultConfig()),
		base:    DefaultBaseURL,
		limiter: rate.NewLimiter(rate.Limit(1), 1),
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// entry tolerates the feed's field-name drift: the id appears as
// killmail_id or killID (any casing, which encoding/json matches
// case-insensitively) and the hash either at top level or under zkb.
type entry struct {
	KillmailID int64  `json:"killmail_id"`
	KillID     int64  `json:"killID"`
	Hash       string `json:"hash"`
	Zkb        struct {
		Hash string `json:"hash"`
	} `json:"zkb"`
}

func (e entry) ref() (killmail.Ref, bool) {
	id := e.KillmailID
	if id == 0 {
		id = e.KillID
	}
	hash := e.Zkb.Hash
	if hash == "" {
		hash = e.Hash
	}
	if id == 0 || hash == "" {
		return killmail.Ref{}, false
	}
	return killmail.Ref{ID: id, Hash: hash}, true
}

// FetchCorporationRefs pulls up to pages pages of the corporation feed and
// normalizes each row to a ref. A 404 or an empty page ends the walk early.
// The whole fetch runs behind the circuit breaker so a flapping secondary
// never stalls the primary path.
func (c *Client) FetchCorporationRefs(ctx context.Context, corporationID int64, pages int) ([]killmail.Ref, error) {
	if pages < 1 {
		pages = 1
	}

	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.fetchPages(ctx, corporationID, pages)
	})
	if err != nil {
		return nil, err
	}
	return out.([]killmail.Ref), nil
}

func (c *Client) fetchPages(ctx context.Context, corporationID int64, pages int) ([]killmail.Ref, error) {
	var refs []killmail.Ref
	for page := 1; page <= pages; page++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		url := fmt.Sprintf("%s/corporationID/%d/page/%d/", c.base, corporationID, page)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(ctx, req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode == http.StatusNotFound {
			resp.Body.Close()
			break
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("zkb: %s returned HTTP %d", url, resp.StatusCode)
		}

		var rows []entry
		err = json.NewDecoder(resp.Body).Decode(&rows)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("parse zkb page: %w", err)
		}
		if len(rows) == 0 {
			break
		}
		for _, e := range rows {
			if ref, ok := e.ref(); ok {
				refs = append(refs, ref)
			}
		}
	}
	return refs, nil
}
