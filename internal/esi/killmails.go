package esi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/besra/killfeed/internal/killmail"
)

// RecentResult is one conditional fetch of the recent-killmails page.
// NotModified means the supplied ETag still matches and Refs is empty.
type RecentResult struct {
	Refs        []killmail.Ref
	ETag        string
	NotModified bool
}

// FetchRecentKillmails lists the first page of recent killmail refs for the
// corporation. When etag is set and forceBody is false the fetch is
// conditional; a 304 comes back as NotModified with zero refs and no bytes
// parsed. forceBody bypasses the ETag for full snapshots.
func (c *Client) FetchRecentKillmails(ctx context.Context, corporationID int64, etag string, forceBody bool) (RecentResult, error) {
	path := fmt.Sprintf("/v1/corporations/%d/killmails/recent/?page=1", corporationID)

	headers := map[string]string{}
	if etag != "" && !forceBody {
		headers["If-None-Match"] = etag
	}

	resp, err := c.do(ctx, http.MethodGet, path, headers, nil)
	if err != nil {
		return RecentResult{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		return RecentResult{ETag: resp.Header.Get("ETag"), NotModified: true}, nil
	}

	var refs []killmail.Ref
	if err := json.NewDecoder(resp.Body).Decode(&refs); err != nil {
		return RecentResult{}, fmt.Errorf("parse recent killmails: %w", err)
	}
	return RecentResult{Refs: refs, ETag: resp.Header.Get("ETag")}, nil
}

// FetchKillmail retrieves the full record for one ref. The call waits on the
// detail-endpoint sliding window before going out; the hash acts as the
// access capability and is sent exactly as received.
func (c *Client) FetchKillmail(ctx context.Context, id int64, hash string) (*killmail.Killmail, error) {
	if err := c.detailWindow.Wait(ctx); err != nil {
		return nil, err
	}

	var km killmail.Killmail
	path := fmt.Sprintf("/v1/killmails/%d/%s/", id, hash)
	if err := c.getJSON(ctx, path, nil, &km); err != nil {
		return nil, err
	}
	km.ID = id
	km.Hash = hash
	return &km, nil
}
