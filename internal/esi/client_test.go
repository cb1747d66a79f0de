package esi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCreds = Credentials{
	ClientID:     "client-id",
	ClientSecret: "client-secret",
	RefreshToken: "refresh-token",
}

// newLoginServer answers the token exchange and counts how often it is hit.
func newLoginServer(t *testing.T, expiresIn int, exchanges *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v2/oauth/token", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.Form.Get("grant_type"))
		assert.Equal(t, "refresh-token", r.Form.Get("refresh_token"))
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "client-id", user)
		assert.Equal(t, "client-secret", pass)

		atomic.AddInt32(exchanges, 1)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "token-abc",
			"expires_in":   expiresIn,
		})
	}))
}

func newTestClient(t *testing.T, api http.Handler, opts ...Option) (*Client, *int32) {
	t.Helper()
	var exchanges int32
	login := newLoginServer(t, 1200, &exchanges)
	t.Cleanup(login.Close)
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	all := append([]Option{WithBaseURL(srv.URL), WithLoginURL(login.URL)}, opts...)
	return NewClient(testCreds, all...), &exchanges
}

func TestEnsureToken_CachedUntilMargin(t *testing.T) {
	now := time.Unix(10000, 0)
	c, exchanges := newTestClient(t, http.NotFoundHandler(), WithClock(func() time.Time { return now }))

	tok, err := c.ensureToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "token-abc", tok)

	// well inside the lifetime: served from cache
	now = now.Add(10 * time.Minute)
	_, err = c.ensureToken(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(exchanges))

	// within 30s of expiry: exchanged again
	now = now.Add(10*time.Minute - 20*time.Second)
	_, err = c.ensureToken(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, atomic.LoadInt32(exchanges))
}

func TestEnsureToken_MissingCredentials(t *testing.T) {
	c := NewClient(Credentials{ClientID: "only-id"})
	_, err := c.ensureToken(context.Background())
	assert.ErrorIs(t, err, ErrMissingCredentials)
	assert.True(t, IsAuth(err))
}

func TestFetchRecentKillmails_ConditionalFetch(t *testing.T) {
	const etag = `W/"abc123"`
	var sawIfNoneMatch atomic.Value
	api := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawIfNoneMatch.Store(r.Header.Get("If-None-Match"))
		w.Header().Set("ETag", etag)
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Write([]byte(`[{"killmail_id":100,"killmail_hash":"h1"},{"killmail_id":101,"killmail_hash":"h2"}]`))
	})
	c, _ := newTestClient(t, api)

	res, err := c.FetchRecentKillmails(context.Background(), 42, "", false)
	require.NoError(t, err)
	assert.False(t, res.NotModified)
	assert.Equal(t, etag, res.ETag)
	require.Len(t, res.Refs, 2)
	assert.EqualValues(t, 100, res.Refs[0].ID)
	assert.Equal(t, "h1", res.Refs[0].Hash)

	res, err = c.FetchRecentKillmails(context.Background(), 42, etag, false)
	require.NoError(t, err)
	assert.True(t, res.NotModified)
	assert.Empty(t, res.Refs)

	// forceBody bypasses the conditional header entirely
	res, err = c.FetchRecentKillmails(context.Background(), 42, etag, true)
	require.NoError(t, err)
	assert.False(t, res.NotModified)
	assert.Equal(t, "", sawIfNoneMatch.Load())
	assert.Len(t, res.Refs, 2)
}

func TestFetchKillmail_StampsRef(t *testing.T) {
	api := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/killmails/555/deadbeef/", r.URL.Path)
		w.Write([]byte(`{"killmail_time":"2026-01-02T03:04:05Z","solar_system_id":30000142,"victim":{"ship_type_id":587}}`))
	})
	c, _ := newTestClient(t, api)

	km, err := c.FetchKillmail(context.Background(), 555, "deadbeef")
	require.NoError(t, err)
	assert.EqualValues(t, 555, km.ID)
	assert.Equal(t, "deadbeef", km.Hash)
	assert.EqualValues(t, 30000142, km.SolarSystemID)
}

func TestDo_ErrorTaxonomy(t *testing.T) {
	api := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/forbidden":
			w.WriteHeader(http.StatusForbidden)
		case "/missing":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusTeapot)
		}
	})
	c, _ := newTestClient(t, api)

	_, err := c.do(context.Background(), http.MethodGet, "/forbidden", nil, nil)
	assert.True(t, IsAuth(err))
	assert.False(t, IsNotFound(err))

	_, err = c.do(context.Background(), http.MethodGet, "/missing", nil, nil)
	assert.True(t, IsNotFound(err))
	assert.False(t, IsAuth(err))
}
