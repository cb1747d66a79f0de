package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/besra/killfeed/internal/httpclient"
)

func sampleKill() *Kill {
	return &Kill{
		ID:            123456,
		Hash:          "abc",
		Time:          time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
		IsKill:        true,
		SystemName:    "Jita",
		RegionName:    "The Forge",
		ShipName:      "Rifter",
		VictimName:    "Victim Pilot",
		FinalBlowName: "Hunter",
		FinalBlowShip: "Caracal",
		TotalValue:    1_500_000,
		DroppedValue:  250_000,
		Involved:      3,
		Source:        "esi",
	}
}

func TestWebhook_PostsEmbed(t *testing.T) {
	var got struct {
		Embeds []embed `json:"embeds"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	wh := NewWebhook(httpclient.New(httpclient.DefaultConfig()), srv.URL)
	require.NoError(t, wh.Notify(context.Background(), sampleKill()))

	require.Len(t, got.Embeds, 1)
	e := got.Embeds[0]
	assert.Equal(t, "Kill: Victim Pilot (Rifter)", e.Title)
	assert.Equal(t, "https://zkillboard.com/kill/123456/", e.URL)
	assert.Equal(t, colorKill, e.Color)
	assert.Equal(t, "2026-08-30T12:00:00Z", e.Timestamp)

	fields := map[string]string{}
	for _, f := range e.Fields {
		fields[f.Name] = f.Value
	}
	assert.Equal(t, "Jita (The Forge)", fields["System"])
	assert.Equal(t, "1.50m ISK", fields["Total Value"])
	assert.Equal(t, "250.0k ISK", fields["Dropped"])
	assert.Equal(t, "3", fields["Involved"])
	assert.Equal(t, "Hunter (Caracal)", fields["Final Blow"])
}

func TestWebhook_LossColorAndCorpFallback(t *testing.T) {
	kill := sampleKill()
	kill.IsKill = false
	kill.VictimName = ""
	kill.VictimCorp = "Victim Corp"

	e := buildEmbed(kill)
	assert.Equal(t, "Loss: Victim Corp (Rifter)", e.Title)
	assert.Equal(t, colorLoss, e.Color)
}

func TestWebhook_ErrorStatusSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	wh := NewWebhook(httpclient.New(httpclient.DefaultConfig()), srv.URL)
	err := wh.Notify(context.Background(), sampleKill())
	assert.ErrorContains(t, err, "HTTP 400")
}

func TestFormatISK(t *testing.T) {
	assert.Equal(t, "2.50b ISK", formatISK(2.5e9))
	assert.Equal(t, "1.25m ISK", formatISK(1.25e6))
	assert.Equal(t, "999.5k ISK", formatISK(999_500))
	assert.Equal(t, "42 ISK", formatISK(42))
	assert.Equal(t, "0 ISK", formatISK(0))
}
