package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/besra/killfeed/internal/httpclient"
)

const (
	colorKill = 0x2ecc71
	colorLoss = 0xe74c3c
)

// Webhook posts one embed per killmail to a Discord-compatible webhook URL,
// going through the shared retrying HTTP layer.
type Webhook struct {
	http *httpclient.Client
	url  string
}

func NewWebhook(client *httpclient.Client, url string) *Webhook {
	return &Webhook{http: client, url: url}
}

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type embed struct {
	Title     string       `json:"title"`
	URL       string       `json:"url,omitempty"`
	Color     int          `json:"color"`
	Timestamp string       `json:"timestamp"`
	Fields    []embedField `json:"fields"`
}

func (w *Webhook) Notify(ctx context.Context, kill *Kill) error {
	payload := struct {
		Embeds []embed `json:"embeds"`
	}{Embeds: []embed{buildEmbed(kill)}}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.http.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}

func buildEmbed(kill *Kill) embed {
	verb := "Loss"
	color := colorLoss
	if kill.IsKill {
		verb = "Kill"
		color = colorKill
	}

	victim := kill.VictimName
	if victim == "" {
		victim = kill.VictimCorp
	}

	e := embed{
		Title:     fmt.Sprintf("%s: %s (%s)", verb, victim, kill.ShipName),
		URL:       fmt.Sprintf("https://zkillboard.com/kill/%d/", kill.ID),
		Color:     color,
		Timestamp: kill.Time.UTC().Format("2006-01-02T15:04:05Z"),
		Fields: []embedField{
			{Name: "System", Value: fmt.Sprintf("%s (%s)", kill.SystemName, kill.RegionName), Inline: true},
			{Name: "Total Value", Value: formatISK(kill.TotalValue), Inline: true},
			{Name: "Dropped", Value: formatISK(kill.DroppedValue), Inline: true},
			{Name: "Involved", Value: fmt.Sprintf("%d", kill.Involved), Inline: true},
		},
	}
	if kill.FinalBlowName != "" {
		fb := kill.FinalBlowName
		if kill.FinalBlowShip != "" {
			fb += " (" + kill.FinalBlowShip + ")"
		}
		e.Fields = append(e.Fields, embedField{Name: "Final Blow", Value: fb, Inline: true})
	}
	return e
}

func formatISK(v float64) string {
	switch {
	case v >= 1e9:
		return fmt.Sprintf("%.2fb ISK", v/1e9)
	case v >= 1e6:
		return fmt.Sprintf("%.2fm ISK", v/1e6)
	case v >= 1e3:
		return fmt.Sprintf("%.1fk ISK", v/1e3)
	default:
		return fmt.Sprintf("%.0f ISK", v)
	}
}
