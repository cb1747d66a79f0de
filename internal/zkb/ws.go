package zkb

import (
	"context"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const DefaultWebsocketURL = "wss://zkillboard.com/websocket/"

// Listener subscribes to the secondary feed's push channel for the
// corporation and hands every ref to the same claim-then-process pipeline
// the pollers use. Losing the connection is routine; it reconnects with
// capped backoff until the context ends.
type Listener struct {
	url           string
	corporationID int64
}

func NewListener(url string, corporationID int64) *Listener {
	if url == "" {
		url = DefaultWebsocketURL
	}
	return &Listener{url: url, corporationID: corporationID}
}

func (l *Listener) Run(ctx context.Context, claims Claimer, process ProcessFunc) {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return
		}
		if err := l.listenOnce(ctx, claims, process); err != nil && ctx.Err() == nil {
			log.Warn().Err(err).Dur("backoff", backoff).Msg("Websocket feed dropped, reconnecting")
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		if backoff < 2*time.Minute {
			backoff *= 2
		}
	}
}

func (l *Listener) listenOnce(ctx context.Context, claims Claimer, process ProcessFunc) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, l.url, nil)
	if err != nil {
		return fmt.Errorf("dial websocket: %w", err)
	}
	defer conn.Close()

	sub := map[string]string{
		"action":  "sub",
		"channel": fmt.Sprintf("corporation:%d", l.corporationID),
	}
	if err := conn.WriteJSON(sub); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	log.Info().Int64("corporation_id", l.corporationID).Msg("Websocket feed subscribed")

	// unblock ReadJSON when the context ends
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		var msg entry
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		ref, ok := msg.ref()
		if !ok {
			continue
		}
		claimed, err := claims.Claim(ctx, ref.ID, ref.Hash)
		if err != nil {
			log.Error().Err(err).Int64("killmail_id", ref.ID).Msg("Claim failed for websocket ref")
			continue
		}
		if !claimed {
			continue
		}
		if err := process(ctx, ref); err != nil {
			log.Error().Err(err).Int64("killmail_id", ref.ID).Msg("Processing failed for websocket ref")
		}
	}
}
