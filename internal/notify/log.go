package notify

import (
	"context"

	"github.com/rs/zerolog/log"
)

// LogNotifier writes each kill to the structured log instead of a chat
// channel. Used for dry runs and when no webhook is configured.
type LogNotifier struct{}

func (LogNotifier) Notify(ctx context.Context, kill *Kill) error {
	log.Info().
		Int64("killmail_id", kill.ID).
		Bool("is_kill", kill.IsKill).
		Str("victim", kill.VictimName).
		Str("ship", kill.ShipName).
		Str("system", kill.SystemName).
		Float64("total_value", kill.TotalValue).
		Float64("dropped_value", kill.DroppedValue).
		Int("involved", kill.Involved).
		Str("source", kill.Source).
		Msg("Killmail processed")
	return nil
}
