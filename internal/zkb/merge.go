package zkb

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/besra/killfeed/internal/killmail"
)

// ProcessFunc is the shared downstream pipeline: claim already won, fetch
// detail, price, notify. Identical for refs discovered by either source.
type ProcessFunc func(ctx context.Context, ref killmail.Ref) error

// Claimer is the admission gate; satisfied by the dedup index.
type Claimer interface {
	Claim(ctx context.Context, id int64, hash string) (bool, error)
}

// Merger runs the secondary feed once every N successful primary cycles so
// the supplement never doubles upstream load.
type Merger struct {
	client        *Client
	corporationID int64
	everyN        int
	pages         int

	mu      sync.Mutex
	counter uint64
}

func NewMerger(client *Client, corporationID int64, everyN, pages int) *Merger {
	if everyN < 1 {
		everyN = 1
	}
	if pages < 1 {
		pages = 1
	}
	return &Merger{client: client, corporationID: corporationID, everyN: everyN, pages: pages}
}

func (m *Merger) Pages() int { return m.pages }

// RunAfterPoll is invoked once per successful primary poll cycle. It bumps
// the cycle counter, returns immediately off-cadence, and otherwise pushes
// every normalized ref through claim-then-process. Per-ref failures are
// isolated; one bad ref never blocks the rest of the batch.
func (m *Merger) RunAfterPoll(ctx context.Context, claims Claimer, process ProcessFunc) error {
	m.mu.Lock()
	m.counter++
	due := m.counter%uint64(m.everyN) == 0
	m.mu.Unlock()
	if !due {
		return nil
	}

	refs, err := m.client.FetchCorporationRefs(ctx, m.corporationID, m.pages)
	if err != nil {
		return err
	}
	log.Debug().Int("refs", len(refs)).Msg("Secondary feed fetched")

	for _, ref := range refs {
		claimed, err := claims.Claim(ctx, ref.ID, ref.Hash)
		if err != nil {
			log.Error().Err(err).Int64("killmail_id", ref.ID).Msg("Claim failed for secondary ref")
			continue
		}
		if !claimed {
			continue
		}
		if err := process(ctx, ref); err != nil {
			log.Error().Err(err).Int64("killmail_id", ref.ID).Msg("Processing failed for secondary ref")
		}
	}
	return nil
}
