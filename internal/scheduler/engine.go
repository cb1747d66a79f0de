// Package scheduler owns the two long-running loops: poll discovers new refs
// and pushes them through claim -> fetch -> price -> notify; cleanup
// periodically reconciles the claim ledger against a full snapshot of both
// sources. A bad cycle is logged and the next one runs on schedule.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/besra/killfeed/internal/archive"
	"github.com/besra/killfeed/internal/esi"
	"github.com/besra/killfeed/internal/index"
	"github.com/besra/killfeed/internal/killmail"
	"github.com/besra/killfeed/internal/metrics"
	"github.com/besra/killfeed/internal/notify"
	"github.com/besra/killfeed/internal/prices"
	"github.com/besra/killfeed/internal/zkb"
)

// Deps are the collaborators the engine composes. Merger, Secondary,
// Websocket and Archive are optional.
type Deps struct {
	ESI       *esi.Client
	Index     index.Index
	Pricing   *prices.Service
	Notifier  notify.Notifier
	Merger    *zkb.Merger
	Secondary *zkb.Client
	Websocket *zkb.Listener
	Archive   *archive.Archive
}

type Config struct {
	CorporationID   int64
	PollInterval    time.Duration
	CleanupInterval time.Duration
	SecondaryPages  int
}

type Engine struct {
	cfg  Config
	deps Deps

	mu   sync.Mutex
	etag string
}

func New(cfg Config, deps Deps) *Engine {
	return &Engine{cfg: cfg, deps: deps}
}

// Run starts both loops (and the websocket listener when configured) and
// blocks until the context ends. An in-flight cycle finishes its current
// HTTP call rather than aborting mid-claim.
func (e *Engine) Run(ctx context.Context) {
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		e.loop(ctx, "poll", e.cfg.PollInterval, e.pollCycle)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		e.loop(ctx, "cleanup", e.cfg.CleanupInterval, e.cleanupCycle)
	}()

	if e.deps.Websocket != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.deps.Websocket.Run(ctx, e.deps.Index, func(ctx context.Context, ref killmail.Ref) error {
				return e.processRef(ctx, ref, "ws")
			})
		}()
	}

	wg.Wait()
}

// loop runs fn immediately, then on every tick. Cycle errors are logged and
// never terminate the loop.
func (e *Engine) loop(ctx context.Context, name string, interval time.Duration, fn func(context.Context) error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := fn(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Str("loop", name).Msg("Cycle failed")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (e *Engine) pollCycle(ctx context.Context) error {
	cycle := uuid.NewString()[:8]

	e.mu.Lock()
	etag := e.etag
	e.mu.Unlock()

	res, err := e.deps.ESI.FetchRecentKillmails(ctx, e.cfg.CorporationID, etag, false)
	if err != nil {
		metrics.PollCycles.WithLabelValues("error").Inc()
		if esi.IsAuth(err) {
			log.Error().Err(err).Str("cycle", cycle).Msg("Authentication failed, will retry next cycle")
			return nil
		}
		return err
	}

	if res.ETag != "" {
		e.mu.Lock()
		e.etag = res.ETag
		e.mu.Unlock()
	}

	if res.NotModified {
		metrics.PollCycles.WithLabelValues("not_modified").Inc()
		log.Debug().Str("cycle", cycle).Msg("Recent killmails unchanged")
	} else {
		metrics.PollCycles.WithLabelValues("ok").Inc()
		log.Debug().Str("cycle", cycle).Int("refs", len(res.Refs)).Msg("Recent killmails fetched")

		// refs are processed in the order the source returns them,
		// newest first; one ref's failure never blocks the rest
		for _, ref := range res.Refs {
			claimed, err := e.deps.Index.Claim(ctx, ref.ID, ref.Hash)
			if err != nil {
				metrics.ProcessErrors.WithLabelValues("claim").Inc()
				log.Error().Err(err).Str("cycle", cycle).Int64("killmail_id", ref.ID).Msg("Claim failed")
				continue
			}
			if !claimed {
				metrics.ClaimsLost.Inc()
				continue
			}
			metrics.ClaimsWon.Inc()
			if err := e.processRef(ctx, ref, "esi"); err != nil {
				log.Error().Err(err).Str("cycle", cycle).Int64("killmail_id", ref.ID).Msg("Processing failed")
			}
		}
	}

	// secondary feed runs on its cadence after every successful poll cycle,
	// a 304 included
	if e.deps.Merger != nil {
		if err := e.deps.Merger.RunAfterPoll(ctx, e.deps.Index, func(ctx context.Context, ref killmail.Ref) error {
			metrics.ClaimsWon.Inc()
			return e.processRef(ctx, ref, "zkb")
		}); err != nil {
			log.Error().Err(err).Str("cycle", cycle).Msg("Secondary merge failed")
		}
	}
	return nil
}

// cleanupCycle rewrites the ledger to the union of what both sources still
// show. An empty union is treated as a failed snapshot, never as permission
// to wipe the ledger.
func (e *Engine) cleanupCycle(ctx context.Context) error {
	res, err := e.deps.ESI.FetchRecentKillmails(ctx, e.cfg.CorporationID, "", true)
	if err != nil {
		return err
	}

	current := make(map[index.Key]struct{}, len(res.Refs))
	for _, ref := range res.Refs {
		current[index.Key{ID: ref.ID, Hash: ref.Hash}] = struct{}{}
	}

	if e.deps.Secondary != nil {
		refs, err := e.deps.Secondary.FetchCorporationRefs(ctx, e.cfg.CorporationID, e.cfg.SecondaryPages)
		if err != nil {
			log.Warn().Err(err).Msg("Secondary snapshot failed, reconciling with primary only")
		} else {
			for _, ref := range refs {
				current[index.Key{ID: ref.ID, Hash: ref.Hash}] = struct{}{}
			}
		}
	}

	if len(current) == 0 {
		log.Warn().Msg("Empty snapshot union, skipping reconciliation")
		return nil
	}

	before, err := e.deps.Index.Snapshot(ctx)
	if err != nil {
		return err
	}
	if err := e.deps.Index.Reconcile(ctx, current); err != nil {
		return err
	}
	after, err := e.deps.Index.Snapshot(ctx)
	if err != nil {
		return err
	}

	metrics.CleanupRuns.Inc()
	if pruned := len(before) - len(after); pruned > 0 {
		metrics.ReconcilePruned.Add(float64(pruned))
	}
	return nil
}
