// Package metrics exposes the engine's Prometheus collectors. Everything
// registers on the default registry and is served by the ops endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	KillsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "killfeed_kills_processed_total",
		Help: "Killmails fully processed and handed to the notifier, by discovering source.",
	}, []string{"source"})

	ClaimsWon = promauto.NewCounter(prometheus.CounterOpts{
		Name: "killfeed_claims_won_total",
		Help: "Refs claimed for processing.",
	})

	ClaimsLost = promauto.NewCounter(prometheus.CounterOpts{
		Name: "killfeed_claims_lost_total",
		Help: "Refs already claimed by an earlier cycle or the other source.",
	})

	PollCycles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "killfeed_poll_cycles_total",
		Help: "Poll cycles by outcome.",
	}, []string{"outcome"})

	CleanupRuns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "killfeed_cleanup_runs_total",
		Help: "Reconciliation passes completed.",
	})

	ReconcilePruned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "killfeed_reconcile_pruned_total",
		Help: "Ledger entries pruned because they left the upstream snapshot.",
	})

	PriceCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "killfeed_price_cache_hits_total",
		Help: "Price lookups served from the TTL cache.",
	})

	PriceCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "killfeed_price_cache_misses_total",
		Help: "Price lookups that had to recompute from market history.",
	})

	NotifyErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "killfeed_notify_errors_total",
		Help: "Downstream notification attempts that failed.",
	})

	ProcessErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "killfeed_process_errors_total",
		Help: "Per-ref pipeline failures by stage.",
	}, []string{"stage"})
)
