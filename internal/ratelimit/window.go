// Package ratelimit implements the sliding-window limiter used for the
// killmail detail endpoint class: at most N requests within any rolling
// window, enforced proactively before the request is issued.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Clock abstracts time so tests can drive the window deterministically.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Window caps requests to limit per span. Unlike a token bucket, which
// refills continuously and can exceed the cap within a rolling window, this
// keeps the actual request timestamps and prunes them on every check.
type Window struct {
	mu     sync.Mutex
	clock  Clock
	limit  int
	span   time.Duration
	stamps []time.Time
}

func NewWindow(limit int, span time.Duration) *Window {
	return NewWindowWithClock(limit, span, realClock{})
}

func NewWindowWithClock(limit int, span time.Duration, clock Clock) *Window {
	if limit < 1 {
		limit = 1
	}
	return &Window{clock: clock, limit: limit, span: span}
}

// Wait blocks until a slot is free in the rolling window, then records the
// request timestamp. The lock is never held across the sleep: another task
// racing for the same slot simply re-checks after waking.
func (w *Window) Wait(ctx context.Context) error {
	for {
		w.mu.Lock()
		now := w.clock.Now()
		w.prune(now)
		if len(w.stamps) < w.limit {
			w.stamps = append(w.stamps, now)
			w.mu.Unlock()
			return nil
		}
		wait := w.span - now.Sub(w.stamps[0])
		w.mu.Unlock()

		if wait <= 0 {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.clock.After(wait):
		}
	}
}

// InFlight returns how many timestamps are currently inside the window.
func (w *Window) InFlight() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.prune(w.clock.Now())
	return len(w.stamps)
}

// caller must hold w.mu
func (w *Window) prune(now time.Time) {
	cut := 0
	for cut < len(w.stamps) && now.Sub(w.stamps[cut]) >= w.span {
		cut++
	}
	if cut > 0 {
		w.stamps = append(w.stamps[:0], w.stamps[cut:]...)
	}
}
