// Package prices converts item type ids into monetary values: a TTL-bounded
// persisted cache in front of the volume-weighted market history computation.
package prices

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/besra/killfeed/internal/store"
)

// Entry is one cached average price. Superseded in place on recompute,
// never explicitly deleted; staleness is checked on read.
type Entry struct {
	AvgPrice  float64   `json:"avg_price"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Cache is the persisted price map keyed by stringified type id. Reads
// behave as a miss once an entry is older than the TTL, so stale data is
// never returned silently.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	file    *store.JSONFile
	entries map[string]Entry
	now     func() time.Time
}

func NewCache(file *store.JSONFile, ttl time.Duration) (*Cache, error) {
	c := &Cache{
		ttl:     ttl,
		file:    file,
		entries: make(map[string]Entry),
		now:     time.Now,
	}
	if err := file.Load(&c.entries); err != nil {
		return nil, fmt.Errorf("load price cache: %w", err)
	}
	if c.entries == nil {
		c.entries = make(map[string]Entry)
	}
	return c, nil
}

// WithClock overrides the time source, for tests.
func (c *Cache) WithClock(now func() time.Time) *Cache {
	c.now = now
	return c
}

// Get returns the cached price iff the entry is within the TTL.
func (c *Cache) Get(typeID int64) (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key(typeID)]
	if !ok {
		return 0, false
	}
	if c.now().Sub(e.UpdatedAt) > c.ttl {
		return 0, false
	}
	return e.AvgPrice, true
}

// Set overwrites the entry with the current timestamp and persists the map.
// A failed write surfaces: the caller must not treat the price as cached.
func (c *Cache) Set(typeID int64, avgPrice float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key(typeID)] = Entry{AvgPrice: avgPrice, UpdatedAt: c.now()}
	if err := c.file.Save(c.entries); err != nil {
		return fmt.Errorf("persist price cache: %w", err)
	}
	return nil
}

// Len counts stored entries, fresh or stale.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func key(typeID int64) string { return strconv.FormatInt(typeID, 10) }
