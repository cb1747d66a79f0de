package prices

import (
	"context"

	"github.com/besra/killfeed/internal/killmail"
	"github.com/besra/killfeed/internal/metrics"
)

// Fetcher recomputes a price on cache miss. Satisfied by the upstream
// client's market history call.
type Fetcher func(ctx context.Context, typeID int64) (float64, error)

// Service is the read-through pricing surface the processing pipeline uses.
type Service struct {
	cache *Cache
	fetch Fetcher
}

func NewService(cache *Cache, fetch Fetcher) *Service {
	return &Service{cache: cache, fetch: fetch}
}

// Price resolves one type id, consulting the cache first.
func (s *Service) Price(ctx context.Context, typeID int64) (float64, error) {
	if v, ok := s.cache.Get(typeID); ok {
		metrics.PriceCacheHits.Inc()
		return v, nil
	}
	metrics.PriceCacheMisses.Inc()

	v, err := s.fetch(ctx, typeID)
	if err != nil {
		return 0, err
	}
	if err := s.cache.Set(typeID, v); err != nil {
		return 0, err
	}
	return v, nil
}

// KillmailValue totals the priced hull plus every victim item with a
// positive combined destroyed+dropped quantity.
func (s *Service) KillmailValue(ctx context.Context, km *killmail.Killmail) (float64, error) {
	total, err := s.Price(ctx, km.Victim.ShipTypeID)
	if err != nil {
		return 0, err
	}
	for _, item := range km.Victim.Items {
		qty := item.QuantityDestroyed + item.QuantityDropped
		if qty <= 0 {
			continue
		}
		unit, err := s.Price(ctx, item.ItemTypeID)
		if err != nil {
			return 0, err
		}
		total += float64(qty) * unit
	}
	return total, nil
}

// DroppedValue sums only the dropped-quantity contribution, excluding the
// hull and destroyed-only items. Reported alongside the total, never part
// of it.
func (s *Service) DroppedValue(ctx context.Context, km *killmail.Killmail) (float64, error) {
	var total float64
	for _, item := range km.Victim.Items {
		if item.QuantityDropped <= 0 {
			continue
		}
		unit, err := s.Price(ctx, item.ItemTypeID)
		if err != nil {
			return 0, err
		}
		total += float64(item.QuantityDropped) * unit
	}
	return total, nil
}
