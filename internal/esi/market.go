package esi

import (
	"context"
	"fmt"
	"sort"
)

// pricingWindowDays bounds the trailing window of daily records used for the
// volume-weighted average.
const pricingWindowDays = 7

// HistoryDay is one daily market record for a type in a region.
type HistoryDay struct {
	Date    string  `json:"date"`
	Average float64 `json:"average"`
	Volume  float64 `json:"volume"`
	Highest float64 `json:"highest"`
	Lowest  float64 `json:"lowest"`
}

// FetchTypePrice computes the volume-weighted average price for a type from
// the region's daily market history. A 400/404 from the history endpoint
// means the type has no market in the region; that prices as 0 and the
// caller caches the zero, which is the desired behavior for unpriceable
// items.
func (c *Client) FetchTypePrice(ctx context.Context, regionID, typeID int64) (float64, error) {
	if err := c.marketLimiter.Wait(ctx); err != nil {
		return 0, err
	}

	var days []HistoryDay
	path := fmt.Sprintf("/latest/markets/%d/history/?type_id=%d", regionID, typeID)
	if err := c.getJSON(ctx, path, nil, &days); err != nil {
		if IsNotFound(err) || isBadRequest(err) {
			return 0, nil
		}
		return 0, err
	}
	return WeightedAverage(days), nil
}

// WeightedAverage computes sum(average*volume)/sum(volume) over the trailing
// window of up to 7 most recent days. Zero-volume days contribute nothing to
// either side; if the total volume is zero the most recent day's average is
// used, and an empty series prices as 0.
func WeightedAverage(days []HistoryDay) float64 {
	if len(days) == 0 {
		return 0
	}

	sorted := make([]HistoryDay, len(days))
	copy(sorted, days)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date < sorted[j].Date })

	window := sorted
	if len(window) > pricingWindowDays {
		window = window[len(window)-pricingWindowDays:]
	}

	var num, den float64
	for _, d := range window {
		num += d.Average * d.Volume
		den += d.Volume
	}
	if den > 0 {
		return num / den
	}
	return window[len(window)-1].Average
}

func isBadRequest(err error) bool {
	se, ok := asStatusError(err)
	return ok && se.StatusCode == 400
}
