package esi

import (
	"context"
	"fmt"
)

// Name is one resolved id from the batch names endpoint.
type Name struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

// ResolveNames maps ids to display names in one batch call. Zero and
// duplicate ids are dropped before the request.
func (c *Client) ResolveNames(ctx context.Context, ids []int64) (map[int64]string, error) {
	seen := make(map[int64]struct{}, len(ids))
	unique := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	if len(unique) == 0 {
		return map[int64]string{}, nil
	}

	var names []Name
	if err := c.postJSON(ctx, "/latest/universe/names/", unique, &names); err != nil {
		return nil, err
	}
	out := make(map[int64]string, len(names))
	for _, n := range names {
		out[n.ID] = n.Name
	}
	return out, nil
}

// RegionForSystem walks system -> constellation -> region. Returns 0 when
// the chain is incomplete; the labels this feeds are cosmetic.
func (c *Client) RegionForSystem(ctx context.Context, systemID int64) (int64, error) {
	var system struct {
		ConstellationID int64 `json:"constellation_id"`
	}
	if err := c.getJSON(ctx, fmt.Sprintf("/latest/universe/systems/%d/", systemID), nil, &system); err != nil {
		return 0, err
	}
	if system.ConstellationID == 0 {
		return 0, nil
	}

	var constellation struct {
		RegionID int64 `json:"region_id"`
	}
	if err := c.getJSON(ctx, fmt.Sprintf("/latest/universe/constellations/%d/", system.ConstellationID), nil, &constellation); err != nil {
		return 0, err
	}
	return constellation.RegionID, nil
}
