package esi

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeightedAverage(t *testing.T) {
	cases := []struct {
		name string
		days []HistoryDay
		want float64
	}{
		{
			name: "empty series prices as zero",
			days: nil,
			want: 0,
		},
		{
			name: "single day",
			days: []HistoryDay{{Date: "2026-08-30", Average: 12.5, Volume: 10}},
			want: 12.5,
		},
		{
			name: "volume weighted",
			days: []HistoryDay{
				{Date: "2026-08-29", Average: 10, Volume: 300},
				{Date: "2026-08-30", Average: 20, Volume: 100},
			},
			want: 12.5,
		},
		{
			name: "zero volume days contribute nothing",
			days: []HistoryDay{
				{Date: "2026-08-29", Average: 10, Volume: 100},
				{Date: "2026-08-30", Average: 20, Volume: 0},
			},
			want: 10,
		},
		{
			name: "all zero volume falls back to most recent day",
			days: []HistoryDay{
				{Date: "2026-08-29", Average: 10, Volume: 0},
				{Date: "2026-08-30", Average: 20, Volume: 0},
			},
			want: 20,
		},
		{
			name: "window trims to trailing seven days",
			days: []HistoryDay{
				{Date: "2026-08-20", Average: 1000, Volume: 1000000},
				{Date: "2026-08-24", Average: 5, Volume: 100},
				{Date: "2026-08-25", Average: 5, Volume: 100},
				{Date: "2026-08-26", Average: 5, Volume: 100},
				{Date: "2026-08-27", Average: 5, Volume: 100},
				{Date: "2026-08-28", Average: 5, Volume: 100},
				{Date: "2026-08-29", Average: 5, Volume: 100},
				{Date: "2026-08-30", Average: 5, Volume: 100},
			},
			want: 5,
		},
		{
			name: "input order does not matter",
			days: []HistoryDay{
				{Date: "2026-08-30", Average: 20, Volume: 100},
				{Date: "2026-08-29", Average: 10, Volume: 300},
			},
			want: 12.5,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, WeightedAverage(tc.days), 1e-9)
		})
	}
}

func TestFetchTypePrice(t *testing.T) {
	api := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("type_id") {
		case "34":
			w.Write([]byte(`[{"date":"2026-08-29","average":4.0,"volume":100},{"date":"2026-08-30","average":6.0,"volume":100}]`))
		case "99":
			w.WriteHeader(http.StatusNotFound)
		case "98":
			w.WriteHeader(http.StatusBadRequest)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	})
	c, _ := newTestClient(t, api)

	price, err := c.FetchTypePrice(context.Background(), 10000002, 34)
	require.NoError(t, err)
	assert.InDelta(t, 5.0, price, 1e-9)

	// no market in the region: priced as zero, not an error
	price, err = c.FetchTypePrice(context.Background(), 10000002, 99)
	require.NoError(t, err)
	assert.Zero(t, price)

	price, err = c.FetchTypePrice(context.Background(), 10000002, 98)
	require.NoError(t, err)
	assert.Zero(t, price)
}
