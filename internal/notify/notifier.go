// Package notify is the downstream boundary: one call per newly processed
// killmail, carrying the enriched record. The engine neither knows nor cares
// how it is rendered.
package notify

import (
	"context"
	"time"
)

// Kill is the enriched notification payload. Name fields fall back to empty
// strings when resolution failed; the values are in ISK.
type Kill struct {
	ID     int64
	Hash   string
	Time   time.Time
	IsKill bool // any attacker belongs to the tracked corporation

	SystemName string
	RegionName string
	ShipName   string

	VictimName     string
	VictimCorp     string
	VictimAlliance string

	FinalBlowName     string
	FinalBlowCorp     string
	FinalBlowAlliance string
	FinalBlowShip     string

	TotalValue   float64
	DroppedValue float64
	Involved     int

	Source string // which feed discovered the ref
}

type Notifier interface {
	Notify(ctx context.Context, kill *Kill) error
}
