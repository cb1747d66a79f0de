// Package archive appends every processed killmail to Postgres. The claim
// ledger is pruned by reconciliation; the archive is the durable record of
// what was actually posted. Optional — enabled only when DATABASE_URL is set.
package archive

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/besra/killfeed/internal/notify"
)

const schema = `
CREATE TABLE IF NOT EXISTS killmails (
	killmail_id   BIGINT      NOT NULL,
	killmail_hash TEXT        NOT NULL,
	occurred_at   TIMESTAMPTZ NOT NULL,
	is_kill       BOOLEAN     NOT NULL,
	system_name   TEXT        NOT NULL DEFAULT '',
	region_name   TEXT        NOT NULL DEFAULT '',
	ship_name     TEXT        NOT NULL DEFAULT '',
	victim_name   TEXT        NOT NULL DEFAULT '',
	total_value   DOUBLE PRECISION NOT NULL,
	dropped_value DOUBLE PRECISION NOT NULL,
	involved      INT         NOT NULL,
	source        TEXT        NOT NULL,
	archived_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (killmail_id, killmail_hash)
)`

type Archive struct {
	db *sqlx.DB
}

func Open(ctx context.Context, databaseURL string) (*Archive, error) {
	db, err := sqlx.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open archive database: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping archive database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure archive schema: %w", err)
	}
	return &Archive{db: db}, nil
}

func (a *Archive) Close() error { return a.db.Close() }

// Insert records one processed killmail. Conflicts are ignored: the claim
// index already guarantees at-most-once processing, so a duplicate here only
// happens when the ledger was rebuilt.
func (a *Archive) Insert(ctx context.Context, kill *notify.Kill) error {
	const q = `
		INSERT INTO killmails (
			killmail_id, killmail_hash, occurred_at, is_kill,
			system_name, region_name, ship_name, victim_name,
			total_value, dropped_value, involved, source
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		ON CONFLICT (killmail_id, killmail_hash) DO NOTHING`

	_, err := a.db.ExecContext(ctx, q,
		kill.ID, kill.Hash, kill.Time, kill.IsKill,
		kill.SystemName, kill.RegionName, kill.ShipName, kill.VictimName,
		kill.TotalValue, kill.DroppedValue, kill.Involved, kill.Source,
	)
	if err != nil {
		return fmt.Errorf("archive killmail %d: %w", kill.ID, err)
	}
	return nil
}
