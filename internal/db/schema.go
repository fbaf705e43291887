package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// schema is the full DDL, idempotent by construction. The UNIQUE
// constraints are load-bearing: uq_slot is the slot identity key and
// uq_watch_slot is the at-most-once alert guarantee.
const schema = `
CREATE TABLE IF NOT EXISTS locations (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	address     TEXT,
	timezone    TEXT,
	image_url   TEXT,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at  TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS slots (
	id               BIGSERIAL PRIMARY KEY,
	location_id      TEXT NOT NULL REFERENCES locations(id),
	court_id         TEXT NOT NULL,
	court_name       TEXT,
	sport_id         TEXT,
	duration_minutes INT,
	slot_time_local  TIMESTAMP NOT NULL,
	slot_time_utc    TIMESTAMPTZ NOT NULL,
	fetched_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CONSTRAINT uq_slot UNIQUE (location_id, court_id, slot_time_local)
);
CREATE INDEX IF NOT EXISTS idx_slots_location ON slots (location_id);
CREATE INDEX IF NOT EXISTS idx_slots_time_utc ON slots (slot_time_utc);

CREATE TABLE IF NOT EXISTS watches (
	id                BIGSERIAL PRIMARY KEY,
	location_id       TEXT NOT NULL REFERENCES locations(id),
	label             TEXT,
	court_query       TEXT,
	target_date       DATE,
	time_from         TEXT,
	time_to           TEXT,
	contact           TEXT,
	notes             TEXT,
	active            BOOLEAN NOT NULL DEFAULT TRUE,
	trigger_count     INT NOT NULL DEFAULT 0,
	last_triggered_at TIMESTAMPTZ,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at        TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_watches_location ON watches (location_id);

CREATE TABLE IF NOT EXISTS alerts (
	id              BIGSERIAL PRIMARY KEY,
	watch_id        BIGINT NOT NULL REFERENCES watches(id) ON DELETE CASCADE,
	slot_id         BIGINT NOT NULL REFERENCES slots(id) ON DELETE CASCADE,
	location_id     TEXT NOT NULL,
	court_id        TEXT NOT NULL,
	court_name      TEXT,
	slot_time_local TIMESTAMP NOT NULL,
	slot_time_utc   TIMESTAMPTZ NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CONSTRAINT uq_watch_slot UNIQUE (watch_id, slot_id)
);
CREATE INDEX IF NOT EXISTS idx_alerts_created ON alerts (created_at DESC);

CREATE TABLE IF NOT EXISTS system_status (
	id                   INT PRIMARY KEY,
	last_successful_sync TIMESTAMPTZ,
	last_error           TEXT,
	last_error_at        TIMESTAMPTZ
);
`

// EnsureSchema creates any missing tables. It runs on a dedicated plain
// connection before the pool exists, because the pool's prepared statements
// reference these tables at connect time.
func EnsureSchema(ctx context.Context, databaseURL string) error {
	conn, err := pgx.Connect(ctx, databaseURL)
	if err != nil {
		return fmt.Errorf("connect for schema: %w", err)
	}
	defer conn.Close(ctx)

	if _, err := conn.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
