// Package db provides a pgxpool-based connection pool with prepared
// statement registration, schema creation, and health checking.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/courtwatch/courtwatch-data/internal/config"
)

// Pool wraps pgxpool.Pool with application-specific helpers.
type Pool struct {
	*pgxpool.Pool
}

// New creates and validates a new connection pool.
func New(ctx context.Context, cfg *config.Config) (*Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolCfg.MinConns = int32(cfg.DBPoolMinConns)
	poolCfg.MaxConns = int32(cfg.DBPoolMaxConns)
	poolCfg.MaxConnLifetime = cfg.DBPoolMaxLife
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	// Register prepared statements on every new connection.
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return registerPreparedStatements(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	// Verify connectivity
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// HealthCheck runs a trivial query to verify the database is reachable.
func (p *Pool) HealthCheck(ctx context.Context) error {
	var n int
	return p.QueryRow(ctx, "health_check").Scan(&n)
}

// registerPreparedStatements registers all statements the pipeline, API,
// and CLI use. Prepared statements eliminate parse overhead on every pass.
func registerPreparedStatements(ctx context.Context, conn *pgx.Conn) error {
	stmts := map[string]string{
		// Health
		"health_check": "SELECT 1",

		// Locations
		"upsert_location": `
			INSERT INTO locations (id, name, address, timezone, image_url)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name,
				address = COALESCE(NULLIF(EXCLUDED.address, ''), locations.address),
				timezone = COALESCE(NULLIF(EXCLUDED.timezone, ''), locations.timezone),
				image_url = COALESCE(NULLIF(EXCLUDED.image_url, ''), locations.image_url),
				updated_at = NOW()`,
		"list_locations": `
			SELECT id, name, COALESCE(address, ''), COALESCE(timezone, ''), COALESCE(image_url, '')
			FROM locations ORDER BY name ASC`,
		"location_exists": "SELECT 1 FROM locations WHERE id = $1",

		// Slots
		"existing_slot_keys": "SELECT location_id, court_id, slot_time_local FROM slots",
		"insert_slot": `
			INSERT INTO slots (location_id, court_id, court_name, sport_id,
				duration_minutes, slot_time_local, slot_time_utc)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id`,
		"future_slots": `
			SELECT s.id, s.location_id, l.name, COALESCE(l.timezone, ''),
				s.court_id, COALESCE(s.court_name, ''), COALESCE(s.sport_id, ''),
				COALESCE(s.duration_minutes, 0), s.slot_time_local, s.slot_time_utc
			FROM slots s JOIN locations l ON l.id = s.location_id
			WHERE s.slot_time_utc >= NOW()
			ORDER BY s.slot_time_local ASC`,

		// Watches
		"active_watches": `
			SELECT w.id, w.location_id, l.name, COALESCE(w.label, ''),
				COALESCE(w.court_query, ''), w.target_date,
				COALESCE(w.time_from, ''), COALESCE(w.time_to, ''),
				COALESCE(w.contact, ''), COALESCE(w.notes, ''), w.active,
				w.trigger_count, w.last_triggered_at, w.created_at
			FROM watches w JOIN locations l ON l.id = w.location_id
			WHERE w.active = TRUE`,
		"list_watches": `
			SELECT w.id, w.location_id, l.name, COALESCE(w.label, ''),
				COALESCE(w.court_query, ''), w.target_date,
				COALESCE(w.time_from, ''), COALESCE(w.time_to, ''),
				COALESCE(w.contact, ''), COALESCE(w.notes, ''), w.active,
				w.trigger_count, w.last_triggered_at, w.created_at
			FROM watches w JOIN locations l ON l.id = w.location_id
			ORDER BY w.created_at DESC`,
		"watch_by_id": `
			SELECT w.id, w.location_id, l.name, COALESCE(w.label, ''),
				COALESCE(w.court_query, ''), w.target_date,
				COALESCE(w.time_from, ''), COALESCE(w.time_to, ''),
				COALESCE(w.contact, ''), COALESCE(w.notes, ''), w.active,
				w.trigger_count, w.last_triggered_at, w.created_at
			FROM watches w JOIN locations l ON l.id = w.location_id
			WHERE w.id = $1`,
		"insert_watch": `
			INSERT INTO watches (location_id, label, court_query, target_date,
				time_from, time_to, contact, notes, active)
			VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), $4,
				NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''), NULLIF($8, ''), TRUE)
			RETURNING id`,
		"toggle_watch": `
			UPDATE watches SET active = NOT active, updated_at = NOW()
			WHERE id = $1 RETURNING active`,
		"delete_watch": "DELETE FROM watches WHERE id = $1",
		"bump_watch_trigger": `
			UPDATE watches
			SET trigger_count = trigger_count + 1, last_triggered_at = NOW(), updated_at = NOW()
			WHERE id = $1`,

		// Alerts
		"insert_alert": `
			INSERT INTO alerts (watch_id, slot_id, location_id, court_id,
				court_name, slot_time_local, slot_time_utc)
			VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7)
			ON CONFLICT (watch_id, slot_id) DO NOTHING
			RETURNING id, created_at`,
		"recent_alerts": `
			SELECT a.id, a.watch_id, a.slot_id, a.location_id, l.name,
				COALESCE(l.timezone, ''), a.court_id, COALESCE(a.court_name, ''),
				a.slot_time_local, a.slot_time_utc, a.created_at,
				COALESCE(w.label, '')
			FROM alerts a
			JOIN locations l ON l.id = a.location_id
			LEFT JOIN watches w ON w.id = a.watch_id
			ORDER BY a.created_at DESC
			LIMIT $1`,

		// Heartbeat
		"mark_sync_success": `
			INSERT INTO system_status (id, last_successful_sync, last_error, last_error_at)
			VALUES (1, $1, NULL, NULL)
			ON CONFLICT (id) DO UPDATE SET
				last_successful_sync = EXCLUDED.last_successful_sync,
				last_error = NULL, last_error_at = NULL`,
		"mark_sync_error": `
			INSERT INTO system_status (id, last_error, last_error_at)
			VALUES (1, $1, $2)
			ON CONFLICT (id) DO UPDATE SET
				last_error = EXCLUDED.last_error,
				last_error_at = EXCLUDED.last_error_at`,
		"get_status": `
			SELECT last_successful_sync, last_error, last_error_at
			FROM system_status WHERE id = 1`,
	}

	for name, sql := range stmts {
		if _, err := conn.Prepare(ctx, name, sql); err != nil {
			return fmt.Errorf("prepare %q: %w", name, err)
		}
	}
	return nil
}
