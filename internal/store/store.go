// Package store is the pgx-backed persistence layer: locations, slots,
// watches, alerts, and the sync heartbeat. The pipeline appends through it;
// watch CRUD arrives concurrently from the API and CLI.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/courtwatch/courtwatch-data/internal/availability"
	"github.com/courtwatch/courtwatch-data/internal/db"
)

// Store provides all database operations over the shared pool.
type Store struct {
	pool *db.Pool
}

// New creates a Store.
func New(pool *db.Pool) *Store {
	return &Store{pool: pool}
}

// HealthCheck verifies the database is reachable.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.pool.HealthCheck(ctx)
}

// Status is the scraper heartbeat read by the status endpoint and CLI.
type Status struct {
	LastSuccessfulSync *time.Time
	LastError          string
	LastErrorAt        *time.Time
}

// naiveLocal strips the timezone from a local time, keeping the wall clock.
// Slot identity compares wall-clock local times, matching the uq_slot
// constraint on the timezone-free slot_time_local column.
func naiveLocal(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
}

// --------------------------------------------------------------------------
// Locations
// --------------------------------------------------------------------------

// UpsertLocations inserts locations on first sighting and refreshes display
// metadata on every pass. Empty incoming fields never clobber stored ones.
func (s *Store) UpsertLocations(ctx context.Context, locs []availability.LocationRecord) error {
	for _, l := range locs {
		_, err := s.pool.Exec(ctx, "upsert_location", l.ID, l.Name, l.Address, l.Timezone, l.ImageURL)
		if err != nil {
			return fmt.Errorf("upsert location %s: %w", l.ID, err)
		}
	}
	return nil
}

// Locations returns all known locations ordered by name.
func (s *Store) Locations(ctx context.Context) ([]availability.LocationRecord, error) {
	rows, err := s.pool.Query(ctx, "list_locations")
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	defer rows.Close()

	var locs []availability.LocationRecord
	for rows.Next() {
		var l availability.LocationRecord
		if err := rows.Scan(&l.ID, &l.Name, &l.Address, &l.Timezone, &l.ImageURL); err != nil {
			return nil, fmt.Errorf("scan location: %w", err)
		}
		locs = append(locs, l)
	}
	return locs, rows.Err()
}

// LocationExists reports whether a location id is known.
func (s *Store) LocationExists(ctx context.Context, id string) (bool, error) {
	var n int
	err := s.pool.QueryRow(ctx, "location_exists", id).Scan(&n)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("location exists: %w", err)
	}
	return true, nil
}

// --------------------------------------------------------------------------
// Slots — snapshot diff + persist
// --------------------------------------------------------------------------

// SyncSlots diffs the candidates against the stored identity keys and
// inserts the new ones, all inside one transaction. The snapshot read and
// the inserts commit together, so a later pass either sees every slot from
// this pass or none.
func (s *Store) SyncSlots(ctx context.Context, candidates []availability.SlotRecord) ([]availability.StoredSlot, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin sync: %w", err)
	}
	defer tx.Rollback(ctx)

	existing, err := existingKeys(ctx, tx)
	if err != nil {
		return nil, err
	}

	fresh := availability.Diff(candidates, existing)

	stored := make([]availability.StoredSlot, 0, len(fresh))
	for _, c := range fresh {
		var id int64
		err := tx.QueryRow(ctx, "insert_slot",
			c.LocationID, c.CourtID, c.CourtName, c.SportID,
			c.DurationMinutes, naiveLocal(c.StartLocal), c.StartUTC,
		).Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("insert slot %s/%s: %w", c.LocationID, c.CourtID, err)
		}
		stored = append(stored, availability.StoredSlot{ID: id, SlotRecord: c})
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit sync: %w", err)
	}
	return stored, nil
}

func existingKeys(ctx context.Context, tx pgx.Tx) (map[availability.SlotKey]struct{}, error) {
	rows, err := tx.Query(ctx, "existing_slot_keys")
	if err != nil {
		return nil, fmt.Errorf("snapshot slot keys: %w", err)
	}
	defer rows.Close()

	keys := make(map[availability.SlotKey]struct{})
	for rows.Next() {
		var locationID, courtID string
		var startLocal time.Time
		if err := rows.Scan(&locationID, &courtID, &startLocal); err != nil {
			return nil, fmt.Errorf("scan slot key: %w", err)
		}
		keys[availability.KeyOf(locationID, courtID, startLocal)] = struct{}{}
	}
	return keys, rows.Err()
}

// FutureSlots returns stored slots whose start has not yet passed, joined
// with location metadata, ordered by local start time.
func (s *Store) FutureSlots(ctx context.Context) ([]availability.StoredSlot, error) {
	rows, err := s.pool.Query(ctx, "future_slots")
	if err != nil {
		return nil, fmt.Errorf("future slots: %w", err)
	}
	defer rows.Close()

	var slots []availability.StoredSlot
	for rows.Next() {
		var sl availability.StoredSlot
		if err := rows.Scan(&sl.ID, &sl.LocationID, &sl.LocationName, &sl.Timezone,
			&sl.CourtID, &sl.CourtName, &sl.SportID, &sl.DurationMinutes,
			&sl.StartLocal, &sl.StartUTC); err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		slots = append(slots, sl)
	}
	return slots, rows.Err()
}

// --------------------------------------------------------------------------
// Watches
// --------------------------------------------------------------------------

func scanWatch(row pgx.Row) (availability.Watch, error) {
	var w availability.Watch
	var targetDate *time.Time
	err := row.Scan(&w.ID, &w.LocationID, &w.LocationName, &w.Label,
		&w.CourtQuery, &targetDate, &w.TimeFrom, &w.TimeTo,
		&w.Contact, &w.Notes, &w.Active,
		&w.TriggerCount, &w.LastTriggeredAt, &w.CreatedAt)
	if err != nil {
		return w, err
	}
	if targetDate != nil {
		w.TargetDate = targetDate.Format(availability.DateLayout)
	}
	return w, nil
}

func (s *Store) queryWatches(ctx context.Context, stmt string, args ...any) ([]availability.Watch, error) {
	rows, err := s.pool.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", stmt, err)
	}
	defer rows.Close()

	var watches []availability.Watch
	for rows.Next() {
		w, err := scanWatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan watch: %w", err)
		}
		watches = append(watches, w)
	}
	return watches, rows.Err()
}

// ActiveWatches returns the active watch set for a pass.
func (s *Store) ActiveWatches(ctx context.Context) ([]availability.Watch, error) {
	return s.queryWatches(ctx, "active_watches")
}

// Watches returns every watch, newest first.
func (s *Store) Watches(ctx context.Context) ([]availability.Watch, error) {
	return s.queryWatches(ctx, "list_watches")
}

// WatchByID returns a single watch. ErrNotFound when absent.
func (s *Store) WatchByID(ctx context.Context, id int64) (availability.Watch, error) {
	w, err := scanWatch(s.pool.QueryRow(ctx, "watch_by_id", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return w, ErrNotFound
	}
	if err != nil {
		return w, fmt.Errorf("watch by id: %w", err)
	}
	return w, nil
}

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// CreateWatch persists a new, active watch and returns it.
func (s *Store) CreateWatch(ctx context.Context, w availability.Watch) (availability.Watch, error) {
	var targetDate *time.Time
	if w.TargetDate != "" {
		t, err := time.Parse(availability.DateLayout, w.TargetDate)
		if err != nil {
			return availability.Watch{}, fmt.Errorf("parse target date: %w", err)
		}
		targetDate = &t
	}

	var id int64
	err := s.pool.QueryRow(ctx, "insert_watch",
		w.LocationID, w.Label, w.CourtQuery, targetDate,
		w.TimeFrom, w.TimeTo, w.Contact, w.Notes,
	).Scan(&id)
	if err != nil {
		return availability.Watch{}, fmt.Errorf("insert watch: %w", err)
	}
	return s.WatchByID(ctx, id)
}

// ToggleWatch flips a watch between active and paused.
func (s *Store) ToggleWatch(ctx context.Context, id int64) (availability.Watch, error) {
	var active bool
	err := s.pool.QueryRow(ctx, "toggle_watch", id).Scan(&active)
	if errors.Is(err, pgx.ErrNoRows) {
		return availability.Watch{}, ErrNotFound
	}
	if err != nil {
		return availability.Watch{}, fmt.Errorf("toggle watch: %w", err)
	}
	return s.WatchByID(ctx, id)
}

// DeleteWatch removes a watch and, via cascade, its alerts.
func (s *Store) DeleteWatch(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, "delete_watch", id)
	if err != nil {
		return fmt.Errorf("delete watch: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --------------------------------------------------------------------------
// Alerts
// --------------------------------------------------------------------------

// RecordAlert inserts an alert for the match. The uq_watch_slot constraint
// makes the insert race-free: a conflicting insert means the pair was
// already recorded and returns created=false with no error.
func (s *Store) RecordAlert(ctx context.Context, m availability.Match) (availability.Alert, bool, error) {
	slot := m.Slot
	alert := availability.Alert{
		WatchID:      m.Watch.ID,
		SlotID:       slot.ID,
		LocationID:   slot.LocationID,
		LocationName: slot.LocationName,
		Timezone:     slot.Timezone,
		CourtID:      slot.CourtID,
		CourtName:    slot.CourtName,
		StartLocal:   slot.StartLocal,
		StartUTC:     slot.StartUTC,
		WatchLabel:   m.Watch.Label,
	}

	err := s.pool.QueryRow(ctx, "insert_alert",
		m.Watch.ID, slot.ID, slot.LocationID, slot.CourtID, slot.CourtName,
		naiveLocal(slot.StartLocal), slot.StartUTC,
	).Scan(&alert.ID, &alert.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		// Already recorded in an earlier pass — expected, not an error.
		return availability.Alert{}, false, nil
	}
	if err != nil {
		return availability.Alert{}, false, fmt.Errorf("insert alert: %w", err)
	}

	// The alert is durable either way; a concurrently deleted watch just
	// loses its trigger counter.
	_, _ = s.pool.Exec(ctx, "bump_watch_trigger", m.Watch.ID)
	return alert, true, nil
}

// RecentAlerts returns recorded alerts, most recent first.
func (s *Store) RecentAlerts(ctx context.Context, limit int) ([]availability.Alert, error) {
	rows, err := s.pool.Query(ctx, "recent_alerts", limit)
	if err != nil {
		return nil, fmt.Errorf("recent alerts: %w", err)
	}
	defer rows.Close()

	var alerts []availability.Alert
	for rows.Next() {
		var a availability.Alert
		if err := rows.Scan(&a.ID, &a.WatchID, &a.SlotID, &a.LocationID,
			&a.LocationName, &a.Timezone, &a.CourtID, &a.CourtName,
			&a.StartLocal, &a.StartUTC, &a.CreatedAt, &a.WatchLabel); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

// --------------------------------------------------------------------------
// Heartbeat
// --------------------------------------------------------------------------

// MarkSyncSuccess records a successful pass and clears any previous error.
func (s *Store) MarkSyncSuccess(ctx context.Context, at time.Time) error {
	_, err := s.pool.Exec(ctx, "mark_sync_success", at)
	return err
}

// MarkSyncError records a failed pass without touching the success stamp.
func (s *Store) MarkSyncError(ctx context.Context, msg string, at time.Time) error {
	_, err := s.pool.Exec(ctx, "mark_sync_error", msg, at)
	return err
}

// SyncStatus returns the heartbeat record. A zero Status means no pass has
// run yet.
func (s *Store) SyncStatus(ctx context.Context) (Status, error) {
	var st Status
	var lastError *string
	err := s.pool.QueryRow(ctx, "get_status").Scan(&st.LastSuccessfulSync, &lastError, &st.LastErrorAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Status{}, nil
	}
	if err != nil {
		return Status{}, fmt.Errorf("sync status: %w", err)
	}
	if lastError != nil {
		st.LastError = *lastError
	}
	return st, nil
}
