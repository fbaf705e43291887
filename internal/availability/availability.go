// Package availability implements the scrape pipeline: fetch the upstream
// batch, normalize it into canonical slot records, diff against stored
// state, evaluate watch rules against the genuinely new slots, and record
// alerts with at-most-once semantics per (watch, slot) pair.
//
// Pipeline: fetch → normalize → diff → match → record → notify.
// One pass is a single unit of work driven by the scheduler.
package availability

import (
	"fmt"
	"time"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	// slotTimeLayout is the wall-clock format Rec publishes slot times in.
	slotTimeLayout = "2006-01-02 15:04:05"

	// keyTimeLayout is the canonical rendering of a slot's local start used
	// inside identity keys.
	keyTimeLayout = "2006-01-02 15:04:05"

	// DateLayout and ClockLayout are the wire formats for watch fields.
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"

	defaultDurationMinutes = 60
)

// --------------------------------------------------------------------------
// Types
// --------------------------------------------------------------------------

// SlotKey is the identity of a slot across passes: same location, same
// court, same local start time means the same slot.
type SlotKey struct {
	LocationID string
	CourtID    string
	StartLocal string // keyTimeLayout, timezone-free wall clock
}

// LocationRecord is a location as observed in a scrape pass.
type LocationRecord struct {
	ID       string
	Name     string
	Address  string
	Timezone string
	ImageURL string
}

// SlotRecord is a canonical slot candidate produced by the normalizer.
// Location metadata is carried along for alert messages.
type SlotRecord struct {
	LocationID      string
	LocationName    string
	Timezone        string
	CourtID         string
	CourtName       string
	SportID         string
	DurationMinutes int
	StartLocal      time.Time // in the location's timezone
	StartUTC        time.Time
}

// Key returns the slot's identity key.
func (r SlotRecord) Key() SlotKey {
	return SlotKey{
		LocationID: r.LocationID,
		CourtID:    r.CourtID,
		StartLocal: r.StartLocal.Format(keyTimeLayout),
	}
}

// KeyOf builds an identity key from raw components. The store uses it to
// rebuild keys from persisted rows.
func KeyOf(locationID, courtID string, startLocal time.Time) SlotKey {
	return SlotKey{
		LocationID: locationID,
		CourtID:    courtID,
		StartLocal: startLocal.Format(keyTimeLayout),
	}
}

// DisplayName returns the court name, falling back to the court id.
func (r SlotRecord) DisplayName() string {
	if r.CourtName != "" {
		return r.CourtName
	}
	return r.CourtID
}

// StoredSlot is a slot record that has been persisted and assigned an id.
type StoredSlot struct {
	ID int64
	SlotRecord
}

// Watch is a user-defined alert rule. Optional fields use the zero value
// for "not set"; a watch with every optional field empty matches any slot
// at its location.
type Watch struct {
	ID              int64
	LocationID      string
	LocationName    string
	Label           string
	CourtQuery      string
	TargetDate      string // DateLayout, empty = any date
	TimeFrom        string // ClockLayout, empty = open lower bound
	TimeTo          string // ClockLayout, empty = open upper bound
	Contact         string
	Notes           string
	Active          bool
	TriggerCount    int
	LastTriggeredAt *time.Time
	CreatedAt       time.Time
}

// Alert is a durable record that a watch matched a slot. At most one exists
// per (watch id, slot id) pair.
type Alert struct {
	ID           int64
	WatchID      int64
	SlotID       int64
	LocationID   string
	LocationName string
	Timezone     string
	CourtID      string
	CourtName    string
	StartLocal   time.Time
	StartUTC     time.Time
	CreatedAt    time.Time
	WatchLabel   string
}

// Match pairs a watch with a new slot it matched.
type Match struct {
	Watch Watch
	Slot  StoredSlot
}

// NormalizeClock canonicalizes an "HH:MM" clock string to zero-padded form.
// time.Parse accepts one-digit hours ("9:00"), but the matcher compares
// clock strings lexically against zero-padded slot clocks, so every bound
// must be stored zero-padded.
func NormalizeClock(s string) (string, error) {
	t, err := time.Parse(ClockLayout, s)
	if err != nil {
		return "", err
	}
	return t.Format(ClockLayout), nil
}

// NormalizeDate canonicalizes a "YYYY-MM-DD" date string to zero-padded
// form, for the same reason as NormalizeClock: the matcher compares it
// against a formatted slot date.
func NormalizeDate(s string) (string, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return "", err
	}
	return t.Format(DateLayout), nil
}

// --------------------------------------------------------------------------
// Normalization report
// --------------------------------------------------------------------------

// SkipReason classifies why a raw record was dropped during normalization.
type SkipReason string

const (
	SkipBadTimestamp    SkipReason = "bad_timestamp"
	SkipWrongSport      SkipReason = "wrong_sport"
	SkipMissingCourtID  SkipReason = "missing_court_id"
	SkipMissingLocation SkipReason = "missing_location"
)

// Report counts what the normalizer produced and skipped in one pass.
// Skips are scoped to single records; they never fail the batch.
type Report struct {
	Locations  int
	Candidates int
	Skipped    map[SkipReason]int
}

func newReport() Report {
	return Report{Skipped: make(map[SkipReason]int)}
}

func (r *Report) skip(reason SkipReason) {
	r.Skipped[reason]++
}

// SkippedTotal returns the number of dropped records across all reasons.
func (r Report) SkippedTotal() int {
	total := 0
	for _, n := range r.Skipped {
		total += n
	}
	return total
}

// Summary returns a human-readable summary for logging.
func (r Report) Summary() string {
	return fmt.Sprintf("locations=%d candidates=%d skipped=%d",
		r.Locations, r.Candidates, r.SkippedTotal())
}
