package availability

import (
	"testing"

	"github.com/courtwatch/courtwatch-data/internal/rec"
)

const testSportID = "sport-pickleball"

func testBatch() rec.Batch {
	return rec.Batch{
		{
			Location: rec.Location{
				ID:               "loc-1",
				Name:             "Riverside Courts",
				FormattedAddress: "100 River Rd",
				Timezone:         "America/Los_Angeles",
				Courts: []rec.Court{
					{
						ID:     "court-1",
						Name:   "Court 1",
						Sports: []rec.Sport{{SportID: testSportID}},
						Durations: rec.Durations{
							Minutes: []int{30, 60, 90},
						},
						AvailableSlots: []string{
							"2026-09-05 18:00:00",
							"2026-09-05 19:00:00",
						},
					},
					{
						ID:             "court-2",
						Name:           "Tennis Court A",
						Sports:         []rec.Sport{{SportID: "sport-tennis"}},
						AvailableSlots: []string{"2026-09-05 18:00:00"},
					},
				},
			},
		},
	}
}

func TestNormalize(t *testing.T) {
	locs, candidates, report := Normalize(testBatch(), testSportID, "UTC")

	if len(locs) != 1 {
		t.Fatalf("expected 1 location, got %d", len(locs))
	}
	if locs[0].ID != "loc-1" || locs[0].Timezone != "America/Los_Angeles" {
		t.Errorf("unexpected location record: %+v", locs[0])
	}

	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(candidates))
	}
	for _, c := range candidates {
		if c.CourtID != "court-1" {
			t.Errorf("candidate from wrong court: %s", c.CourtID)
		}
		if c.DurationMinutes != 90 {
			t.Errorf("expected longest allowed duration 90, got %d", c.DurationMinutes)
		}
		if c.Timezone != "America/Los_Angeles" {
			t.Errorf("unexpected candidate timezone %q", c.Timezone)
		}
	}

	// Local wall clock must be preserved, and UTC derived from the zone.
	first := candidates[0]
	if got := first.StartLocal.Format("2006-01-02 15:04:05"); got != "2026-09-05 18:00:00" {
		t.Errorf("unexpected local start %q", got)
	}
	if got := first.StartUTC.UTC().Hour(); got != 1 { // PDT is UTC-7
		t.Errorf("expected 01:00 UTC, got hour %d", got)
	}

	if report.Skipped[SkipWrongSport] != 1 {
		t.Errorf("expected 1 wrong-sport skip, got %d", report.Skipped[SkipWrongSport])
	}
	if report.Candidates != 2 || report.Locations != 1 {
		t.Errorf("unexpected report: %+v", report)
	}
}

func TestNormalizeSkipsBadRecords(t *testing.T) {
	batch := rec.Batch{
		{Location: rec.Location{}}, // no id
		{
			Location: rec.Location{
				ID:   "loc-2",
				Name: "Hilltop",
				Courts: []rec.Court{
					{ // no court id
						Sports:         []rec.Sport{{SportID: testSportID}},
						AvailableSlots: []string{"2026-09-05 10:00:00"},
					},
					{
						ID:     "court-9",
						Name:   "Court 9",
						Sports: []rec.Sport{{SportID: testSportID}},
						AvailableSlots: []string{
							"not-a-timestamp",
							"2026-09-05 10:00:00",
						},
					},
				},
			},
		},
	}

	locs, candidates, report := Normalize(batch, testSportID, "UTC")

	if len(locs) != 1 {
		t.Fatalf("expected 1 location, got %d", len(locs))
	}
	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(candidates))
	}
	if report.Skipped[SkipMissingLocation] != 1 {
		t.Errorf("missing-location skips = %d, want 1", report.Skipped[SkipMissingLocation])
	}
	if report.Skipped[SkipMissingCourtID] != 1 {
		t.Errorf("missing-court skips = %d, want 1", report.Skipped[SkipMissingCourtID])
	}
	if report.Skipped[SkipBadTimestamp] != 1 {
		t.Errorf("bad-timestamp skips = %d, want 1", report.Skipped[SkipBadTimestamp])
	}
	if report.SkippedTotal() != 3 {
		t.Errorf("SkippedTotal = %d, want 3", report.SkippedTotal())
	}
}

func TestNormalizeTimezoneFallback(t *testing.T) {
	batch := rec.Batch{
		{
			Location: rec.Location{
				ID: "loc-3",
				Courts: []rec.Court{
					{
						ID:             "court-1",
						Sports:         []rec.Sport{{SportID: testSportID}},
						AvailableSlots: []string{"2026-01-15 08:00:00"},
					},
				},
			},
		},
	}

	// Location carries no timezone: fall back to the configured default.
	_, candidates, _ := Normalize(batch, testSportID, "America/New_York")
	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(candidates))
	}
	if candidates[0].Timezone != "America/New_York" {
		t.Errorf("expected fallback timezone, got %q", candidates[0].Timezone)
	}
	if got := candidates[0].StartUTC.UTC().Hour(); got != 13 { // EST is UTC-5
		t.Errorf("expected 13:00 UTC, got hour %d", got)
	}

	// Unloadable fallback degrades to UTC rather than failing the record.
	locs, _, _ := Normalize(batch, testSportID, "Not/AZone")
	if locs[0].Timezone != "UTC" {
		t.Errorf("expected UTC degradation, got %q", locs[0].Timezone)
	}
}

func TestNormalizeEmptySportIDKeepsEverything(t *testing.T) {
	_, candidates, report := Normalize(testBatch(), "", "UTC")
	if len(candidates) != 3 {
		t.Fatalf("expected 3 candidates with no sport filter, got %d", len(candidates))
	}
	if report.Skipped[SkipWrongSport] != 0 {
		t.Errorf("unexpected wrong-sport skips: %d", report.Skipped[SkipWrongSport])
	}
}

func TestCourtDurationFallbacks(t *testing.T) {
	loc := rec.Location{MaxReservationTime: "02:00:00"}

	court := rec.Court{MaxReservationTime: "01:30:00"}
	if got := courtDuration(court, loc); got != 90 {
		t.Errorf("court max: got %d, want 90", got)
	}

	if got := courtDuration(rec.Court{}, loc); got != 120 {
		t.Errorf("location max: got %d, want 120", got)
	}

	if got := courtDuration(rec.Court{}, rec.Location{}); got != defaultDurationMinutes {
		t.Errorf("default: got %d, want %d", got, defaultDurationMinutes)
	}

	// Seconds round to the nearest minute.
	if got := courtDuration(rec.Court{MaxReservationTime: "00:45:30"}, loc); got != 46 {
		t.Errorf("rounding: got %d, want 46", got)
	}
}
