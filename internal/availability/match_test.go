package availability

import (
	"testing"
	"time"
)

func testSlot(t *testing.T, start string) SlotRecord {
	t.Helper()
	startLocal, err := time.Parse(slotTimeLayout, start)
	if err != nil {
		t.Fatalf("bad test timestamp %q: %v", start, err)
	}
	return SlotRecord{
		LocationID:   "loc-1",
		LocationName: "Riverside Courts",
		Timezone:     "UTC",
		CourtID:      "court-1",
		CourtName:    "Pickleball Court 3",
		StartLocal:   startLocal,
		StartUTC:     startLocal.UTC(),
	}
}

func TestMatchWatch(t *testing.T) {
	slot := testSlot(t, "2026-09-05 18:30:00")

	tests := []struct {
		name  string
		watch Watch
		want  bool
	}{
		{
			name:  "bare watch matches any slot at its location",
			watch: Watch{LocationID: "loc-1", Active: true},
			want:  true,
		},
		{
			name:  "inactive watch never matches",
			watch: Watch{LocationID: "loc-1", Active: false},
			want:  false,
		},
		{
			name:  "wrong location",
			watch: Watch{LocationID: "loc-2", Active: true},
			want:  false,
		},
		{
			name:  "empty location never matches",
			watch: Watch{Active: true},
			want:  false,
		},
		{
			name:  "court query is a case-insensitive substring",
			watch: Watch{LocationID: "loc-1", Active: true, CourtQuery: "court 3"},
			want:  true,
		},
		{
			name:  "court query mismatch",
			watch: Watch{LocationID: "loc-1", Active: true, CourtQuery: "court 4"},
			want:  false,
		},
		{
			name:  "target date equality",
			watch: Watch{LocationID: "loc-1", Active: true, TargetDate: "2026-09-05"},
			want:  true,
		},
		{
			name:  "target date mismatch",
			watch: Watch{LocationID: "loc-1", Active: true, TargetDate: "2026-09-06"},
			want:  false,
		},
		{
			name:  "inside time window",
			watch: Watch{LocationID: "loc-1", Active: true, TimeFrom: "17:00", TimeTo: "20:00"},
			want:  true,
		},
		{
			name:  "lower bound is inclusive",
			watch: Watch{LocationID: "loc-1", Active: true, TimeFrom: "18:30"},
			want:  true,
		},
		{
			name:  "upper bound is inclusive",
			watch: Watch{LocationID: "loc-1", Active: true, TimeTo: "18:30"},
			want:  true,
		},
		{
			name:  "before lower bound",
			watch: Watch{LocationID: "loc-1", Active: true, TimeFrom: "19:00"},
			want:  false,
		},
		{
			name:  "after upper bound",
			watch: Watch{LocationID: "loc-1", Active: true, TimeTo: "18:00"},
			want:  false,
		},
		{
			name: "all criteria together",
			watch: Watch{
				LocationID: "loc-1", Active: true,
				CourtQuery: "pickleball", TargetDate: "2026-09-05",
				TimeFrom: "18:00", TimeTo: "19:00",
			},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MatchWatch(slot, tt.watch); got != tt.want {
				t.Errorf("MatchWatch = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMatchWatchCourtQueryFallsBackToCourtID(t *testing.T) {
	slot := testSlot(t, "2026-09-05 09:00:00")
	slot.CourtName = ""

	w := Watch{LocationID: "loc-1", Active: true, CourtQuery: "COURT-1"}
	if !MatchWatch(slot, w) {
		t.Error("expected court query to match against the court id when the name is empty")
	}
}

func TestMatchWatchEarlyMorningClockComparison(t *testing.T) {
	// Zero-padded 24h clocks compare correctly as strings.
	slot := testSlot(t, "2026-09-05 08:00:00")

	if MatchWatch(slot, Watch{LocationID: "loc-1", Active: true, TimeFrom: "10:00"}) {
		t.Error("08:00 should be before a 10:00 lower bound")
	}
	if !MatchWatch(slot, Watch{LocationID: "loc-1", Active: true, TimeTo: "10:00"}) {
		t.Error("08:00 should be within a 10:00 upper bound")
	}
}

func TestNormalizeClock(t *testing.T) {
	tests := []struct {
		in, want string
		wantErr  bool
	}{
		{in: "9:00", want: "09:00"},
		{in: "09:00", want: "09:00"},
		{in: "18:30", want: "18:30"},
		{in: "6pm", wantErr: true},
		{in: "25:00", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		got, err := NormalizeClock(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("NormalizeClock(%q): expected error, got %q", tt.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("NormalizeClock(%q): %v", tt.in, err)
		} else if got != tt.want {
			t.Errorf("NormalizeClock(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeDate(t *testing.T) {
	got, err := NormalizeDate("2026-9-5")
	if err != nil {
		t.Fatalf("NormalizeDate: %v", err)
	}
	if got != "2026-09-05" {
		t.Errorf("NormalizeDate(2026-9-5) = %q, want 2026-09-05", got)
	}
	if _, err := NormalizeDate("05/09/2026"); err == nil {
		t.Error("expected error for slash-separated date")
	}
}

func TestMatchWatchUnpaddedBoundAfterNormalization(t *testing.T) {
	// "9:00" parses but sorts above every zero-padded clock, so a morning
	// slot would never match it; the boundaries canonicalize bounds before
	// storing. Canonicalized, the window behaves.
	slot := testSlot(t, "2026-09-05 09:30:00")

	raw := Watch{LocationID: "loc-1", Active: true, TimeFrom: "9:00"}
	if MatchWatch(slot, raw) {
		t.Fatal("unpadded bound matching lexically would hide the defect this guards against")
	}

	from, err := NormalizeClock("9:00")
	if err != nil {
		t.Fatalf("NormalizeClock: %v", err)
	}
	canonical := Watch{LocationID: "loc-1", Active: true, TimeFrom: from}
	if !MatchWatch(slot, canonical) {
		t.Error("09:30 slot should match a canonicalized 9:00 lower bound")
	}

	date, err := NormalizeDate("2026-9-5")
	if err != nil {
		t.Fatalf("NormalizeDate: %v", err)
	}
	dated := Watch{LocationID: "loc-1", Active: true, TargetDate: date}
	if !MatchWatch(slot, dated) {
		t.Error("slot should match a canonicalized unpadded target date")
	}
}

func TestMatchSlots(t *testing.T) {
	slots := []StoredSlot{
		{ID: 1, SlotRecord: testSlot(t, "2026-09-05 18:00:00")},
		{ID: 2, SlotRecord: testSlot(t, "2026-09-05 08:00:00")},
	}
	watches := []Watch{
		{ID: 10, LocationID: "loc-1", Active: true},                    // matches both
		{ID: 11, LocationID: "loc-1", Active: true, TimeFrom: "17:00"}, // evening only
		{ID: 12, LocationID: "loc-2", Active: true},                    // other location
	}

	matches := MatchSlots(slots, watches)
	if len(matches) != 3 {
		t.Fatalf("expected 3 matches, got %d", len(matches))
	}

	// One slot may alert several watches independently.
	byWatch := map[int64]int{}
	for _, m := range matches {
		byWatch[m.Watch.ID]++
	}
	if byWatch[10] != 2 || byWatch[11] != 1 || byWatch[12] != 0 {
		t.Errorf("unexpected match distribution: %v", byWatch)
	}
}
