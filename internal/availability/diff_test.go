package availability

import (
	"testing"
	"time"
)

func diffSlot(locationID, courtID, start string) SlotRecord {
	startLocal, _ := time.Parse(slotTimeLayout, start)
	return SlotRecord{
		LocationID: locationID,
		CourtID:    courtID,
		StartLocal: startLocal,
		StartUTC:   startLocal.UTC(),
	}
}

func TestDiffReturnsOnlyUnseenSlots(t *testing.T) {
	known := diffSlot("loc-1", "court-1", "2026-09-05 18:00:00")
	fresh := diffSlot("loc-1", "court-1", "2026-09-05 19:00:00")
	otherCourt := diffSlot("loc-1", "court-2", "2026-09-05 18:00:00")

	existing := map[SlotKey]struct{}{known.Key(): {}}

	got := Diff([]SlotRecord{known, fresh, otherCourt}, existing)
	if len(got) != 2 {
		t.Fatalf("expected 2 new slots, got %d", len(got))
	}
	if got[0].Key() != fresh.Key() || got[1].Key() != otherCourt.Key() {
		t.Errorf("unexpected diff result: %+v", got)
	}
}

func TestDiffCollapsesIntraBatchDuplicates(t *testing.T) {
	a := diffSlot("loc-1", "court-1", "2026-09-05 18:00:00")
	b := diffSlot("loc-1", "court-1", "2026-09-05 18:00:00")
	b.CourtName = "renamed between entries"

	got := Diff([]SlotRecord{a, b}, nil)
	if len(got) != 1 {
		t.Fatalf("expected duplicate keys to collapse, got %d slots", len(got))
	}
	// First occurrence wins.
	if got[0].CourtName != "" {
		t.Errorf("expected first occurrence to win, got %q", got[0].CourtName)
	}
}

func TestDiffEmptyInputs(t *testing.T) {
	if got := Diff(nil, nil); len(got) != 0 {
		t.Errorf("expected empty diff, got %d", len(got))
	}

	existing := map[SlotKey]struct{}{
		KeyOf("loc-1", "court-1", time.Now()): {},
	}
	if got := Diff(nil, existing); len(got) != 0 {
		t.Errorf("expected empty diff against non-empty state, got %d", len(got))
	}
}

func TestSlotKeyIdentity(t *testing.T) {
	start, _ := time.Parse(slotTimeLayout, "2026-09-05 18:00:00")

	// Identity is wall-clock based: the same local time in different Go
	// location objects produces the same key.
	pacific, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		t.Skip("tzdata unavailable")
	}
	inPacific := time.Date(2026, 9, 5, 18, 0, 0, 0, pacific)

	if KeyOf("loc-1", "court-1", start) != KeyOf("loc-1", "court-1", inPacific) {
		t.Error("expected identical wall clocks to produce identical keys")
	}
	if KeyOf("loc-1", "court-1", start) == KeyOf("loc-1", "court-2", start) {
		t.Error("expected different courts to produce different keys")
	}
}
