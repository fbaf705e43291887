package availability

import "strings"

// MatchSlots evaluates every watch against every new slot and returns the
// resulting match pairs. A single slot may match several watches — each
// watch owner is alerted independently. O(watches × new slots) per pass,
// which is fine: both sets are small per tick.
func MatchSlots(newSlots []StoredSlot, watches []Watch) []Match {
	var matches []Match
	for _, slot := range newSlots {
		for _, w := range watches {
			if MatchWatch(slot.SlotRecord, w) {
				matches = append(matches, Match{Watch: w, Slot: slot})
			}
		}
	}
	return matches
}

// MatchWatch reports whether a slot satisfies a watch rule.
//
// A watch with no optional fields set matches any slot at its location.
// Time bounds are inclusive and apply to the slot's local start time only;
// a slot with no computable duration still matches on start time.
func MatchWatch(slot SlotRecord, w Watch) bool {
	if !w.Active {
		return false
	}
	// A watch without a location is invalid and never matches.
	if w.LocationID == "" || w.LocationID != slot.LocationID {
		return false
	}
	if w.CourtQuery != "" {
		name := strings.ToLower(slot.DisplayName())
		if !strings.Contains(name, strings.ToLower(w.CourtQuery)) {
			return false
		}
	}
	if w.TargetDate != "" && slot.StartLocal.Format(DateLayout) != w.TargetDate {
		return false
	}
	clock := slot.StartLocal.Format(ClockLayout)
	if w.TimeFrom != "" && clock < w.TimeFrom {
		return false
	}
	if w.TimeTo != "" && clock > w.TimeTo {
		return false
	}
	return true
}
