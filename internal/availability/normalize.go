package availability

import (
	"strconv"
	"strings"
	"time"

	"github.com/courtwatch/courtwatch-data/internal/rec"
)

// Normalize maps a raw upstream batch into location records and canonical
// slot candidates. Courts outside the target sport are dropped, as are
// records with unparsable timestamps — each skip fails only that record and
// is counted in the report.
//
// Candidates are not yet deduplicated; downstream treats them as a set.
func Normalize(batch rec.Batch, targetSportID, fallbackTZ string) ([]LocationRecord, []SlotRecord, Report) {
	report := newReport()
	var locations []LocationRecord
	var candidates []SlotRecord

	for _, entry := range batch {
		loc := entry.Location
		if loc.ID == "" {
			report.skip(SkipMissingLocation)
			continue
		}

		tzName := loc.Timezone
		if tzName == "" {
			tzName = fallbackTZ
		}
		tz, err := time.LoadLocation(tzName)
		if err != nil {
			tz = time.UTC
			tzName = "UTC"
		}

		locations = append(locations, LocationRecord{
			ID:       loc.ID,
			Name:     loc.Name,
			Address:  loc.FormattedAddress,
			Timezone: tzName,
			ImageURL: loc.Images.Thumbnail,
		})
		report.Locations++

		for _, court := range loc.Courts {
			if court.ID == "" {
				report.skip(SkipMissingCourtID)
				continue
			}
			if targetSportID != "" && !offersSport(court, targetSportID) {
				report.skip(SkipWrongSport)
				continue
			}

			sportID := ""
			if len(court.Sports) > 0 {
				sportID = court.Sports[0].SportID
			}
			duration := courtDuration(court, loc)

			for _, raw := range court.AvailableSlots {
				startLocal, err := time.ParseInLocation(slotTimeLayout, raw, tz)
				if err != nil {
					report.skip(SkipBadTimestamp)
					continue
				}

				candidates = append(candidates, SlotRecord{
					LocationID:      loc.ID,
					LocationName:    loc.Name,
					Timezone:        tzName,
					CourtID:         court.ID,
					CourtName:       court.Name,
					SportID:         sportID,
					DurationMinutes: duration,
					StartLocal:      startLocal,
					StartUTC:        startLocal.UTC(),
				})
				report.Candidates++
			}
		}
	}

	return locations, candidates, report
}

// offersSport reports whether the court's sport list contains the target id.
func offersSport(court rec.Court, sportID string) bool {
	for _, s := range court.Sports {
		if s.SportID == sportID {
			return true
		}
	}
	return false
}

// courtDuration derives a slot duration in minutes: the longest allowed
// reservation duration, then the court's max reservation time, then the
// location's, then the default.
func courtDuration(court rec.Court, loc rec.Location) int {
	maxMinutes := 0
	for _, m := range court.Durations.Minutes {
		if m > maxMinutes {
			maxMinutes = m
		}
	}
	if maxMinutes > 0 {
		return maxMinutes
	}
	if mins, ok := parseClockDuration(court.MaxReservationTime); ok {
		return mins
	}
	if mins, ok := parseClockDuration(loc.MaxReservationTime); ok {
		return mins
	}
	return defaultDurationMinutes
}

// parseClockDuration converts an "HH:MM:SS" duration into whole minutes,
// rounding the seconds component.
func parseClockDuration(s string) (int, bool) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, false
	}
	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	sec, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return 0, false
	}
	mins := h*60 + m
	if sec >= 30 {
		mins++
	}
	if mins <= 0 {
		return 0, false
	}
	return mins, true
}
