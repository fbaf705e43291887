package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/courtwatch/courtwatch-data/internal/api/respond"
	"github.com/courtwatch/courtwatch-data/internal/availability"
	"github.com/courtwatch/courtwatch-data/internal/cache"
)

// localTimeLayout renders a slot's wall-clock local time without an offset;
// the location's timezone field says what zone it is in.
const localTimeLayout = "2006-01-02T15:04:05"

type slotResponse struct {
	CourtID         string    `json:"court_id"`
	CourtName       string    `json:"court_name,omitempty"`
	SportID         string    `json:"sport_id,omitempty"`
	DurationMinutes int       `json:"duration_minutes"`
	SlotTimeLocal   string    `json:"slot_time_local"`
	SlotTimeUTC     time.Time `json:"slot_time_utc"`
	CourtCount      int       `json:"court_count"`
	CourtNames      []string  `json:"court_names,omitempty"`
}

type locationResponse struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Address  string         `json:"address,omitempty"`
	Timezone string         `json:"timezone,omitempty"`
	ImageURL string         `json:"image_url,omitempty"`
	Slots    []slotResponse `json:"slots"`
}

type locationsEnvelope struct {
	LastUpdated *time.Time         `json:"last_updated"`
	Locations   []locationResponse `json:"locations"`
}

// GetLocations returns current availability grouped by location.
// @Summary Current availability
// @Description Returns all locations with their upcoming slots, optionally filtered by date, time window, and court name substring. Slots at the same time are collapsed with a court count.
// @Tags availability
// @Produce json
// @Param date query string false "Filter to a single date (YYYY-MM-DD)"
// @Param time_from query string false "Earliest local start time (HH:MM), inclusive"
// @Param time_to query string false "Latest local start time (HH:MM), inclusive"
// @Param court query string false "Court name substring, case-insensitive"
// @Success 200 {object} handler.locationsEnvelope
// @Failure 500 {object} respond.ErrorResponse
// @Router /locations [get]
func (h *Handler) GetLocations(w http.ResponseWriter, r *http.Request) {
	cacheKey := "locations:" + r.URL.RawQuery
	ttl := cache.TTLAvailability

	if data, etag, ok := h.cache.Get(cacheKey); ok {
		if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
			respond.WriteNotModified(w, etag)
			return
		}
		respond.WriteJSON(w, data, etag, ttl, true)
		return
	}

	q := r.URL.Query()
	filter := slotFilter{
		day:        q.Get("date"),
		timeFrom:   q.Get("time_from"),
		timeTo:     q.Get("time_to"),
		courtQuery: strings.TrimSpace(q.Get("court")),
	}

	locations, err := h.store.Locations(r.Context())
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "STORE_ERROR", "Failed to load locations")
		return
	}
	slots, err := h.store.FutureSlots(r.Context())
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "STORE_ERROR", "Failed to load availability")
		return
	}
	status, err := h.store.SyncStatus(r.Context())
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "STORE_ERROR", "Failed to load sync status")
		return
	}

	byLocation := make(map[string][]availability.StoredSlot)
	for _, s := range slots {
		if filter.keep(s.SlotRecord) {
			byLocation[s.LocationID] = append(byLocation[s.LocationID], s)
		}
	}

	envelope := locationsEnvelope{
		LastUpdated: status.LastSuccessfulSync,
		Locations:   make([]locationResponse, 0, len(locations)),
	}
	for _, loc := range locations {
		envelope.Locations = append(envelope.Locations, locationResponse{
			ID:       loc.ID,
			Name:     loc.Name,
			Address:  loc.Address,
			Timezone: loc.Timezone,
			ImageURL: loc.ImageURL,
			Slots:    groupSlots(byLocation[loc.ID]),
		})
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "ENCODE_ERROR", "Failed to encode response")
		return
	}
	etag := h.cache.Set(cacheKey, data, ttl)
	respond.WriteJSON(w, data, etag, ttl, false)
}

// slotFilter applies the optional date/time/court query parameters.
type slotFilter struct {
	day        string // availability.DateLayout
	timeFrom   string // availability.ClockLayout
	timeTo     string
	courtQuery string
}

func (f slotFilter) keep(s availability.SlotRecord) bool {
	if f.courtQuery != "" &&
		!strings.Contains(strings.ToLower(s.DisplayName()), strings.ToLower(f.courtQuery)) {
		return false
	}
	if f.day != "" && s.StartLocal.Format(availability.DateLayout) != f.day {
		return false
	}
	clock := s.StartLocal.Format(availability.ClockLayout)
	if f.timeFrom != "" && clock < f.timeFrom {
		return false
	}
	if f.timeTo != "" && clock > f.timeTo {
		return false
	}
	return true
}

// groupSlots collapses slots sharing a start time into one entry carrying
// the court count and names, ordered by start time.
func groupSlots(slots []availability.StoredSlot) []slotResponse {
	grouped := make(map[string][]availability.StoredSlot)
	for _, s := range slots {
		grouped[s.StartLocal.Format(localTimeLayout)] = append(grouped[s.StartLocal.Format(localTimeLayout)], s)
	}

	stamps := make([]string, 0, len(grouped))
	for stamp := range grouped {
		stamps = append(stamps, stamp)
	}
	sort.Strings(stamps)

	out := make([]slotResponse, 0, len(stamps))
	for _, stamp := range stamps {
		group := grouped[stamp]
		sort.Slice(group, func(i, j int) bool {
			return group[i].DisplayName() < group[j].DisplayName()
		})

		names := make([]string, 0, len(group))
		for _, s := range group {
			if name := s.DisplayName(); name != "" {
				names = append(names, name)
			}
		}

		rep := group[0]
		resp := slotResponse{
			CourtID:         rep.CourtID,
			CourtName:       rep.CourtName,
			SportID:         rep.SportID,
			DurationMinutes: rep.DurationMinutes,
			SlotTimeLocal:   stamp,
			SlotTimeUTC:     rep.StartUTC,
			CourtCount:      len(group),
			CourtNames:      names,
		}
		if len(names) > 1 {
			resp.CourtName = fmt.Sprintf("%s (+%d more)", names[0], len(names)-1)
		}
		out = append(out, resp)
	}
	return out
}
