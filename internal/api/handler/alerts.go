package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/courtwatch/courtwatch-data/internal/api/respond"
	"github.com/courtwatch/courtwatch-data/internal/availability"
)

const (
	defaultAlertLimit = 25
	maxAlertLimit     = 100
)

type alertResponse struct {
	ID            int64     `json:"id"`
	WatchID       int64     `json:"watch_id"`
	WatchLabel    string    `json:"watch_label,omitempty"`
	LocationID    string    `json:"location_id"`
	LocationName  string    `json:"location_name"`
	CourtID       string    `json:"court_id"`
	CourtName     string    `json:"court_name,omitempty"`
	SlotTimeLocal string    `json:"slot_time_local"`
	SlotTimeUTC   time.Time `json:"slot_time_utc"`
	CreatedAt     time.Time `json:"created_at"`
}

func toAlertResponse(a availability.Alert) alertResponse {
	return alertResponse{
		ID:            a.ID,
		WatchID:       a.WatchID,
		WatchLabel:    a.WatchLabel,
		LocationID:    a.LocationID,
		LocationName:  a.LocationName,
		CourtID:       a.CourtID,
		CourtName:     a.CourtName,
		SlotTimeLocal: a.StartLocal.Format(localTimeLayout),
		SlotTimeUTC:   a.StartUTC,
		CreatedAt:     a.CreatedAt,
	}
}

// GetAlerts returns the most recent alert firings.
// @Summary Recent alerts
// @Tags alerts
// @Produce json
// @Param limit query int false "Maximum alerts to return (1-100, default 25)"
// @Success 200 {array} handler.alertResponse
// @Failure 500 {object} respond.ErrorResponse
// @Router /alerts [get]
func (h *Handler) GetAlerts(w http.ResponseWriter, r *http.Request) {
	limit := defaultAlertLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 && n <= maxAlertLimit {
			limit = n
		}
	}

	alerts, err := h.store.RecentAlerts(r.Context(), limit)
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "STORE_ERROR", "Failed to load alerts")
		return
	}
	out := make([]alertResponse, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, toAlertResponse(a))
	}
	respond.WriteJSONObject(w, http.StatusOK, out)
}
