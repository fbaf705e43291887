package handler

import (
	"net/http"
	"time"

	"github.com/courtwatch/courtwatch-data/internal/api/respond"
)

type statusResponse struct {
	SchedulerState     string     `json:"scheduler_state"`
	LastSuccessfulSync *time.Time `json:"last_successful_sync"`
	LastError          string     `json:"last_error,omitempty"`
	LastErrorAt        *time.Time `json:"last_error_at,omitempty"`
}

// GetStatus returns the scraper heartbeat.
// @Summary Scraper heartbeat
// @Description Returns the scheduler state and the timestamp of the last successful pass, plus the last pass error if any.
// @Tags status
// @Produce json
// @Success 200 {object} handler.statusResponse
// @Failure 500 {object} respond.ErrorResponse
// @Router /status [get]
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	st, err := h.store.SyncStatus(r.Context())
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "STORE_ERROR", "Failed to load status")
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, statusResponse{
		SchedulerState:     h.schedulerState(),
		LastSuccessfulSync: st.LastSuccessfulSync,
		LastError:          st.LastError,
		LastErrorAt:        st.LastErrorAt,
	})
}
