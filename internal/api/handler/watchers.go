package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/courtwatch/courtwatch-data/internal/api/respond"
	"github.com/courtwatch/courtwatch-data/internal/availability"
	"github.com/courtwatch/courtwatch-data/internal/store"
)

type watchCreateRequest struct {
	LocationID string `json:"location_id" validate:"required"`
	Label      string `json:"label" validate:"omitempty,max=120"`
	CourtQuery string `json:"court_query" validate:"omitempty,max=120"`
	TargetDate string `json:"target_date" validate:"omitempty,datetime=2006-01-02"`
	TimeFrom   string `json:"time_from" validate:"omitempty,datetime=15:04"`
	TimeTo     string `json:"time_to" validate:"omitempty,datetime=15:04"`
	Contact    string `json:"contact" validate:"omitempty,email"`
	Notes      string `json:"notes" validate:"omitempty,max=500"`
}

// canonicalize zero-pads the date and clock fields. The datetime validator
// accepts one-digit components ("9:00", "2026-9-5"), but the matcher
// compares these fields lexically against zero-padded slot values, so an
// unpadded bound stored as-is would never fire.
func (r *watchCreateRequest) canonicalize() error {
	if r.TargetDate != "" {
		d, err := availability.NormalizeDate(r.TargetDate)
		if err != nil {
			return err
		}
		r.TargetDate = d
	}
	for _, f := range []*string{&r.TimeFrom, &r.TimeTo} {
		if *f == "" {
			continue
		}
		c, err := availability.NormalizeClock(*f)
		if err != nil {
			return err
		}
		*f = c
	}
	return nil
}

type watchResponse struct {
	ID              int64      `json:"id"`
	LocationID      string     `json:"location_id"`
	LocationName    string     `json:"location_name"`
	Label           string     `json:"label,omitempty"`
	CourtQuery      string     `json:"court_query,omitempty"`
	TargetDate      string     `json:"target_date,omitempty"`
	TimeFrom        string     `json:"time_from,omitempty"`
	TimeTo          string     `json:"time_to,omitempty"`
	Contact         string     `json:"contact,omitempty"`
	Notes           string     `json:"notes,omitempty"`
	Active          bool       `json:"active"`
	TriggerCount    int        `json:"trigger_count"`
	CreatedAt       time.Time  `json:"created_at"`
	LastTriggeredAt *time.Time `json:"last_triggered_at,omitempty"`
}

func toWatchResponse(w availability.Watch) watchResponse {
	return watchResponse{
		ID:              w.ID,
		LocationID:      w.LocationID,
		LocationName:    w.LocationName,
		Label:           w.Label,
		CourtQuery:      w.CourtQuery,
		TargetDate:      w.TargetDate,
		TimeFrom:        w.TimeFrom,
		TimeTo:          w.TimeTo,
		Contact:         w.Contact,
		Notes:           w.Notes,
		Active:          w.Active,
		TriggerCount:    w.TriggerCount,
		CreatedAt:       w.CreatedAt,
		LastTriggeredAt: w.LastTriggeredAt,
	}
}

// ListWatchers lists saved watch rules, newest first.
// @Summary List watches
// @Tags watchers
// @Produce json
// @Success 200 {array} handler.watchResponse
// @Failure 500 {object} respond.ErrorResponse
// @Router /watchers [get]
func (h *Handler) ListWatchers(w http.ResponseWriter, r *http.Request) {
	watches, err := h.store.Watches(r.Context())
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "STORE_ERROR", "Failed to load watches")
		return
	}
	out := make([]watchResponse, 0, len(watches))
	for _, watch := range watches {
		out = append(out, toWatchResponse(watch))
	}
	respond.WriteJSONObject(w, http.StatusOK, out)
}

// CreateWatcher creates a new watch rule.
// @Summary Create a watch
// @Tags watchers
// @Accept json
// @Produce json
// @Param watch body handler.watchCreateRequest true "Watch rule"
// @Success 200 {object} handler.watchResponse
// @Failure 400 {object} respond.ErrorResponse
// @Failure 404 {object} respond.ErrorResponse
// @Router /watchers [post]
func (h *Handler) CreateWatcher(w http.ResponseWriter, r *http.Request) {
	var req watchCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respond.WriteErrorDetail(w, http.StatusBadRequest, "VALIDATION_FAILED", "Invalid watch rule", err.Error())
		return
	}
	if err := req.canonicalize(); err != nil {
		respond.WriteErrorDetail(w, http.StatusBadRequest, "VALIDATION_FAILED", "Invalid watch rule", err.Error())
		return
	}

	exists, err := h.store.LocationExists(r.Context(), req.LocationID)
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "STORE_ERROR", "Failed to check location")
		return
	}
	if !exists {
		respond.WriteError(w, http.StatusNotFound, "NOT_FOUND", "Location not found")
		return
	}

	created, err := h.store.CreateWatch(r.Context(), availability.Watch{
		LocationID: req.LocationID,
		Label:      req.Label,
		CourtQuery: req.CourtQuery,
		TargetDate: req.TargetDate,
		TimeFrom:   req.TimeFrom,
		TimeTo:     req.TimeTo,
		Contact:    req.Contact,
		Notes:      req.Notes,
		Active:     true,
	})
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "STORE_ERROR", "Failed to create watch")
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, toWatchResponse(created))
}

// ToggleWatcher flips a watch between active and paused.
// @Summary Toggle a watch
// @Tags watchers
// @Produce json
// @Param watchID path int true "Watch ID"
// @Success 200 {object} handler.watchResponse
// @Failure 404 {object} respond.ErrorResponse
// @Router /watchers/{watchID}/toggle [post]
func (h *Handler) ToggleWatcher(w http.ResponseWriter, r *http.Request) {
	id, ok := watchID(w, r)
	if !ok {
		return
	}
	watch, err := h.store.ToggleWatch(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		respond.WriteError(w, http.StatusNotFound, "NOT_FOUND", "Watch not found")
		return
	}
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "STORE_ERROR", "Failed to toggle watch")
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, toWatchResponse(watch))
}

// DeleteWatcher removes a saved watch rule.
// @Summary Delete a watch
// @Tags watchers
// @Produce json
// @Param watchID path int true "Watch ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} respond.ErrorResponse
// @Router /watchers/{watchID} [delete]
func (h *Handler) DeleteWatcher(w http.ResponseWriter, r *http.Request) {
	id, ok := watchID(w, r)
	if !ok {
		return
	}
	err := h.store.DeleteWatch(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		respond.WriteError(w, http.StatusNotFound, "NOT_FOUND", "Watch not found")
		return
	}
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "STORE_ERROR", "Failed to delete watch")
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func watchID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "watchID"), 10, 64)
	if err != nil {
		respond.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "Watch id must be an integer")
		return 0, false
	}
	return id, true
}
