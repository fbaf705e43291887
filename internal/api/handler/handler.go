// Package handler provides HTTP handlers for all API endpoints.
// Handlers read through the store; the scrape pipeline owns all writes to
// slots and alerts, so everything here except watch CRUD is read-only.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/courtwatch/courtwatch-data/internal/api/respond"
	"github.com/courtwatch/courtwatch-data/internal/availability"
	"github.com/courtwatch/courtwatch-data/internal/cache"
	"github.com/courtwatch/courtwatch-data/internal/config"
	"github.com/courtwatch/courtwatch-data/internal/store"
)

// Store is the persistence surface the handlers consume. *store.Store is
// the production implementation.
type Store interface {
	HealthCheck(ctx context.Context) error
	Locations(ctx context.Context) ([]availability.LocationRecord, error)
	FutureSlots(ctx context.Context) ([]availability.StoredSlot, error)
	LocationExists(ctx context.Context, id string) (bool, error)
	Watches(ctx context.Context) ([]availability.Watch, error)
	CreateWatch(ctx context.Context, w availability.Watch) (availability.Watch, error)
	ToggleWatch(ctx context.Context, id int64) (availability.Watch, error)
	DeleteWatch(ctx context.Context, id int64) error
	RecentAlerts(ctx context.Context, limit int) ([]availability.Alert, error)
	SyncStatus(ctx context.Context) (store.Status, error)
}

// Handler holds shared dependencies for all endpoint handlers.
type Handler struct {
	store          Store
	cache          *cache.Cache
	cfg            *config.Config
	schedulerState func() string
	validate       *validator.Validate
}

// New creates a Handler with shared dependencies.
func New(st Store, c *cache.Cache, cfg *config.Config, schedulerState func() string) *Handler {
	if schedulerState == nil {
		schedulerState = func() string { return "unknown" }
	}
	return &Handler{
		store:          st,
		cache:          c,
		cfg:            cfg,
		schedulerState: schedulerState,
		validate:       validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Root serves API info at /.
// @Summary API root info
// @Description Returns API name, version, and status.
// @Tags meta
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router / [get]
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"name":    "Court Watch API",
		"version": "1.0.0",
		"status":  "running",
		"docs":    "/docs",
	})
}

// HealthCheck returns basic health status.
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckDB verifies database connectivity.
// @Summary Database health check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health/db [get]
func (h *Handler) HealthCheckDB(w http.ResponseWriter, r *http.Request) {
	if err := h.store.HealthCheck(r.Context()); err != nil {
		respond.WriteJSONObject(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":    "unhealthy",
			"database":  "disconnected",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"database":  "connected",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckCache returns cache statistics.
// @Summary Cache health check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health/cache [get]
func (h *Handler) HealthCheckCache(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"cache":     h.cache.Stats(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
