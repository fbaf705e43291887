package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	corslib "github.com/rs/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/courtwatch/courtwatch-data/internal/api/handler"
	"github.com/courtwatch/courtwatch-data/internal/cache"
	"github.com/courtwatch/courtwatch-data/internal/config"
)

// NewRouter creates and configures the Chi router with all middleware and routes.
func NewRouter(st handler.Store, appCache *cache.Cache, cfg *config.Config, schedulerState func() string) *chi.Mux {
	r := chi.NewRouter()

	// --- Middleware stack ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(TimingMiddleware)
	r.Use(middleware.Compress(5)) // gzip

	// CORS
	c := corslib.New(corslib.Options{
		AllowedOrigins:   cfg.CORSAllowOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "HEAD", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Accept-Encoding", "Content-Type", "If-None-Match", "Cache-Control"},
		ExposedHeaders:   []string{"X-Process-Time", "X-Cache", "ETag"},
		AllowCredentials: false,
	})
	r.Use(c.Handler)

	// Rate limiting
	if cfg.RateLimitEnabled {
		r.Use(RateLimitMiddleware(cfg.RateLimitRequests, cfg.RateLimitWindow))
	}

	// --- Handler dependencies ---
	h := handler.New(st, appCache, cfg, schedulerState)

	// --- Routes ---

	// Root
	r.Get("/", h.Root)

	// Health checks
	r.Route("/health", func(r chi.Router) {
		r.Get("/", h.HealthCheck)
		r.Get("/db", h.HealthCheckDB)
		r.Get("/cache", h.HealthCheckCache)
	})

	// Swagger UI
	r.Get("/docs/*", httpSwagger.Handler(
		httpSwagger.URL("/docs/doc.json"),
	))

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Availability
		r.Get("/locations", h.GetLocations)

		// Watches
		r.Get("/watchers", h.ListWatchers)
		r.Post("/watchers", h.CreateWatcher)
		r.Post("/watchers/{watchID}/toggle", h.ToggleWatcher)
		r.Delete("/watchers/{watchID}", h.DeleteWatcher)

		// Alerts
		r.Get("/alerts", h.GetAlerts)

		// Heartbeat
		r.Get("/status", h.GetStatus)
	})

	return r
}
