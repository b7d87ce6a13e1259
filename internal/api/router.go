package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/sentiq-platform/sentiq/internal/config"
	"github.com/sentiq-platform/sentiq/internal/database"
	mw "github.com/sentiq-platform/sentiq/internal/middleware"
)

// HandlerSet holds handler functions injected from main.go to avoid import
// cycles.
type HandlerSet struct {
	// Inference handlers
	Predict        http.HandlerFunc
	ListInferences http.HandlerFunc

	// Abuse/quota operator handlers
	QuotaStatus    http.HandlerFunc
	ListViolations http.HandlerFunc

	// Middleware
	QuotaMiddleware  func(http.Handler) http.Handler
	APIKeyMiddleware func(http.Handler) http.Handler

	// Readiness of the optional events publisher; nil when not configured
	EventsHealthy func() bool
}

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	App                config.AppConfig
	CORSAllowedOrigins []string
}

func NewRouter(pool *pgxpool.Pool, rdb *redis.Client, cfg RouterConfig, h HandlerSet) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.SecurityHeaders)
	r.Use(mw.Logging)
	r.Use(mw.Recovery)
	r.Use(mw.Metrics)
	r.Use(cors.Handler(mw.CORS(cfg.CORSAllowedOrigins)))

	// Service info
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		JSON(w, http.StatusOK, map[string]string{
			"name":        cfg.App.Name,
			"version":     cfg.App.Version,
			"model":       cfg.App.Model,
			"predict_url": "/api/v1/predict",
			"dash_url":    "/api/v1/inferences",
		})
	})

	// Liveness probe — always 200, no dependency checks
	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		JSON(w, http.StatusOK, map[string]string{"status": "alive"})
	})

	// Readiness probe — checks Postgres, Redis and the events publisher
	readinessHandler := func(w http.ResponseWriter, r *http.Request) {
		health := map[string]string{
			"status":   "healthy",
			"database": "healthy",
			"redis":    "healthy",
			"events":   "healthy",
		}

		status := http.StatusOK

		if err := database.HealthCheck(r.Context(), pool); err != nil {
			health["database"] = "unhealthy"
			health["status"] = "degraded"
			status = http.StatusServiceUnavailable
		}

		if err := rdb.Ping(r.Context()).Err(); err != nil {
			health["redis"] = "unhealthy"
			health["status"] = "degraded"
			status = http.StatusServiceUnavailable
		}

		if h.EventsHealthy != nil {
			if !h.EventsHealthy() {
				health["events"] = "unhealthy"
				health["status"] = "degraded"
			}
		} else {
			health["events"] = "not configured"
		}

		JSON(w, status, health)
	}

	r.Get("/health/ready", readinessHandler)
	r.Get("/health", readinessHandler)

	// Prometheus metrics
	r.Handle("/metrics", promhttp.Handler())

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		// Public inference endpoint, guarded by the quota gate
		r.Group(func(r chi.Router) {
			if h.QuotaMiddleware != nil {
				r.Use(h.QuotaMiddleware)
			}
			r.Post("/predict", h.Predict)
		})

		// Operator dashboard endpoints, API-key protected
		r.Group(func(r chi.Router) {
			r.Use(h.APIKeyMiddleware)
			r.Get("/inferences", h.ListInferences)
			r.Route("/abuse", func(r chi.Router) {
				r.Get("/status", h.QuotaStatus)
				r.Get("/violations", h.ListViolations)
			})
		})
	})

	return r
}
