package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bakery-pos/internal/config"
	"bakery-pos/internal/logger"
	"bakery-pos/internal/web"
)

// Pinger reports whether the database is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Routes groups the route registrations of the service packages.
// Admin routes are mounted behind web.RequireActor.
type Routes struct {
	Public   []func(chi.Router)
	Sessions func(chi.Router)
	Admin    []func(chi.Router)
}

// NewRouter builds the back office API
func NewRouter(cfg config.ServerConfig, db Pinger, staff web.StaffLookup, routes Routes, log *logger.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(web.WithLogging(log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", web.ActorHeader, web.RequestIDHeader},
		ExposedHeaders: []string{web.RequestIDHeader},
		MaxAge:         300,
	}))
	r.Use(middleware.AllowContentType("application/json"))

	r.Get("/health", healthHandler(db, log))
	r.Handle("/metrics", promhttp.Handler())

	for _, register := range routes.Public {
		register(r)
	}

	if routes.Sessions != nil {
		r.Group(func(r chi.Router) {
			if cfg.LoginRateLimit > 0 {
				r.Use(httprate.LimitByIP(cfg.LoginRateLimit, time.Minute))
			}
			routes.Sessions(r)
		})
	}

	r.Group(func(r chi.Router) {
		r.Use(web.RequireActor(staff))
		for _, register := range routes.Admin {
			register(r)
		}
	})

	return r
}

func healthHandler(db Pinger, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		response := map[string]interface{}{
			"status":    "ok",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"service":   "pos-service",
		}
		if err := db.Ping(ctx); err != nil {
			log.Warn("health_check_failed", "Database ping failed", logger.RequestIDFromContext(r.Context()), map[string]interface{}{
				"error": err.Error(),
			})
			response["status"] = "unhealthy"
			web.WriteJSON(w, http.StatusServiceUnavailable, response)
			return
		}
		web.WriteJSON(w, http.StatusOK, response)
	}
}
