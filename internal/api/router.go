package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/gestioncarteras/backend/internal/api/handlers"
	"github.com/gestioncarteras/backend/internal/realtime"
	"github.com/gestioncarteras/backend/pkg/logger"
	"github.com/gestioncarteras/backend/pkg/redis"
)

// RouterDeps bundles everything the router wires up.
type RouterDeps struct {
	Report    *handlers.ReportHandler
	Archive   *handlers.ArchiveHandler
	Scheduler *handlers.SchedulerHandler
	Health    *handlers.HealthHandler
	Hub       *realtime.Hub
	Limiter   *redis.RateLimiter
}

// NewRouter creates and configures the HTTP router
func NewRouter(deps RouterDeps, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", deps.Health.Check).Methods("GET")

	// Dashboard event stream
	if deps.Hub != nil {
		r.HandleFunc("/ws", deps.Hub.ServeWS)
	}

	// API v1
	api := r.PathPrefix("/api").Subrouter()

	// Report endpoints (rate limited: report assembly is expensive)
	api.Handle("/clients/{id}/report",
		rateLimitMiddleware(deps.Limiter, redis.ReportRateLimit, log)(
			http.HandlerFunc(deps.Report.GetClientReport))).Methods("GET")
	api.HandleFunc("/cards/{code}/indicators", deps.Report.GetCardIndicators).Methods("GET")

	// Archival
	api.Handle("/archive",
		rateLimitMiddleware(deps.Limiter, redis.ArchiveRateLimit, log)(
			http.HandlerFunc(deps.Archive.Trigger))).Methods("POST")

	// Scheduler
	api.HandleFunc("/scheduler/status", deps.Scheduler.Status).Methods("GET")
	api.HandleFunc("/scheduler/jobs/{name}/run", deps.Scheduler.RunJob).Methods("POST")

	// Apply middleware
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// rateLimitMiddleware rejects requests over the sliding-window limit.
// With Redis disabled the limiter allows everything.
func rateLimitMiddleware(limiter *redis.RateLimiter, cfg redis.RateLimitConfig, log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter != nil {
				allowed, _, err := limiter.Allow(r.Context(), cfg)
				if err != nil {
					// A broken limiter must not take the API down.
					log.WithError(err).Warn("Rate limit check failed, allowing request")
				}
				if err == nil && !allowed {
					w.Header().Set("Retry-After", "60")
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusTooManyRequests)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Rate limit exceeded",
					})
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Call next handler
			next.ServeHTTP(w, r)

			// Log request
			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
