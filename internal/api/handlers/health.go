package handlers

import (
	"net/http"

	"github.com/gestioncarteras/backend/pkg/database"
	"github.com/gestioncarteras/backend/pkg/logger"
	"github.com/gestioncarteras/backend/pkg/redis"
)

// HealthHandler reports the health of the server and its backends.
type HealthHandler struct {
	db     *database.DB
	redis  *redis.Client
	logger *logger.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db *database.DB, rdb *redis.Client, log *logger.Logger) *HealthHandler {
	return &HealthHandler{
		db:     db,
		redis:  rdb,
		logger: log,
	}
}

// Check returns overall health
// GET /health
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := http.StatusOK
	body := map[string]interface{}{
		"status":  "ok",
		"service": "cartera-api",
	}

	if h.db != nil {
		if err := h.db.Ping(ctx); err != nil {
			h.logger.WithError(err).Error("Database health check failed")
			body["status"] = "degraded"
			body["database"] = "down"
			status = http.StatusServiceUnavailable
		} else {
			body["database"] = "up"
		}
	}

	if h.redis != nil && h.redis.Enabled() {
		if err := h.redis.Redis().Ping(ctx).Err(); err != nil {
			// Redis is optional: caching and rate limits degrade, the
			// API keeps serving.
			body["redis"] = "down"
		} else {
			body["redis"] = "up"
		}
	}

	respondJSON(w, status, body)
}
