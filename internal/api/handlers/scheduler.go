package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/gestioncarteras/backend/internal/scheduler"
	"github.com/gestioncarteras/backend/pkg/logger"
)

// SchedulerHandler exposes job status and manual triggering.
type SchedulerHandler struct {
	scheduler *scheduler.Scheduler
	logger    *logger.Logger
}

// NewSchedulerHandler creates a new scheduler handler
func NewSchedulerHandler(s *scheduler.Scheduler, log *logger.Logger) *SchedulerHandler {
	return &SchedulerHandler{
		scheduler: s,
		logger:    log,
	}
}

// Status returns statistics for every registered job
// GET /api/scheduler/status
func (h *SchedulerHandler) Status(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  h.scheduler.GetAllJobs(),
		"stats": h.scheduler.GetJobStats(),
	})
}

// RunJob triggers one job outside its schedule
// POST /api/scheduler/jobs/{name}/run
func (h *SchedulerHandler) RunJob(w http.ResponseWriter, r *http.Request) {
	jobName := mux.Vars(r)["name"]

	if err := h.scheduler.RunJob(jobName); err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	h.logger.WithField("job", jobName).Info("Job triggered manually")
	respondJSON(w, http.StatusAccepted, map[string]string{
		"job":    jobName,
		"status": "started",
	})
}
