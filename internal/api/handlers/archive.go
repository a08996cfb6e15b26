package handlers

import (
	"net/http"
	"time"

	"github.com/gestioncarteras/backend/internal/archiver"
	"github.com/gestioncarteras/backend/pkg/logger"
)

// ArchiveHandler triggers card archival on demand.
type ArchiveHandler struct {
	archiver *archiver.Archiver
	logger   *logger.Logger
}

// NewArchiveHandler creates a new archive handler
func NewArchiveHandler(a *archiver.Archiver, log *logger.Logger) *ArchiveHandler {
	return &ArchiveHandler{
		archiver: a,
		logger:   log,
	}
}

// Trigger runs the archival immediately
// POST /api/archive?dry_run=true
func (h *ArchiveHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	dryRun := r.URL.Query().Get("dry_run") == "true"

	result, err := h.archiver.Run(ctx, time.Now(), dryRun)
	if err != nil {
		h.logger.WithError(err).Error("Archival run failed")
		respondError(w, http.StatusInternalServerError, "Archival run failed")
		return
	}

	status := http.StatusOK
	if len(result.Errors) > 0 {
		// Partial success: some clients archived, some failed.
		status = http.StatusMultiStatus
	}

	respondJSON(w, status, result)
}
