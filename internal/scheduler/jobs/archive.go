package jobs

import (
	"context"
	"time"

	"github.com/gestioncarteras/backend/internal/archiver"
	"github.com/gestioncarteras/backend/pkg/logger"
)

// ArchiveJob runs the monthly compaction of old cancelled cards.
type ArchiveJob struct {
	archiver *archiver.Archiver
	schedule string
	logger   *logger.Logger
}

// NewArchiveJob creates a new archive job
func NewArchiveJob(a *archiver.Archiver, schedule string, log *logger.Logger) *ArchiveJob {
	return &ArchiveJob{
		archiver: a,
		schedule: schedule,
		logger:   log,
	}
}

// Name returns the job name
func (j *ArchiveJob) Name() string {
	return "card_archival"
}

// Schedule returns the cron schedule (configured, monthly by default)
func (j *ArchiveJob) Schedule() string {
	return j.schedule
}

// Run executes the archival
func (j *ArchiveJob) Run(ctx context.Context) error {
	result, err := j.archiver.Run(ctx, time.Now(), false)
	if err != nil {
		return err
	}

	j.logger.WithFields(map[string]interface{}{
		"archived": result.ArchivedCards,
		"clients":  result.ClientsAffected,
		"errors":   len(result.Errors),
	}).Info("Scheduled archival completed")

	return nil
}
