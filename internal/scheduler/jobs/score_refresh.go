package jobs

import (
	"context"
	"fmt"

	"github.com/gestioncarteras/backend/internal/report"
	"github.com/gestioncarteras/backend/pkg/logger"
)

// ClientLister yields the clients whose scores need refreshing.
type ClientLister interface {
	ClientIDsWithCards(ctx context.Context) ([]string, error)
}

// ScoreRefreshJob recomputes every active client's global score each
// night, so the stored score never drifts far from the live number
// even for clients nobody requested a report for.
type ScoreRefreshJob struct {
	reports *report.Service
	clients ClientLister
	logger  *logger.Logger
}

// NewScoreRefreshJob creates a new score refresh job
func NewScoreRefreshJob(reports *report.Service, clients ClientLister, log *logger.Logger) *ScoreRefreshJob {
	return &ScoreRefreshJob{
		reports: reports,
		clients: clients,
		logger:  log,
	}
}

// Name returns the job name
func (j *ScoreRefreshJob) Name() string {
	return "score_refresh"
}

// Schedule returns the cron schedule (every day at 4 AM)
func (j *ScoreRefreshJob) Schedule() string {
	return "0 0 4 * * *"
}

// Run executes the refresh
func (j *ScoreRefreshJob) Run(ctx context.Context) error {
	ids, err := j.clients.ClientIDsWithCards(ctx)
	if err != nil {
		return fmt.Errorf("list clients: %w", err)
	}

	var failed int
	for _, id := range ids {
		if _, err := j.reports.RefreshScore(ctx, id); err != nil {
			failed++
			j.logger.WithError(err).WithField("client", id).Warn("Score refresh failed for client")
		}
	}

	j.logger.WithFields(map[string]interface{}{
		"clients": len(ids),
		"failed":  failed,
	}).Info("Score refresh completed")

	if failed == len(ids) && len(ids) > 0 {
		return fmt.Errorf("score refresh failed for all %d clients", len(ids))
	}

	return nil
}
