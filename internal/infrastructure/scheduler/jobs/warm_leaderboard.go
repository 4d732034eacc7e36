// Package jobs contains the scheduled jobs of the points service.
package jobs

import (
	"context"
	"time"

	"github.com/connecta-hub/connecta-points/pkg/logger"
)

// RankingWarmer precomputes rankings for every period.
type RankingWarmer interface {
	Warm(ctx context.Context) error
}

// WarmLeaderboardJob keeps the ranking cache populated so that reads rarely
// hit the database.
type WarmLeaderboardJob struct {
	warmer  RankingWarmer
	timeout time.Duration
	log     *logger.Logger
}

// NewWarmLeaderboardJob creates the job. timeout bounds one run.
func NewWarmLeaderboardJob(warmer RankingWarmer, timeout time.Duration, log *logger.Logger) *WarmLeaderboardJob {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WarmLeaderboardJob{warmer: warmer, timeout: timeout, log: log}
}

// Name implements scheduler.Job.
func (j *WarmLeaderboardJob) Name() string { return "warm_leaderboard" }

// Description implements scheduler.Job.
func (j *WarmLeaderboardJob) Description() string {
	return "precompute daily, weekly, monthly and all-time rankings"
}

// Run implements scheduler.Job.
func (j *WarmLeaderboardJob) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	start := time.Now()
	if err := j.warmer.Warm(ctx); err != nil {
		return err
	}
	j.log.Debug("rankings warmed", logger.Latency(time.Since(start)))
	return nil
}
