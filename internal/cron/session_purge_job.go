package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/iwanyu/marketplace-backend/pkg/logger"
)

const defaultSessionRetention = 30 * 24 * time.Hour

type sessionPurger interface {
	Purge(ctx context.Context, retention time.Duration) (int64, error)
}

// NewSessionPurgeJob deletes sessions that expired or were revoked more than
// retention ago.
func NewSessionPurgeJob(logg *logger.Logger, sessions sessionPurger, retention time.Duration) (Job, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session purger required")
	}
	if retention <= 0 {
		retention = defaultSessionRetention
	}
	return &sessionPurgeJob{logg: logg, sessions: sessions, retention: retention}, nil
}

type sessionPurgeJob struct {
	logg      *logger.Logger
	sessions  sessionPurger
	retention time.Duration
}

func (j *sessionPurgeJob) Name() string { return "session-purge" }

func (j *sessionPurgeJob) Run(ctx context.Context) error {
	deleted, err := j.sessions.Purge(ctx, j.retention)
	if err != nil {
		return fmt.Errorf("purge sessions: %w", err)
	}
	j.logg.Info(j.logg.WithField(ctx, "rows_deleted", deleted), "session purge complete")
	return nil
}
