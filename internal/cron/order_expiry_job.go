package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/iwanyu/marketplace-backend/pkg/db/models"
	"github.com/iwanyu/marketplace-backend/pkg/logger"
)

const (
	defaultOrderTTL       = 48 * time.Hour
	defaultExpiryBatch    = 200
	orderExpiryJobName    = "order-expiry"
	maxExpiryBatchesCycle = 10
)

type staleOrderFinder interface {
	FindStalePending(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
}

type orderExpirer interface {
	Expire(ctx context.Context, orderID uuid.UUID) (bool, error)
}

// OrderExpiryJobParams configure the unpaid order expiry job.
type OrderExpiryJobParams struct {
	Logger    *logger.Logger
	Finder    staleOrderFinder
	Expirer   orderExpirer
	TTL       time.Duration
	BatchSize int
}

// NewOrderExpiryJob cancels PENDING orders still unpaid after TTL. Each order
// is expired in its own transaction so one failure does not hold back the rest.
func NewOrderExpiryJob(params OrderExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Finder == nil {
		return nil, fmt.Errorf("stale order finder required")
	}
	if params.Expirer == nil {
		return nil, fmt.Errorf("order expirer required")
	}
	job := &orderExpiryJob{
		logg:    params.Logger,
		finder:  params.Finder,
		expirer: params.Expirer,
		ttl:     params.TTL,
		batch:   params.BatchSize,
		now:     func() time.Time { return time.Now().UTC() },
	}
	if job.ttl <= 0 {
		job.ttl = defaultOrderTTL
	}
	if job.batch <= 0 {
		job.batch = defaultExpiryBatch
	}
	return job, nil
}

type orderExpiryJob struct {
	logg    *logger.Logger
	finder  staleOrderFinder
	expirer orderExpirer
	ttl     time.Duration
	batch   int
	now     func() time.Time
}

func (j *orderExpiryJob) Name() string { return orderExpiryJobName }

func (j *orderExpiryJob) Run(ctx context.Context) error {
	cutoff := j.now().Add(-j.ttl)
	var (
		errs     error
		expired  int
		skipped  int
		attempts = map[uuid.UUID]struct{}{}
	)

	for round := 0; round < maxExpiryBatchesCycle; round++ {
		stale, err := j.finder.FindStalePending(ctx, cutoff, j.batch)
		if err != nil {
			return multierr.Append(errs, fmt.Errorf("find stale orders: %w", err))
		}
		fresh := 0
		for _, order := range stale {
			if _, seen := attempts[order.ID]; seen {
				continue
			}
			attempts[order.ID] = struct{}{}
			fresh++

			done, err := j.expirer.Expire(ctx, order.ID)
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("expire order %s: %w", order.OrderNumber, err))
				continue
			}
			if done {
				expired++
			} else {
				skipped++
			}
		}
		// Failed orders come back in the next query; stop once nothing new shows up.
		if len(stale) < j.batch || fresh == 0 {
			break
		}
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":  cutoff,
		"expired": expired,
		"skipped": skipped,
		"failed":  len(multierr.Errors(errs)),
	}), "order expiry sweep complete")
	return errs
}
