package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/iwanyu/marketplace-backend/pkg/config"
	"github.com/iwanyu/marketplace-backend/pkg/db/models"
	"github.com/iwanyu/marketplace-backend/pkg/logger"
	"github.com/iwanyu/marketplace-backend/pkg/metrics"
	"github.com/iwanyu/marketplace-backend/pkg/outbox/registry"
)

const (
	defaultBatchSize   = 50
	defaultPoll        = 500 * time.Millisecond
	defaultMaxAttempts = 10
	publishTimeout     = 15 * time.Second
	maxBackoff         = 10 * time.Second
	jitterWindow       = 250 * time.Millisecond
)

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type outboxRepository interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type eventResolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

// outcome is what happened to one row in a batch.
type outcome int

const (
	outcomePublished outcome = iota
	outcomeRetry
	// outcomeParked rows are pinned at the attempt ceiling and never fetched again.
	outcomeParked
)

type ServiceParams struct {
	Settings   config.OutboxConfig
	Logger     *logger.Logger
	DB         dbClient
	Sink       sink
	Repository outboxRepository
	Registry   eventResolver
	Metrics    *metrics.OutboxMetrics
}

// Service drains outbox_events into the configured sink. Rows are claimed
// with SKIP LOCKED, so replicas split the backlog instead of double sending.
type Service struct {
	logg        *logger.Logger
	db          dbClient
	repo        outboxRepository
	sink        sink
	resolver    eventResolver
	metrics     *metrics.OutboxMetrics
	batchSize   int
	maxAttempts int
	poll        time.Duration
}

func NewService(p ServiceParams) (*Service, error) {
	switch {
	case p.Logger == nil:
		return nil, errors.New("logger is required")
	case p.DB == nil:
		return nil, errors.New("database client is required")
	case p.Sink == nil:
		return nil, errors.New("event sink is required")
	case p.Repository == nil:
		return nil, errors.New("outbox repository is required")
	case p.Registry == nil:
		return nil, errors.New("event registry is required")
	}
	s := &Service{
		logg:        p.Logger,
		db:          p.DB,
		repo:        p.Repository,
		sink:        p.Sink,
		resolver:    p.Registry,
		metrics:     p.Metrics,
		batchSize:   positiveOr(p.Settings.BatchSize, defaultBatchSize),
		maxAttempts: positiveOr(p.Settings.MaxAttempts, defaultMaxAttempts),
		poll:        time.Duration(p.Settings.PollIntervalMS) * time.Millisecond,
	}
	if s.poll <= 0 {
		s.poll = defaultPoll
	}
	return s, nil
}

func positiveOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

// Run polls until ctx is cancelled. A full batch is followed immediately by
// the next one; failures back off exponentially up to maxBackoff.
func (s *Service) Run(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return fmt.Errorf("database ping: %w", err)
	}
	if err := s.sink.Ping(ctx); err != nil {
		return fmt.Errorf("%s ping: %w", s.sink.Name(), err)
	}

	delay := s.poll
	for {
		handled, err := s.drain(ctx)
		switch {
		case ctx.Err() != nil:
			s.logg.Info(ctx, "outbox.publisher_stopping")
			return ctx.Err()
		case err != nil:
			s.logg.Error(ctx, "outbox.batch_failed", err)
			delay = grow(delay, s.poll)
		case handled > 0:
			delay = s.poll
			continue
		default:
			delay = s.poll
		}
		if err := pause(ctx, delay+rand.N(jitterWindow)); err != nil {
			return err
		}
	}
}

// drain claims one batch and settles every row in it inside one transaction.
// Only bookkeeping failures abort the batch.
func (s *Service) drain(ctx context.Context) (handled int, err error) {
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := s.repo.FetchUnpublishedForPublish(tx, s.batchSize, s.maxAttempts)
		if err != nil {
			return fmt.Errorf("claim batch: %w", err)
		}
		for _, event := range events {
			result, cause := s.attempt(ctx, event)
			if err := s.settle(ctx, tx, event, result, cause); err != nil {
				return err
			}
			handled++
		}
		return nil
	})
	return handled, err
}

func (s *Service) attempt(ctx context.Context, event models.OutboxEvent) (outcome, error) {
	resolved, err := s.resolver.Resolve(event)
	if err != nil {
		return outcomeParked, err
	}

	sendCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	err = s.sink.Publish(sendCtx, messageFor(event, resolved))

	var permanent registry.NonRetryableError
	switch {
	case err == nil:
		return outcomePublished, nil
	case errors.As(err, &permanent):
		return outcomeParked, err
	case event.AttemptCount+1 >= s.maxAttempts:
		return outcomeParked, fmt.Errorf("gave up after %d attempts: %w", event.AttemptCount+1, err)
	default:
		return outcomeRetry, err
	}
}

func (s *Service) settle(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, result outcome, cause error) error {
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"outbox_id":      event.ID.String(),
		"event_type":     string(event.EventType),
		"aggregate_type": string(event.AggregateType),
		"aggregate_id":   event.AggregateID.String(),
		"attempt_count":  event.AttemptCount,
		"sink":           s.sink.Name(),
	})
	if cause != nil {
		logCtx = s.logg.WithField(logCtx, "error", cause.Error())
	}

	switch result {
	case outcomePublished:
		if err := s.repo.MarkPublishedTx(tx, event.ID); err != nil {
			return fmt.Errorf("mark %s published: %w", event.ID, err)
		}
		s.metrics.IncPublished(string(event.EventType))
		s.logg.Info(logCtx, "outbox.published")
	case outcomeRetry:
		if err := s.repo.MarkFailedTx(tx, event.ID, cause); err != nil {
			return fmt.Errorf("mark %s failed: %w", event.ID, err)
		}
		s.metrics.IncFailed(string(event.EventType))
		s.logg.Warn(logCtx, "outbox.publish_retry")
	case outcomeParked:
		if err := s.repo.MarkTerminalTx(tx, event.ID, cause, s.maxAttempts); err != nil {
			return fmt.Errorf("park %s: %w", event.ID, err)
		}
		s.metrics.IncFailed(string(event.EventType))
		s.logg.Warn(logCtx, "outbox.parked")
	}
	return nil
}

// messageFor keys by aggregate so one order's events stay ordered on
// partitioned sinks.
func messageFor(event models.OutboxEvent, resolved *registry.ResolvedEvent) sinkMessage {
	eventID := resolved.Envelope.EventID
	if eventID == "" {
		eventID = event.ID.String()
	}
	return sinkMessage{
		Key:  event.AggregateID.String(),
		Data: event.Payload,
		Attributes: map[string]string{
			"event_id":       eventID,
			"event_type":     string(event.EventType),
			"aggregate_type": string(event.AggregateType),
			"aggregate_id":   event.AggregateID.String(),
			"created_at":     event.CreatedAt.UTC().Format(time.RFC3339Nano),
		},
	}
}

// grow doubles the delay, starting from floor and capped at maxBackoff.
func grow(current, floor time.Duration) time.Duration {
	return min(max(current, floor)*2, maxBackoff)
}

func pause(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
