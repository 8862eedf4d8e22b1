// Command outbox-publisher relays committed domain events from outbox_events
// to Pub/Sub or Kafka.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/iwanyu/marketplace-backend/pkg/config"
	"github.com/iwanyu/marketplace-backend/pkg/db"
	"github.com/iwanyu/marketplace-backend/pkg/kafka"
	"github.com/iwanyu/marketplace-backend/pkg/logger"
	"github.com/iwanyu/marketplace-backend/pkg/metrics"
	"github.com/iwanyu/marketplace-backend/pkg/migrate"
	"github.com/iwanyu/marketplace-backend/pkg/outbox"
	"github.com/iwanyu/marketplace-backend/pkg/outbox/registry"
	"github.com/iwanyu/marketplace-backend/pkg/pubsub"
)

const serviceName = "outbox-publisher"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	boot := logger.New(logger.Options{ServiceName: serviceName})
	if err := godotenv.Load(); err != nil {
		boot.Warn(ctx, "dotenv.missing")
	}
	cfg, err := config.Load()
	if err != nil {
		boot.Error(ctx, "config.load_failed", err)
		return err
	}
	logg := logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "postgres.bootstrap_failed", err)
		return err
	}
	defer closeQuietly(ctx, logg, "postgres", dbClient.Close)

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "migrate.dev_failed", err)
		return err
	}

	eventSink, closeSink, err := buildSink(ctx, cfg, logg)
	if err != nil {
		logg.Error(ctx, "sink.bootstrap_failed", err)
		return err
	}
	defer closeQuietly(ctx, logg, eventSink.Name(), closeSink)

	events, err := registry.NewEventRegistry(eventSink.Topic())
	if err != nil {
		logg.Error(ctx, "registry.build_failed", err)
		return err
	}
	service, err := NewService(ServiceParams{
		Settings:   cfg.Outbox,
		Logger:     logg,
		DB:         dbClient,
		Sink:       eventSink,
		Repository: outbox.NewRepository(dbClient.DB()),
		Registry:   events,
		Metrics:    metrics.NewOutboxMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		logg.Error(ctx, "outbox.publisher_init_failed", err)
		return err
	}

	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "sink": eventSink.Name(), "topic": eventSink.Topic()})
	logg.Info(ctx, "outbox.publisher_starting")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "outbox.publisher_crashed", err)
		return err
	}
	logg.Info(ctx, "outbox.publisher_stopped")
	return nil
}

func buildSink(ctx context.Context, cfg *config.Config, logg *logger.Logger) (sink, func() error, error) {
	if cfg.Outbox.Publisher == config.OutboxSinkKafka {
		producer, err := kafka.NewProducer(cfg.Kafka, logg)
		if err != nil {
			return nil, nil, err
		}
		return &kafkaSink{producer: producer}, producer.Close, nil
	}

	client, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		return nil, nil, err
	}
	s, err := newPubSubSink(client)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return s, client.Close, nil
}

func closeQuietly(ctx context.Context, logg *logger.Logger, what string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logg.Error(logg.WithField(context.WithoutCancel(ctx), "resource", what), "shutdown.close_failed", err)
	}
}
