package main

import (
	"context"
	"errors"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/iwanyu/marketplace-backend/pkg/kafka"
	"github.com/iwanyu/marketplace-backend/pkg/pubsub"
)

// sinkMessage is the transport-neutral form of an outbox row.
type sinkMessage struct {
	Key        string
	Data       []byte
	Attributes map[string]string
}

type sink interface {
	Name() string
	Topic() string
	Ping(context.Context) error
	Publish(context.Context, sinkMessage) error
}

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

type pubsubSink struct {
	client    *pubsub.Client
	publisher publisher
}

func newPubSubSink(client *pubsub.Client) (*pubsubSink, error) {
	pub := client.DomainPublisher()
	if pub == nil {
		return nil, errors.New("pubsub domain publisher not configured")
	}
	return &pubsubSink{client: client, publisher: &gcpPublisher{Publisher: pub}}, nil
}

func (s *pubsubSink) Name() string  { return "pubsub" }
func (s *pubsubSink) Topic() string { return s.client.DomainTopic() }

func (s *pubsubSink) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

func (s *pubsubSink) Publish(ctx context.Context, msg sinkMessage) error {
	result := s.publisher.Publish(ctx, &gcppubsub.Message{
		Data:       msg.Data,
		Attributes: msg.Attributes,
	})
	if result == nil {
		return errors.New("publisher returned nil result")
	}
	_, err := result.Get(ctx)
	return err
}

type gcpPublisher struct {
	*gcppubsub.Publisher
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	if p == nil || p.Publisher == nil {
		return nil
	}
	return &gcpPublishResult{PublishResult: p.Publisher.Publish(ctx, msg)}
}

type gcpPublishResult struct {
	*gcppubsub.PublishResult
}

func (r *gcpPublishResult) Get(ctx context.Context) (string, error) {
	if r == nil || r.PublishResult == nil {
		return "", errors.New("publish result is nil")
	}
	return r.PublishResult.Get(ctx)
}

type kafkaSink struct {
	producer *kafka.Producer
}

func (s *kafkaSink) Name() string  { return "kafka" }
func (s *kafkaSink) Topic() string { return s.producer.Topic() }

func (s *kafkaSink) Ping(ctx context.Context) error {
	return s.producer.Ping(ctx)
}

func (s *kafkaSink) Publish(ctx context.Context, msg sinkMessage) error {
	return s.producer.Publish(ctx, msg.Key, msg.Data, msg.Attributes)
}
