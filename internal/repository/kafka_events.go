package repository

import (
	"context"

	"HourCast/internal/domain/repository"
	pkgkafka "HourCast/pkg/kafka"
)

// KafkaEventPublisher ships integration events through the shared producer.
type KafkaEventPublisher struct {
	producer *pkgkafka.Producer
}

// NewKafkaEventPublisher creates a Kafka-backed event publisher.
func NewKafkaEventPublisher(producer *pkgkafka.Producer) repository.EventPublisher {
	return &KafkaEventPublisher{producer: producer}
}

func (p *KafkaEventPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return p.producer.Publish(ctx, topic, nil, payload)
}

func (p *KafkaEventPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

// NoopEventPublisher is used when Kafka is disabled in config.
type NoopEventPublisher struct{}

func (NoopEventPublisher) PublishMessage(context.Context, string, interface{}) error { return nil }
func (NoopEventPublisher) Close() error                                              { return nil }
