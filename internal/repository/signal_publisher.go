package repository

import (
	"context"

	"FlowSight/internal/domain/models"
	"FlowSight/internal/domain/repository"
	pkgkafka "FlowSight/pkg/kafka"
)

// KafkaSignalPublisher implements SignalPublisher on Kafka. Messages are
// keyed by symbol so per-symbol ordering survives partitioning.
type KafkaSignalPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaSignalPublisher creates a Kafka signal publisher.
func NewKafkaSignalPublisher(producer *pkgkafka.Producer, topic string) repository.SignalPublisher {
	return &KafkaSignalPublisher{producer: producer, topic: topic}
}

func (p *KafkaSignalPublisher) Publish(ctx context.Context, s *models.SignalEvent) error {
	return p.producer.Publish(ctx, p.topic, []byte(s.Symbol), s)
}

func (p *KafkaSignalPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

// StoreSignalPublisher writes signals straight into a SignalStore, used when
// Kafka is disabled and there is no consumer to do the persisting.
type StoreSignalPublisher struct {
	store repository.SignalStore
}

func NewStoreSignalPublisher(store repository.SignalStore) repository.SignalPublisher {
	return &StoreSignalPublisher{store: store}
}

func (p *StoreSignalPublisher) Publish(ctx context.Context, s *models.SignalEvent) error {
	return p.store.Store(ctx, s)
}

func (p *StoreSignalPublisher) Close() error { return nil }

// NoopSignalPublisher discards signals.
type NoopSignalPublisher struct{}

func (NoopSignalPublisher) Publish(context.Context, *models.SignalEvent) error { return nil }
func (NoopSignalPublisher) Close() error                                       { return nil }
