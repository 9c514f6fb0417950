package repository

import (
	"context"

	"QuantLab/internal/domain/models"
	domrepo "QuantLab/internal/domain/repository"
	pkgkafka "QuantLab/pkg/kafka"

	"github.com/segmentio/kafka-go"
)

// KafkaEventPublisher implements EventPublisher on the result topic. The
// request id is both the message key and a request_id header.
type KafkaEventPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaEventPublisher(producer *pkgkafka.Producer, topic string) *KafkaEventPublisher {
	return &KafkaEventPublisher{producer: producer, topic: topic}
}

func (p *KafkaEventPublisher) PublishResult(ctx context.Context, ev models.AnalysisEvent) error {
	return p.producer.Publish(ctx, p.topic, []byte(ev.ID), ev,
		kafka.Header{Key: "request_id", Value: []byte(ev.ID)},
		kafka.Header{Key: "kind", Value: []byte(ev.Kind)},
	)
}

func (p *KafkaEventPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

// NopPublisher drops events; used when Kafka is disabled.
type NopPublisher struct{}

func (NopPublisher) PublishResult(context.Context, models.AnalysisEvent) error { return nil }

func (NopPublisher) Close() error { return nil }

var (
	_ domrepo.EventPublisher = (*KafkaEventPublisher)(nil)
	_ domrepo.EventPublisher = NopPublisher{}
)
