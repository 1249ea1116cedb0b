// Package events publishes order status-change events to Kafka so downstream
// consumers (fulfillment, notifications) see transitions without polling.
package events

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/commercekit/globalpay-reconciler/internal/application"
	"github.com/commercekit/globalpay-reconciler/internal/config"
	"github.com/segmentio/kafka-go"
)

type KafkaPublisher struct {
	writer *kafka.Writer
	topic  string
}

func NewKafkaPublisher(cfg config.EventsConfig) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(cfg.Brokers...),
			Balancer: &kafka.LeastBytes{},
		},
		topic: cfg.Topic,
	}
}

// PublishStatusChange emits one event per visible transition, keyed by order
// id so per-order ordering survives partitioning.
func (p *KafkaPublisher) PublishStatusChange(ctx context.Context, event application.OrderEvent) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	value, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Topic: p.topic,
		Key:   []byte(strconv.FormatInt(event.OrderID, 10)),
		Value: value,
		Time:  event.OccurredAt,
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NoopPublisher is used when event publishing is disabled.
type NoopPublisher struct{}

func (NoopPublisher) PublishStatusChange(ctx context.Context, event application.OrderEvent) error {
	return nil
}
