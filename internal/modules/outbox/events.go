package outbox

import (
	"context"

	"github.com/segmentio/kafka-go"
)

// EventPublisher mirrors domain events (order.created, refund.resolved)
// onto a Kafka topic for downstream consumers. A nil writer turns the
// publisher into a no-op so local setups need no broker.
type EventPublisher struct {
	writer *kafka.Writer
}

func NewEventPublisher(brokers []string, topic string) *EventPublisher {
	if len(brokers) == 0 || topic == "" {
		return &EventPublisher{}
	}
	return &EventPublisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.Hash{},
		},
	}
}

// HandleTask adapts the publisher to a dispatcher Handler: the task
// payload is forwarded verbatim, keyed for per-entity ordering.
func (p *EventPublisher) HandleTask(ctx context.Context, t Task) error {
	if p.writer == nil {
		return nil
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(t.Key),
		Value: []byte(t.PayloadJSON),
	})
}

func (p *EventPublisher) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
