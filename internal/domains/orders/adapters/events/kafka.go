package events

import (
	"context"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/Apurer/medstore-checkout/internal/domains/orders/ports"
)

const (
	headerEventType = "event-type"
	headerMessageID = "message-id"
)

// MessageWriter is the part of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaPublisher writes outbox messages to the order events topic, keyed by order so one order's
// events stay on one partition.
type KafkaPublisher struct {
	w MessageWriter
}

var _ ports.EventPublisher = (*KafkaPublisher)(nil)

func NewKafkaPublisher(w MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{w: w}
}

func (p *KafkaPublisher) Publish(ctx context.Context, msgs ...ports.OutboxMessage) error {
	if len(msgs) == 0 {
		return nil
	}
	out := make([]kafka.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, kafka.Message{
			Key:   []byte(m.Key),
			Value: m.Payload,
			Time:  m.CreatedAt,
			Headers: []kafka.Header{
				{Key: headerEventType, Value: []byte(m.EventType)},
				{Key: headerMessageID, Value: []byte(m.ID)},
			},
		})
	}
	if err := p.w.WriteMessages(ctx, out...); err != nil {
		return fmt.Errorf("publish %d order events: %w", len(out), err)
	}
	return nil
}
