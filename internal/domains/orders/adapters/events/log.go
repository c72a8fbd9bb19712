package events

import (
	"context"
	"log/slog"

	"github.com/Apurer/medstore-checkout/internal/domains/orders/ports"
)

// LogPublisher stands in for the broker when Kafka is not configured.
type LogPublisher struct {
	logger *slog.Logger
}

var _ ports.EventPublisher = (*LogPublisher)(nil)

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, msgs ...ports.OutboxMessage) error {
	for _, m := range msgs {
		p.logger.LogAttrs(ctx, slog.LevelInfo, "order event",
			slog.String("event.id", m.ID),
			slog.String("event.type", m.EventType),
			slog.String("event.key", m.Key),
			slog.String("event.payload", string(m.Payload)),
		)
	}
	return nil
}
