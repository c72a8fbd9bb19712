package ports

import (
	"context"
	"time"
)

// OutboxMessage is an event written in the same transaction as the state change it describes.
type OutboxMessage struct {
	ID          string
	EventType   string
	Key         string
	Payload     []byte
	CreatedAt   time.Time
	PublishedAt *time.Time
}

// Outbox appends messages inside a transaction.
type Outbox interface {
	Append(ctx context.Context, msgs ...OutboxMessage) error
}

// OutboxReader feeds the relay.
type OutboxReader interface {
	Pending(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkPublished(ctx context.Context, ids []string, at time.Time) error
}

// EventPublisher delivers outbox messages to the broker.
type EventPublisher interface {
	Publish(ctx context.Context, msgs ...OutboxMessage) error
}
