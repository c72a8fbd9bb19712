package events

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Apurer/medstore-checkout/internal/domains/orders/ports"
)

// Relay moves pending outbox messages to the publisher. A message is marked published only after
// the publisher accepted it, so delivery is at-least-once.
type Relay struct {
	outbox    ports.OutboxReader
	publisher ports.EventPublisher
	logger    *slog.Logger
	batch     int
	interval  time.Duration
	now       func() time.Time
}

type RelayOption func(*Relay)

func WithRelayLogger(logger *slog.Logger) RelayOption {
	return func(r *Relay) {
		r.logger = logger
	}
}

func WithBatchSize(n int) RelayOption {
	return func(r *Relay) {
		if n > 0 {
			r.batch = n
		}
	}
}

func WithInterval(d time.Duration) RelayOption {
	return func(r *Relay) {
		if d > 0 {
			r.interval = d
		}
	}
}

func WithRelayClock(now func() time.Time) RelayOption {
	return func(r *Relay) {
		if now != nil {
			r.now = now
		}
	}
}

func NewRelay(outbox ports.OutboxReader, publisher ports.EventPublisher, opts ...RelayOption) *Relay {
	r := &Relay{
		outbox:    outbox,
		publisher: publisher,
		logger:    slog.Default(),
		batch:     100,
		interval:  time.Second,
		now:       time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// RunOnce drains up to one batch and reports how many messages were published.
func (r *Relay) RunOnce(ctx context.Context) (int, error) {
	msgs, err := r.outbox.Pending(ctx, r.batch)
	if err != nil || len(msgs) == 0 {
		return 0, err
	}
	if err := r.publisher.Publish(ctx, msgs...); err != nil {
		return 0, err
	}
	ids := make([]string, 0, len(msgs))
	for _, m := range msgs {
		ids = append(ids, m.ID)
	}
	if err := r.outbox.MarkPublished(ctx, ids, r.now()); err != nil {
		return 0, err
	}
	return len(msgs), nil
}

// Run polls until ctx is cancelled. A full batch is followed immediately by another drain.
func (r *Relay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		n, err := r.RunOnce(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			r.logger.LogAttrs(ctx, slog.LevelError, "outbox relay failed", slog.String("error", err.Error()))
		}
		if err == nil && n == r.batch {
			continue
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
