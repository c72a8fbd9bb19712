package memory

import (
	"context"
	"sync"
	"time"

	"github.com/Apurer/medstore-checkout/internal/domains/orders/ports"
)

var (
	_ ports.Outbox       = (*Outbox)(nil)
	_ ports.OutboxReader = (*Outbox)(nil)
)

// Outbox keeps messages in append order.
type Outbox struct {
	mu   sync.RWMutex
	msgs []ports.OutboxMessage
}

func NewOutbox() *Outbox {
	return &Outbox{}
}

func (o *Outbox) Append(_ context.Context, msgs ...ports.OutboxMessage) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, m := range msgs {
		m.Payload = append([]byte(nil), m.Payload...)
		o.msgs = append(o.msgs, m)
	}
	return nil
}

func (o *Outbox) Pending(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	var out []ports.OutboxMessage
	for _, m := range o.msgs {
		if m.PublishedAt != nil {
			continue
		}
		out = append(out, m)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (o *Outbox) MarkPublished(_ context.Context, ids []string, at time.Time) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	for i := range o.msgs {
		if _, ok := want[o.msgs[i].ID]; ok && o.msgs[i].PublishedAt == nil {
			t := at.UTC()
			o.msgs[i].PublishedAt = &t
		}
	}
	return nil
}

// Messages returns every message, published or not.
func (o *Outbox) Messages() []ports.OutboxMessage {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return append([]ports.OutboxMessage(nil), o.msgs...)
}

// Discard drops messages by id.
func (o *Outbox) Discard(ids []string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	kept := o.msgs[:0]
	for _, m := range o.msgs {
		if _, ok := drop[m.ID]; !ok {
			kept = append(kept, m)
		}
	}
	o.msgs = kept
}
