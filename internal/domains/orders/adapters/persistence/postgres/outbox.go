package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/Apurer/medstore-checkout/internal/domains/orders/ports"
)

var (
	_ ports.Outbox       = (*Outbox)(nil)
	_ ports.OutboxReader = (*Outbox)(nil)
)

// Outbox stores order events next to the order rows so both commit together.
type Outbox struct {
	db *gorm.DB
}

func NewOutbox(db *gorm.DB) *Outbox {
	return &Outbox{db: db}
}

type outboxRecord struct {
	ID          string     `gorm:"primaryKey;column:id;size:36"`
	EventType   string     `gorm:"column:event_type;size:64;not null"`
	Key         string     `gorm:"column:key;size:128;not null"`
	Payload     jsonText   `gorm:"column:payload;not null"`
	CreatedAt   time.Time  `gorm:"column:created_at;index:idx_outbox_pending,priority:2"`
	PublishedAt *time.Time `gorm:"column:published_at;index:idx_outbox_pending,priority:1"`
}

func (outboxRecord) TableName() string { return "outbox_events" }

func (o *Outbox) Append(ctx context.Context, msgs ...ports.OutboxMessage) error {
	if err := o.ensureDB(); err != nil {
		return err
	}
	if len(msgs) == 0 {
		return nil
	}
	records := make([]outboxRecord, 0, len(msgs))
	for _, m := range msgs {
		records = append(records, outboxRecord{
			ID:        m.ID,
			EventType: m.EventType,
			Key:       m.Key,
			Payload:   jsonText(m.Payload),
			CreatedAt: m.CreatedAt,
		})
	}
	return o.db.WithContext(ctx).Create(&records).Error
}

// Pending returns unpublished messages, oldest first.
func (o *Outbox) Pending(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if err := o.ensureDB(); err != nil {
		return nil, err
	}
	var records []outboxRecord
	q := o.db.WithContext(ctx).Where("published_at IS NULL").Order("created_at, id")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&records).Error; err != nil {
		return nil, err
	}
	msgs := make([]ports.OutboxMessage, 0, len(records))
	for _, r := range records {
		msgs = append(msgs, ports.OutboxMessage{
			ID:        r.ID,
			EventType: r.EventType,
			Key:       r.Key,
			Payload:   []byte(r.Payload),
			CreatedAt: r.CreatedAt,
		})
	}
	return msgs, nil
}

func (o *Outbox) MarkPublished(ctx context.Context, ids []string, at time.Time) error {
	if err := o.ensureDB(); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	return o.db.WithContext(ctx).Model(&outboxRecord{}).
		Where("id IN ? AND published_at IS NULL", ids).
		Update("published_at", at).Error
}

func (o *Outbox) ensureDB() error {
	if o == nil || o.db == nil {
		return errors.New("postgres outbox not configured")
	}
	return nil
}
