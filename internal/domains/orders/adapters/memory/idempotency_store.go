package memory

import (
	"context"
	"sync"
	"time"

	"github.com/Apurer/medstore-checkout/internal/domains/orders/ports"
)

var _ ports.IdempotencyStore = (*IdempotencyStore)(nil)

// IdempotencyStore provides an in-memory implementation for development and tests.
type IdempotencyStore struct {
	mu      sync.RWMutex
	records map[string]ports.IdempotencyRecord
	now     func() time.Time
}

// NewIdempotencyStore constructs an empty in-memory store.
func NewIdempotencyStore() *IdempotencyStore {
	return &IdempotencyStore{
		records: map[string]ports.IdempotencyRecord{},
		now:     time.Now,
	}
}

// WithClock overrides the time source for deterministic testing.
func (s *IdempotencyStore) WithClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Get returns the stored record for the provided key, or nil when absent.
func (s *IdempotencyStore) Get(_ context.Context, key string) (*ports.IdempotencyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[key]
	if !ok {
		return nil, nil
	}
	copy := record
	return &copy, nil
}

func (s *IdempotencyStore) Claim(_ context.Context, record ports.IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[record.Key]; ok {
		return ports.ErrIdempotencyKeyTaken
	}
	now := s.now()
	record.CreatedAt = now
	record.UpdatedAt = now
	s.records[record.Key] = record
	return nil
}

func (s *IdempotencyStore) Bind(_ context.Context, key string, orderID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[key]
	if !ok {
		return ports.ErrNotFound
	}
	record.OrderID = orderID
	record.UpdatedAt = s.now()
	s.records[key] = record
	return nil
}

func (s *IdempotencyStore) Checkpoint() func() {
	s.mu.RLock()
	saved := make(map[string]ports.IdempotencyRecord, len(s.records))
	for k, v := range s.records {
		saved[k] = v
	}
	s.mu.RUnlock()
	return func() {
		s.mu.Lock()
		s.records = saved
		s.mu.Unlock()
	}
}
