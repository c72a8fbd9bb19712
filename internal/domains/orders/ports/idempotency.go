package ports

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrIdempotencyConflict indicates the same key was used with a different checkout payload.
	ErrIdempotencyConflict = errors.New("idempotency conflict")
	// ErrIdempotencyKeyTaken is returned by Claim when the key already exists.
	ErrIdempotencyKeyTaken = errors.New("idempotency key already claimed")
)

// IdempotencyRecord ties a client-supplied checkout key to the order it produced.
type IdempotencyRecord struct {
	Key         string
	UserID      int64
	RequestHash string
	OrderID     int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IdempotencyStore persists checkout keys so retries replay the original order.
type IdempotencyStore interface {
	// Get returns the stored record for the key, or nil when unknown.
	Get(ctx context.Context, key string) (*IdempotencyRecord, error)
	// Claim inserts the record. An existing key yields ErrIdempotencyKeyTaken and leaves the
	// transaction unusable, so the caller must roll back and read the winner with Get.
	Claim(ctx context.Context, record IdempotencyRecord) error
	// Bind points a claimed key at the order it created.
	Bind(ctx context.Context, key string, orderID int64) error
}
