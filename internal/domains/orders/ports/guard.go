package ports

import (
	"context"
	"errors"
	"time"
)

var ErrGuardHeld = errors.New("guard is held by another caller")

// CallbackGuard keeps two concurrent callbacks for the same gateway order from both reaching the
// gateway. It is an optimisation; the order row lock is what keeps processing correct.
type CallbackGuard interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(context.Context), err error)
}
