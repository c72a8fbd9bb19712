package memory

import (
	"context"
	"sync"
	"time"

	"github.com/Apurer/medstore-checkout/internal/domains/orders/ports"
)

var _ ports.CallbackGuard = (*CallbackGuard)(nil)

// CallbackGuard is a process-local guard with expiring holds.
type CallbackGuard struct {
	mu    sync.Mutex
	holds map[string]time.Time
	now   func() time.Time
}

func NewCallbackGuard() *CallbackGuard {
	return &CallbackGuard{holds: map[string]time.Time{}, now: time.Now}
}

func (g *CallbackGuard) Acquire(_ context.Context, key string, ttl time.Duration) (func(context.Context), error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.now()
	if until, ok := g.holds[key]; ok && now.Before(until) {
		return nil, ports.ErrGuardHeld
	}
	until := now.Add(ttl)
	g.holds[key] = until
	return func(context.Context) {
		g.mu.Lock()
		defer g.mu.Unlock()
		if g.holds[key].Equal(until) {
			delete(g.holds, key)
		}
	}, nil
}
