package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	rd "github.com/redis/go-redis/v9"

	"github.com/Apurer/medstore-checkout/internal/domains/orders/ports"
)

const keyPrefix = "medstore:guard:"

// releaseIfOwner deletes the key only while it still holds our token, so an expired hold that
// someone else re-acquired is left alone.
var releaseIfOwner = rd.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
  return redis.call('DEL', KEYS[1])
end
return 0
`)

// CallbackGuard is a shared guard for API replicas.
type CallbackGuard struct {
	rdb rd.UniversalClient
}

var _ ports.CallbackGuard = (*CallbackGuard)(nil)

func NewCallbackGuard(rdb rd.UniversalClient) *CallbackGuard {
	return &CallbackGuard{rdb: rdb}
}

func (g *CallbackGuard) Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context), error) {
	token := uuid.NewString()
	redisKey := keyPrefix + key
	ok, err := g.rdb.SetNX(ctx, redisKey, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire guard %s: %w", key, err)
	}
	if !ok {
		return nil, ports.ErrGuardHeld
	}
	return func(ctx context.Context) {
		_ = releaseIfOwner.Run(ctx, g.rdb, []string{redisKey}, token).Err()
	}, nil
}
