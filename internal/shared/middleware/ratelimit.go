package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	rd "github.com/redis/go-redis/v9"

	apierrors "github.com/Apurer/medstore-checkout/internal/shared/errors"
)

// slidingWindow trims the window, counts it and records the request only when under the limit.
// KEYS[1]=key ARGV: now(ms), windowStart(ms), window(ms), member, limit. Returns -1 when limited.
var slidingWindow = rd.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local windowStart = tonumber(ARGV[2])
local windowMs = tonumber(ARGV[3])
redis.call('ZREMRANGEBYSCORE', key, '-inf', windowStart)
local count = redis.call('ZCARD', key)
if count < tonumber(ARGV[5]) then
  redis.call('ZADD', key, now, ARGV[4])
  redis.call('PEXPIRE', key, windowMs)
  return count + 1
end
return -1
`)

// Limiter decides whether one more request fits in key's window.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RedisLimiter is a sliding-window limiter shared by every API replica.
type RedisLimiter struct {
	rdb    rd.UniversalClient
	limit  int
	window time.Duration
	now    func() time.Time
}

func NewRedisLimiter(rdb rd.UniversalClient, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, limit: limit, window: window, now: time.Now}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	now := l.now().UnixMilli()
	windowMs := l.window.Milliseconds()
	res, err := slidingWindow.Run(ctx, l.rdb, []string{key},
		now, now-windowMs, windowMs, uuid.NewString(), l.limit).Int()
	if err != nil {
		return false, err
	}
	return res >= 0, nil
}

// RateLimit throttles by X-User-ID, or by client IP for anonymous callers. A limiter error lets the
// request through.
func RateLimit(limiter Limiter, scope string, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}
		allowed, err := limiter.Allow(c.Request.Context(), rateLimitKey(c, scope))
		if err != nil {
			if logger != nil {
				logger.LogAttrs(c.Request.Context(), slog.LevelWarn, "rate limiter unavailable",
					slog.String("scope", scope), slog.String("error", err.Error()))
			}
			c.Next()
			return
		}
		if !allowed {
			apierrors.Respond(c, apierrors.ErrRateLimited.WithDetail("slow down and retry shortly"))
			c.Abort()
			return
		}
		c.Next()
	}
}

func rateLimitKey(c *gin.Context, scope string) string {
	if raw := strings.TrimSpace(c.GetHeader("X-User-ID")); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil && id > 0 {
			return fmt.Sprintf("medstore:rate:%s:user:%d", scope, id)
		}
	}
	return fmt.Sprintf("medstore:rate:%s:ip:%s", scope, c.ClientIP())
}
