package pkg

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Errors
var ErrRateLimitExceeded = errors.New("rate limit exceeded")

// RateLimiter gates outbound calls to the payment provider.
type RateLimiter interface {
	Allow(ctx context.Context) bool
}

// windowScript counts one call in the current window. The TTL is set only when the window
// opens, so a steady stream of calls cannot keep the counter alive.
var windowScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if redis.call("PTTL", KEYS[1]) < 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

// DistributedLimiter combines local rate.Limiter with a Redis fixed window for global enforcement.
// A nil redis client keeps enforcement local to this replica.
type DistributedLimiter struct {
	localLimiter *rate.Limiter
	redisClient  *redis.Client
	key          string        // e.g: "provider:status_check_rate"
	window       time.Duration // e.g: 1s window for the global counter
	windowLimit  int64         // calls allowed across replicas per window
	logger       *zap.Logger
}

// NewDistributedLimiter creates a limiter; if globalRate=0, it's unlimited.
// globalRate is per second; the global window admits globalRate * window calls.
func NewDistributedLimiter(redisClient *redis.Client, key string, globalRate, burst int, window time.Duration, logger *zap.Logger) *DistributedLimiter {
	var local *rate.Limiter
	if globalRate > 0 {
		local = rate.NewLimiter(rate.Limit(globalRate), burst)
	}
	if window <= 0 {
		window = time.Second
	}
	limit := int64(float64(globalRate) * window.Seconds())
	if limit < 1 {
		limit = 1
	}
	return &DistributedLimiter{
		localLimiter: local,
		redisClient:  redisClient,
		key:          key,
		window:       window,
		windowLimit:  limit,
		logger:       logger,
	}
}

// Allow checks if a token is available; uses a Redis window counter when configured.
func (d *DistributedLimiter) Allow(ctx context.Context) bool {
	if d.localLimiter == nil {
		return true // Unlimited
	}
	// Local check first (fast path)
	if !d.localLimiter.Allow() {
		return false
	}
	if d.redisClient == nil {
		return true
	}
	count, err := windowScript.Run(ctx, d.redisClient, []string{d.key}, d.window.Milliseconds()).Int64()
	if err != nil {
		d.logger.Error("redis_rate_limit_error_falling_back_to_local", zap.Error(err))
		return true
	}
	if count > d.windowLimit {
		d.logger.Warn("global_rate_limit_exceeded", zap.String("key", d.key), zap.Int64("count", count))
		return false
	}
	return true
}
