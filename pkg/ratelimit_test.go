package pkg

import (
	"context"
	"testing"
	"time"

	"github.com/nimeshabuddhika/hosted-checkout-reconciler/pkg/testutils"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDistributedLimiter_Unlimited(t *testing.T) {
	limiter := NewDistributedLimiter(nil, "k", 0, 0, time.Second, zap.NewNop())
	for i := 0; i < 100; i++ {
		assert.True(t, limiter.Allow(context.Background()))
	}
}

func TestDistributedLimiter_LocalBurst(t *testing.T) {
	limiter := NewDistributedLimiter(nil, "k", 1, 3, time.Second, zap.NewNop())
	ctx := context.Background()

	allowed := 0
	for i := 0; i < 10; i++ {
		if limiter.Allow(ctx) {
			allowed++
		}
	}
	assert.Equal(t, 3, allowed)
}

func TestDistributedLimiter_RedisUnavailableFallsBackToLocal(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
	defer func() { _ = client.Close() }()
	limiter := NewDistributedLimiter(client, "k", 10, 2, time.Second, zap.NewNop())

	assert.True(t, limiter.Allow(context.Background()))
}

func newRedisClient(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: testutils.StartRedis(t)})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(context.Background()).Err())
	return client
}

func TestDistributedLimiter_RedisWindowIsSharedAcrossReplicas(t *testing.T) {
	client := newRedisClient(t)
	ctx := context.Background()
	const key = "test:shared_window"
	first := NewDistributedLimiter(client, key, 5, 5, time.Second, zap.NewNop())
	second := NewDistributedLimiter(client, key, 5, 5, time.Second, zap.NewNop())

	for i := 0; i < 5; i++ {
		assert.True(t, first.Allow(ctx), "call %d", i+1)
	}
	assert.False(t, second.Allow(ctx), "window is exhausted across replicas")

	ttl, err := client.PTTL(ctx, key).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, time.Second)

	time.Sleep(1200 * time.Millisecond)
	assert.True(t, second.Allow(ctx), "a new window admits calls again")
}

func TestDistributedLimiter_RedisWindowExpiresUnderSteadyTraffic(t *testing.T) {
	client := newRedisClient(t)
	ctx := context.Background()
	const key = "test:steady_window"
	limiter := NewDistributedLimiter(client, key, 5, 5, time.Second, zap.NewNop())

	// Four calls per window at most; the counter must reset instead of accumulating.
	for i := 0; i < 10; i++ {
		assert.True(t, limiter.Allow(ctx), "call %d", i+1)
		time.Sleep(300 * time.Millisecond)
	}
	count, err := client.Get(ctx, key).Int64()
	if err == nil {
		assert.LessOrEqual(t, count, int64(5))
	} else {
		assert.ErrorIs(t, err, redis.Nil)
	}
}

func TestNewDistributedLimiter_WindowLimit(t *testing.T) {
	assert.Equal(t, int64(50), NewDistributedLimiter(nil, "k", 50, 50, time.Second, zap.NewNop()).windowLimit)
	assert.Equal(t, int64(100), NewDistributedLimiter(nil, "k", 50, 50, 2*time.Second, zap.NewNop()).windowLimit)
	assert.Equal(t, int64(1), NewDistributedLimiter(nil, "k", 1, 1, 100*time.Millisecond, zap.NewNop()).windowLimit)
}
