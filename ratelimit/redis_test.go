package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
)

func newRedisLimiter(t *testing.T, max int, window time.Duration) (*RedisLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedis(client, max, window), mr
}

func TestRedisAllowsUpToLimit(t *testing.T) {
	limiter, _ := newRedisLimiter(t, 3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := limiter.Check(ctx, "1.2.3.4")
		require.NoError(t, err)
		require.True(t, res.Allowed)
	}

	res, err := limiter.Check(ctx, "1.2.3.4")
	require.NoError(t, err)
	require.False(t, res.Allowed)
	require.Equal(t, 0, res.Remaining)
}

func TestRedisWindowExpires(t *testing.T) {
	limiter, mr := newRedisLimiter(t, 1, time.Minute)
	ctx := context.Background()

	res, err := limiter.Check(ctx, "1.2.3.4")
	require.NoError(t, err)
	require.True(t, res.Allowed)

	res, err = limiter.Check(ctx, "1.2.3.4")
	require.NoError(t, err)
	require.False(t, res.Allowed)

	mr.FastForward(61 * time.Second)

	res, err = limiter.Check(ctx, "1.2.3.4")
	require.NoError(t, err)
	require.True(t, res.Allowed)
}

func TestRedisCounterAlwaysExpires(t *testing.T) {
	limiter, mr := newRedisLimiter(t, 3, time.Minute)
	ctx := context.Background()

	// The counter key must never exist without a TTL; a key that
	// outlives its window limits that client indefinitely.
	for i := 0; i < 5; i++ {
		_, err := limiter.Check(ctx, "1.2.3.4")
		require.NoError(t, err)
		require.True(t, mr.Exists("ratelimit:1.2.3.4"))
		require.Greater(t, mr.TTL("ratelimit:1.2.3.4"), time.Duration(0))
	}
}

func TestRedisCheckErrorSurfaces(t *testing.T) {
	limiter, mr := newRedisLimiter(t, 1, time.Minute)
	mr.Close()

	_, err := limiter.Check(context.Background(), "1.2.3.4")
	require.Error(t, err, "a dead backend reports an error so the caller can fail open")
}
