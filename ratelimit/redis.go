package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// checkScript bumps the counter and sets the window expiry in one
// round trip. Doing the PEXPIRE client-side after the INCR leaves a
// window where a crash strands the key without a TTL, limiting that
// client forever.
var checkScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {count, redis.call("PTTL", KEYS[1])}
`)

// RedisLimiter implements the same fixed window on a shared Redis
// counter, for deployments running more than one API instance. Keys
// expire with the window, so there is nothing to sweep.
type RedisLimiter struct {
	client *redis.Client
	max    int
	window time.Duration
}

func NewRedis(client *redis.Client, max int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, max: max, window: window}
}

func (r *RedisLimiter) Check(ctx context.Context, key string) (Result, error) {
	redisKey := "ratelimit:" + key

	raw, err := checkScript.Run(ctx, r.client, []string{redisKey}, r.window.Milliseconds()).Result()
	if err != nil {
		return Result{}, fmt.Errorf("rate limit check failed: %w", err)
	}
	reply, ok := raw.([]interface{})
	if !ok || len(reply) != 2 {
		return Result{}, fmt.Errorf("rate limit check: unexpected reply %v", raw)
	}
	count, _ := reply[0].(int64)
	ttlMillis, _ := reply[1].(int64)

	ttl := time.Duration(ttlMillis) * time.Millisecond
	if ttl <= 0 {
		ttl = r.window
	}

	res := Result{Limit: r.max, Reset: time.Now().Add(ttl)}
	if count > int64(r.max) {
		res.Remaining = 0
		res.RetryAfter = ttl
		return res, nil
	}

	res.Allowed = true
	res.Remaining = r.max - int(count)
	return res, nil
}
