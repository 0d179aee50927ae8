// Package ratelimit provides fixed-window request limiting keyed by
// client identity. The in-memory limiter matches a single-process
// deployment; the Redis limiter shares one window across instances.
package ratelimit

import (
	"context"
	"time"
)

// Result is the outcome of a single limit check. Header values on 429
// responses are derived from it.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	Reset      time.Time
	RetryAfter time.Duration
}

// Limiter decides whether a request identified by key may proceed.
// A failing backend must not take the endpoint down with it, so callers
// treat a non-nil error as "allow".
type Limiter interface {
	Check(ctx context.Context, key string) (Result, error)
}
