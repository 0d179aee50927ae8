// Package retry is the bounded retry policy shared by the widget's
// network calls: a fixed attempt count with linearly increasing delay.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy bounds an operation to MaxAttempts tries, waiting
// BaseDelay × attempt between them.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// Default matches the widget's telemetry budget: three attempts, half a
// second of base delay.
var Default = Policy{MaxAttempts: 3, BaseDelay: 500 * time.Millisecond}

// linear implements backoff.BackOff with delay base × attempt.
type linear struct {
	base    time.Duration
	attempt int
}

func (l *linear) NextBackOff() time.Duration {
	l.attempt++
	return l.base * time.Duration(l.attempt)
}

func (l *linear) Reset() { l.attempt = 0 }

// Backoff returns the policy as a context-aware backoff.BackOff.
func (p Policy) Backoff(ctx context.Context) backoff.BackOffContext {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	b := backoff.WithMaxRetries(&linear{base: p.BaseDelay}, uint64(attempts-1))
	return backoff.WithContext(b, ctx)
}

// Do runs op under the policy, returning the last error when all
// attempts are exhausted.
func (p Policy) Do(ctx context.Context, op func() error) error {
	return backoff.Retry(op, p.Backoff(ctx))
}
