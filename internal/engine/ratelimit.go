package engine

import (
	"context"
	"sync"
	"time"

	"github.com/idrecon/idrecon/internal/model"
)

// limiter is a token-bucket rate limiter. It supports a blocking wait so
// backoff sleeps and rate waits are the engine's only suspension points
// besides the adapter calls themselves.
type limiter struct {
	rate  float64 // tokens per second
	burst float64 // bucket capacity

	mu     sync.Mutex
	tokens float64
	last   time.Time
}

// newLimiter creates a limiter with the given policy. A zero rate returns
// nil, which callers treat as "unlimited".
func newLimiter(policy model.RatePolicy) *limiter {
	if policy.RequestsPerSecond <= 0 {
		return nil
	}
	burst := policy.Burst
	if burst <= 0 {
		burst = 1
	}
	return &limiter{
		rate:   policy.RequestsPerSecond,
		burst:  float64(burst),
		tokens: float64(burst), // start full
		last:   time.Now(),
	}
}

// reserve takes one token, returning how long the caller must wait before
// proceeding. Zero means the token was available immediately.
func (l *limiter) reserve() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	l.tokens += now.Sub(l.last).Seconds() * l.rate
	if l.tokens > l.burst {
		l.tokens = l.burst
	}
	l.last = now

	l.tokens--
	if l.tokens >= 0 {
		return 0
	}
	return time.Duration(-l.tokens / l.rate * float64(time.Second))
}

// wait blocks until a token is available or the context is cancelled.
func (l *limiter) wait(ctx context.Context) error {
	if l == nil {
		return ctx.Err()
	}

	delay := l.reserve()
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
