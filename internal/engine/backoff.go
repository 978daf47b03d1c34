package engine

import (
	"context"
	"math/rand/v2"
	"time"
)

// backoffDelay computes the exponential backoff for the given attempt
// number (1-based), with up to 50% random jitter added to avoid
// synchronized retries against the same upstream.
func backoffDelay(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	if attempt < 1 {
		attempt = 1
	}
	// Cap the shift so pathological attempt counts cannot overflow.
	if attempt > 16 {
		attempt = 16
	}

	d := base << (attempt - 1)
	jitter := time.Duration(rand.Int64N(int64(d)/2 + 1))
	return d + jitter
}

// sleep waits for d or until the context is cancelled.
// Returns false when the context won.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
