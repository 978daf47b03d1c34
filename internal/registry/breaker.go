package registry

import (
	"sync"
	"time"

	"github.com/idrecon/idrecon/internal/model"
)

// Breaker is the per-scanner circuit breaker.
//
// State machine: Closed → Open after threshold consecutive failures inside
// the window; Open rejects admission until the cooldown elapses; then
// HalfOpen admits exactly one probe. Probe success closes the breaker,
// probe failure re-opens it and restarts the cooldown timer.
//
// Grounded on the usual three-state breaker, tightened to the single-probe
// half-open semantics this engine requires.
type Breaker struct {
	mu sync.Mutex

	state         model.BreakerState
	consecutive   int       // length of the current failure streak
	streakStart   time.Time // when the current streak began (window anchor)
	openedAt      time.Time // when the breaker last opened
	probeInFlight bool      // half-open probe slot taken

	threshold int
	window    time.Duration
	cooldown  time.Duration

	// now is injectable for deterministic tests.
	now func() time.Time
}

// NewBreaker creates a closed breaker with the given constants.
// Non-positive arguments fall back to conservative defaults.
func NewBreaker(threshold int, window, cooldown time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 5
	}
	if window <= 0 {
		window = time.Minute
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &Breaker{
		state:     model.BreakerClosed,
		threshold: threshold,
		window:    window,
		cooldown:  cooldown,
		now:       time.Now,
	}
}

// Allow is the consuming admission check the engine calls before
// dispatching a task. In the half-open state only the first caller wins
// the probe slot; everyone else is rejected until the probe settles.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case model.BreakerClosed:
		return true

	case model.BreakerOpen:
		if b.now().Sub(b.openedAt) < b.cooldown {
			return false
		}
		// Cooldown elapsed: take the single half-open probe slot.
		b.state = model.BreakerHalfOpen
		b.probeInFlight = true
		return true

	case model.BreakerHalfOpen:
		if b.probeInFlight {
			return false
		}
		b.probeInFlight = true
		return true

	default:
		return false
	}
}

// ReleaseProbe frees the half-open probe slot without recording an
// outcome. Called when an admitted task is abandoned before its attempt
// settles: abandonment says nothing about the source's health, but the
// slot must come back or no future probe could ever run.
func (b *Breaker) ReleaseProbe() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == model.BreakerHalfOpen {
		b.probeInFlight = false
	}
}

// State returns a non-consuming, time-aware view of the breaker. An open
// breaker whose cooldown has elapsed reports HalfOpen so the registry can
// keep the scanner in the candidate list for its probe.
func (b *Breaker) State() model.BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == model.BreakerOpen && b.now().Sub(b.openedAt) >= b.cooldown {
		return model.BreakerHalfOpen
	}
	return b.state
}

// RecordSuccess feeds a successful task outcome into the breaker.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case model.BreakerClosed:
		b.consecutive = 0

	case model.BreakerHalfOpen:
		// Probe succeeded: the source recovered.
		b.state = model.BreakerClosed
		b.consecutive = 0
		b.probeInFlight = false
	}
}

// RecordFailure feeds a failed task outcome into the breaker.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()

	switch b.state {
	case model.BreakerClosed:
		// A streak older than the window starts over from this failure.
		if b.consecutive == 0 || now.Sub(b.streakStart) > b.window {
			b.consecutive = 0
			b.streakStart = now
		}
		b.consecutive++
		if b.consecutive >= b.threshold {
			b.state = model.BreakerOpen
			b.openedAt = now
		}

	case model.BreakerHalfOpen:
		// Probe failed: re-open and restart the cooldown timer.
		b.state = model.BreakerOpen
		b.openedAt = now
		b.probeInFlight = false
		b.consecutive = 0
	}
}
