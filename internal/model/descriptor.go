package model

import (
	"slices"
	"time"
)

// BreakerState is the circuit-breaker state of one scanner.
// The runtime state lives in the registry; this type is shared so reports
// and the API can expose it.
type BreakerState int32

const (
	// BreakerClosed means the scanner is healthy and tasks flow normally.
	BreakerClosed BreakerState = iota
	// BreakerOpen means recent consecutive failures exceeded the threshold;
	// new tasks are rejected (Skipped) until the cooldown elapses.
	BreakerOpen
	// BreakerHalfOpen means the cooldown elapsed and exactly one probe task
	// is allowed through to test recovery.
	BreakerHalfOpen
)

// String returns a human-readable representation of the breaker state.
func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// RatePolicy is the token-bucket rate limit for one scanner. Scanners map
// 1:1 to external services, so the policy is per scanner, not per query.
type RatePolicy struct {
	// RequestsPerSecond is the sustained request rate. Zero means no limit.
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second"`

	// Burst is the bucket capacity. Zero defaults to 1 when a rate is set.
	Burst int `json:"burst" yaml:"burst"`
}

// ScannerDescriptor is the static catalog entry for one scanner adapter.
// Descriptors are registered at startup; only the associated breaker state
// (held in the registry, not here) mutates at runtime.
type ScannerDescriptor struct {
	// Name is the unique scanner name.
	Name string `json:"name" yaml:"name"`

	// Capabilities are the query types this scanner serves.
	Capabilities []QueryType `json:"capabilities" yaml:"capabilities"`

	// Reliability is the source reliability weight in [0,1], used both for
	// candidate ordering and for confidence scoring.
	Reliability float64 `json:"reliability" yaml:"reliability"`

	// AvgLatency is the expected latency, used as an ordering tiebreaker.
	AvgLatency time.Duration `json:"avg_latency" yaml:"avg_latency"`

	// Rate is the per-scanner rate-limit policy.
	Rate RatePolicy `json:"rate" yaml:"rate"`

	// Enabled gates the scanner globally.
	Enabled bool `json:"enabled" yaml:"enabled"`
}

// Serves reports whether the scanner declares the given query type.
func (d *ScannerDescriptor) Serves(qt QueryType) bool {
	return slices.Contains(d.Capabilities, qt)
}
