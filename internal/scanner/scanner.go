package scanner

import (
	"context"
	"time"

	"github.com/idrecon/idrecon/internal/model"
)

// Target is the input handed to an adapter: one identifying value plus the
// options that affect how hard the adapter should look.
type Target struct {
	// QueryType is the kind of identifier in Value.
	QueryType model.QueryType

	// Value is the raw identifying value.
	Value string

	// DeepScan asks for a more thorough (and slower) lookup where the
	// source supports one.
	DeepScan bool
}

// Result is the outcome of one adapter invocation.
//
// Expected failures travel in ErrorKind, never as Go errors: a timeout or
// an upstream 429 is normal operation for this system, and the engine's
// retry and breaker logic keys off the kind.
type Result struct {
	// Payload is the raw source payload on success. Keys are
	// source-specific; the normalization layer maps them to canonical
	// fields.
	Payload map[string]any

	// ErrorKind classifies an expected failure. ErrorKindNone means
	// success.
	ErrorKind model.ErrorKind

	// Message carries upstream failure detail for the task record.
	Message string

	// Latency is how long the upstream call took.
	Latency time.Duration

	// RetryAfter is the provider-indicated cooldown for rate-limited
	// results, when the provider stated one. Zero means use the
	// configured default.
	RetryAfter time.Duration
}

// OK reports whether the invocation succeeded.
func (r *Result) OK() bool {
	return r.ErrorKind == model.ErrorKindNone
}

// Success builds a successful result.
func Success(payload map[string]any, latency time.Duration) *Result {
	return &Result{Payload: payload, Latency: latency}
}

// Failure builds an expected-failure result.
func Failure(kind model.ErrorKind, message string, latency time.Duration) *Result {
	return &Result{ErrorKind: kind, Message: message, Latency: latency}
}

// Adapter is the fixed execution contract every scanner implements.
//
// Implementations must respect context cancellation and must not panic or
// return a Go error for expected failure modes; those are reported through
// Result.ErrorKind.
type Adapter interface {
	// Name returns the unique scanner name (e.g. "mxprobe").
	Name() string

	// Execute runs one lookup against the target.
	Execute(ctx context.Context, target Target) (*Result, error)
}

// Func adapts a plain function to the Adapter interface. Used heavily in
// tests and for simple one-call sources.
type Func struct {
	// AdapterName is returned by Name.
	AdapterName string

	// Fn is invoked by Execute.
	Fn func(ctx context.Context, target Target) (*Result, error)
}

// Name returns the adapter name.
func (f *Func) Name() string { return f.AdapterName }

// Execute invokes the wrapped function.
func (f *Func) Execute(ctx context.Context, target Target) (*Result, error) {
	return f.Fn(ctx, target)
}
