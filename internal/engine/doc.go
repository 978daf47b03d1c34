// Package engine executes scanner tasks for one query under bounded
// concurrency, per-scanner rate limits, retries, and circuit-breaker
// admission.
//
// The engine runs the candidate list through an errgroup with a global
// concurrency limit. Each task additionally holds a per-scanner semaphore
// (scanners map 1:1 to external services, so their caps span queries) and
// waits on the scanner's token-bucket limiter before every attempt.
//
// Failure handling is value-based: adapters classify expected failures as
// error kinds, and the engine retries timeout/transient kinds with
// exponential backoff plus jitter, retries rate-limited kinds once after a
// cooldown, and never retries permanent kinds. Tasks rejected by an open
// circuit breaker are marked Skipped without a network call.
//
// Progress events are published fire-and-forget through a drop-oldest
// buffer: a slow or absent sink can never block task execution.
package engine
