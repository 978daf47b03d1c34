// Package registry holds the shared runtime state of the scanner fleet:
// the catalog of descriptors and one circuit breaker per scanner.
//
// The registry answers two questions. CandidatesFor resolves which scanners
// apply to a query (capability, enabled flag, allowlist, breaker state) in
// reliability order. ReportOutcome feeds task outcomes back into the
// breakers so failing sources get suppressed fleet-wide.
//
// Breaker counters are shared across all concurrent queries using a
// scanner and are guarded by a narrow per-breaker mutex; no lock is ever
// held across I/O. The registry itself stores no query-specific state.
//
// Design decision: The registry is an explicit, injectable object built at
// process start, not a package-level singleton. Tests and the serve/scan
// commands each construct their own.
package registry
