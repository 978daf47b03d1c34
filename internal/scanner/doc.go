// Package scanner defines the adapter contract every lookup source must
// implement, plus a build-time factory registry and a handful of thin
// builtin adapters.
//
// An adapter is a black-box client to one external data source. The engine
// treats every adapter identically: it calls Execute with a target and gets
// back a Result whose ErrorKind classifies any expected failure. Adapters
// return Go errors only for contract violations (programming mistakes),
// never for expected failure modes like timeouts or throttling.
//
// Design decision: Adapters register factories from init() keyed by name,
// following the database/sql driver pattern. The factory registry is a
// static catalog resolved once at startup; all runtime state (breaker
// counters, rate buckets) lives in the registry and engine packages and is
// injected explicitly.
package scanner
