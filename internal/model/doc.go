// Package model defines the core data structures used throughout idrecon.
//
// This package contains the following main types:
//   - Query: One submitted identifying value plus its processing lifecycle
//   - ScannerTask: One attempt (with retries) to run a scanner for a query
//   - NormalizedRecord: Canonicalized output of one successful scanner task
//   - Entity: A merged cluster of records describing one real-world subject
//   - ScannerDescriptor: Static catalog entry for one scanner adapter
//   - Result: Entities plus per-scanner status breakdown for one query
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. Multiple packages (engine, merge, report, database) need these
// types, so centralizing them prevents import cycles.
//
// The models are designed to be serializable to JSON for report output and
// database storage.
package model
