// Package database provides SQLite-based storage for query results.
//
// This package implements the Store, which persists:
//   - Query lifecycle states for history and result retrieval
//   - Per-scanner task breakdowns
//   - Merged entity sets with their excluded records
//
// Design decision: We use SQLite (via modernc.org/sqlite) instead of other
// databases because:
// 1. No external dependencies - the database is a single file
// 2. CGO-free implementation allows easy cross-compilation
// 3. Sufficient performance for our use case
// 4. WAL mode provides good concurrent read performance
//
// A MemoryStore with the same surface backs tests and serve mode without
// persistence.
package database
