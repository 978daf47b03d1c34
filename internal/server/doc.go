// Package server provides the HTTP API for query submission and
// result retrieval.
//
// Endpoints:
//   - POST /api/v1/queries: submit a query, returns 202 with the id
//   - GET /api/v1/queries/{id}: fetch the result (interim while running)
//   - POST /api/v1/queries/{id}/cancel: cancel a running query
//   - GET /healthz: liveness check
//
// Design decision: The server depends on the small Service interface
// rather than the orchestrator directly, so handlers can be tested with
// a stub and the transport stays decoupled from query execution.
package server
