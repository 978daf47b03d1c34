// Package orchestrator drives a query through its lifecycle: resolve
// candidate scanners, fan tasks out through the engine, merge records as
// tasks settle, score entities, and land in a terminal state.
//
// Status transitions go through compare-and-swap against the forward-only
// status graph, so concurrent cancellation and the normal completion path
// can race without ever moving a query backwards or out of a terminal
// state. Submission is asynchronous: Submit returns an id immediately and
// the run proceeds on its own goroutine under the query deadline.
package orchestrator
