// Package projection derives UI-facing pipeline state from orchestrator
// callbacks.  It holds no business logic: statuses and accumulated outputs
// are a pure function of the callback sequence.
package projection
