// Package progress defines primitives for reporting aggregated progress of a
// single workflow run.  It abstracts away the underlying delivery mechanism
// so that callers can consume progress updates in a uniform way regardless of
// whether they are rendered on a terminal, serialised to JSON or forwarded to
// an external observer.
package progress
