// Package stage defines the ordered stage registry – the single source of
// truth for the pipeline shape.  A registry is immutable for the lifetime of
// a process; the orchestrator never skips or reorders its stages.
package stage
