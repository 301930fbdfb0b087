// Package tracing is a thin wrapper around OpenTelemetry so that the rest of
// the code base can start and end spans without depending on the upstream
// API directly.  Applications that do not initialise a provider get no-op
// spans at zero cost.
package tracing
