// Package orchestrator drives one human-in-the-loop workflow run end to end:
// it walks the stage registry, calls the transport client for each stage,
// suspends on the approval gate at gated checkpoints and produces the
// finished document or fails.
package orchestrator
