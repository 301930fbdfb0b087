// Package approval implements the human-in-the-loop gate: a per-stage
// single-shot suspend/resume primitive.  The orchestrator suspends on a
// stage's gate after reporting its output; a UI (or programmatic decider)
// resolves the gate with an approve/reject decision at an arbitrary later
// time.  A gate that is never resolved suspends the run indefinitely –
// pairing every open gate with a visible user affordance is the consumer's
// responsibility.
package approval
