package approval

import (
	"time"
)

// Event topics published on the gate queue.
const (
	TopicAwaitCreated    = "await.created"
	TopicDecisionCreated = "decision.created"
)

// Decision is the ephemeral value supplied exactly once per pending gate.
// Feedback optionally carries rejection guidance for the refine sub-loop.
type Decision struct {
	StageID   string    `json:"stageId"`
	Approved  bool      `json:"approved"`
	Feedback  string    `json:"feedback,omitempty"`
	DecidedAt time.Time `json:"decidedAt"`
}

// Event is the envelope published on the gate queue so that observers can
// react to pending reviews and recorded decisions.
type Event struct {
	Topic     string    `json:"topic"`
	StageID   string    `json:"stageId"`
	Decision  *Decision `json:"decision,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
