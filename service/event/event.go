// Package event distributes workflow lifecycle notifications over in-memory
// queues so UIs, trace collectors and tests can observe a run without
// coupling to the orchestrator.
package event

import "time"

// Lifecycle event types emitted during a workflow run.
const (
	TypeStageRunning  = "stage.running"
	TypeStageOutput   = "stage.output"
	TypeStageDone     = "stage.done"
	TypeStageRejected = "stage.rejected"
	TypeRunCompleted  = "run.completed"
	TypeRunFailed     = "run.failed"
)

// Context identifies the run and stage an event relates to.
type Context struct {
	SessionID string `json:"sessionID"`
	StageID   string `json:"stageID,omitempty"`
	EventType string `json:"eventType"`
}

type Event[T any] struct {
	Context   *Context               `json:"context"`
	CreatedAt time.Time              `json:"createdAt"`
	Metadata  map[string]interface{} `json:"metadata"`
	Data      T                      `json:"data"`
}

func NewEvent[T any](context *Context, data T) *Event[T] {
	return &Event[T]{
		Context:   context,
		CreatedAt: time.Now(),
		Metadata:  make(map[string]interface{}),
		Data:      data,
	}
}
