package projection

import (
	"sync"

	"github.com/nyayaflow/lexflow/model/stage"
)

// Status is the UI-facing state of a single pipeline stage.
type Status string

const (
	StatusPending          Status = "pending"
	StatusRunning          Status = "running"
	StatusAwaitingApproval Status = "awaitingApproval"
	StatusDone             Status = "done"
)

// Snapshot is a value-copy of the projection suitable for read-only
// inspection.  Consumers subscribing to changes must tolerate observing
// intermediate states.
type Snapshot struct {
	Statuses map[string]Status
	Outputs  map[string]interface{}
}

// State keeps per-stage status and accumulated outputs for one workflow run.
// It is mutated exclusively by orchestrator callbacks running on the single
// logical workflow thread; the mutex only guards concurrent readers.
type State struct {
	registry *stage.Registry

	mu       sync.Mutex
	statuses map[string]Status
	outputs  map[string]interface{}
	onChange func(Snapshot)
}

// New creates a projection with every stage pending.
func New(registry *stage.Registry) *State {
	statuses := make(map[string]Status, registry.Len())
	for _, descriptor := range registry.Stages() {
		statuses[descriptor.ID] = StatusPending
	}
	return &State{
		registry: registry,
		statuses: statuses,
		outputs:  make(map[string]interface{}),
	}
}

// OnChange registers a callback invoked with a snapshot after every
// mutation.  Passing nil disables the callback.  Only one callback can be
// active; subsequent calls overwrite the previous value.
func (s *State) OnChange(cb func(Snapshot)) {
	s.mu.Lock()
	s.onChange = cb
	s.mu.Unlock()
}

// StageRunning marks a stage as actively executing on the server.
func (s *State) StageRunning(stageID string) {
	s.mutate(func() {
		s.statuses[stageID] = StatusRunning
	})
}

// StageOutput records a stage's output; the status becomes awaitingApproval
// for gated stages and stays running otherwise.
func (s *State) StageOutput(stageID string, output interface{}) {
	s.mutate(func() {
		s.outputs[stageID] = output
		if s.registry.RequiresApproval(stageID) {
			s.statuses[stageID] = StatusAwaitingApproval
		} else {
			s.statuses[stageID] = StatusRunning
		}
	})
}

// StageDone marks a stage complete.  When the next stage does not gate on
// approval it is optimistically marked running so the UI never shows a gap.
func (s *State) StageDone(stageID string) {
	s.mutate(func() {
		s.statuses[stageID] = StatusDone
		if next, ok := s.registry.Next(stageID); ok && !next.RequiresApproval {
			s.statuses[next.ID] = StatusRunning
		}
	})
}

// StageRejected clears the recorded output for the rejected stage and every
// stage after it; their statuses reset to pending except the stage actively
// being retried, which returns to running.
func (s *State) StageRejected(stageID string) {
	s.mutate(func() {
		position, ok := s.registry.Position(stageID)
		if !ok {
			return
		}
		for _, descriptor := range s.registry.Stages()[position:] {
			delete(s.outputs, descriptor.ID)
			s.statuses[descriptor.ID] = StatusPending
		}
		s.statuses[stageID] = StatusRunning
	})
}

// RunFailed reverts any stage left running or awaiting approval back to
// pending so the UI never shows a stuck state after a transport failure.
func (s *State) RunFailed() {
	s.mutate(func() {
		for id, status := range s.statuses {
			if status == StatusRunning || status == StatusAwaitingApproval {
				s.statuses[id] = StatusPending
			}
		}
	})
}

// Status returns the current status of the given stage.
func (s *State) Status(stageID string) Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statuses[stageID]
}

// Output returns the recorded output of the given stage.
func (s *State) Output(stageID string) (interface{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	output, ok := s.outputs[stageID]
	return output, ok
}

// Active returns the id of the single stage currently running or awaiting
// approval, if any.
func (s *State) Active() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, descriptor := range s.registry.Stages() {
		status := s.statuses[descriptor.ID]
		if status == StatusRunning || status == StatusAwaitingApproval {
			return descriptor.ID, true
		}
	}
	return "", false
}

// Snapshot returns a value-copy of the projection.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

func (s *State) snapshot() Snapshot {
	statuses := make(map[string]Status, len(s.statuses))
	for id, status := range s.statuses {
		statuses[id] = status
	}
	outputs := make(map[string]interface{}, len(s.outputs))
	for id, output := range s.outputs {
		outputs[id] = output
	}
	return Snapshot{Statuses: statuses, Outputs: outputs}
}

// mutate applies fn under the lock and invokes the onChange callback with a
// snapshot taken inside the critical section, delivered outside of it.
func (s *State) mutate(fn func()) {
	s.mu.Lock()
	fn()
	cb := s.onChange
	var snapshot Snapshot
	if cb != nil {
		snapshot = s.snapshot()
	}
	s.mu.Unlock()
	if cb != nil {
		cb(snapshot)
	}
}
