package stage

import (
	"fmt"
)

// Op identifies the transport operation that produces a stage's output.
type Op string

const (
	// OpStart creates the server-side session and yields the first stage output.
	OpStart Op = "start"
	// OpAdvance submits the approved payload of the previous stage and yields
	// the next stage output.
	OpAdvance Op = "advance"
	// OpFinalize closes the session and yields the final artifact.
	OpFinalize Op = "finalize"
)

// Descriptor describes a single pipeline stage.
type Descriptor struct {
	// ID is the unique identifier for the stage within a registry.
	ID string `json:"id" yaml:"id"`

	// Name provides a human-readable stage label.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// RequiresApproval marks the stage as gated: the orchestrator suspends on
	// the approval gate after the stage output arrives.
	RequiresApproval bool `json:"requiresApproval,omitempty" yaml:"requiresApproval,omitempty"`

	// Op selects the transport operation producing this stage's output.
	Op Op `json:"op" yaml:"op"`
}

// Registry is the immutable, ordered source of truth for the pipeline shape.
// It is built once per process; changing the shape requires a new registry,
// not a runtime mutation.
type Registry struct {
	domain string
	stages []Descriptor
	index  map[string]int
}

// New creates a registry from the supplied ordered descriptors.  The domain
// is forwarded to the server on session start so that it can select the
// matching agent prompts.
func New(domain string, stages ...Descriptor) (*Registry, error) {
	if len(stages) == 0 {
		return nil, fmt.Errorf("registry requires at least one stage")
	}
	index := make(map[string]int, len(stages))
	for i, s := range stages {
		if s.ID == "" {
			return nil, fmt.Errorf("stage at position %d has empty id", i)
		}
		if _, ok := index[s.ID]; ok {
			return nil, fmt.Errorf("duplicate stage id %q", s.ID)
		}
		switch s.Op {
		case OpStart, OpAdvance, OpFinalize:
		default:
			return nil, fmt.Errorf("stage %q has unknown op %q", s.ID, s.Op)
		}
		index[s.ID] = i
	}
	if first := stages[0]; first.Op != OpStart {
		return nil, fmt.Errorf("first stage %q must use op %q", first.ID, OpStart)
	}
	for _, s := range stages[:len(stages)-1] {
		if s.Op == OpFinalize {
			return nil, fmt.Errorf("stage %q must be terminal to use op %q", s.ID, OpFinalize)
		}
	}
	// The run loop exits through the terminal stage's finalize call; any other
	// terminal op would re-execute forever.
	if last := stages[len(stages)-1]; last.Op != OpFinalize {
		return nil, fmt.Errorf("terminal stage %q must use op %q", last.ID, OpFinalize)
	}
	if last := stages[len(stages)-1]; last.RequiresApproval {
		return nil, fmt.Errorf("terminal stage %q must not require approval", last.ID)
	}
	return &Registry{domain: domain, stages: append([]Descriptor(nil), stages...), index: index}, nil
}

// Domain returns the registry domain forwarded on session start.
func (r *Registry) Domain() string { return r.domain }

// Len returns the number of stages.
func (r *Registry) Len() int { return len(r.stages) }

// First returns the first stage descriptor.
func (r *Registry) First() Descriptor { return r.stages[0] }

// Stages returns a copy of the ordered stage descriptors.
func (r *Registry) Stages() []Descriptor {
	return append([]Descriptor(nil), r.stages...)
}

// Position returns the zero-based position of the stage with the given id.
func (r *Registry) Position(id string) (int, bool) {
	pos, ok := r.index[id]
	return pos, ok
}

// Lookup returns the descriptor for the given stage id.
func (r *Registry) Lookup(id string) (Descriptor, bool) {
	pos, ok := r.index[id]
	if !ok {
		return Descriptor{}, false
	}
	return r.stages[pos], true
}

// RequiresApproval reports whether the stage with the given id gates on a
// human decision.  Unknown ids never gate.
func (r *Registry) RequiresApproval(id string) bool {
	pos, ok := r.index[id]
	if !ok {
		return false
	}
	return r.stages[pos].RequiresApproval
}

// Next returns the stage following the given id, or false when the id is
// unknown or terminal.
func (r *Registry) Next(id string) (Descriptor, bool) {
	pos, ok := r.index[id]
	if !ok || pos+1 >= len(r.stages) {
		return Descriptor{}, false
	}
	return r.stages[pos+1], true
}

// Terminal reports whether the stage with the given id is the last one.
func (r *Registry) Terminal(id string) bool {
	pos, ok := r.index[id]
	return ok && pos == len(r.stages)-1
}
