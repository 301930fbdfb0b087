package approval

import (
	"context"
	"errors"
	"sync"

	"github.com/nyayaflow/lexflow/internal/clock"
	"github.com/nyayaflow/lexflow/service/messaging"
	qmem "github.com/nyayaflow/lexflow/service/messaging/memory"
)

// ErrAlreadyWaiting indicates two concurrent Await calls for the same stage.
// This is a programming defect in the caller – a stage has at most one open
// gate – and is surfaced loudly instead of being queued.
var ErrAlreadyWaiting = errors.New("approval: stage already awaiting decision")

// Gate converts a human decision, arriving at an arbitrary future time, into
// a value a suspended orchestrator step can consume.  Gates are keyed by
// stage id and independent of each other; each Await/Resolve pair is a
// single-shot exchange.  Gate state is instance-owned so concurrent runs do
// not interfere.
type Gate struct {
	mu      sync.Mutex
	waiters map[string]chan Decision
	events  messaging.Queue[Event]
}

// GateOption configures a Gate.
type GateOption func(*Gate)

// WithQueue overrides the event queue used to fan out gate events.
func WithQueue(queue messaging.Queue[Event]) GateOption {
	return func(g *Gate) { g.events = queue }
}

// NewGate creates an empty gate.
func NewGate(options ...GateOption) *Gate {
	ret := &Gate{waiters: make(map[string]chan Decision)}
	for _, option := range options {
		option(ret)
	}
	if ret.events == nil {
		ret.events = qmem.NewQueue[Event](qmem.DefaultConfig())
	}
	return ret
}

// Queue exposes the gate event stream for observers.
func (g *Gate) Queue() messaging.Queue[Event] { return g.events }

// Await registers a pending waiter for stageID and suspends the caller until
// Resolve supplies a decision or ctx is cancelled.  A second Await for the
// same stage while one is pending fails with ErrAlreadyWaiting.
func (g *Gate) Await(ctx context.Context, stageID string) (Decision, error) {
	g.mu.Lock()
	if _, pending := g.waiters[stageID]; pending {
		g.mu.Unlock()
		return Decision{}, ErrAlreadyWaiting
	}
	ch := make(chan Decision, 1)
	g.waiters[stageID] = ch
	g.mu.Unlock()

	_ = g.events.Publish(ctx, &Event{Topic: TopicAwaitCreated, StageID: stageID, CreatedAt: clock.Now()})

	select {
	case decision := <-ch:
		return decision, nil
	case <-ctx.Done():
		g.mu.Lock()
		if current, pending := g.waiters[stageID]; pending && current == ch {
			delete(g.waiters, stageID)
		}
		g.mu.Unlock()
		// A decision may have raced the cancellation; prefer it so the
		// resolution is never silently dropped.
		select {
		case decision := <-ch:
			return decision, nil
		default:
		}
		return Decision{}, ctx.Err()
	}
}

// Resolve satisfies the pending waiter for stageID if one exists; otherwise
// it is a no-op returning false.  Exactly one resolution is honoured per
// Await – a second Resolve before the next Await is also a no-op.
func (g *Gate) Resolve(stageID string, approved bool, feedback string) bool {
	g.mu.Lock()
	ch, pending := g.waiters[stageID]
	if pending {
		delete(g.waiters, stageID)
	}
	g.mu.Unlock()
	if !pending {
		return false
	}

	decision := Decision{
		StageID:   stageID,
		Approved:  approved,
		Feedback:  feedback,
		DecidedAt: clock.Now(),
	}
	ch <- decision
	_ = g.events.Publish(context.Background(), &Event{
		Topic:     TopicDecisionCreated,
		StageID:   stageID,
		Decision:  &decision,
		CreatedAt: decision.DecidedAt,
	})
	return true
}

// Pending reports whether a waiter is currently registered for stageID.
func (g *Gate) Pending(stageID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, pending := g.waiters[stageID]
	return pending
}
