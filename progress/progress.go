package progress

import (
	"context"
	"sync"
	"time"

	"github.com/nyayaflow/lexflow/projection"
)

// Snapshot is a value-copy of the tracker suitable for read-only inspection.
type Snapshot struct {
	SessionID string
	Domain    string
	StartedAt time.Time

	TotalStages     int
	CompletedStages int
	PendingStages   int
	ActiveStage     string
	AwaitingReview  bool
}

// Percent returns run completion as 0..100.
func (s Snapshot) Percent() int {
	if s.TotalStages == 0 {
		return 0
	}
	return s.CompletedStages * 100 / s.TotalStages
}

// Tracker keeps aggregated stage counters for a single workflow run.  It is
// fed from projection snapshots and safe for concurrent use.
type Tracker struct {
	mu       sync.Mutex
	current  Snapshot
	onChange func(Snapshot)
}

// SetSession records the server-assigned session identifier once known.
func (t *Tracker) SetSession(sessionID string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.current.SessionID = sessionID
	t.mu.Unlock()
}

// Observe ingests a projection snapshot, recomputing the counters.  If an
// onChange callback has been registered it is invoked with a copy of the
// updated tracker outside the critical section so that the callback can
// perform slow operations (e.g. JSON encoding, I/O) without blocking the run.
func (t *Tracker) Observe(snapshot projection.Snapshot) {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.current.TotalStages = len(snapshot.Statuses)
	t.current.CompletedStages = 0
	t.current.PendingStages = 0
	t.current.ActiveStage = ""
	t.current.AwaitingReview = false
	for id, status := range snapshot.Statuses {
		switch status {
		case projection.StatusDone:
			t.current.CompletedStages++
		case projection.StatusPending:
			t.current.PendingStages++
		case projection.StatusRunning:
			t.current.ActiveStage = id
		case projection.StatusAwaitingApproval:
			t.current.ActiveStage = id
			t.current.AwaitingReview = true
		}
	}
	copied := t.current
	cb := t.onChange
	t.mu.Unlock()

	if cb != nil {
		cb(copied)
	}
}

// Snapshot returns a copy of the current counters.
func (t *Tracker) Snapshot() Snapshot {
	if t == nil {
		return Snapshot{}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// OnChange registers a callback invoked after every Observe.  Passing nil
// disables the callback.  Only one callback can be active; subsequent calls
// overwrite the previous value.
func (t *Tracker) OnChange(cb func(Snapshot)) {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.onChange = cb
	t.mu.Unlock()
}

type trackerKeyT struct{}

var trackerKey trackerKeyT

// WithNewTracker creates a new Tracker, embeds it in a derived context and
// returns both.  The caller may optionally pass an onChange callback invoked
// after every counter update.
func WithNewTracker(ctx context.Context, domain string, onChange func(Snapshot)) (context.Context, *Tracker) {
	if ctx == nil {
		ctx = context.Background()
	}
	tr := &Tracker{
		current:  Snapshot{Domain: domain, StartedAt: time.Now()},
		onChange: onChange,
	}
	return context.WithValue(ctx, trackerKey, tr), tr
}

// FromContext extracts the Tracker from ctx.  The second return value is
// false when the context carries no tracker.
func FromContext(ctx context.Context) (*Tracker, bool) {
	if ctx == nil {
		return nil, false
	}
	tr, ok := ctx.Value(trackerKey).(*Tracker)
	return tr, ok
}

// GetSnapshot is a convenience wrapper combining FromContext and Snapshot.
func GetSnapshot(ctx context.Context) (Snapshot, bool) {
	if tr, ok := FromContext(ctx); ok {
		return tr.Snapshot(), true
	}
	return Snapshot{}, false
}
