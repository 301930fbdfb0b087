// Package revision keeps the per-session draft history so review UIs can
// show what changed between refinement iterations.
package revision

import (
	"fmt"
	"sync"
	"time"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/sourcegraph/go-diff/diff"

	"github.com/nyayaflow/lexflow/internal/clock"
)

// Revision captures one draft iteration.
type Revision struct {
	Iteration int       `json:"iteration"`
	Draft     string    `json:"draft"`
	Feedback  string    `json:"feedback,omitempty"` // feedback that produced this revision
	CreatedAt time.Time `json:"createdAt"`
}

// Stats captures basic statistics about a unified-diff output.
type Stats struct {
	Added   int
	Removed int
}

// History accumulates draft revisions for a single session.  Revisions are
// appended in iteration order and never mutated.
type History struct {
	mu        sync.Mutex
	sessionID string
	revisions []Revision
}

// NewHistory creates an empty history for the given session.
func NewHistory(sessionID string) *History {
	return &History{sessionID: sessionID}
}

// SessionID returns the owning session identifier.
func (h *History) SessionID() string { return h.sessionID }

// Add appends a draft revision.
func (h *History) Add(iteration int, draft, feedback string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.revisions = append(h.revisions, Revision{
		Iteration: iteration,
		Draft:     draft,
		Feedback:  feedback,
		CreatedAt: clock.Now(),
	})
}

// Len returns the number of recorded revisions.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.revisions)
}

// Latest returns the most recent revision.
func (h *History) Latest() (Revision, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.revisions) == 0 {
		return Revision{}, false
	}
	return h.revisions[len(h.revisions)-1], true
}

// Revisions returns a copy of all recorded revisions.
func (h *History) Revisions() []Revision {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Revision(nil), h.revisions...)
}

// Diff produces a GNU unified diff between the revisions at the two
// zero-based positions, along with insertion/deletion statistics.  Identical
// drafts yield an empty diff string.
func (h *History) Diff(from, to int) (string, Stats, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if from < 0 || from >= len(h.revisions) || to < 0 || to >= len(h.revisions) {
		return "", Stats{}, fmt.Errorf("revision index out of range: %d..%d of %d", from, to, len(h.revisions))
	}
	older, newer := h.revisions[from], h.revisions[to]
	if older.Draft == newer.Draft {
		return "", Stats{}, nil
	}

	ud := difflib.UnifiedDiff{
		A:        difflib.SplitLines(older.Draft),
		B:        difflib.SplitLines(newer.Draft),
		FromFile: fmt.Sprintf("draft (iteration %d)", older.Iteration),
		ToFile:   fmt.Sprintf("draft (iteration %d)", newer.Iteration),
		Context:  3,
	}
	patch, err := difflib.GetUnifiedDiffString(ud)
	if err != nil {
		return "", Stats{}, err
	}

	fileDiff, err := diff.ParseFileDiff([]byte(patch))
	if err != nil {
		return patch, Stats{}, fmt.Errorf("failed to parse diff: %w", err)
	}
	stat := fileDiff.Stat()
	stats := Stats{
		Added:   int(stat.Added + stat.Changed),
		Removed: int(stat.Deleted + stat.Changed),
	}
	return patch, stats, nil
}

// LatestDiff diffs the two most recent revisions.  With fewer than two
// revisions it returns an empty diff.
func (h *History) LatestDiff() (string, Stats, error) {
	h.mu.Lock()
	n := len(h.revisions)
	h.mu.Unlock()
	if n < 2 {
		return "", Stats{}, nil
	}
	return h.Diff(n-2, n-1)
}
