package approval_test

import (
	"context"
	"testing"
	"time"

	"github.com/nyayaflow/lexflow/service/approval"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestGateAwaitResolve verifies that Await blocks until a decision arrives
// and returns the decision data supplied by Resolve.
func TestGateAwaitResolve(t *testing.T) {
	type testCase struct {
		name     string
		approved bool
		feedback string
	}

	tests := []testCase{
		{name: "approved", approved: true},
		{name: "rejected with feedback", approved: false, feedback: "cite the correct statute"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			gate := approval.NewGate()

			go func() {
				time.Sleep(10 * time.Millisecond)
				resolved := gate.Resolve("draft", tc.approved, tc.feedback)
				assert.True(t, resolved)
			}()

			decision, err := gate.Await(context.Background(), "draft")
			require.NoError(t, err)
			assert.Equal(t, "draft", decision.StageID)
			assert.Equal(t, tc.approved, decision.Approved)
			assert.Equal(t, tc.feedback, decision.Feedback)
			assert.False(t, decision.DecidedAt.IsZero())
			assert.False(t, gate.Pending("draft"))
		})
	}
}

func TestGateResolveWithoutWaiter(t *testing.T) {
	gate := approval.NewGate()
	assert.False(t, gate.Resolve("research", true, ""))

	// A second resolution before the next Await is also a no-op.
	go func() {
		time.Sleep(10 * time.Millisecond)
		assert.True(t, gate.Resolve("research", true, ""))
		assert.False(t, gate.Resolve("research", false, "late"))
	}()
	decision, err := gate.Await(context.Background(), "research")
	require.NoError(t, err)
	assert.True(t, decision.Approved)
}

func TestGateDoubleAwait(t *testing.T) {
	gate := approval.NewGate()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		_, _ = gate.Await(ctx, "draft")
	}()
	// Give the first waiter time to register.
	time.Sleep(10 * time.Millisecond)

	_, err := gate.Await(ctx, "draft")
	assert.ErrorIs(t, err, approval.ErrAlreadyWaiting)
}

func TestGateAwaitCancelled(t *testing.T) {
	gate := approval.NewGate()
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := gate.Await(ctx, "draft")
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, gate.Pending("draft"))

	// The stage is awaitable again after cancellation.
	go func() {
		time.Sleep(10 * time.Millisecond)
		gate.Resolve("draft", true, "")
	}()
	decision, err := gate.Await(context.Background(), "draft")
	require.NoError(t, err)
	assert.True(t, decision.Approved)
}

func TestGateIndependentStages(t *testing.T) {
	gate := approval.NewGate()
	ctx := context.Background()

	type result struct {
		stageID  string
		approved bool
	}
	results := make(chan result, 2)

	for _, stageID := range []string{"research", "draft"} {
		go func(id string) {
			decision, err := gate.Await(ctx, id)
			assert.NoError(t, err)
			results <- result{stageID: decision.StageID, approved: decision.Approved}
		}(stageID)
	}
	time.Sleep(10 * time.Millisecond)

	gate.Resolve("draft", false, "redo")
	gate.Resolve("research", true, "")

	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		r := <-results
		seen[r.stageID] = r.approved
	}
	assert.Equal(t, map[string]bool{"research": true, "draft": false}, seen)
}

func TestAutoDecider(t *testing.T) {
	gate := approval.NewGate()
	ctx := context.Background()

	stop := approval.AutoDecider(ctx, gate, func(stageID string) (bool, string) {
		return stageID != "draft", "needs work"
	})
	defer stop()

	decision, err := gate.Await(ctx, "research")
	require.NoError(t, err)
	assert.True(t, decision.Approved)

	decision, err = gate.Await(ctx, "draft")
	require.NoError(t, err)
	assert.False(t, decision.Approved)
	assert.Equal(t, "needs work", decision.Feedback)
}
