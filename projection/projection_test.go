package projection_test

import (
	"testing"

	"github.com/nyayaflow/lexflow/model/stage"
	"github.com/nyayaflow/lexflow/projection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForwardPass(t *testing.T) {
	state := projection.New(stage.LegalAid())

	for _, id := range []string{stage.Research, stage.Draft, stage.Finalize} {
		assert.Equal(t, projection.StatusPending, state.Status(id))
	}
	_, active := state.Active()
	assert.False(t, active)

	state.StageRunning(stage.Research)
	assert.Equal(t, projection.StatusRunning, state.Status(stage.Research))

	state.StageOutput(stage.Research, "findings")
	assert.Equal(t, projection.StatusAwaitingApproval, state.Status(stage.Research))
	output, ok := state.Output(stage.Research)
	require.True(t, ok)
	assert.Equal(t, "findings", output)

	state.StageDone(stage.Research)
	assert.Equal(t, projection.StatusDone, state.Status(stage.Research))
	// Draft gates on approval, so it is not optimistically started.
	assert.Equal(t, projection.StatusPending, state.Status(stage.Draft))

	state.StageRunning(stage.Draft)
	state.StageOutput(stage.Draft, "draft v1")
	state.StageDone(stage.Draft)
	// Finalize does not gate – the UI never shows a gap.
	assert.Equal(t, projection.StatusRunning, state.Status(stage.Finalize))

	state.StageOutput(stage.Finalize, "final document")
	assert.Equal(t, projection.StatusRunning, state.Status(stage.Finalize))
	state.StageDone(stage.Finalize)
	assert.Equal(t, projection.StatusDone, state.Status(stage.Finalize))
}

func TestAtMostOneActiveStage(t *testing.T) {
	state := projection.New(stage.LegalAid())

	countActive := func(s projection.Snapshot) int {
		active := 0
		for _, status := range s.Statuses {
			if status == projection.StatusRunning || status == projection.StatusAwaitingApproval {
				active++
			}
		}
		return active
	}

	maxActive := 0
	state.OnChange(func(s projection.Snapshot) {
		if n := countActive(s); n > maxActive {
			maxActive = n
		}
	})

	state.StageRunning(stage.Research)
	state.StageOutput(stage.Research, "findings")
	state.StageDone(stage.Research)
	state.StageRunning(stage.Draft)
	state.StageOutput(stage.Draft, "draft")
	state.StageDone(stage.Draft)
	state.StageDone(stage.Finalize)

	assert.LessOrEqual(t, maxActive, 1)
}

func TestStageRejectedClearsDownstream(t *testing.T) {
	state := projection.New(stage.LegalAid())

	state.StageRunning(stage.Research)
	state.StageOutput(stage.Research, "findings")
	state.StageDone(stage.Research)
	state.StageRunning(stage.Draft)
	state.StageOutput(stage.Draft, "draft v1")

	state.StageRejected(stage.Draft)
	assert.Equal(t, projection.StatusRunning, state.Status(stage.Draft))
	assert.Equal(t, projection.StatusPending, state.Status(stage.Finalize))
	_, ok := state.Output(stage.Draft)
	assert.False(t, ok)
	// Upstream output survives a downstream rejection.
	_, ok = state.Output(stage.Research)
	assert.True(t, ok)

	// Rejecting the first gated stage discards everything.
	state.StageRejected(stage.Research)
	_, ok = state.Output(stage.Research)
	assert.False(t, ok)
	assert.Equal(t, projection.StatusRunning, state.Status(stage.Research))
	assert.Equal(t, projection.StatusPending, state.Status(stage.Draft))
}

func TestRunFailedRevertsActiveStage(t *testing.T) {
	state := projection.New(stage.LegalAid())

	state.StageRunning(stage.Draft)
	state.RunFailed()
	assert.Equal(t, projection.StatusPending, state.Status(stage.Draft))

	state.StageDone(stage.Research)
	state.StageOutput(stage.Draft, "draft")
	state.RunFailed()
	assert.Equal(t, projection.StatusDone, state.Status(stage.Research))
	assert.Equal(t, projection.StatusPending, state.Status(stage.Draft))
}

func TestSnapshotIsolation(t *testing.T) {
	state := projection.New(stage.LegalAid())
	state.StageOutput(stage.Research, "findings")

	snapshot := state.Snapshot()
	snapshot.Statuses[stage.Research] = projection.StatusDone
	snapshot.Outputs[stage.Research] = "mutated"

	assert.Equal(t, projection.StatusAwaitingApproval, state.Status(stage.Research))
	output, _ := state.Output(stage.Research)
	assert.Equal(t, "findings", output)
}
