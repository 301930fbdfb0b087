package orchestrator_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/nyayaflow/lexflow/model/stage"
	"github.com/nyayaflow/lexflow/policy"
	"github.com/nyayaflow/lexflow/projection"
	"github.com/nyayaflow/lexflow/runtime/orchestrator"
	"github.com/nyayaflow/lexflow/service/approval"
	"github.com/nyayaflow/lexflow/service/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI simulates the workflow server, counting every call.
type fakeAPI struct {
	mu            sync.Mutex
	maxIterations int
	iteration     int
	startCalls    int
	advanceCalls  int
	refineCalls   int
	finalizeCalls int
	startRequests []*transport.StartRequest
	feedbacks     []string
	advanceErr    error
	emptyFinal    bool
	lastResearch  *transport.ResearchFindings
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{maxIterations: 3}
}

func (f *fakeAPI) Start(_ context.Context, request *transport.StartRequest) (*transport.StartResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startCalls++
	f.startRequests = append(f.startRequests, request)
	return &transport.StartResponse{
		SessionID: "s-1",
		Stage:     "awaiting_research_approval",
		ResearchFindings: &transport.ResearchFindings{
			Facts:       []string{fmt.Sprintf("fact from attempt %d", f.startCalls)},
			MeritsScore: 7.5,
			Reasoning:   "grievance appears actionable",
		},
		AgentTraces: []transport.AgentTrace{{Agent: "research", Action: "analyze"}},
	}, nil
}

func (f *fakeAPI) Advance(_ context.Context, request *transport.AdvanceRequest) (*transport.DraftResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.advanceErr != nil {
		return nil, f.advanceErr
	}
	f.advanceCalls++
	f.lastResearch = request.ApprovedResearch
	f.iteration = 1
	return f.draftResponse(), nil
}

func (f *fakeAPI) Refine(_ context.Context, request *transport.RefineRequest) (*transport.DraftResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.iteration >= f.maxIterations {
		return nil, &transport.APIError{Op: "refine", StatusCode: 400, Detail: "Maximum iterations reached"}
	}
	f.refineCalls++
	f.feedbacks = append(f.feedbacks, request.Feedback)
	f.iteration++
	return f.draftResponse(), nil
}

func (f *fakeAPI) draftResponse() *transport.DraftResponse {
	return &transport.DraftResponse{
		SessionID:           "s-1",
		Stage:               "awaiting_draft_review",
		Draft:               fmt.Sprintf("draft v%d\n", f.iteration),
		Iteration:           f.iteration,
		MaxIterations:       f.maxIterations,
		RemainingIterations: f.maxIterations - f.iteration,
	}
}

func (f *fakeAPI) Finalize(_ context.Context, sessionID string) (*transport.FinalizeResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finalizeCalls++
	document := "FINAL: petition for " + sessionID
	if f.emptyFinal {
		document = ""
	}
	return &transport.FinalizeResponse{
		SessionID:     sessionID,
		FinalDocument: document,
		Iterations:    f.iteration,
		Status:        "complete",
	}, nil
}

func (f *fakeAPI) Status(_ context.Context, sessionID string) (*transport.StatusResponse, error) {
	return &transport.StatusResponse{SessionID: sessionID, Stage: "started"}, nil
}

// scriptedPolicy returns an ask-mode policy whose decisions come from the
// supplied script, one entry per gate visit.
func scriptedPolicy(t *testing.T, script ...func(stageID string) (bool, string)) *policy.Policy {
	index := 0
	return &policy.Policy{
		Mode: policy.ModeAsk,
		Ask: func(_ context.Context, stageID, _ string, _ *policy.Policy) (bool, string) {
			require.Less(t, index, len(script), "unexpected gate visit for stage %s", stageID)
			decision := script[index]
			index++
			return decision(stageID)
		},
	}
}

func approve(string) (bool, string) { return true, "" }

func reject(feedback string) func(string) (bool, string) {
	return func(string) (bool, string) { return false, feedback }
}

func TestRunApproveAll(t *testing.T) {
	api := newFakeAPI()
	flow := orchestrator.New(api, stage.LegalAid(), orchestrator.WithPolicy(policy.Auto()))

	result, err := flow.Run(context.Background(), "water supply disruption in ward 12")
	require.NoError(t, err)
	assert.Equal(t, "FINAL: petition for s-1", result)
	assert.Equal(t, orchestrator.StateCompleted, flow.State())
	assert.Equal(t, "s-1", flow.SessionID())

	assert.Equal(t, 1, api.startCalls)
	assert.Equal(t, 1, api.advanceCalls)
	assert.Equal(t, 0, api.refineCalls)
	assert.Equal(t, 1, api.finalizeCalls)

	for _, id := range []string{stage.Research, stage.Draft, stage.Finalize} {
		assert.Equal(t, projection.StatusDone, flow.Projection().Status(id))
	}
}

func TestRunResearchRejectionRestartsSession(t *testing.T) {
	api := newFakeAPI()
	flow := orchestrator.New(api, stage.LegalAid(), orchestrator.WithPolicy(
		scriptedPolicy(t, reject(""), approve, approve),
	))

	result, err := flow.Run(context.Background(), "defective product refund refused")
	require.NoError(t, err)
	assert.NotEmpty(t, result)

	require.Equal(t, 2, api.startCalls)
	assert.Nil(t, api.startRequests[0].IsApproved)
	require.NotNil(t, api.startRequests[1].IsApproved)
	assert.False(t, *api.startRequests[1].IsApproved)
}

func TestRunDraftRejectionRefinesInSession(t *testing.T) {
	api := newFakeAPI()
	flow := orchestrator.New(api, stage.LegalAid(), orchestrator.WithPolicy(
		scriptedPolicy(t, approve, reject("make it more specific"), approve),
	))

	result, err := flow.Run(context.Background(), "illegal construction next door")
	require.NoError(t, err)
	assert.NotEmpty(t, result)

	assert.Equal(t, 1, api.startCalls)
	assert.Equal(t, 1, api.refineCalls)
	assert.Equal(t, []string{"make it more specific"}, api.feedbacks)

	iteration, max, remaining := flow.Iterations()
	assert.Equal(t, 2, iteration)
	assert.Equal(t, 3, max)
	assert.Equal(t, 1, remaining)

	history := flow.History()
	require.NotNil(t, history)
	assert.Equal(t, 2, history.Len())
	patch, stats, err := history.LatestDiff()
	require.NoError(t, err)
	assert.NotEmpty(t, patch)
	assert.Equal(t, 1, stats.Added)
}

func TestRunIterationBudgetBlocksRefine(t *testing.T) {
	api := newFakeAPI()
	flow := orchestrator.New(api, stage.LegalAid(), orchestrator.WithPolicy(
		scriptedPolicy(t, approve, reject("r1"), reject("r2"), reject("r3"), reject("r4"), approve),
	))

	result, err := flow.Run(context.Background(), "pension arrears unpaid")
	require.NoError(t, err)
	assert.NotEmpty(t, result)

	// Two refinements exhaust the budget; later rejections never reach the
	// network and the gate stays open until the draft is accepted.
	assert.Equal(t, 2, api.refineCalls)
	assert.LessOrEqual(t, api.refineCalls, api.maxIterations-1)
	_, _, remaining := flow.Iterations()
	assert.Equal(t, 0, remaining)
	assert.Equal(t, 1, api.finalizeCalls)
}

func TestRunDefaultFeedback(t *testing.T) {
	api := newFakeAPI()
	flow := orchestrator.New(api, stage.LegalAid(), orchestrator.WithPolicy(
		scriptedPolicy(t, approve, reject(""), approve),
	))

	_, err := flow.Run(context.Background(), "streetlight outage for months")
	require.NoError(t, err)
	assert.Equal(t, []string{orchestrator.DefaultRefineFeedback}, api.feedbacks)
}

func TestRunTransportFailureRevertsStage(t *testing.T) {
	api := newFakeAPI()
	api.advanceErr = &transport.TransportError{Op: "advance", Err: fmt.Errorf("connection refused")}
	flow := orchestrator.New(api, stage.LegalAid(), orchestrator.WithPolicy(policy.Auto()))

	_, err := flow.Run(context.Background(), "noise pollution complaint")
	require.Error(t, err)
	assert.Equal(t, orchestrator.StateFailed, flow.State())

	assert.Equal(t, projection.StatusDone, flow.Projection().Status(stage.Research))
	assert.Equal(t, projection.StatusPending, flow.Projection().Status(stage.Draft))
	assert.Equal(t, 0, api.finalizeCalls)
}

func TestRunResearchEditsForwarded(t *testing.T) {
	api := newFakeAPI()
	var flow *orchestrator.Orchestrator
	editing := &policy.Policy{
		Mode: policy.ModeAsk,
		Ask: func(_ context.Context, stageID, _ string, _ *policy.Policy) (bool, string) {
			if stageID == stage.Research {
				require.NoError(t, flow.ApplyResearchEdits(map[string]interface{}{
					"Reasoning":   "strong precedent exists",
					"MeritsScore": 9.0,
				}))
			}
			return true, ""
		},
	}
	flow = orchestrator.New(api, stage.LegalAid(), orchestrator.WithPolicy(editing))

	_, err := flow.Run(context.Background(), "tenant eviction without notice")
	require.NoError(t, err)
	require.NotNil(t, api.lastResearch)
	assert.Equal(t, "strong precedent exists", api.lastResearch.Reasoning)
	assert.Equal(t, 9.0, api.lastResearch.MeritsScore)
	// untouched fields survive the edit
	assert.Equal(t, []string{"fact from attempt 1"}, api.lastResearch.Facts)
}

func TestRunEmptyFinalFallsBackToDraft(t *testing.T) {
	api := newFakeAPI()
	api.emptyFinal = true
	flow := orchestrator.New(api, stage.LegalAid(), orchestrator.WithPolicy(policy.Auto()))

	result, err := flow.Run(context.Background(), "delayed passport application")
	require.NoError(t, err)
	assert.Equal(t, "draft v1\n", result)
}

func TestRunGateDriven(t *testing.T) {
	api := newFakeAPI()
	flow := orchestrator.New(api, stage.LegalAid())

	stop := approval.AutoApprove(context.Background(), flow.Gate())
	defer stop()

	done := make(chan struct{})
	var result string
	var err error
	go func() {
		result, err = flow.Run(context.Background(), "ration card application stalled")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("run did not complete")
	}
	require.NoError(t, err)
	assert.NotEmpty(t, result)
	assert.Equal(t, orchestrator.StateCompleted, flow.State())
}

func TestRunValidation(t *testing.T) {
	api := newFakeAPI()
	flow := orchestrator.New(api, stage.LegalAid(), orchestrator.WithPolicy(policy.Auto()))

	_, err := flow.Run(context.Background(), "   ")
	assert.ErrorIs(t, err, transport.ErrEmptyGrievance)
	assert.Equal(t, 0, api.startCalls)

	_, err = flow.Run(context.Background(), "valid grievance")
	require.NoError(t, err)
	_, err = flow.Run(context.Background(), "valid grievance")
	assert.ErrorIs(t, err, orchestrator.ErrAlreadyRun)
}

func TestRunDenyPolicyFails(t *testing.T) {
	api := newFakeAPI()
	flow := orchestrator.New(api, stage.LegalAid(), orchestrator.WithPolicy(&policy.Policy{Mode: policy.ModeDeny}))

	_, err := flow.Run(context.Background(), "any grievance")
	assert.ErrorIs(t, err, orchestrator.ErrStageDenied)
	assert.Equal(t, orchestrator.StateFailed, flow.State())
}
