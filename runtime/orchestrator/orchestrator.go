package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/viant/toolbox"

	"github.com/nyayaflow/lexflow/internal/idgen"
	"github.com/nyayaflow/lexflow/model/stage"
	"github.com/nyayaflow/lexflow/policy"
	"github.com/nyayaflow/lexflow/projection"
	"github.com/nyayaflow/lexflow/service/approval"
	"github.com/nyayaflow/lexflow/service/event"
	"github.com/nyayaflow/lexflow/service/revision"
	"github.com/nyayaflow/lexflow/service/transport"
	"github.com/nyayaflow/lexflow/tracing"
)

// DefaultRefineFeedback is sent when a draft is rejected without reviewer
// feedback.
const DefaultRefineFeedback = "Please revise and improve the draft"

// ErrStageDenied indicates a policy in deny mode blocked a gated stage.
var ErrStageDenied = errors.New("orchestrator: stage denied by policy")

// ErrAlreadyRun indicates a second Run call on a single-run orchestrator.
var ErrAlreadyRun = errors.New("orchestrator: run already started")

// State is the coarse run state.
type State string

const (
	StateIdle       State = "idle"
	StateStarted    State = "started"
	StateFinalizing State = "finalizing"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

// API is the slice of the transport client the orchestrator drives.  The
// concrete *transport.Client satisfies it; tests substitute fakes.
type API interface {
	Start(ctx context.Context, request *transport.StartRequest) (*transport.StartResponse, error)
	Advance(ctx context.Context, request *transport.AdvanceRequest) (*transport.DraftResponse, error)
	Refine(ctx context.Context, request *transport.RefineRequest) (*transport.DraftResponse, error)
	Finalize(ctx context.Context, sessionID string) (*transport.FinalizeResponse, error)
	Status(ctx context.Context, sessionID string) (*transport.StatusResponse, error)
}

// StageEvent is published on the event bus as the run progresses.
type StageEvent struct {
	SessionID string      `json:"sessionID"`
	StageID   string      `json:"stageID,omitempty"`
	Type      string      `json:"type"`
	Output    interface{} `json:"output,omitempty"`
}

// Orchestrator executes exactly one workflow run.  Gates, projection and
// revision history are instance-owned so concurrent runs never interfere.
type Orchestrator struct {
	api        API
	registry   *stage.Registry
	gate       *approval.Gate
	projection *projection.State
	policy     *policy.Policy
	logger     *slog.Logger
	events     *event.Service
	publisher  *event.Publisher[StageEvent]

	runID string

	mu            sync.Mutex
	state         State
	sessionID     string
	grievance     string
	findings      *transport.ResearchFindings
	draft         string
	iteration     int
	maxIterations int
	remaining     int
	traces        []transport.AgentTrace
	history       *revision.History
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithPolicy attaches an approval policy; nil keeps the interactive default
// where every gated stage blocks on the gate.
func WithPolicy(p *policy.Policy) Option {
	return func(o *Orchestrator) { o.policy = p }
}

// WithLogger configures structured logging.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithEvents publishes stage lifecycle events on the supplied bus.
func WithEvents(s *event.Service) Option {
	return func(o *Orchestrator) { o.events = s }
}

// WithGate overrides the instance-owned approval gate.
func WithGate(g *approval.Gate) Option {
	return func(o *Orchestrator) { o.gate = g }
}

// New creates an orchestrator for a single run over the given registry.
func New(api API, registry *stage.Registry, opts ...Option) *Orchestrator {
	ret := &Orchestrator{
		api:        api,
		registry:   registry,
		projection: projection.New(registry),
		state:      StateIdle,
		runID:      idgen.New(),
	}
	for _, opt := range opts {
		opt(ret)
	}
	if ret.gate == nil {
		ret.gate = approval.NewGate()
	}
	if ret.logger == nil {
		ret.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	ret.logger = ret.logger.With("runID", ret.runID)
	if ret.events != nil {
		ret.publisher, _ = event.PublisherOf[StageEvent](ret.events)
	}
	return ret
}

// RunID returns the client-generated identifier for this run, assigned
// before the server session exists.
func (o *Orchestrator) RunID() string { return o.runID }

// Gate exposes the approval gate so UI layers can resolve pending reviews.
func (o *Orchestrator) Gate() *approval.Gate { return o.gate }

// Projection exposes the UI-facing stage state for this run.
func (o *Orchestrator) Projection() *projection.State { return o.projection }

// State returns the coarse run state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// SessionID returns the server-assigned session identifier, empty before the
// first start call succeeds.
func (o *Orchestrator) SessionID() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sessionID
}

// Iterations reports the server-tracked refinement counters.
func (o *Orchestrator) Iterations() (iteration, max, remaining int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.iteration, o.maxIterations, o.remaining
}

// Traces returns the accumulated agent reasoning traces.
func (o *Orchestrator) Traces() []transport.AgentTrace {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]transport.AgentTrace(nil), o.traces...)
}

// History returns the draft revision history, nil before drafting started.
func (o *Orchestrator) History() *revision.History {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.history
}

// ApplyResearchEdits merges human edits into the pending research findings
// before they are submitted on approval.  Keys match the findings field
// names (Facts, LegalProvisions, MeritsScore, Reasoning, JurisdictionNotes).
func (o *Orchestrator) ApplyResearchEdits(edits map[string]interface{}) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.findings == nil {
		return fmt.Errorf("orchestrator: no research findings to edit")
	}
	edited := *o.findings
	if err := toolbox.DefaultConverter.AssignConverted(&edited, edits); err != nil {
		return fmt.Errorf("failed to apply research edits: %w", err)
	}
	o.findings = &edited
	return nil
}

// Run executes the pipeline for the supplied grievance text and returns the
// finished document.  It suspends at gated stages until the gate resolves or
// the policy decides; any transport failure aborts the run, reverting active
// stages to pending.  Run can be called at most once per instance.
func (o *Orchestrator) Run(ctx context.Context, grievance string) (result string, err error) {
	if strings.TrimSpace(grievance) == "" {
		return "", transport.ErrEmptyGrievance
	}
	o.mu.Lock()
	if o.state != StateIdle {
		o.mu.Unlock()
		return "", ErrAlreadyRun
	}
	o.state = StateStarted
	o.grievance = grievance
	o.mu.Unlock()

	ctx, span := tracing.StartSpan(ctx, "workflow.run", "CLIENT")
	defer func() {
		tracing.EndSpan(span, err)
	}()

	defer func() {
		if err != nil {
			o.fail(err)
		}
	}()

	// isApproved is nil on a fresh start and false when research was
	// rejected, telling the server to regenerate from scratch.
	var isApproved *bool

	current := o.registry.First()
	for {
		o.projection.StageRunning(current.ID)
		o.emit(event.TypeStageRunning, current.ID, nil)

		stageCtx, stageSpan := tracing.StartSpan(ctx, "stage."+current.ID, "CLIENT")
		var output interface{}
		switch current.Op {
		case stage.OpStart:
			output, err = o.start(stageCtx, grievance, isApproved)
		case stage.OpAdvance:
			output, err = o.advance(stageCtx)
		case stage.OpFinalize:
			result, err = o.finalize(stageCtx, current)
			tracing.EndSpan(stageSpan, err)
			return result, err
		default:
			err = fmt.Errorf("orchestrator: stage %q has unsupported op %q", current.ID, current.Op)
		}
		tracing.EndSpan(stageSpan, err)
		if err != nil {
			return "", err
		}

		o.projection.StageOutput(current.ID, output)
		o.emit(event.TypeStageOutput, current.ID, output)

		if !current.RequiresApproval {
			o.projection.StageDone(current.ID)
			o.emit(event.TypeStageDone, current.ID, nil)
			current = o.next(current)
			continue
		}

		approved, restart, decideErr := o.reviewLoop(ctx, current)
		if decideErr != nil {
			return "", decideErr
		}
		if restart {
			falseValue := false
			isApproved = &falseValue
			continue
		}
		if !approved {
			return "", ErrStageDenied
		}
		o.projection.StageDone(current.ID)
		o.emit(event.TypeStageDone, current.ID, nil)
		current = o.next(current)
	}
}

// next returns the stage after current; the registry guarantees the terminal
// stage uses OpFinalize, so Run always exits through finalize first.
func (o *Orchestrator) next(current stage.Descriptor) stage.Descriptor {
	if following, ok := o.registry.Next(current.ID); ok {
		return following
	}
	return current
}

// start creates (or restarts) the server-side session.
func (o *Orchestrator) start(ctx context.Context, grievance string, isApproved *bool) (interface{}, error) {
	response, err := o.api.Start(ctx, &transport.StartRequest{
		Grievance:  grievance,
		Domain:     o.registry.Domain(),
		IsApproved: isApproved,
	})
	if err != nil {
		return nil, err
	}
	o.mu.Lock()
	o.sessionID = response.SessionID
	o.findings = response.ResearchFindings
	o.traces = append(o.traces, response.AgentTraces...)
	if o.history == nil {
		o.history = revision.NewHistory(response.SessionID)
	}
	o.mu.Unlock()
	o.logger.InfoContext(ctx, "session started", "sessionID", response.SessionID, "stage", response.Stage)
	return response.ResearchFindings, nil
}

// advance submits the approved research and records the initial draft.
func (o *Orchestrator) advance(ctx context.Context) (interface{}, error) {
	o.mu.Lock()
	request := &transport.AdvanceRequest{
		SessionID:        o.sessionID,
		ApprovedResearch: o.findings,
		IsApproved:       true,
	}
	o.mu.Unlock()

	response, err := o.api.Advance(ctx, request)
	if err != nil {
		return nil, err
	}
	o.recordDraft(response, "")
	o.logger.InfoContext(ctx, "draft received", "sessionID", response.SessionID,
		"iteration", response.Iteration, "remaining", response.RemainingIterations)
	return response.Draft, nil
}

// finalize closes the session.  When the server returns an empty document the
// last accepted draft is the result.
func (o *Orchestrator) finalize(ctx context.Context, current stage.Descriptor) (string, error) {
	o.setState(StateFinalizing)
	o.mu.Lock()
	sessionID := o.sessionID
	lastDraft := o.draft
	o.mu.Unlock()

	response, err := o.api.Finalize(ctx, sessionID)
	if err != nil {
		return "", err
	}
	result := response.FinalDocument
	if result == "" {
		result = lastDraft
	}
	o.projection.StageOutput(current.ID, result)
	o.projection.StageDone(current.ID)
	o.setState(StateCompleted)
	o.emit(event.TypeRunCompleted, current.ID, result)
	o.logger.InfoContext(ctx, "run completed", "sessionID", sessionID, "iterations", response.Iterations)
	return result, nil
}

// reviewLoop suspends on the gated stage until a decision approves it or
// requires a session restart.  Draft rejections stay inside the loop, calling
// refine within the iteration budget and re-entering awaiting-approval.
func (o *Orchestrator) reviewLoop(ctx context.Context, current stage.Descriptor) (approved, restart bool, err error) {
	for {
		decision, decideErr := o.decide(ctx, current)
		if decideErr != nil {
			return false, false, decideErr
		}
		if decision.Approved {
			return true, false, nil
		}

		switch current.Op {
		case stage.OpStart:
			// No prior artifact to revise: regenerate from scratch.
			o.projection.StageRejected(current.ID)
			o.emit(event.TypeStageRejected, current.ID, nil)
			o.logger.InfoContext(ctx, "research rejected, restarting session", "stage", current.ID)
			return false, true, nil
		case stage.OpAdvance:
			o.mu.Lock()
			remaining := o.remaining
			o.mu.Unlock()
			if remaining <= 0 {
				// Budget exhausted: block the refine call locally and keep
				// the gate open so only acceptance remains.
				o.logger.WarnContext(ctx, "iteration budget exhausted, refine blocked", "stage", current.ID)
				continue
			}
			if refineErr := o.refine(ctx, current, decision.Feedback); refineErr != nil {
				return false, false, refineErr
			}
			continue
		default:
			return false, false, nil
		}
	}
}

// refine asks the server to revise the draft with reviewer feedback.
func (o *Orchestrator) refine(ctx context.Context, current stage.Descriptor, feedback string) error {
	if strings.TrimSpace(feedback) == "" {
		feedback = DefaultRefineFeedback
	}
	o.projection.StageRejected(current.ID)
	o.emit(event.TypeStageRejected, current.ID, nil)

	o.mu.Lock()
	sessionID := o.sessionID
	o.mu.Unlock()

	response, err := o.api.Refine(ctx, &transport.RefineRequest{SessionID: sessionID, Feedback: feedback})
	if err != nil {
		if transport.IsIterationLimit(err) {
			// The server refused ahead of the local budget; keep the gate
			// open instead of failing the run.
			o.logger.WarnContext(ctx, "server refused refinement", "stage", current.ID, "error", err)
			o.mu.Lock()
			o.remaining = 0
			draft := o.draft
			o.mu.Unlock()
			o.projection.StageOutput(current.ID, draft)
			return nil
		}
		return err
	}
	o.recordDraft(response, feedback)
	o.projection.StageOutput(current.ID, response.Draft)
	o.emit(event.TypeStageOutput, current.ID, response.Draft)
	o.logger.InfoContext(ctx, "draft refined", "iteration", response.Iteration,
		"remaining", response.RemainingIterations)
	return nil
}

// decide obtains an approval decision for the stage: from the attached
// policy when one is set, otherwise by suspending on the gate.
func (o *Orchestrator) decide(ctx context.Context, current stage.Descriptor) (approval.Decision, error) {
	p := o.policy
	if fromCtx := policy.FromContext(ctx); fromCtx != nil {
		p = fromCtx
	}
	if p != nil {
		if !p.IsAllowed(current.ID) {
			return approval.Decision{}, fmt.Errorf("%w: %s", ErrStageDenied, current.ID)
		}
		switch p.Mode {
		case policy.ModeAuto:
			return approval.Decision{StageID: current.ID, Approved: true}, nil
		case policy.ModeDeny:
			return approval.Decision{}, fmt.Errorf("%w: %s", ErrStageDenied, current.ID)
		case policy.ModeAsk:
			if p.Ask != nil {
				output, _ := o.projection.Output(current.ID)
				approved, feedback := p.Ask(ctx, current.ID, renderOutput(output), p)
				return approval.Decision{StageID: current.ID, Approved: approved, Feedback: feedback}, nil
			}
		}
	}
	return o.gate.Await(ctx, current.ID)
}

// recordDraft stores the draft response and appends it to the revision
// history.
func (o *Orchestrator) recordDraft(response *transport.DraftResponse, feedback string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.draft = response.Draft
	o.iteration = response.Iteration
	o.maxIterations = response.MaxIterations
	o.remaining = response.RemainingIterations
	o.traces = append(o.traces, response.AgentTraces...)
	if o.history != nil {
		o.history.Add(response.Iteration, response.Draft, feedback)
	}
}

func (o *Orchestrator) setState(state State) {
	o.mu.Lock()
	o.state = state
	o.mu.Unlock()
}

// fail moves the run to the absorbing failed state and reverts any active
// stage to pending so the UI never shows a stuck state.
func (o *Orchestrator) fail(err error) {
	o.setState(StateFailed)
	o.projection.RunFailed()
	o.emit(event.TypeRunFailed, "", err.Error())
	o.logger.Error("run failed", "error", err)
}

// emit publishes a lifecycle event when an event bus is attached.
func (o *Orchestrator) emit(eventType, stageID string, output interface{}) {
	if o.publisher == nil {
		return
	}
	o.mu.Lock()
	sessionID := o.sessionID
	o.mu.Unlock()
	evt := event.NewEvent(&event.Context{
		SessionID: sessionID,
		StageID:   stageID,
		EventType: eventType,
	}, StageEvent{SessionID: sessionID, StageID: stageID, Type: eventType, Output: output})
	_ = o.publisher.Publish(context.Background(), evt)
}

func renderOutput(output interface{}) string {
	switch actual := output.(type) {
	case nil:
		return ""
	case string:
		return actual
	default:
		return fmt.Sprintf("%v", actual)
	}
}
