package lexflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/nyayaflow/lexflow/internal/clock"
	"github.com/nyayaflow/lexflow/model/stage"
	"github.com/nyayaflow/lexflow/policy"
	"github.com/nyayaflow/lexflow/progress"
	"github.com/nyayaflow/lexflow/runtime/orchestrator"
	"github.com/nyayaflow/lexflow/service/artifact"
	"github.com/nyayaflow/lexflow/service/event"
	"github.com/nyayaflow/lexflow/service/run"
	"github.com/nyayaflow/lexflow/service/transport"
)

// Service is the high-level façade wiring the transport client, stage
// registry, approval policy and run bookkeeping together.  One Service can
// drive many runs; each run gets its own orchestrator with instance-owned
// gate, projection and revision history.
type Service struct {
	config    *Config
	token     string
	api       orchestrator.API
	registry  *stage.Registry
	policy    *policy.Policy
	logger    *slog.Logger
	events    *event.Service
	runs      *run.Service
	artifacts *artifact.Service
}

// New creates the service façade.
func New(options ...Option) (*Service, error) {
	ret := &Service{config: DefaultConfig()}
	for _, option := range options {
		option(ret)
	}
	if err := ret.init(); err != nil {
		return nil, err
	}
	return ret, nil
}

func (s *Service) init() error {
	if err := s.config.Validate(); err != nil {
		return err
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if s.registry == nil {
		registry, err := s.buildRegistry()
		if err != nil {
			return err
		}
		s.registry = registry
	}
	if s.api == nil {
		opts := []transport.Option{
			transport.WithLogger(s.logger),
			transport.WithTimeout(s.config.Timeout),
		}
		if s.token != "" {
			opts = append(opts, transport.WithBearerToken(s.token))
		}
		client, err := transport.New(s.config.BaseURL, opts...)
		if err != nil {
			return err
		}
		s.api = client
	}
	if s.policy == nil && !s.config.HITL {
		s.policy = policy.Auto()
	}
	if s.runs == nil {
		s.runs = run.New()
	}
	if s.artifacts == nil && s.config.ArtifactURL != "" {
		s.artifacts = artifact.New(s.config.ArtifactURL)
	}
	return nil
}

func (s *Service) buildRegistry() (*stage.Registry, error) {
	if s.config.RegistryURL != "" {
		return stage.NewLoader().Load(context.Background(), s.config.RegistryURL)
	}
	switch s.config.Domain {
	case stage.DomainLegalAid:
		return stage.LegalAid(), nil
	case stage.DomainComparison:
		return stage.Comparison(), nil
	default:
		return nil, fmt.Errorf("unknown domain %q and no registryURL configured", s.config.Domain)
	}
}

// Registry returns the pipeline shape driven by this service.
func (s *Service) Registry() *stage.Registry { return s.registry }

// Runs returns the run record service.
func (s *Service) Runs() *run.Service { return s.runs }

// Artifacts returns the artifact store, nil when no artifact URL is
// configured.
func (s *Service) Artifacts() *artifact.Service { return s.artifacts }

// NewRun creates an orchestrator for a single workflow run, inheriting the
// service-level policy, logger and event bus.  Per-run options may override
// any of them.
func (s *Service) NewRun(options ...orchestrator.Option) *orchestrator.Orchestrator {
	opts := []orchestrator.Option{orchestrator.WithLogger(s.logger)}
	if s.policy != nil {
		opts = append(opts, orchestrator.WithPolicy(s.policy))
	}
	if s.events != nil {
		opts = append(opts, orchestrator.WithEvents(s.events))
	}
	opts = append(opts, options...)
	return orchestrator.New(s.api, s.registry, opts...)
}

// RunResult summarises a completed run.
type RunResult struct {
	SessionID   string
	Document    string
	Iterations  int
	ArtifactURL string
}

// Run executes a full workflow for the supplied grievance, records the run
// outcome and stores the finalized document when an artifact store is
// configured.  Gated stages follow the service policy; with HITL enabled and
// no policy the run suspends until the orchestrator's gate is resolved, so
// callers owning the approval UI should use NewRun directly instead.
func (s *Service) Run(ctx context.Context, grievance string, options ...orchestrator.Option) (*RunResult, error) {
	flow := s.NewRun(options...)
	startedAt := clock.Now()

	tracker, tracked := progress.FromContext(ctx)
	if tracked {
		flow.Projection().OnChange(tracker.Observe)
	}

	document, err := flow.Run(ctx, grievance)
	if tracked {
		tracker.SetSession(flow.SessionID())
	}
	iteration, _, _ := flow.Iterations()
	record := &run.Record{
		SessionID:  flow.SessionID(),
		Domain:     s.registry.Domain(),
		Grievance:  grievance,
		Iterations: iteration,
		StartedAt:  startedAt,
	}
	if err != nil {
		record.Status = run.StatusFailed
		// A run torn down by its context was walked away from, not broken.
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			record.Status = run.StatusAbandoned
		}
		record.Error = err.Error()
		if record.SessionID != "" {
			if saveErr := s.runs.Save(ctx, record); saveErr != nil {
				s.logger.Warn("failed to record failed run", "error", saveErr)
			}
		}
		return nil, err
	}

	record.Status = run.StatusCompleted
	record.FinalDocument = document
	if saveErr := s.runs.Save(ctx, record); saveErr != nil {
		s.logger.Warn("failed to record run", "error", saveErr)
	}

	result := &RunResult{
		SessionID:  record.SessionID,
		Document:   document,
		Iterations: iteration,
	}
	if s.artifacts != nil {
		URL, artifactErr := s.artifacts.Save(ctx, record.SessionID, document)
		if artifactErr != nil {
			s.logger.Warn("failed to store artifact", "error", artifactErr)
		} else {
			result.ArtifactURL = URL
		}
	}
	return result, nil
}

// Status reports the server-side view of a session.
func (s *Service) Status(ctx context.Context, sessionID string) (*transport.StatusResponse, error) {
	return s.api.Status(ctx, sessionID)
}

// Health checks workflow API liveness.  It requires the concrete transport
// client; test doubles injected via WithTransport may not support it.
func (s *Service) Health(ctx context.Context) (*transport.HealthResponse, error) {
	type healthChecker interface {
		Health(ctx context.Context) (*transport.HealthResponse, error)
	}
	if checker, ok := s.api.(healthChecker); ok {
		return checker.Health(ctx)
	}
	return nil, fmt.Errorf("transport does not support health checks")
}
