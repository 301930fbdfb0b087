package lexflow

import (
	"log/slog"

	"github.com/nyayaflow/lexflow/model/stage"
	"github.com/nyayaflow/lexflow/policy"
	"github.com/nyayaflow/lexflow/runtime/orchestrator"
	"github.com/nyayaflow/lexflow/service/event"
	"github.com/nyayaflow/lexflow/tracing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Option configures the Service façade.
type Option func(s *Service)

// WithConfig replaces the default configuration.
func WithConfig(config *Config) Option {
	return func(s *Service) { s.config = config }
}

// WithBaseURL overrides the workflow API base URL.
func WithBaseURL(baseURL string) Option {
	return func(s *Service) { s.config.BaseURL = baseURL }
}

// WithDomain overrides the workflow domain.
func WithDomain(domain string) Option {
	return func(s *Service) { s.config.Domain = domain }
}

// WithHITL toggles human-in-the-loop approval; when disabled every gated
// stage is approved automatically.
func WithHITL(enabled bool) Option {
	return func(s *Service) { s.config.HITL = enabled }
}

// WithBearerToken authenticates every API request with the supplied token.
func WithBearerToken(token string) Option {
	return func(s *Service) { s.token = token }
}

// WithRegistry sets the pipeline shape, replacing the built-in registry.
func WithRegistry(registry *stage.Registry) Option {
	return func(s *Service) { s.registry = registry }
}

// WithTransport sets the transport API, replacing the HTTP client built from
// the configuration.  Mostly useful in tests.
func WithTransport(api orchestrator.API) Option {
	return func(s *Service) { s.api = api }
}

// WithPolicy sets the default approval policy applied to every run.
func WithPolicy(p *policy.Policy) Option {
	return func(s *Service) { s.policy = p }
}

// WithLogger configures structured logging.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithEventService publishes stage lifecycle events on the supplied bus.
func WithEventService(service *event.Service) Option {
	return func(s *Service) { s.events = service }
}

// WithTracing configures OpenTelemetry tracing for the service.  If
// outputFile is empty the stdout exporter is used; otherwise traces are
// written to the supplied file path.  The function is safe to call multiple
// times – the first successful initialisation wins.
func WithTracing(serviceName, serviceVersion, outputFile string) Option {
	return func(s *Service) {
		_ = tracing.Init(serviceName, serviceVersion, outputFile)
	}
}

// WithTracingExporter configures OpenTelemetry tracing using a custom
// SpanExporter.  This enables integrations with exporters other than the
// built-in stdout exporter, for example OTLP, Jaeger or Zipkin.
func WithTracingExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) Option {
	return func(s *Service) {
		_ = tracing.InitWithExporter(serviceName, serviceVersion, exporter)
	}
}
