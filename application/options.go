package application

import (
	"github.com/felixgeelhaar/gateway-go/domain/config"
	"github.com/felixgeelhaar/gateway-go/domain/message"
	"github.com/felixgeelhaar/gateway-go/domain/tool"
	"github.com/felixgeelhaar/gateway-go/infrastructure/backend"
	"github.com/felixgeelhaar/gateway-go/infrastructure/resilience"
	"github.com/felixgeelhaar/gateway-go/infrastructure/telemetry"
)

// Option configures an Orchestrator.
type Option func(*OrchestratorConfig)

// WithProviders wires the provider registry so unreachable providers
// get reaped when their tools fail.
func WithProviders(r Reaper) Option {
	return func(cfg *OrchestratorConfig) {
		cfg.Providers = r
	}
}

// WithExecutor sets the resilient tool executor.
func WithExecutor(e *resilience.Executor) Option {
	return func(cfg *OrchestratorConfig) {
		cfg.Executor = e
	}
}

// WithMetrics sets the telemetry sink.
func WithMetrics(m telemetry.Metrics) Option {
	return func(cfg *OrchestratorConfig) {
		cfg.Metrics = m
	}
}

// WithModel sets the model and sampling parameters forwarded on every
// completion request.
func WithModel(cfg config.ModelConfig) Option {
	return func(c *OrchestratorConfig) {
		c.Model = cfg.Name
		c.Temperature = cfg.Temperature
		c.MaxTokens = cfg.MaxTokens
	}
}

// WithMaxTurns bounds the number of model consultations per session.
func WithMaxTurns(n int) Option {
	return func(cfg *OrchestratorConfig) {
		cfg.MaxTurns = n
	}
}

// NewOrchestratorWithOptions creates an orchestrator from the required
// dependencies plus functional options.
func NewOrchestratorWithOptions(b backend.Backend, log message.Log, registry tool.Registry, opts ...Option) (*Orchestrator, error) {
	cfg := OrchestratorConfig{
		Backend:  b,
		Log:      log,
		Registry: registry,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return NewOrchestrator(cfg)
}
