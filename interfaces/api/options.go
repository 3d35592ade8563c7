package api

import (
	"github.com/felixgeelhaar/gateway-go/domain/config"
	"github.com/felixgeelhaar/gateway-go/domain/tool"
	"github.com/felixgeelhaar/gateway-go/infrastructure/backend"
	"github.com/felixgeelhaar/gateway-go/infrastructure/compiler"
	infraevent "github.com/felixgeelhaar/gateway-go/infrastructure/event"
	"github.com/felixgeelhaar/gateway-go/infrastructure/resilience"
	"github.com/felixgeelhaar/gateway-go/infrastructure/telemetry"
)

// gatewayConfig holds configuration for gateway creation.
type gatewayConfig struct {
	backend      backend.Backend
	model        config.ModelConfig
	systemPrompt string
	maxTurns     int
	tools        []tool.Tool
	executor     *resilience.Executor
	metrics      telemetry.Metrics
	compiler     *compiler.Compiler
	busOptions   []infraevent.Option
	configInfo   map[string]string
}

// Option configures the Gateway.
type Option func(*gatewayConfig)

// WithBackend sets the model completion backend. Required.
func WithBackend(b backend.Backend) Option {
	return func(c *gatewayConfig) {
		c.backend = b
	}
}

// WithModel sets the model and sampling parameters forwarded on every
// completion request.
func WithModel(m config.ModelConfig) Option {
	return func(c *gatewayConfig) {
		c.model = m
	}
}

// WithSystemPrompt seeds the conversation log with a system message.
func WithSystemPrompt(prompt string) Option {
	return func(c *gatewayConfig) {
		c.systemPrompt = prompt
	}
}

// WithMaxTurns bounds the number of model consultations per session.
func WithMaxTurns(n int) Option {
	return func(c *gatewayConfig) {
		c.maxTurns = n
	}
}

// WithTool registers a tool at construction time. Can be given multiple
// times.
func WithTool(t tool.Tool) Option {
	return func(c *gatewayConfig) {
		c.tools = append(c.tools, t)
	}
}

// WithExecutor sets the resilient tool executor.
func WithExecutor(e *resilience.Executor) Option {
	return func(c *gatewayConfig) {
		c.executor = e
	}
}

// WithMetrics sets the telemetry sink.
func WithMetrics(m telemetry.Metrics) Option {
	return func(c *gatewayConfig) {
		c.metrics = m
	}
}

// WithCompiler sets the dynamic tool compiler.
func WithCompiler(c *compiler.Compiler) Option {
	return func(cfg *gatewayConfig) {
		cfg.compiler = c
	}
}

// WithEventBuffer sets the per-subscriber event buffer size.
func WithEventBuffer(size int) Option {
	return func(c *gatewayConfig) {
		c.busOptions = append(c.busOptions, infraevent.WithBufferSize(size))
	}
}

// WithConfigInfo attaches configuration metadata to snapshots delivered
// on subscription.
func WithConfigInfo(info map[string]string) Option {
	return func(c *gatewayConfig) {
		c.configInfo = info
	}
}
