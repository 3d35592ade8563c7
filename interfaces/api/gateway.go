// Package api provides the public API for the gateway-go runtime.
//
// gateway-go is a conversational agent gateway: it keeps an append-only
// conversation log, a mutable tool catalog, and a set of managed tool
// provider subprocesses, and drives a model backend in a loop until it
// produces a final reply.
//
// # Quick Start
//
// Create a gateway with a local tool and send a message:
//
//	echo := api.NewToolBuilder("echo").
//	    WithDescription("Echoes input").
//	    WithHandler(func(ctx context.Context, input json.RawMessage) (tool.Result, error) {
//	        return tool.NewResult(input), nil
//	    }).
//	    MustBuild()
//
//	gw, _ := api.New(
//	    api.WithBackend(backend),
//	    api.WithSystemPrompt("You are a helpful assistant."),
//	    api.WithTool(echo),
//	)
//	defer gw.Close()
//
//	sess, reply, err := gw.SendMessage(ctx, "Echo something for me")
//
// # Tools
//
// The catalog accepts tools from three sources:
//
//   - RegisterTool: handlers written in Go and registered in-process
//   - CompileTool: Go source text compiled at runtime (trusted or
//     sandboxed mode)
//   - LoadWasmTool: WebAssembly modules executed in a WASI sandbox
//
// Provider subprocesses added with AddProvider contribute proxy tools
// that are removed again when the provider goes away.
//
// # Observation
//
// Subscribe returns a snapshot of the full gateway state followed by a
// live event stream, so an observer attaching mid-conversation never
// sees a gap.
package api

import (
	"context"
	"fmt"
	"sync"

	"github.com/felixgeelhaar/gateway-go/application"
	"github.com/felixgeelhaar/gateway-go/domain/config"
	"github.com/felixgeelhaar/gateway-go/domain/event"
	"github.com/felixgeelhaar/gateway-go/domain/message"
	"github.com/felixgeelhaar/gateway-go/domain/provider"
	"github.com/felixgeelhaar/gateway-go/domain/session"
	"github.com/felixgeelhaar/gateway-go/domain/tool"
	"github.com/felixgeelhaar/gateway-go/infrastructure/backend"
	"github.com/felixgeelhaar/gateway-go/infrastructure/compiler"
	infraevent "github.com/felixgeelhaar/gateway-go/infrastructure/event"
	"github.com/felixgeelhaar/gateway-go/infrastructure/logging"
	infraprovider "github.com/felixgeelhaar/gateway-go/infrastructure/provider"
	"github.com/felixgeelhaar/gateway-go/infrastructure/resilience"
	"github.com/felixgeelhaar/gateway-go/infrastructure/sandbox"
	"github.com/felixgeelhaar/gateway-go/infrastructure/storage/memory"
	"github.com/felixgeelhaar/gateway-go/infrastructure/telemetry"
)

// Re-export core types for convenience.
type (
	// Message is a single entry in the conversation log.
	Message = message.Message

	// ToolCall is a tool invocation requested by the model.
	ToolCall = message.ToolCall

	// Session records the lifecycle of one orchestration run.
	Session = session.Session

	// Tool is a registered capability the model can invoke.
	Tool = tool.Tool

	// Result is the output of a tool execution.
	Result = tool.Result

	// Schema declares a tool's input parameters.
	Schema = tool.Schema

	// Property is a single named schema parameter.
	Property = tool.Property

	// Spec is the model-facing description of a tool.
	Spec = tool.Spec

	// Event is one entry in the gateway's observable event stream.
	Event = event.Event

	// Snapshot is the full observable state delivered on subscription.
	Snapshot = event.Snapshot

	// LaunchSpec describes a tool provider subprocess.
	LaunchSpec = provider.LaunchSpec

	// ProviderRecord is the observer-facing view of a provider.
	ProviderRecord = provider.Record

	// CompileRequest describes a tool to compile from source text.
	CompileRequest = compiler.Request
)

// Re-export message roles.
const (
	RoleSystem    = message.RoleSystem
	RoleUser      = message.RoleUser
	RoleAssistant = message.RoleAssistant
	RoleTool      = message.RoleTool
)

// Re-export session states.
const (
	StateAwaitingModel  = session.StateAwaitingModel
	StateExecutingTools = session.StateExecutingTools
	StateDone           = session.StateDone
	StateFailed         = session.StateFailed
)

// Re-export compiler trust modes.
const (
	ModeTrusted   = compiler.ModeTrusted
	ModeSandboxed = compiler.ModeSandboxed
)

// NewToolBuilder starts building a local tool.
func NewToolBuilder(name string) *tool.Builder {
	return tool.NewBuilder(name)
}

// Gateway is the main runtime. It owns the conversation log, the tool
// catalog, the provider registry, and the orchestration loop.
type Gateway struct {
	bus          *infraevent.Bus
	log          message.Log
	registry     tool.Registry
	providers    *infraprovider.Registry
	compiler     *compiler.Compiler
	orchestrator *application.Orchestrator
	backend      backend.Backend
	metrics      telemetry.Metrics

	systemPrompt string
	configInfo   map[string]string

	mu      sync.Mutex
	sandbox *sandbox.Runner
	closed  bool
}

// New creates a gateway with the provided options. A backend is
// required; everything else has defaults.
func New(opts ...Option) (*Gateway, error) {
	cfg := &gatewayConfig{
		compiler: compiler.New(),
		maxTurns: config.DefaultMaxTurns,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.backend == nil {
		return nil, application.ErrBackendRequired
	}
	if cfg.metrics == nil {
		cfg.metrics = telemetry.NoopMetrics{}
	}

	bus := infraevent.NewBus(cfg.busOptions...)
	log := memory.NewMessageLog(bus)
	registry := memory.NewToolRegistry(bus)
	providers := infraprovider.NewRegistry(registry, bus)
	for _, t := range cfg.tools {
		registry.Register(t)
	}

	orch, err := application.NewOrchestrator(application.OrchestratorConfig{
		Backend:     cfg.backend,
		Log:         log,
		Registry:    registry,
		Providers:   providers,
		Executor:    cfg.executor,
		Metrics:     cfg.metrics,
		Model:       cfg.model.Name,
		Temperature: cfg.model.Temperature,
		MaxTokens:   cfg.model.MaxTokens,
		MaxTurns:    cfg.maxTurns,
	})
	if err != nil {
		bus.Close()
		return nil, err
	}

	g := &Gateway{
		bus:          bus,
		log:          log,
		registry:     registry,
		providers:    providers,
		compiler:     cfg.compiler,
		orchestrator: orch,
		backend:      cfg.backend,
		metrics:      cfg.metrics,
		systemPrompt: cfg.systemPrompt,
		configInfo:   cfg.configInfo,
	}
	bus.SetSnapshotFunc(g.snapshot)
	g.seedSystemPrompt()
	return g, nil
}

// FromConfig creates a gateway from a loaded configuration: it
// initializes logging, builds the backend and executor, loads the
// configured WebAssembly tools, and launches the configured providers.
// A provider that fails to launch aborts construction.
func FromConfig(ctx context.Context, cfg *config.GatewayConfig) (*Gateway, error) {
	logging.Init(logging.FromConfig(cfg.Logging))

	b, err := backend.FromConfig(cfg.Model)
	if err != nil {
		return nil, err
	}

	var compilerOpts []compiler.Option
	if cfg.Compiler.Trust != "" {
		compilerOpts = append(compilerOpts, compiler.WithMode(compiler.Mode(cfg.Compiler.Trust)))
	}
	if cfg.Compiler.Timeout > 0 {
		compilerOpts = append(compilerOpts, compiler.WithTimeout(cfg.Compiler.Timeout.Duration()))
	}

	g, err := New(
		WithBackend(b),
		WithModel(cfg.Model),
		WithSystemPrompt(cfg.SystemPrompt),
		WithMaxTurns(cfg.EffectiveMaxTurns()),
		WithExecutor(resilience.NewExecutor(resilience.FromConfig(cfg.Resilience))),
		WithCompiler(compiler.New(compilerOpts...)),
		WithMetrics(telemetry.NewMetricsProvider(telemetry.DefaultMetricsConfig())),
		WithConfigInfo(map[string]string{
			"name":    cfg.Name,
			"version": cfg.Version,
			"backend": cfg.Model.Backend,
			"model":   cfg.Model.Name,
		}),
	)
	if err != nil {
		return nil, err
	}

	if len(cfg.WasmTools) > 0 {
		if err := g.loadWasmTools(cfg.WasmTools); err != nil {
			g.Close()
			return nil, err
		}
	}

	for _, spec := range cfg.Providers {
		if _, err := g.AddProvider(ctx, spec); err != nil {
			g.Close()
			return nil, fmt.Errorf("launching provider %q: %w", spec.Name, err)
		}
	}
	return g, nil
}

// SendMessage appends a user message and runs the orchestration loop.
// The returned session records the final state; the returned message is
// the final assistant reply when the session completed.
func (g *Gateway) SendMessage(ctx context.Context, text string) (*Session, Message, error) {
	return g.orchestrator.Run(ctx, text)
}

// RegisterTool adds a tool to the catalog, replacing any tool with the
// same name.
func (g *Gateway) RegisterTool(t Tool) {
	g.registry.Register(t)
}

// UnregisterTool removes a tool by name.
func (g *Gateway) UnregisterTool(name string) bool {
	return g.registry.Unregister(name)
}

// Tools returns the model-facing specs of the current catalog.
func (g *Gateway) Tools() []Spec {
	return g.registry.Specs()
}

// CompileTool compiles Go source text into a tool and registers it.
func (g *Gateway) CompileTool(req CompileRequest) (Tool, error) {
	t, err := g.compiler.Compile(req)
	g.metrics.RecordToolCompilation(context.Background(), req.Name, err == nil)
	if err != nil {
		return nil, err
	}
	g.registry.Register(t)
	return t, nil
}

// LoadWasmTool loads a WebAssembly module as a sandboxed tool and
// registers it. The sandbox runtime is created on first use.
func (g *Gateway) LoadWasmTool(name, description string, schema Schema, path string) (Tool, error) {
	runner, err := g.wasmRunner()
	if err != nil {
		return nil, err
	}
	t, err := runner.LoadFile(name, description, schema, path)
	if err != nil {
		return nil, err
	}
	g.registry.Register(t)
	return t, nil
}

// AddProvider launches a provider subprocess and registers its tools.
func (g *Gateway) AddProvider(ctx context.Context, spec LaunchSpec) (ProviderRecord, error) {
	rec, err := g.providers.Add(ctx, spec)
	if err == nil {
		g.metrics.RecordProviderEvent(ctx, spec.Name, "added")
	}
	return rec, err
}

// RemoveProvider shuts a provider down and removes its tools.
func (g *Gateway) RemoveProvider(name string) error {
	err := g.providers.Remove(name)
	if err == nil {
		g.metrics.RecordProviderEvent(context.Background(), name, "removed")
	}
	return err
}

// Providers returns the current provider records.
func (g *Gateway) Providers() []ProviderRecord {
	return g.providers.Records()
}

// ReconcileProviders brings the running provider set in line with the
// desired launch specs: providers not yet running are launched,
// running providers absent from the specs are shut down. Used by the
// config watcher to apply edited provider catalogs to a long-lived
// gateway. Launch failures are logged and skipped so one bad spec
// cannot take down the rest of the catalog.
func (g *Gateway) ReconcileProviders(ctx context.Context, specs []LaunchSpec) {
	desired := make(map[string]bool, len(specs))
	for _, spec := range specs {
		desired[spec.Name] = true
	}

	for _, rec := range g.providers.Records() {
		if desired[rec.Name] {
			continue
		}
		if err := g.providers.Remove(rec.Name); err != nil {
			logging.Warn().
				Add(logging.Provider(rec.Name)).
				Add(logging.ErrorField(err)).
				Msg("removing vanished provider")
		}
	}

	for _, spec := range specs {
		if _, ok := g.providers.Get(spec.Name); ok {
			continue
		}
		if _, err := g.providers.Add(ctx, spec); err != nil {
			logging.Warn().
				Add(logging.Provider(spec.Name)).
				Add(logging.ErrorField(err)).
				Msg("launching added provider")
		}
	}
}

// Subscribe attaches an observer. The returned snapshot captures the
// full state at subscription time; the channel then delivers every
// subsequent event until the context is cancelled or the gateway
// closes.
func (g *Gateway) Subscribe(ctx context.Context) (Snapshot, <-chan Event, error) {
	return g.bus.Subscribe(ctx)
}

// History returns a copy of the conversation log.
func (g *Gateway) History() []Message {
	return g.log.Snapshot()
}

// ClearHistory empties the conversation log and re-seeds the system
// prompt, so a configured gateway always keeps its instructions.
func (g *Gateway) ClearHistory() {
	g.log.Clear()
	g.seedSystemPrompt()
}

// MaxTurns returns the per-session model turn bound.
func (g *Gateway) MaxTurns() int {
	return g.orchestrator.MaxTurns()
}

// Close shuts down providers, the sandbox runtime, and the event bus.
// Close is idempotent.
func (g *Gateway) Close() error {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return nil
	}
	g.closed = true
	runner := g.sandbox
	g.sandbox = nil
	g.mu.Unlock()

	var firstErr error
	if err := g.providers.ShutdownAll(); err != nil {
		firstErr = err
	}
	if runner != nil {
		if err := runner.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := g.bus.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// seedSystemPrompt appends the system message when one is configured.
func (g *Gateway) seedSystemPrompt() {
	if g.systemPrompt == "" {
		return
	}
	g.log.Append(message.NewSystem(g.systemPrompt))
}

// wasmRunner lazily creates the shared sandbox runtime.
func (g *Gateway) wasmRunner() (*sandbox.Runner, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return nil, sandbox.ErrRunnerClosed
	}
	if g.sandbox == nil {
		runner, err := sandbox.New()
		if err != nil {
			return nil, err
		}
		g.sandbox = runner
	}
	return g.sandbox, nil
}

// loadWasmTools registers every configured WebAssembly tool.
func (g *Gateway) loadWasmTools(configs []config.WasmToolConfig) error {
	runner, err := g.wasmRunner()
	if err != nil {
		return err
	}
	tools, err := runner.FromConfig(configs)
	if err != nil {
		return err
	}
	for _, t := range tools {
		g.registry.Register(t)
	}
	return nil
}

// snapshot captures the state delivered to new subscribers.
func (g *Gateway) snapshot() Snapshot {
	return Snapshot{
		Config:    g.configInfo,
		Messages:  g.log.Snapshot(),
		Tools:     g.registry.Specs(),
		Providers: g.providers.Records(),
	}
}
