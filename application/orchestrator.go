// Package application contains the orchestration loop that drives a
// conversation session: it relays the message log plus the tool catalog
// to the model backend, executes requested tool calls, feeds the results
// back, and repeats until the model produces a final text reply or the
// session fails.
package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/felixgeelhaar/gateway-go/domain/config"
	"github.com/felixgeelhaar/gateway-go/domain/message"
	"github.com/felixgeelhaar/gateway-go/domain/provider"
	"github.com/felixgeelhaar/gateway-go/domain/session"
	"github.com/felixgeelhaar/gateway-go/domain/tool"
	"github.com/felixgeelhaar/gateway-go/infrastructure/backend"
	"github.com/felixgeelhaar/gateway-go/infrastructure/logging"
	"github.com/felixgeelhaar/gateway-go/infrastructure/resilience"
	"github.com/felixgeelhaar/gateway-go/infrastructure/statemachine"
	"github.com/felixgeelhaar/gateway-go/infrastructure/telemetry"
)

// Reaper removes a managed provider process after its tools stop
// responding. Implemented by the provider registry.
type Reaper interface {
	Reap(name string)
}

// OrchestratorConfig holds the dependencies and tuning knobs of the
// orchestration loop.
type OrchestratorConfig struct {
	// Backend is the model completion backend. Required.
	Backend backend.Backend

	// Log is the conversation history. Required.
	Log message.Log

	// Registry is the tool catalog. Required.
	Registry tool.Registry

	// Providers reaps provider processes whose tools became
	// unreachable. Optional.
	Providers Reaper

	// Executor wraps tool execution with timeout, bulkhead, and
	// circuit breaker. Defaults to resilience.NewDefaultExecutor.
	Executor *resilience.Executor

	// Metrics records orchestration telemetry. Defaults to
	// telemetry.NoopMetrics.
	Metrics telemetry.Metrics

	// Model, Temperature, and MaxTokens are forwarded on every
	// completion request.
	Model       string
	Temperature float64
	MaxTokens   int

	// MaxTurns bounds the number of model consultations per session.
	// Defaults to config.DefaultMaxTurns.
	MaxTurns int
}

// Orchestrator drives conversation sessions through the
// awaiting-model / executing-tools state machine.
type Orchestrator struct {
	backend   backend.Backend
	log       message.Log
	registry  tool.Registry
	providers Reaper
	executor  *resilience.Executor
	metrics   telemetry.Metrics

	model       string
	temperature float64
	maxTokens   int
	maxTurns    int
}

// NewOrchestrator creates an orchestrator from the given configuration,
// applying defaults for optional fields.
func NewOrchestrator(cfg OrchestratorConfig) (*Orchestrator, error) {
	if cfg.Backend == nil {
		return nil, ErrBackendRequired
	}
	if cfg.Log == nil {
		return nil, ErrLogRequired
	}
	if cfg.Registry == nil {
		return nil, ErrRegistryRequired
	}
	if cfg.Executor == nil {
		cfg.Executor = resilience.NewDefaultExecutor()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = telemetry.NoopMetrics{}
	}
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = config.DefaultMaxTurns
	}
	return &Orchestrator{
		backend:     cfg.Backend,
		log:         cfg.Log,
		registry:    cfg.Registry,
		providers:   cfg.Providers,
		executor:    cfg.Executor,
		metrics:     cfg.Metrics,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		maxTurns:    cfg.MaxTurns,
	}, nil
}

// MaxTurns returns the per-session model turn bound.
func (o *Orchestrator) MaxTurns() int {
	return o.maxTurns
}

// Run appends the user message to the log and drives the session until
// the model produces a final text reply, the turn budget runs out, or
// an error fails the session. The returned session records the final
// state; the returned message is the final assistant reply when the
// session completed.
//
// On failure the log retains everything appended so far, so the next
// Run carries the full history forward.
func (o *Orchestrator) Run(ctx context.Context, text string) (*session.Session, message.Message, error) {
	sess := session.New()
	o.metrics.IncrementActiveSessions(ctx)
	defer o.metrics.DecrementActiveSessions(ctx)

	machine, err := statemachine.NewSessionMachine()
	if err != nil {
		return nil, message.Message{}, fmt.Errorf("building session machine: %w", err)
	}
	interp := statemachine.NewInterpreter(machine, statemachine.NewContext(sess, o.maxTurns))
	interp.Start()
	defer interp.Stop()

	o.log.Append(message.NewUser(text))
	logging.Info().
		Add(logging.SessionID(sess.ID)).
		Add(logging.Backend(o.backend.Name())).
		Add(logging.Model(o.model)).
		Add(logging.Count("messages", o.log.Len())).
		Msg("session started")

	var final message.Message
	for !interp.IsTerminal() {
		select {
		case <-ctx.Done():
			interp.Fail(ctx.Err())
			continue
		default:
		}

		resp, err := o.consult(ctx, sess)
		if err != nil {
			interp.Fail(err)
			continue
		}

		reply := o.log.Append(resp.Message)
		if !reply.HasToolCalls() {
			final = reply
			if err := interp.Transition(session.StateDone, "assistant replied"); err != nil {
				interp.Fail(err)
			}
			continue
		}

		if err := interp.Transition(session.StateExecutingTools, "model requested tools"); err != nil {
			interp.Fail(err)
			continue
		}
		o.executeCalls(ctx, sess, reply.ToolCalls)

		// The turn guard blocks this edge once the budget is spent.
		if err := interp.Transition(session.StateAwaitingModel, "tool results appended"); err != nil {
			interp.Fail(fmt.Errorf("%w after %d turns", ErrTurnBudgetExhausted, sess.Turns))
		}
	}

	o.metrics.RecordSession(ctx, sess.State.String(), sess.Turns, sess.Duration())
	evt := logging.Info()
	if sess.Err != nil {
		evt = logging.Warn().Add(logging.ErrorField(sess.Err))
	}
	evt.
		Add(logging.SessionID(sess.ID)).
		Add(logging.State(sess.State)).
		Add(logging.Turn(sess.Turns)).
		Add(logging.Duration(sess.Duration())).
		Msg("session finished")

	if sess.Err != nil {
		return sess, final, sess.Err
	}
	return sess, final, nil
}

// consult sends the current log and tool catalog to the backend.
func (o *Orchestrator) consult(ctx context.Context, sess *session.Session) (backend.Response, error) {
	req := backend.Request{
		Model:       o.model,
		Messages:    o.log.Snapshot(),
		Tools:       o.registry.Specs(),
		Temperature: o.temperature,
		MaxTokens:   o.maxTokens,
	}
	start := time.Now()
	resp, err := o.backend.Complete(ctx, req)
	elapsed := time.Since(start)
	o.metrics.RecordBackendRequest(ctx, o.backend.Name(), o.model, err == nil, elapsed)
	if err != nil {
		logging.Error().
			Add(logging.SessionID(sess.ID)).
			Add(logging.Turn(sess.Turns)).
			Add(logging.Backend(o.backend.Name())).
			Add(logging.ErrorField(err)).
			Msg("backend request failed")
		return backend.Response{}, err
	}
	logging.Debug().
		Add(logging.SessionID(sess.ID)).
		Add(logging.Turn(sess.Turns)).
		Add(logging.Str("stop_reason", resp.StopReason)).
		Add(logging.Count("tool_calls", len(resp.Message.ToolCalls))).
		Add(logging.Duration(elapsed)).
		Msg("backend responded")
	return resp, nil
}

// executeCalls runs the batch of tool calls concurrently and appends
// one result message per call, in call order, each carrying the call ID
// that ties it back to its request.
func (o *Orchestrator) executeCalls(ctx context.Context, sess *session.Session, calls []message.ToolCall) {
	results := make([]tool.Result, len(calls))
	g, gctx := errgroup.WithContext(ctx)
	for i, call := range calls {
		g.Go(func() error {
			results[i] = o.executeCall(gctx, sess, call)
			return nil
		})
	}
	// Failures surface as structured results, never as group errors.
	_ = g.Wait()

	for i, call := range calls {
		o.log.Append(message.NewToolResult(call.ID, call.Name, results[i].OutputString()))
	}
}

// executeCall resolves and runs a single tool call. Every failure mode
// becomes a structured failure result scoped to this call, so one bad
// call never poisons its siblings.
func (o *Orchestrator) executeCall(ctx context.Context, sess *session.Session, call message.ToolCall) tool.Result {
	t, ok := o.registry.Get(call.Name)
	if !ok {
		logging.Warn().
			Add(logging.SessionID(sess.ID)).
			Add(logging.ToolName(call.Name)).
			Add(logging.CallID(call.ID)).
			Msg("model requested an unregistered tool")
		o.metrics.RecordToolInvocation(ctx, call.Name, "", true, 0)
		return tool.NewFailureResult(fmt.Errorf("%w: %s", tool.ErrToolNotFound, call.Name))
	}

	start := time.Now()
	result, err := o.executor.Execute(ctx, t, call.Arguments)
	elapsed := time.Since(start)
	if err != nil {
		if errors.Is(err, provider.ErrProviderUnavailable) {
			o.reapOrigin(t.Origin(), sess)
		}
		result = tool.NewFailureResult(err)
	}
	o.metrics.RecordToolInvocation(ctx, call.Name, t.Origin().String(), result.IsFailure(), elapsed)
	logging.Debug().
		Add(logging.SessionID(sess.ID)).
		Add(logging.ToolName(call.Name)).
		Add(logging.CallID(call.ID)).
		Add(logging.Failed(result.IsFailure())).
		Add(logging.Duration(elapsed)).
		Msg("tool call finished")
	return result
}

// reapOrigin tears down the provider process behind an unreachable
// proxy tool, removing all of its tools from the catalog.
func (o *Orchestrator) reapOrigin(origin tool.Origin, sess *session.Session) {
	if o.providers == nil || !origin.IsProvider() {
		return
	}
	name := origin.ProviderName()
	logging.Warn().
		Add(logging.SessionID(sess.ID)).
		Add(logging.Provider(name)).
		Msg("reaping unavailable provider")
	o.providers.Reap(name)
}
