package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/felixgeelhaar/gateway-go/domain/config"
	"github.com/felixgeelhaar/gateway-go/domain/message"
	"github.com/felixgeelhaar/gateway-go/domain/provider"
	"github.com/felixgeelhaar/gateway-go/domain/session"
	"github.com/felixgeelhaar/gateway-go/domain/tool"
	"github.com/felixgeelhaar/gateway-go/infrastructure/backend"
	"github.com/felixgeelhaar/gateway-go/infrastructure/resilience"
	"github.com/felixgeelhaar/gateway-go/infrastructure/storage/memory"
)

func echoTool(name string) tool.Tool {
	return tool.NewBuilder(name).
		WithDescription("echoes its input").
		WithInputSchema(tool.ObjectSchema(nil, nil)).
		WithHandler(func(_ context.Context, input json.RawMessage) (tool.Result, error) {
			if len(input) == 0 {
				input = json.RawMessage(`{}`)
			}
			return tool.NewResult(input), nil
		}).
		MustBuild()
}

func newTestOrchestrator(t *testing.T, b backend.Backend, tools []tool.Tool, opts ...Option) (*Orchestrator, message.Log) {
	t.Helper()
	log := memory.NewMessageLog(nil)
	registry := memory.NewToolRegistry(nil)
	for _, tl := range tools {
		registry.Register(tl)
	}
	o, err := NewOrchestratorWithOptions(b, log, registry, opts...)
	if err != nil {
		t.Fatalf("NewOrchestratorWithOptions: %v", err)
	}
	return o, log
}

func TestNewOrchestrator_RequiredDependencies(t *testing.T) {
	log := memory.NewMessageLog(nil)
	registry := memory.NewToolRegistry(nil)
	mock := backend.NewMockBackend()

	tests := []struct {
		name string
		cfg  OrchestratorConfig
		want error
	}{
		{"missing backend", OrchestratorConfig{Log: log, Registry: registry}, ErrBackendRequired},
		{"missing log", OrchestratorConfig{Backend: mock, Registry: registry}, ErrLogRequired},
		{"missing registry", OrchestratorConfig{Backend: mock, Log: log}, ErrRegistryRequired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewOrchestrator(tt.cfg); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestNewOrchestrator_Defaults(t *testing.T) {
	o, _ := newTestOrchestrator(t, backend.NewMockBackend(), nil)
	if o.MaxTurns() != 10 {
		t.Errorf("MaxTurns = %d, want 10", o.MaxTurns())
	}
	if o.executor == nil {
		t.Error("expected a default executor")
	}
	if o.metrics == nil {
		t.Error("expected a default metrics sink")
	}
}

func TestOrchestrator_Run_PlainReply(t *testing.T) {
	mock := backend.NewMockBackend(backend.TextResponse("hello there"))
	o, log := newTestOrchestrator(t, mock, nil)

	sess, final, err := o.Run(context.Background(), "hi")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sess.State != session.StateDone {
		t.Errorf("state = %s, want %s", sess.State, session.StateDone)
	}
	if sess.Turns != 1 {
		t.Errorf("turns = %d, want 1", sess.Turns)
	}
	if final.Content != "hello there" {
		t.Errorf("final content = %q", final.Content)
	}
	if sess.CompletedAt.IsZero() {
		t.Error("expected CompletedAt to be set")
	}

	// user + assistant
	msgs := log.Snapshot()
	if len(msgs) != 2 {
		t.Fatalf("log length = %d, want 2", len(msgs))
	}
	if msgs[0].Role != message.RoleUser || msgs[0].Content != "hi" {
		t.Errorf("first message = %+v", msgs[0])
	}
	if msgs[1].Role != message.RoleAssistant {
		t.Errorf("second message role = %s", msgs[1].Role)
	}
}

func TestOrchestrator_Run_ToolRoundTrip(t *testing.T) {
	mock := backend.NewMockBackend(
		backend.ToolCallResponse(message.ToolCall{
			ID:        "call_1",
			Name:      "echo",
			Arguments: json.RawMessage(`{"value":42}`),
		}),
		backend.TextResponse("the value is 42"),
	)
	o, log := newTestOrchestrator(t, mock, []tool.Tool{echoTool("echo")})

	sess, final, err := o.Run(context.Background(), "what is the value?")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sess.State != session.StateDone {
		t.Errorf("state = %s, want %s", sess.State, session.StateDone)
	}
	if sess.Turns != 2 {
		t.Errorf("turns = %d, want 2", sess.Turns)
	}
	if final.Content != "the value is 42" {
		t.Errorf("final content = %q", final.Content)
	}

	// user, assistant tool-call, tool result, assistant reply
	msgs := log.Snapshot()
	if len(msgs) != 4 {
		t.Fatalf("log length = %d, want 4", len(msgs))
	}
	if !msgs[1].HasToolCalls() {
		t.Error("expected assistant tool-call message before the result")
	}
	if !msgs[2].IsToolResult() {
		t.Fatal("expected a tool result at index 2")
	}
	if msgs[2].ToolCallID != "call_1" {
		t.Errorf("ToolCallID = %q, want call_1", msgs[2].ToolCallID)
	}
	if msgs[2].Content != `{"value":42}` {
		t.Errorf("tool result content = %q", msgs[2].Content)
	}

	// The second request must carry the full round trip.
	reqs := mock.Requests()
	if len(reqs) != 2 {
		t.Fatalf("backend calls = %d, want 2", len(reqs))
	}
	if len(reqs[1].Messages) != 3 {
		t.Errorf("second request carried %d messages, want 3", len(reqs[1].Messages))
	}
}

func TestOrchestrator_Run_ResultsKeepCallOrder(t *testing.T) {
	// Tools finish out of order; the log must preserve call order.
	var started sync.WaitGroup
	started.Add(2)
	release := make(chan struct{})

	slow := tool.NewBuilder("slow").
		WithInputSchema(tool.ObjectSchema(nil, nil)).
		WithHandler(func(_ context.Context, _ json.RawMessage) (tool.Result, error) {
			started.Done()
			<-release
			return tool.NewResult(json.RawMessage(`"slow done"`)), nil
		}).
		MustBuild()
	fast := tool.NewBuilder("fast").
		WithInputSchema(tool.ObjectSchema(nil, nil)).
		WithHandler(func(_ context.Context, _ json.RawMessage) (tool.Result, error) {
			started.Done()
			started.Wait()
			close(release)
			return tool.NewResult(json.RawMessage(`"fast done"`)), nil
		}).
		MustBuild()

	mock := backend.NewMockBackend(
		backend.ToolCallResponse(
			message.ToolCall{ID: "call_a", Name: "slow"},
			message.ToolCall{ID: "call_b", Name: "fast"},
		),
		backend.TextResponse("both done"),
	)
	o, log := newTestOrchestrator(t, mock, []tool.Tool{slow, fast})

	if _, _, err := o.Run(context.Background(), "run both"); err != nil {
		t.Fatalf("Run: %v", err)
	}

	msgs := log.Snapshot()
	// user, assistant tool-calls, two results, assistant reply
	if len(msgs) != 5 {
		t.Fatalf("log length = %d, want 5", len(msgs))
	}
	if msgs[2].ToolCallID != "call_a" || msgs[3].ToolCallID != "call_b" {
		t.Errorf("result order = %q, %q; want call_a, call_b",
			msgs[2].ToolCallID, msgs[3].ToolCallID)
	}

	// All results must reach the model before the next request.
	reqs := mock.Requests()
	if len(reqs[1].Messages) != 4 {
		t.Errorf("second request carried %d messages, want 4", len(reqs[1].Messages))
	}
}

func TestOrchestrator_Run_UnknownToolFailsOnlyThatCall(t *testing.T) {
	mock := backend.NewMockBackend(
		backend.ToolCallResponse(
			message.ToolCall{ID: "call_1", Name: "echo", Arguments: json.RawMessage(`{"ok":true}`)},
			message.ToolCall{ID: "call_2", Name: "nonexistent"},
		),
		backend.TextResponse("carried on"),
	)
	o, log := newTestOrchestrator(t, mock, []tool.Tool{echoTool("echo")})

	sess, _, err := o.Run(context.Background(), "go")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sess.State != session.StateDone {
		t.Errorf("state = %s, want %s", sess.State, session.StateDone)
	}

	msgs := log.Snapshot()
	if msgs[2].Content != `{"ok":true}` {
		t.Errorf("good call result = %q", msgs[2].Content)
	}
	if !strings.Contains(msgs[3].Content, tool.ErrToolNotFound.Error()) {
		t.Errorf("unknown-tool result should carry a structured failure, got %q", msgs[3].Content)
	}
	if msgs[3].ToolCallID != "call_2" {
		t.Errorf("failure scoped to %q, want call_2", msgs[3].ToolCallID)
	}
}

func TestOrchestrator_Run_BackendErrorRetainsLog(t *testing.T) {
	boom := errors.New("upstream exploded")
	mock := backend.NewMockBackend().AddError(boom)
	o, log := newTestOrchestrator(t, mock, nil)

	sess, _, err := o.Run(context.Background(), "hi")
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if sess.State != session.StateFailed {
		t.Errorf("state = %s, want %s", sess.State, session.StateFailed)
	}
	if !errors.Is(sess.Err, boom) {
		t.Errorf("session error = %v", sess.Err)
	}
	// The user message stays so the next run carries the history.
	if log.Len() != 1 {
		t.Errorf("log length = %d, want 1", log.Len())
	}
}

func TestOrchestrator_Run_TurnBudget(t *testing.T) {
	// A backend that asks for tools forever.
	mock := backend.NewMockBackend()
	for i := 0; i < 20; i++ {
		mock.AddResponse(backend.ToolCallResponse(message.ToolCall{
			ID:   fmt.Sprintf("call_%d", i),
			Name: "echo",
		}))
	}
	o, _ := newTestOrchestrator(t, mock, []tool.Tool{echoTool("echo")}, WithMaxTurns(3))

	sess, _, err := o.Run(context.Background(), "loop forever")
	if !errors.Is(err, ErrTurnBudgetExhausted) {
		t.Fatalf("err = %v, want %v", err, ErrTurnBudgetExhausted)
	}
	if sess.State != session.StateFailed {
		t.Errorf("state = %s, want %s", sess.State, session.StateFailed)
	}
	if sess.Turns != 3 {
		t.Errorf("turns = %d, want 3", sess.Turns)
	}
	if mock.CallCount() != 3 {
		t.Errorf("backend calls = %d, want 3", mock.CallCount())
	}
}

func TestOrchestrator_Run_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	mock := backend.NewMockBackend(backend.TextResponse("never seen"))
	o, _ := newTestOrchestrator(t, mock, nil)

	sess, _, err := o.Run(ctx, "hi")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if sess.State != session.StateFailed {
		t.Errorf("state = %s, want %s", sess.State, session.StateFailed)
	}
	if mock.CallCount() != 0 {
		t.Errorf("backend called %d times after cancellation", mock.CallCount())
	}
}

type recordingReaper struct {
	mu     sync.Mutex
	reaped []string
}

func (r *recordingReaper) Reap(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reaped = append(r.reaped, name)
}

func TestOrchestrator_Run_ReapsUnavailableProvider(t *testing.T) {
	dead := tool.NewBuilder("remote_search").
		WithInputSchema(tool.ObjectSchema(nil, nil)).
		WithOrigin(tool.ProviderOrigin("search-svc")).
		WithHandler(func(_ context.Context, _ json.RawMessage) (tool.Result, error) {
			return tool.Result{}, fmt.Errorf("%w: search-svc", provider.ErrProviderUnavailable)
		}).
		MustBuild()

	mock := backend.NewMockBackend(
		backend.ToolCallResponse(message.ToolCall{ID: "call_1", Name: "remote_search"}),
		backend.TextResponse("could not search"),
	)
	reaper := &recordingReaper{}
	o, log := newTestOrchestrator(t, mock, []tool.Tool{dead}, WithProviders(reaper))

	sess, _, err := o.Run(context.Background(), "search for it")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sess.State != session.StateDone {
		t.Errorf("state = %s, want %s", sess.State, session.StateDone)
	}

	reaper.mu.Lock()
	reaped := append([]string(nil), reaper.reaped...)
	reaper.mu.Unlock()
	if len(reaped) != 1 || reaped[0] != "search-svc" {
		t.Errorf("reaped = %v, want [search-svc]", reaped)
	}

	msgs := log.Snapshot()
	if !strings.Contains(msgs[2].Content, provider.ErrProviderUnavailable.Error()) {
		t.Errorf("expected a structured failure result, got %q", msgs[2].Content)
	}
}

func TestOrchestrator_Run_ToolFailureResultDoesNotFailSession(t *testing.T) {
	failing := tool.NewBuilder("flaky").
		WithInputSchema(tool.ObjectSchema(nil, nil)).
		WithHandler(func(_ context.Context, _ json.RawMessage) (tool.Result, error) {
			return tool.NewFailureResult(errors.New("disk on fire")), nil
		}).
		MustBuild()

	mock := backend.NewMockBackend(
		backend.ToolCallResponse(message.ToolCall{ID: "call_1", Name: "flaky"}),
		backend.TextResponse("noted the failure"),
	)
	o, log := newTestOrchestrator(t, mock, []tool.Tool{failing})

	sess, final, err := o.Run(context.Background(), "try it")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sess.State != session.StateDone {
		t.Errorf("state = %s, want %s", sess.State, session.StateDone)
	}
	if final.Content != "noted the failure" {
		t.Errorf("final content = %q", final.Content)
	}
	if !strings.Contains(log.Snapshot()[2].Content, "disk on fire") {
		t.Errorf("failure detail missing from result: %q", log.Snapshot()[2].Content)
	}
}

func TestOrchestrator_Run_ForwardsModelParameters(t *testing.T) {
	mock := backend.NewMockBackend(backend.TextResponse("ok"))
	o, _ := newTestOrchestrator(t, mock, []tool.Tool{echoTool("echo")},
		WithModel(config.ModelConfig{Name: "claude-sonnet-4", Temperature: 0.3, MaxTokens: 2048}))

	if _, _, err := o.Run(context.Background(), "hi"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	req := mock.Requests()[0]
	if req.Model != "claude-sonnet-4" {
		t.Errorf("model = %q", req.Model)
	}
	if req.Temperature != 0.3 || req.MaxTokens != 2048 {
		t.Errorf("sampling = (%v, %d)", req.Temperature, req.MaxTokens)
	}
	if len(req.Tools) != 1 || req.Tools[0].Name != "echo" {
		t.Errorf("tools = %+v", req.Tools)
	}
}

func TestOrchestrator_Run_ToolTimeoutBecomesFailureResult(t *testing.T) {
	hang := tool.NewBuilder("hang").
		WithInputSchema(tool.ObjectSchema(nil, nil)).
		WithHandler(func(ctx context.Context, _ json.RawMessage) (tool.Result, error) {
			<-ctx.Done()
			return tool.Result{}, ctx.Err()
		}).
		MustBuild()

	exec := resilience.NewExecutor(resilience.ExecutorConfig{Timeout: 50 * time.Millisecond})
	mock := backend.NewMockBackend(
		backend.ToolCallResponse(message.ToolCall{ID: "call_1", Name: "hang"}),
		backend.TextResponse("gave up"),
	)
	o, log := newTestOrchestrator(t, mock, []tool.Tool{hang}, WithExecutor(exec))

	sess, _, err := o.Run(context.Background(), "hang")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sess.State != session.StateDone {
		t.Errorf("state = %s, want %s", sess.State, session.StateDone)
	}
	if !strings.Contains(log.Snapshot()[2].Content, context.DeadlineExceeded.Error()) {
		t.Errorf("timeout detail missing: %q", log.Snapshot()[2].Content)
	}
}
