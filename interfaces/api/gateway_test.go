package api

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/felixgeelhaar/gateway-go/application"
	"github.com/felixgeelhaar/gateway-go/domain/event"
	"github.com/felixgeelhaar/gateway-go/domain/message"
	"github.com/felixgeelhaar/gateway-go/domain/tool"
	"github.com/felixgeelhaar/gateway-go/infrastructure/backend"
)

func echoTool(name string) Tool {
	return NewToolBuilder(name).
		WithDescription("echoes input").
		WithInputSchema(tool.ObjectSchema(nil, nil)).
		WithHandler(func(_ context.Context, input json.RawMessage) (Result, error) {
			if len(input) == 0 {
				input = json.RawMessage(`{}`)
			}
			return tool.NewResult(input), nil
		}).
		MustBuild()
}

func newTestGateway(t *testing.T, opts ...Option) *Gateway {
	t.Helper()
	g, err := New(opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { g.Close() })
	return g
}

func TestNew_RequiresBackend(t *testing.T) {
	if _, err := New(); !errors.Is(err, application.ErrBackendRequired) {
		t.Errorf("err = %v, want %v", err, application.ErrBackendRequired)
	}
}

func TestGateway_SendMessage(t *testing.T) {
	mock := backend.NewMockBackend(backend.TextResponse("hello"))
	g := newTestGateway(t,
		WithBackend(mock),
		WithSystemPrompt("be terse"),
	)

	sess, reply, err := g.SendMessage(context.Background(), "hi")
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if sess.State != StateDone {
		t.Errorf("state = %s, want %s", sess.State, StateDone)
	}
	if reply.Content != "hello" {
		t.Errorf("reply = %q", reply.Content)
	}

	// system, user, assistant
	history := g.History()
	if len(history) != 3 {
		t.Fatalf("history length = %d, want 3", len(history))
	}
	if history[0].Role != RoleSystem || history[0].Content != "be terse" {
		t.Errorf("first message = %+v", history[0])
	}

	// The system prompt must reach the backend.
	req := mock.Requests()[0]
	if req.Messages[0].Role != message.RoleSystem {
		t.Errorf("backend saw first role %s, want system", req.Messages[0].Role)
	}
}

func TestGateway_ToolCatalog(t *testing.T) {
	g := newTestGateway(t, WithBackend(backend.NewMockBackend()), WithTool(echoTool("echo")))

	if len(g.Tools()) != 1 {
		t.Fatalf("tools = %d, want 1", len(g.Tools()))
	}

	g.RegisterTool(echoTool("echo2"))
	if len(g.Tools()) != 2 {
		t.Errorf("tools = %d, want 2", len(g.Tools()))
	}

	// Replacement keeps cardinality.
	g.RegisterTool(echoTool("echo"))
	if len(g.Tools()) != 2 {
		t.Errorf("tools after replace = %d, want 2", len(g.Tools()))
	}

	if !g.UnregisterTool("echo2") {
		t.Error("UnregisterTool(echo2) = false")
	}
	if g.UnregisterTool("absent") {
		t.Error("UnregisterTool(absent) = true")
	}
}

func TestGateway_CompileTool(t *testing.T) {
	g := newTestGateway(t, WithBackend(backend.NewMockBackend()))

	compiled, err := g.CompileTool(CompileRequest{
		Name:        "concat",
		Description: "joins two strings",
		Schema: tool.ObjectSchema([]Property{
			{Name: "first", Type: "string"},
			{Name: "second", Type: "string"},
		}, []string{"first", "second"}),
		Body: `return first + second`,
	})
	if err != nil {
		t.Fatalf("CompileTool: %v", err)
	}
	if compiled.Name() != "concat" {
		t.Errorf("name = %q", compiled.Name())
	}
	if len(g.Tools()) != 1 {
		t.Fatalf("compiled tool not registered")
	}

	result, err := compiled.Execute(context.Background(), json.RawMessage(`{"first":"a","second":"b"}`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.OutputString() != `"ab"` {
		t.Errorf("output = %q, want %q", result.OutputString(), `"ab"`)
	}
}

func TestGateway_CompileTool_BadSource(t *testing.T) {
	g := newTestGateway(t, WithBackend(backend.NewMockBackend()))

	if _, err := g.CompileTool(CompileRequest{
		Name: "broken",
		Body: `return )((`,
	}); err == nil {
		t.Fatal("expected a compile error")
	}
	if len(g.Tools()) != 0 {
		t.Error("failed compile must not register a tool")
	}
}

func TestGateway_ClearHistory(t *testing.T) {
	mock := backend.NewMockBackend(backend.TextResponse("ok"))
	g := newTestGateway(t, WithBackend(mock), WithSystemPrompt("stay helpful"))

	if _, _, err := g.SendMessage(context.Background(), "hi"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if len(g.History()) != 3 {
		t.Fatalf("history = %d, want 3", len(g.History()))
	}

	g.ClearHistory()
	history := g.History()
	if len(history) != 1 {
		t.Fatalf("history after clear = %d, want 1", len(history))
	}
	if history[0].Role != RoleSystem || history[0].Content != "stay helpful" {
		t.Errorf("re-seeded message = %+v", history[0])
	}
}

func TestGateway_ClearHistory_NoSystemPrompt(t *testing.T) {
	g := newTestGateway(t, WithBackend(backend.NewMockBackend()))
	g.ClearHistory()
	if len(g.History()) != 0 {
		t.Errorf("history = %d, want 0", len(g.History()))
	}
}

func TestGateway_Subscribe_ReplaysSnapshot(t *testing.T) {
	mock := backend.NewMockBackend(backend.TextResponse("first reply"))
	g := newTestGateway(t,
		WithBackend(mock),
		WithTool(echoTool("echo")),
		WithConfigInfo(map[string]string{"name": "test-gateway"}),
	)

	if _, _, err := g.SendMessage(context.Background(), "hello"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	snap, events, err := g.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	// The snapshot carries everything that happened before attaching.
	if len(snap.Messages) != 2 {
		t.Errorf("snapshot messages = %d, want 2", len(snap.Messages))
	}
	if len(snap.Tools) != 1 || snap.Tools[0].Name != "echo" {
		t.Errorf("snapshot tools = %+v", snap.Tools)
	}
	if snap.Config["name"] != "test-gateway" {
		t.Errorf("snapshot config = %v", snap.Config)
	}

	// Mutations after attaching arrive as live events.
	g.RegisterTool(echoTool("later"))
	select {
	case e := <-events:
		if e.Type != event.TypeToolAdded {
			t.Errorf("event type = %s, want %s", e.Type, event.TypeToolAdded)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for tool.added event")
	}
}

func TestGateway_Subscribe_DuringConcurrentMutation(t *testing.T) {
	g := newTestGateway(t,
		WithBackend(backend.NewMockBackend(backend.TextResponse("ok"))),
		WithSystemPrompt("stay helpful"),
	)

	stop := make(chan struct{})
	mutatorDone := make(chan struct{})
	go func() {
		defer close(mutatorDone)
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			if i%2 == 0 {
				g.RegisterTool(echoTool("churn"))
			} else {
				g.ClearHistory()
			}
		}
	}()

	attached := make(chan struct{})
	go func() {
		defer close(attached)
		for range 100 {
			ctx, cancel := context.WithCancel(context.Background())
			_, _, err := g.Subscribe(ctx)
			cancel()
			if err != nil {
				t.Errorf("Subscribe: %v", err)
				return
			}
		}
	}()

	select {
	case <-attached:
	case <-time.After(10 * time.Second):
		t.Fatal("observer attach blocked behind a concurrent mutation")
	}
	close(stop)
	<-mutatorDone
}

func TestGateway_Subscribe_AfterClose(t *testing.T) {
	g, err := New(WithBackend(backend.NewMockBackend()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := g.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, _, err := g.Subscribe(context.Background()); !errors.Is(err, event.ErrBusClosed) {
		t.Errorf("err = %v, want %v", err, event.ErrBusClosed)
	}
}

func TestGateway_Close_Idempotent(t *testing.T) {
	g, err := New(WithBackend(backend.NewMockBackend()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := g.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := g.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestGateway_MaxTurns(t *testing.T) {
	g := newTestGateway(t, WithBackend(backend.NewMockBackend()), WithMaxTurns(4))
	if g.MaxTurns() != 4 {
		t.Errorf("MaxTurns = %d, want 4", g.MaxTurns())
	}
}
