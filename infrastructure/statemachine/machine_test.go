package statemachine

import (
	"errors"
	"testing"

	"github.com/felixgeelhaar/gateway-go/domain/session"
)

func newInterpreter(t *testing.T, maxTurns int) (*Interpreter, *session.Session) {
	t.Helper()
	machine, err := NewSessionMachine()
	if err != nil {
		t.Fatalf("NewSessionMachine() error = %v", err)
	}
	sess := session.New()
	interp := NewInterpreter(machine, NewContext(sess, maxTurns))
	interp.Start()
	return interp, sess
}

func TestNewSessionMachine(t *testing.T) {
	machine, err := NewSessionMachine()
	if err != nil {
		t.Fatalf("NewSessionMachine() error = %v", err)
	}
	if machine == nil {
		t.Fatal("NewSessionMachine() returned nil machine")
	}
}

func TestInterpreter_Start(t *testing.T) {
	interp, sess := newInterpreter(t, 0)

	if got := interp.State(); got != session.StateAwaitingModel {
		t.Errorf("State() = %v, want %v", got, session.StateAwaitingModel)
	}
	if sess.Turns != 1 {
		t.Errorf("Turns = %d, want 1 after start", sess.Turns)
	}
	if interp.IsTerminal() {
		t.Error("IsTerminal() = true, want false at start")
	}
}

func TestInterpreter_Transition(t *testing.T) {
	t.Run("full loop to done", func(t *testing.T) {
		interp, sess := newInterpreter(t, 5)

		if err := interp.Transition(session.StateExecutingTools, "model requested tools"); err != nil {
			t.Fatalf("Transition(executing_tools) error = %v", err)
		}
		if sess.State != session.StateExecutingTools {
			t.Errorf("session state = %v, want executing_tools", sess.State)
		}

		if err := interp.Transition(session.StateAwaitingModel, "tool results collected"); err != nil {
			t.Fatalf("Transition(awaiting_model) error = %v", err)
		}
		if sess.Turns != 2 {
			t.Errorf("Turns = %d, want 2 after returning to the model", sess.Turns)
		}

		if err := interp.Transition(session.StateDone, "text reply"); err != nil {
			t.Fatalf("Transition(done) error = %v", err)
		}
		if !interp.IsTerminal() {
			t.Error("IsTerminal() = false, want true in done")
		}
		if sess.State != session.StateDone {
			t.Errorf("session state = %v, want done", sess.State)
		}
		if sess.CompletedAt.IsZero() {
			t.Error("CompletedAt should be set when the session completes")
		}
	})

	t.Run("rejects invalid transition", func(t *testing.T) {
		interp, _ := newInterpreter(t, 5)

		// awaiting_model cannot jump back to awaiting_model.
		if err := interp.Transition(session.StateAwaitingModel, ""); err == nil {
			t.Error("Transition(awaiting_model) from awaiting_model should fail")
		}
		if got := interp.State(); got != session.StateAwaitingModel {
			t.Errorf("State() = %v, want unchanged awaiting_model", got)
		}
	})

	t.Run("terminal states accept no transitions", func(t *testing.T) {
		interp, _ := newInterpreter(t, 5)
		if err := interp.Transition(session.StateDone, "finished"); err != nil {
			t.Fatalf("Transition(done) error = %v", err)
		}
		if err := interp.Transition(session.StateExecutingTools, ""); err == nil {
			t.Error("Transition() out of done should fail")
		}
	})
}

func TestInterpreter_TurnBudget(t *testing.T) {
	interp, sess := newInterpreter(t, 2)

	if err := interp.Transition(session.StateExecutingTools, ""); err != nil {
		t.Fatalf("Transition(executing_tools) error = %v", err)
	}
	if err := interp.Transition(session.StateAwaitingModel, ""); err != nil {
		t.Fatalf("Transition(awaiting_model) error = %v", err)
	}
	if sess.Turns != 2 {
		t.Fatalf("Turns = %d, want 2", sess.Turns)
	}
	if got := interp.TurnsRemaining(); got != 0 {
		t.Errorf("TurnsRemaining() = %d, want 0", got)
	}

	// Budget spent: the guard blocks a third model turn.
	if err := interp.Transition(session.StateExecutingTools, ""); err != nil {
		t.Fatalf("Transition(executing_tools) error = %v", err)
	}
	if err := interp.Transition(session.StateAwaitingModel, ""); err == nil {
		t.Error("Transition(awaiting_model) beyond the turn budget should fail")
	}
	if got := interp.State(); got != session.StateExecutingTools {
		t.Errorf("State() = %v, want executing_tools after blocked transition", got)
	}
}

func TestInterpreter_Fail(t *testing.T) {
	t.Run("from awaiting model", func(t *testing.T) {
		interp, sess := newInterpreter(t, 5)
		cause := errors.New("backend unreachable")

		interp.Fail(cause)

		if !interp.IsTerminal() {
			t.Error("IsTerminal() = false, want true after Fail")
		}
		if sess.State != session.StateFailed {
			t.Errorf("session state = %v, want failed", sess.State)
		}
		if !errors.Is(sess.Err, cause) {
			t.Errorf("session err = %v, want %v", sess.Err, cause)
		}
	})

	t.Run("from executing tools", func(t *testing.T) {
		interp, sess := newInterpreter(t, 5)
		if err := interp.Transition(session.StateExecutingTools, ""); err != nil {
			t.Fatalf("Transition(executing_tools) error = %v", err)
		}

		interp.Fail(errors.New("provider died"))

		if sess.State != session.StateFailed {
			t.Errorf("session state = %v, want failed", sess.State)
		}
	})
}

func TestEventForTransition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		to   session.State
		want string
	}{
		{session.StateAwaitingModel, "MODEL"},
		{session.StateExecutingTools, "TOOLS"},
		{session.StateDone, "DONE"},
		{session.StateFailed, "FAIL"},
	}
	for _, tt := range tests {
		if got := string(EventForTransition(tt.to)); got != tt.want {
			t.Errorf("EventForTransition(%v) = %q, want %q", tt.to, got, tt.want)
		}
	}
}

func TestNewContext_DefaultTurnBound(t *testing.T) {
	t.Parallel()

	ctx := NewContext(session.New(), 0)
	if ctx.MaxTurns != 10 {
		t.Errorf("MaxTurns = %d, want default 10", ctx.MaxTurns)
	}
}
