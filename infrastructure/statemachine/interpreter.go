package statemachine

import (
	"fmt"

	"github.com/felixgeelhaar/statekit"

	"github.com/felixgeelhaar/gateway-go/domain/session"
)

// TransitionPayload carries additional data with a transition event.
type TransitionPayload struct {
	To     session.State
	Reason string
	Err    error
}

// Interpreter wraps the statekit interpreter with session-specific
// functionality.
type Interpreter struct {
	interp *statekit.Interpreter[*Context]
	ctx    *Context
}

// NewInterpreter creates a new interpreter for the session state machine.
func NewInterpreter(machine *statekit.MachineConfig[*Context], ctx *Context) *Interpreter {
	interp := statekit.NewInterpreter(machine)
	interp.UpdateContext(func(c **Context) {
		*c = ctx
	})
	return &Interpreter{
		interp: interp,
		ctx:    ctx,
	}
}

// Start enters the initial state and counts the first model turn.
func (i *Interpreter) Start() {
	i.interp.Start()
	state := i.interp.State()
	i.ctx.Session.State = session.State(state.Value)
	i.ctx.Session.Turns = 1
}

// Stop stops the interpreter.
func (i *Interpreter) Stop() {
	i.interp.Stop()
}

// State returns the current state.
func (i *Interpreter) State() session.State {
	state := i.interp.State()
	return session.State(state.Value)
}

// Turns returns the number of model turns taken so far.
func (i *Interpreter) Turns() int {
	return i.ctx.Session.Turns
}

// TurnsRemaining reports how many model turns the budget still allows.
func (i *Interpreter) TurnsRemaining() int {
	remaining := i.ctx.MaxTurns - i.ctx.Session.Turns
	if remaining < 0 {
		return 0
	}
	return remaining
}

// allowed enumerates the legal edges of the statechart. Send panics on
// events the current state does not handle, so transitions are checked
// here first.
var allowed = map[session.State][]session.State{
	session.StateAwaitingModel:  {session.StateExecutingTools, session.StateDone, session.StateFailed},
	session.StateExecutingTools: {session.StateAwaitingModel, session.StateFailed},
}

// CanTransition checks if a transition to the target state is possible
// from the current state.
func (i *Interpreter) CanTransition(to session.State) bool {
	for _, next := range allowed[i.State()] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition attempts to move to the target state.
func (i *Interpreter) Transition(to session.State, reason string) error {
	from := i.State()
	if !i.CanTransition(to) {
		return fmt.Errorf("transition from %s to %s not allowed", from, to)
	}
	i.interp.Send(statekit.Event{
		Type: EventForTransition(to),
		Payload: TransitionPayload{
			To:     to,
			Reason: reason,
		},
	})
	if got := i.State(); got != to {
		return fmt.Errorf("transition from %s to %s not allowed", from, to)
	}
	return nil
}

// Fail moves to the failed state, recording the error on the session.
// Failing an already terminal session is a no-op.
func (i *Interpreter) Fail(err error) {
	if !i.CanTransition(session.StateFailed) {
		return
	}
	i.interp.Send(statekit.Event{
		Type: EventFail,
		Payload: TransitionPayload{
			To:  session.StateFailed,
			Err: err,
		},
	})
}

// IsTerminal returns true if the interpreter reached a final state.
func (i *Interpreter) IsTerminal() bool {
	return i.interp.Done()
}

// Context returns the interpreter context.
func (i *Interpreter) Context() *Context {
	return i.ctx
}

// Matches checks if the current state matches the given state ID.
func (i *Interpreter) Matches(stateID string) bool {
	return i.interp.Matches(statekit.StateID(stateID))
}
