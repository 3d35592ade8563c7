// Package statemachine provides the statekit integration for the gateway
// conversation loop.
package statemachine

import (
	"github.com/felixgeelhaar/statekit"

	"github.com/felixgeelhaar/gateway-go/domain/config"
	"github.com/felixgeelhaar/gateway-go/domain/session"
)

// Context carries session state through the state machine.
type Context struct {
	Session  *session.Session
	MaxTurns int
}

// NewContext creates a new machine context. A non-positive maxTurns
// falls back to the default turn bound.
func NewContext(sess *session.Session, maxTurns int) *Context {
	if maxTurns <= 0 {
		maxTurns = config.DefaultMaxTurns
	}
	return &Context{
		Session:  sess,
		MaxTurns: maxTurns,
	}
}

// State IDs as StateID type for statekit.
const (
	stateAwaitingModel  statekit.StateID = statekit.StateID(session.StateAwaitingModel)
	stateExecutingTools statekit.StateID = statekit.StateID(session.StateExecutingTools)
	stateDone           statekit.StateID = statekit.StateID(session.StateDone)
	stateFailed         statekit.StateID = statekit.StateID(session.StateFailed)
)

// Event types driving the machine.
const (
	EventTools statekit.EventType = "TOOLS"
	EventModel statekit.EventType = "MODEL"
	EventDone  statekit.EventType = "DONE"
	EventFail  statekit.EventType = "FAIL"
)

// NewSessionMachine creates the canonical conversation statechart.
//
// A session starts awaiting the model. When the model requests tools the
// session moves to executing them; once results are collected it returns
// to the model, guarded by the turn budget. A plain text reply completes
// the session; any unrecoverable error fails it. Both terminal states
// are final.
func NewSessionMachine() (*statekit.MachineConfig[*Context], error) {
	return statekit.NewMachine[*Context]("session").
		WithInitial(stateAwaitingModel).
		WithContext(&Context{}).
		WithAction("syncState", syncState).
		WithAction("countTurn", countTurn).
		WithAction("markDone", markDone).
		WithAction("markFailed", markFailed).
		WithGuard("turnsRemaining", guardTurnsRemaining).
		State(stateAwaitingModel).
			OnEntry("syncState").
			On(EventTools).Target(stateExecutingTools).Do("syncState").
			On(EventDone).Target(stateDone).Do("syncState").
			On(EventFail).Target(stateFailed).Do("syncState").
			Done().
		State(stateExecutingTools).
			OnEntry("syncState").
			On(EventModel).Target(stateAwaitingModel).Guard("turnsRemaining").Do("countTurn").
			On(EventFail).Target(stateFailed).Do("syncState").
			Done().
		State(stateDone).
			Final().
			OnEntry("markDone").
			Done().
		State(stateFailed).
			Final().
			OnEntry("markFailed").
			Done().
		Build()
}

// EventForTransition returns the event type that moves the machine to
// the given state.
func EventForTransition(to session.State) statekit.EventType {
	switch to {
	case session.StateAwaitingModel:
		return EventModel
	case session.StateExecutingTools:
		return EventTools
	case session.StateDone:
		return EventDone
	case session.StateFailed:
		return EventFail
	default:
		return statekit.EventType(to)
	}
}

// StateFromMachine converts a machine state ID to the domain state.
func StateFromMachine(stateID statekit.StateID) session.State {
	return session.State(stateID)
}
