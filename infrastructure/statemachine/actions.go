package statemachine

import (
	"github.com/felixgeelhaar/statekit"

	"github.com/felixgeelhaar/gateway-go/domain/session"
)

// syncState mirrors the machine state onto the session.
// In statekit, actions receive a pointer to the context. Since our
// context is *Context, actions receive **Context.
func syncState(ctx **Context, event statekit.Event) {
	c := deref(ctx)
	if c == nil {
		return
	}

	if payload, ok := event.Payload.(TransitionPayload); ok && payload.To != "" {
		c.Session.State = payload.To
		return
	}
	if to := stateFromEventType(event.Type); to != "" {
		c.Session.State = to
	}
}

// countTurn advances the turn counter when control returns to the model.
func countTurn(ctx **Context, event statekit.Event) {
	c := deref(ctx)
	if c == nil {
		return
	}
	c.Session.Turns++
	syncState(ctx, event)
}

// markDone completes the session.
func markDone(ctx **Context, _ statekit.Event) {
	c := deref(ctx)
	if c == nil {
		return
	}
	c.Session.Complete()
}

// markFailed fails the session, recording the error from the payload.
func markFailed(ctx **Context, event statekit.Event) {
	c := deref(ctx)
	if c == nil {
		return
	}
	if payload, ok := event.Payload.(TransitionPayload); ok {
		c.Session.Fail(payload.Err)
		return
	}
	c.Session.Fail(nil)
}

func deref(ctx **Context) *Context {
	if ctx == nil || *ctx == nil || (*ctx).Session == nil {
		return nil
	}
	return *ctx
}

func stateFromEventType(eventType statekit.EventType) session.State {
	switch eventType {
	case EventModel:
		return session.StateAwaitingModel
	case EventTools:
		return session.StateExecutingTools
	case EventDone:
		return session.StateDone
	case EventFail:
		return session.StateFailed
	default:
		return ""
	}
}
