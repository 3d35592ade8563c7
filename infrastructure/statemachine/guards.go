package statemachine

import (
	"github.com/felixgeelhaar/statekit"
)

// guardTurnsRemaining blocks a return to the model once the turn budget
// is spent. In statekit, guards receive the context by value. Since our
// context is *Context, the guard receives *Context directly.
func guardTurnsRemaining(ctx *Context, _ statekit.Event) bool {
	if ctx == nil || ctx.Session == nil {
		return false
	}
	return ctx.Session.Turns < ctx.MaxTurns
}
