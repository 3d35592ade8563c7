// Package session provides the conversation turn lifecycle.
package session

import (
	"time"

	"github.com/google/uuid"
)

// State represents the lifecycle state of a conversation turn.
type State string

// Turn lifecycle states.
const (
	// StateAwaitingModel means a model request is in flight or about to be.
	StateAwaitingModel State = "awaiting_model"

	// StateExecutingTools means requested tool calls are being executed.
	StateExecutingTools State = "executing_tools"

	// StateDone means the turn completed with a final assistant message.
	StateDone State = "done"

	// StateFailed means the turn ended with an unrecoverable error.
	StateFailed State = "failed"
)

// IsValid reports whether s is a recognized state.
func (s State) IsValid() bool {
	switch s {
	case StateAwaitingModel, StateExecutingTools, StateDone, StateFailed:
		return true
	}
	return false
}

// IsTerminal reports whether s is a final state.
func (s State) IsTerminal() bool {
	return s == StateDone || s == StateFailed
}

// String returns the state as a string.
func (s State) String() string {
	return string(s)
}

// Session tracks a single orchestration run: one user message through
// however many model/tool turns it takes to reach a terminal state.
type Session struct {
	// ID is the unique identifier for this run.
	ID string `json:"id"`

	// State is the current lifecycle state.
	State State `json:"state"`

	// Turns counts completed model round-trips.
	Turns int `json:"turns"`

	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at"`

	// CompletedAt is when the run reached a terminal state.
	CompletedAt time.Time `json:"completed_at,omitempty"`

	// Err holds the failure cause when State is failed.
	Err error `json:"-"`
}

// New creates a session in the awaiting-model state.
func New() *Session {
	return &Session{
		ID:        uuid.New().String(),
		State:     StateAwaitingModel,
		StartedAt: time.Now(),
	}
}

// Complete moves the session to done.
func (s *Session) Complete() {
	s.State = StateDone
	s.CompletedAt = time.Now()
}

// Fail moves the session to failed, recording the cause.
func (s *Session) Fail(err error) {
	s.State = StateFailed
	s.Err = err
	s.CompletedAt = time.Now()
}

// Duration returns how long the run has been (or was) active.
func (s *Session) Duration() time.Duration {
	if s.CompletedAt.IsZero() {
		return time.Since(s.StartedAt)
	}
	return s.CompletedAt.Sub(s.StartedAt)
}
