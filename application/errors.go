package application

import "errors"

var (
	// ErrBackendRequired is returned when no completion backend is configured.
	ErrBackendRequired = errors.New("orchestrator requires a backend")

	// ErrLogRequired is returned when no message log is configured.
	ErrLogRequired = errors.New("orchestrator requires a message log")

	// ErrRegistryRequired is returned when no tool registry is configured.
	ErrRegistryRequired = errors.New("orchestrator requires a tool registry")

	// ErrTurnBudgetExhausted is returned when a session consumed its
	// full model-turn budget without producing a final reply.
	ErrTurnBudgetExhausted = errors.New("turn budget exhausted")
)
