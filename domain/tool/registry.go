package tool

import (
	"context"
	"encoding/json"
)

// Spec is the model-facing description of a tool.
type Spec struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// SpecOf builds the model-facing spec for a tool.
func SpecOf(t Tool) Spec {
	return Spec{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters:  t.InputSchema().Raw(),
	}
}

// Registry defines the interface for tool registration and invocation.
// This is a repository interface - implementations are in infrastructure.
type Registry interface {
	// Register inserts or replaces a tool by name. Replacing keeps
	// catalog cardinality unchanged.
	Register(t Tool)

	// Unregister removes a tool by name. Returns false, without side
	// effects, if the name is absent.
	Unregister(name string) bool

	// UnregisterOrigin removes every tool tagged with the given origin
	// and returns the removed tools.
	UnregisterOrigin(origin Origin) []Tool

	// Get retrieves a tool by name.
	Get(name string) (Tool, bool)

	// List returns all registered tools.
	List() []Tool

	// Specs returns the model-facing specs of all registered tools.
	Specs() []Spec

	// Names returns all registered tool names.
	Names() []string

	// Has checks if a tool is registered.
	Has(name string) bool

	// Count returns the number of registered tools.
	Count() int

	// Invoke looks up a tool and executes it with the given arguments.
	// Returns ErrToolNotFound if the name is absent; the caller decides
	// whether that is fatal.
	Invoke(ctx context.Context, name string, args json.RawMessage) (Result, error)
}
