package memory

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/felixgeelhaar/gateway-go/domain/event"
	"github.com/felixgeelhaar/gateway-go/domain/tool"
	"github.com/felixgeelhaar/gateway-go/infrastructure/logging"
)

// ToolRegistry is an in-memory implementation of tool.Registry with
// upsert semantics: registering a name twice replaces the first tool
// without growing the catalog.
type ToolRegistry struct {
	tools     map[string]tool.Tool
	order     []string
	publisher event.Publisher
	mu        sync.RWMutex
}

// NewToolRegistry creates an in-memory tool registry. The publisher may
// be nil, in which case mutations are not observable.
func NewToolRegistry(publisher event.Publisher) *ToolRegistry {
	return &ToolRegistry{
		tools:     make(map[string]tool.Tool),
		publisher: publisher,
	}
}

// Register inserts or replaces a tool by name.
func (r *ToolRegistry) Register(t tool.Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := t.Name()
	_, replaced := r.tools[name]
	r.tools[name] = t
	if !replaced {
		r.order = append(r.order, name)
	}

	r.publish(event.TypeToolAdded, event.ToolAddedPayload{
		Spec:     tool.SpecOf(t),
		Origin:   t.Origin(),
		Replaced: replaced,
	})
}

// Unregister removes a tool by name. Removing an absent name is a
// no-op: no event is published and false is returned.
func (r *ToolRegistry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.remove(name)
}

// UnregisterOrigin removes every tool tagged with the given origin and
// returns the removed tools.
func (r *ToolRegistry) UnregisterOrigin(origin tool.Origin) []tool.Tool {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed []tool.Tool
	for _, name := range append([]string(nil), r.order...) {
		t, ok := r.tools[name]
		if !ok || t.Origin() != origin {
			continue
		}
		removed = append(removed, t)
		r.remove(name)
	}
	return removed
}

// Get retrieves a tool by name.
func (r *ToolRegistry) Get(name string) (tool.Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tools[name]
	return t, ok
}

// List returns all registered tools in registration order.
func (r *ToolRegistry) List() []tool.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]tool.Tool, 0, len(r.tools))
	for _, name := range r.order {
		if t, ok := r.tools[name]; ok {
			tools = append(tools, t)
		}
	}
	return tools
}

// Specs returns the model-facing specs of all registered tools.
func (r *ToolRegistry) Specs() []tool.Spec {
	r.mu.RLock()
	defer r.mu.RUnlock()

	specs := make([]tool.Spec, 0, len(r.tools))
	for _, name := range r.order {
		if t, ok := r.tools[name]; ok {
			specs = append(specs, tool.SpecOf(t))
		}
	}
	return specs
}

// Names returns all registered tool names in registration order.
func (r *ToolRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Has checks if a tool is registered.
func (r *ToolRegistry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.tools[name]
	return ok
}

// Count returns the number of registered tools.
func (r *ToolRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Invoke looks up a tool and executes it with the given arguments.
func (r *ToolRegistry) Invoke(ctx context.Context, name string, args json.RawMessage) (tool.Result, error) {
	t, ok := r.Get(name)
	if !ok {
		return tool.Result{}, tool.ErrToolNotFound
	}
	return t.Execute(ctx, args)
}

// remove deletes a tool and publishes its removal (must hold lock).
func (r *ToolRegistry) remove(name string) bool {
	t, ok := r.tools[name]
	if !ok {
		return false
	}

	delete(r.tools, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}

	r.publish(event.TypeToolRemoved, event.ToolRemovedPayload{
		Name:   name,
		Origin: t.Origin(),
	})
	return true
}

// publish emits a store event (must hold lock).
func (r *ToolRegistry) publish(typ event.Type, payload any) {
	if r.publisher == nil {
		return
	}
	e, err := event.New(typ, payload)
	if err != nil {
		logging.Error().
			Add(logging.Component("tool_registry")).
			Add(logging.EventType(string(typ))).
			Add(logging.ErrorField(err)).
			Msg("failed to build store event")
		return
	}
	r.publisher.Publish(e)
}

// Ensure ToolRegistry implements tool.Registry
var _ tool.Registry = (*ToolRegistry)(nil)
