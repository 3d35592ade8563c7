package provider

import (
	"context"
	"fmt"
	"sync"

	"github.com/felixgeelhaar/gateway-go/domain/event"
	"github.com/felixgeelhaar/gateway-go/domain/provider"
	"github.com/felixgeelhaar/gateway-go/domain/tool"
	"github.com/felixgeelhaar/gateway-go/infrastructure/logging"
)

// Registry tracks provider managers by name and keeps the tool registry
// consistent with them: adding a provider registers its discovered
// tools, removing a provider cascades to exactly the tools it
// contributed.
type Registry struct {
	managers  map[string]*Manager
	pending   map[string]struct{}
	tools     tool.Registry
	publisher event.Publisher
	mu        sync.Mutex
}

// NewRegistry creates a provider registry backed by the given tool
// registry. The publisher may be nil.
func NewRegistry(tools tool.Registry, publisher event.Publisher) *Registry {
	return &Registry{
		managers:  make(map[string]*Manager),
		pending:   make(map[string]struct{}),
		tools:     tools,
		publisher: publisher,
	}
}

// Add launches a provider, performs its handshake, discovers its tools,
// and registers them. A spawn or handshake failure is terminal for the
// request: no tools are registered and the name stays free. Adding a
// name that is already registered fails with ErrProviderExists.
func (r *Registry) Add(ctx context.Context, spec provider.LaunchSpec) (provider.Record, error) {
	if spec.Name == "" {
		return provider.Record{}, provider.ErrNameRequired
	}
	if spec.Command == "" {
		return provider.Record{}, provider.ErrCommandRequired
	}

	// Reserve the name, then bootstrap outside the lock: a provider
	// that hangs in its handshake must not block Records, Remove, or
	// ShutdownAll.
	r.mu.Lock()
	if _, exists := r.managers[spec.Name]; exists {
		r.mu.Unlock()
		return provider.Record{}, fmt.Errorf("%w: %s", provider.ErrProviderExists, spec.Name)
	}
	if _, reserved := r.pending[spec.Name]; reserved {
		r.mu.Unlock()
		return provider.Record{}, fmt.Errorf("%w: %s", provider.ErrProviderExists, spec.Name)
	}
	r.pending[spec.Name] = struct{}{}
	r.mu.Unlock()

	release := func() {
		r.mu.Lock()
		delete(r.pending, spec.Name)
		r.mu.Unlock()
	}

	m := NewManager(spec)
	if err := m.Start(ctx); err != nil {
		release()
		return provider.Record{}, err
	}

	defs, err := m.ListTools(ctx)
	if err != nil {
		_ = m.Shutdown()
		release()
		return provider.Record{}, fmt.Errorf("%w: tool discovery: %v", provider.ErrBootstrap, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pending, spec.Name)

	names := make([]string, 0, len(defs))
	for _, def := range defs {
		r.tools.Register(newProxyTool(def, spec.Name, m))
		names = append(names, def.Name)
	}
	r.managers[spec.Name] = m

	r.publish(event.TypeProviderAdded, event.ProviderAddedPayload{
		Name:  spec.Name,
		Tools: names,
	})
	logging.Info().
		Add(logging.Component("provider_registry")).
		Add(logging.Provider(spec.Name)).
		Add(logging.Count("tools", len(names))).
		Msg("provider registered")

	return r.record(spec.Name, m), nil
}

// Remove shuts a provider down and unregisters exactly the tools it
// contributed. Tools from other providers and local tools are
// untouched.
func (r *Registry) Remove(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.remove(name)
}

// Reap removes a provider whose subprocess died mid-invocation. It is
// the same cascade as Remove but tolerates an unknown name, since
// concurrent calls may race to reap the same dead provider.
func (r *Registry) Reap(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.managers[name]; !ok {
		return
	}
	_ = r.remove(name)
}

// Get returns the manager for a provider name.
func (r *Registry) Get(name string) (*Manager, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.managers[name]
	return m, ok
}

// Records returns the observer-facing view of all providers.
func (r *Registry) Records() []provider.Record {
	r.mu.Lock()
	defer r.mu.Unlock()

	records := make([]provider.Record, 0, len(r.managers))
	for name, m := range r.managers {
		records = append(records, r.record(name, m))
	}
	return records
}

// Count returns the number of registered providers.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.managers)
}

// ShutdownAll drains every provider subprocess. Each shutdown is
// idempotent, so calling ShutdownAll more than once is safe.
func (r *Registry) ShutdownAll() error {
	r.mu.Lock()
	names := make([]string, 0, len(r.managers))
	for name := range r.managers {
		names = append(names, name)
	}
	r.mu.Unlock()

	for _, name := range names {
		if err := r.Remove(name); err != nil {
			logging.Warn().
				Add(logging.Component("provider_registry")).
				Add(logging.Provider(name)).
				Add(logging.ErrorField(err)).
				Msg("provider shutdown failed")
		}
	}
	return nil
}

// remove does the removal cascade (must hold lock).
func (r *Registry) remove(name string) error {
	m, ok := r.managers[name]
	if !ok {
		return fmt.Errorf("%w: %s", provider.ErrProviderNotFound, name)
	}

	_ = m.Shutdown()
	delete(r.managers, name)

	removed := r.tools.UnregisterOrigin(tool.ProviderOrigin(name))
	names := make([]string, 0, len(removed))
	for _, t := range removed {
		names = append(names, t.Name())
	}

	r.publish(event.TypeProviderRemoved, event.ProviderRemovedPayload{
		Name:  name,
		Tools: names,
	})
	logging.Info().
		Add(logging.Component("provider_registry")).
		Add(logging.Provider(name)).
		Add(logging.Count("tools", len(names))).
		Msg("provider removed")
	return nil
}

func (r *Registry) record(name string, m *Manager) provider.Record {
	spec := m.Spec()
	var tools []string
	for _, t := range r.tools.List() {
		if t.Origin() == tool.ProviderOrigin(name) {
			tools = append(tools, t.Name())
		}
	}
	return provider.Record{
		Name:    name,
		Command: spec.Command,
		Args:    spec.Args,
		Tools:   tools,
		Alive:   m.Alive(),
	}
}

func (r *Registry) publish(typ event.Type, payload any) {
	if r.publisher == nil {
		return
	}
	e, err := event.New(typ, payload)
	if err != nil {
		logging.Error().
			Add(logging.Component("provider_registry")).
			Add(logging.ErrorField(err)).
			Msg("failed to build store event")
		return
	}
	r.publisher.Publish(e)
}
