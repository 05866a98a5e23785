package plugin

import (
	"fmt"
	"sync"

	"github.com/bitechdev/ResourceSpec/pkg/logger"
	"github.com/bitechdev/ResourceSpec/pkg/resource"
)

// Plugin contributes cross-cutting lifecycle hooks to every resource.
// Endpoints and Schema are opaque extension payloads registered for
// outer layers; the engine only iterates Hooks.
type Plugin struct {
	ID        string
	Hooks     resource.Hooks
	Endpoints interface{}
	Schema    interface{}
}

// Registry holds installed plugins in registration order. It is an
// explicit engine collaborator, injected rather than reached through
// the adapter.
type Registry struct {
	mu      sync.RWMutex
	plugins []*Plugin
	byID    map[string]*Plugin
}

// NewRegistry creates an empty plugin registry.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]*Plugin)}
}

// Register installs a plugin. Hook aliases are normalized on the way
// in, same as resource definitions. Duplicate ids are rejected.
func (r *Registry) Register(p *Plugin) error {
	if p == nil || p.ID == "" {
		return fmt.Errorf("plugin requires an id")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[p.ID]; exists {
		return fmt.Errorf("plugin %q is already registered", p.ID)
	}

	p.Hooks = p.Hooks.Normalize()
	r.plugins = append(r.plugins, p)
	r.byID[p.ID] = p
	logger.Info("Registered plugin %s (total: %d)", p.ID, len(r.plugins))
	return nil
}

// Get returns a plugin by id, nil when absent.
func (r *Registry) Get(id string) *Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byID[id]
}

// Plugins returns the installed plugins in registration order.
func (r *Registry) Plugins() []*Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Plugin, len(r.plugins))
	copy(out, r.plugins)
	return out
}

// ExecuteHooks runs the named hook of every installed plugin in
// registration order. The first error stops iteration and propagates.
func (r *Registry) ExecuteHooks(name resource.HookName, hc *resource.Context) error {
	for _, p := range r.Plugins() {
		fn, ok := p.Hooks[name]
		if !ok || fn == nil {
			continue
		}
		if err := fn(hc); err != nil {
			return err
		}
	}
	return nil
}

// Count returns the number of installed plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}
