package bot

import (
	"fmt"
	"sync"
)

// Registry maps processing unit type identifiers (stored on each tenant)
// to factories. Resolution happens by lookup, never by reflecting a string
// into a type; an unknown identifier is a configuration error.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]func() Handler
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]func() Handler)}
}

// Register adds a unit factory under the given type identifier.
// Registration happens at startup; duplicate names are an error.
func (r *Registry) Register(name string, factory func() Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("bot: unit %q already registered", name)
	}
	r.factories[name] = factory
	return nil
}

// Resolve instantiates the unit registered under name. A fresh instance is
// returned per call so units may keep per-delivery state without locking.
func (r *Registry) Resolve(name string) (Handler, bool) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return factory(), true
}

// Names returns the registered type identifiers, for diagnostics.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	return names
}
