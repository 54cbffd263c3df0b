package pipeline

import (
	"fmt"
	"maps"
	"slices"
	"sync"
)

// Factory creates a fresh instance of a module type.
type Factory func() ModuleType

// Registry maps module type identifiers to their factories. Type names are
// resolved once, when modules are created.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: map[string]Factory{}}
}

func (r *Registry) Register(typeID string, f Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.factories[typeID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateType, typeID)
	}
	r.factories[typeID] = f
	return nil
}

func (r *Registry) MustRegister(typeID string, f Factory) {
	if err := r.Register(typeID, f); err != nil {
		panic(err)
	}
}

func (r *Registry) Lookup(typeID string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[typeID]
	return f, ok
}

// Types returns the registered type identifiers in sorted order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.factories))
}

// NewModule instantiates a module of the given type, applying option
// defaults and validators.
func (r *Registry) NewModule(name, typeID string, options map[string]string) (*Module, error) {
	factory, ok := r.Lookup(typeID)
	if !ok {
		return nil, fmt.Errorf("%w '%s' for module '%s'", ErrUnknownType, typeID, name)
	}

	impl := factory()
	resolved, err := resolveOptions(name, impl.Options(), options)
	if err != nil {
		return nil, err
	}
	return &Module{Name: name, Type: typeID, Options: resolved, Impl: impl}, nil
}
