package builder

import "github.com/sarchlab/sinuca-go/link"

// Factory constructs a fresh, unconfigured component instance named name.
// Configure and FinishSetup are invoked afterward by the wiring pass.
type Factory func(name string) link.Linkable

// Registry maps a YAML `class` string to the factory that builds it. A
// registry may chain to a parent: Lookup checks its own factories first,
// falling back to the parent on a miss — this is how a user-extension
// registry built on top of the default registry gets "first hit wins"
// without needing to duplicate every default entry.
type Registry struct {
	factories map[string]Factory
	parent    *Registry
}

// NewRegistry constructs an empty registry, optionally chained to parent.
// Pass nil for a registry with no fallback.
func NewRegistry(parent *Registry) *Registry {
	return &Registry{factories: make(map[string]Factory), parent: parent}
}

// Register adds or overrides the factory for class.
func (r *Registry) Register(class string, f Factory) {
	r.factories[class] = f
}

// Lookup resolves class to a factory, checking this registry before its
// parent.
func (r *Registry) Lookup(class string) (Factory, bool) {
	if f, ok := r.factories[class]; ok {
		return f, true
	}
	if r.parent != nil {
		return r.parent.Lookup(class)
	}
	return nil, false
}
