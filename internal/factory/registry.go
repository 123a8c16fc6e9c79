package factory

import (
	"fmt"
	"sort"
	"sync"

	"github.com/roach88/flexi/internal/graph"
	"github.com/roach88/flexi/internal/ir"
)

// Constructor builds a node behavior from its configuration.
// A returned error is reported as INVALID_CONFIG.
type Constructor func(cfg ir.IRObject) (graph.Behavior, error)

// Registration describes one node type.
type Registration struct {
	// Type is the name descriptions use to refer to the node type.
	Type string

	// New constructs a configured behavior.
	New Constructor

	// Entry marks types that may start an ability run.
	Entry bool
}

// Registry maps type names to registrations. It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	types map[string]Registration
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{types: make(map[string]Registration)}
}

// Register adds a node type. Registering the same name twice is an error.
func (r *Registry) Register(reg Registration) error {
	if reg.Type == "" {
		return fmt.Errorf("register node type: empty type name")
	}
	if reg.New == nil {
		return fmt.Errorf("register node type %q: nil constructor", reg.Type)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.types[reg.Type]; exists {
		return fmt.Errorf("register node type %q: already registered", reg.Type)
	}
	r.types[reg.Type] = reg
	return nil
}

// MustRegister is Register that panics on error. Intended for init-time
// registration of built-in types.
func (r *Registry) MustRegister(reg Registration) {
	if err := r.Register(reg); err != nil {
		panic(err)
	}
}

// Lookup returns the registration for a type name.
func (r *Registry) Lookup(typeName string) (Registration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.types[typeName]
	return reg, ok
}

// Types returns every registered type name, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.types))
	for name := range r.types {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Unresolved lists the type names a description uses that are not
// registered, in first-use order.
func (r *Registry) Unresolved(desc ir.GraphDescription) []string {
	var out []string
	for _, name := range desc.TypeNames() {
		if _, ok := r.Lookup(name); !ok {
			out = append(out, name)
		}
	}
	return out
}
