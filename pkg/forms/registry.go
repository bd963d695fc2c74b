package forms

import (
	"fmt"
	"sort"
	"sync"
)

// Registry stores definitions by id.
type Registry struct {
	mu    sync.RWMutex
	forms map[string]Definition
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{forms: make(map[string]Definition)}
}

// Register adds def after validating it. Ids must be unique.
func (r *Registry) Register(def Definition) error {
	if err := def.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.forms[def.ID]; exists {
		return fmt.Errorf("forms: duplicate form %q (file %s)", def.ID, def.Source)
	}
	r.forms[def.ID] = def
	return nil
}

// Get returns the definition for id.
func (r *Registry) Get(id string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.forms[id]
	return def, ok
}

// List returns every definition sorted by id.
func (r *Registry) List() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Definition, 0, len(r.forms))
	for _, def := range r.forms {
		out = append(out, def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Merge registers every definition of other, replacing same-id entries so a
// forms directory can override built-ins.
func (r *Registry) Merge(other *Registry) {
	if other == nil {
		return
	}
	defs := other.List()
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, def := range defs {
		r.forms[def.ID] = def
	}
}
