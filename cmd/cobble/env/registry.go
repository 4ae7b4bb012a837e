package env

import (
	"fmt"
	"sort"
)

// Registry holds named environment key definitions. Keys are defined once;
// redefinition is fatal (spec.md §4.2). Deletion is intentionally not
// exposed: the registry is meant to be closed once loading finishes and
// treated as read-only for the rest of the process (spec.md §5).
type Registry struct {
	keys map[string]*Key
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{keys: make(map[string]*Key)}
}

// Define registers key. It fails with ErrDuplicateKey if a key with that
// name already exists, or ErrInvalidKey if key is nil or unnamed.
func (r *Registry) Define(key *Key) error {
	if key == nil || key.Name == "" {
		return fmt.Errorf("%w: %v", ErrInvalidKey, key)
	}
	if _, exists := r.keys[key.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateKey, key.Name)
	}
	r.keys[key.Name] = key
	return nil
}

// Contains reports whether name is a defined key.
func (r *Registry) Contains(name string) bool {
	_, ok := r.keys[name]
	return ok
}

// Get returns the key definition for name, or (nil, false) if undefined.
func (r *Registry) Get(name string) (*Key, bool) {
	k, ok := r.keys[name]
	return k, ok
}

// Len returns the number of defined keys.
func (r *Registry) Len() int { return len(r.keys) }

// Names returns every defined key name, sorted, for deterministic iteration.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.keys))
	for n := range r.keys {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
