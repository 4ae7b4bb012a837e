// Package plugin defines the contract a target-type plugin (c_binary,
// c_library, copy_file, ...) implements: a constructor function taking a
// package, a target name, and plugin-specific parameters, returning a
// *target.Target ready to add to that package (spec.md §5.5, grounded on
// _examples/original_source/src/cobble/plugin.py's target_def decorator).
package plugin

import (
	"sort"

	"cobble/cmd/cobble/env"
	"cobble/cmd/cobble/project"
	"cobble/cmd/cobble/target"
)

// Constructor builds one target declaration. pkg anchors the target to its
// package; name is the target's bare name; params carries whatever
// plugin-specific arguments a loader parsed out of the declaration (e.g. a
// YAML mapping's fields already coerced to Go values).
type Constructor func(pkg *project.Package, name string, params map[string]any) (*target.Target, error)

// Registry maps a target-type name (the verb a BUILD-file-equivalent
// declaration uses, e.g. "c_binary") to the Constructor that implements it.
// A loader consults this registry once per declaration it parses.
type Registry struct {
	constructors map[string]Constructor
	keys         []*env.Key
	ninjaRules   map[string]project.NinjaRule
}

// NewRegistry returns an empty plugin Registry.
func NewRegistry() *Registry {
	return &Registry{
		constructors: make(map[string]Constructor),
		ninjaRules:   make(map[string]project.NinjaRule),
	}
}

// Register adds a target-type constructor under verb. Registering the same
// verb twice is almost always a packaging bug, so it panics rather than
// returning an error: this always happens at plugin-registration time
// (program startup), never in response to user input.
func (r *Registry) Register(verb string, ctor Constructor) {
	if _, exists := r.constructors[verb]; exists {
		panic("plugin: target type " + verb + " registered twice")
	}
	r.constructors[verb] = ctor
}

// Lookup returns the constructor registered for verb.
func (r *Registry) Lookup(verb string) (Constructor, bool) {
	c, ok := r.constructors[verb]
	return c, ok
}

// Verbs returns every registered target-type name, sorted.
func (r *Registry) Verbs() []string {
	out := make([]string, 0, len(r.constructors))
	for v := range r.constructors {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Keys accumulates the environment keys a plugin package contributes, so a
// loader can define them all into a project's registry up front.
func (r *Registry) Keys() []*env.Key { return r.keys }

// AddKeys registers the environment keys a plugin package defines.
func (r *Registry) AddKeys(keys ...*env.Key) {
	r.keys = append(r.keys, keys...)
}

// NinjaRules accumulates the Ninja rule bodies a plugin package contributes.
func (r *Registry) NinjaRules() map[string]project.NinjaRule { return r.ninjaRules }

// AddNinjaRules registers Ninja rule bodies a plugin package defines.
func (r *Registry) AddNinjaRules(rules map[string]project.NinjaRule) {
	for name, body := range rules {
		r.ninjaRules[name] = body
	}
}
