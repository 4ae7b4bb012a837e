// Package env implements cobble's immutable key/value environments: the
// key registry, the Env type itself (derivation, subsetting, templated
// string rewriting, content digesting), and the Delta type describing how
// an environment mutates (spec.md §3–§4.3).
package env

import (
	"crypto/sha1"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"cobble/cmd/cobble/frozen"
)

// Env is an immutable mapping from environment key name to frozen value,
// checked against a Registry. Every mutator returns a new Env; nothing in
// this package ever mutates an Env's stored values map in place once it has
// been handed to a caller.
type Env struct {
	registry *Registry
	values   map[string]frozen.Value

	digest     string
	digestDone bool
}

// New builds an Env from a registry and a map of plain Go literal values
// (string, bool, nil, []string, []any, or a pre-built frozen.Value). Each
// value is frozen and passed through its key's literal-coercion function,
// exactly as a MapDelta's values are when applied via Derive. Used by
// loaders translating external declarations (e.g. YAML) into a concrete
// starting environment.
func New(registry *Registry, literals map[string]any) (*Env, error) {
	e := fresh(registry, map[string]frozen.Value{})
	if len(literals) == 0 {
		return e, nil
	}
	return e.Derive(MapDelta(literals))
}

// fresh wraps an already-finalized values map (no re-coercion) as a new Env.
// The caller must not retain or mutate the map afterward.
func fresh(registry *Registry, values map[string]frozen.Value) *Env {
	return &Env{registry: registry, values: values}
}

// Registry returns the registry this Env is checked against.
func (e *Env) Registry() *Registry { return e.registry }

// Get returns the readout-applied value for name: the stored value if
// present, otherwise the key's default (which may itself be absent,
// rendering as frozen null). Fails ErrUnknownKey if name isn't registered.
func (e *Env) Get(name string) (any, error) {
	key, ok := e.registry.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKey, name)
	}
	return key.readout(e.rawValue(name, key)), nil
}

// GetValue is Get's frozen-level counterpart: it returns the stored or
// default value without applying readout. Used internally by Rewrite,
// Digest, and by plugins that need the raw frozen shape.
func (e *Env) GetValue(name string) (frozen.Value, error) {
	key, ok := e.registry.Get(name)
	if !ok {
		return frozen.Null, fmt.Errorf("%w: %s", ErrUnknownKey, name)
	}
	return e.rawValue(name, key), nil
}

func (e *Env) rawValue(name string, key *Key) frozen.Value {
	if v, has := e.values[name]; has {
		return v
	}
	if key.HasDefault {
		return key.Default
	}
	return frozen.Null
}

// Contains reports whether name has an explicit (non-default) entry.
func (e *Env) Contains(name string) bool {
	_, has := e.values[name]
	return has
}

// Len returns the number of explicit entries (not counting defaults).
func (e *Env) Len() int { return len(e.values) }

// Subset returns a new Env keeping only entries whose key is named in names.
func (e *Env) Subset(names []string) *Env {
	keep := make(map[string]bool, len(names))
	for _, n := range names {
		keep[n] = true
	}
	nv := make(map[string]frozen.Value, len(names))
	for k, v := range e.values {
		if keep[k] {
			nv[k] = v
		}
	}
	return fresh(e.registry, nv)
}

// SubsetRequire is Subset plus default back-fill: any name in names that has
// neither an explicit value nor a default fails ErrMissingRequired.
func (e *Env) SubsetRequire(names []string) (*Env, error) {
	nv := make(map[string]frozen.Value, len(names))
	var missing []string
	for _, n := range names {
		if v, has := e.values[n]; has {
			nv[n] = v
			continue
		}
		key, ok := e.registry.Get(n)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownKey, n)
		}
		if !key.HasDefault {
			missing = append(missing, n)
			continue
		}
		nv[n] = key.Default
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, strings.Join(missing, ", "))
	}
	return fresh(e.registry, nv), nil
}

// Without returns a new Env dropping every entry for which pred(name)
// reports true.
func (e *Env) Without(pred func(name string) bool) *Env {
	nv := make(map[string]frozen.Value, len(e.values))
	for k, v := range e.values {
		if !pred(k) {
			nv[k] = v
		}
	}
	return fresh(e.registry, nv)
}

// WithoutNames is Without specialised to a fixed container of names, mirroring
// the Python original's "without(matcher)" where matcher is a collection.
func (e *Env) WithoutNames(names []string) *Env {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}
	return e.Without(func(name string) bool { return drop[name] })
}

// ReadoutAll returns name -> readout-applied-value for every explicit entry.
func (e *Env) ReadoutAll() map[string]any {
	out := make(map[string]any, len(e.values))
	for k := range e.values {
		v, err := e.Get(k)
		if err != nil {
			// Every key in e.values is, by construction, defined in the
			// registry (Derive/New never stores an entry for an unknown
			// key), so this would indicate a bug in this package, not bad
			// caller input.
			panic(fmt.Sprintf("env: ReadoutAll: %v", err))
		}
		out[k] = v
	}
	return out
}

// Equal reports whether e and o are checked against the same registry and
// hold equal contents. Digests are compared first as a cheap short-circuit,
// but actual contents are compared too (spec.md §3: "equality comparison
// also compares contents") since a digest collision, though cryptographically
// negligible, is not impossible.
func (e *Env) Equal(o *Env) bool {
	if o == nil || e.registry != o.registry {
		return false
	}
	if e.Digest() != o.Digest() {
		return false
	}
	if len(e.values) != len(o.values) {
		return false
	}
	for k, v := range e.values {
		ov, has := o.values[k]
		if !has || !v.Equal(ov) {
			return false
		}
	}
	return true
}

// digestEntry is the gob-encoded shape of one (name, normalized value) pair
// that feeds Env.Digest. Fields must be exported for gob's struct encoder;
// frozen.Value supplies its own deterministic GobEncode/GobDecode (see
// cmd/cobble/frozen/codec.go), so nothing here depends on reflection over
// unexported state.
type digestEntry struct {
	Name  string
	Value frozen.Value
}

// Digest returns a stable hex-encoded content hash of the environment,
// memoized on first access (spec.md §4.3 "Digest algorithm"). Equal
// environments always produce equal digests; changing any value, or
// adding/removing a key, changes the digest with overwhelming probability.
//
// The encoding step is grounded on the same idiom
// other_examples/...thought-machine-please__src-core-config.go.go's
// Configuration.Hash() uses: a gob.Encoder writing into a sha1.Hash. Feeding
// gob a pre-sorted slice of fixed-shape structs (never a live map) keeps the
// byte stream deterministic across runs, matching the Python original's
// sorted-pickle-then-sha1 approach in original_source/src/cobble/env.py.
func (e *Env) Digest() string {
	if e.digestDone {
		return e.digest
	}
	names := make([]string, 0, len(e.values))
	for n := range e.values {
		names = append(names, n)
	}
	sort.Strings(names)

	entries := make([]digestEntry, len(names))
	for i, n := range names {
		entries[i] = digestEntry{Name: n, Value: frozen.Normalize(e.values[n])}
	}

	h := sha1.New()
	if err := gob.NewEncoder(h).Encode(entries); err != nil {
		panic(fmt.Sprintf("env: digest encoding failed: %v", err))
	}

	e.digest = hex.EncodeToString(h.Sum(nil))
	e.digestDone = true
	return e.digest
}
