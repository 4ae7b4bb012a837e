// Package target implements cobble's core: the Target data model and the
// memoized recursive evaluator that expands a user-declared dependency
// graph into a deduplicated set of concrete build products (spec.md §3
// "Target"/"Concrete target", §4.5–§4.6). This is the sole object of the
// specification; every other package in this module (env, project, plugin,
// cplugin, ninjawriter, loadyaml) exists to give this one something to
// evaluate and somewhere to write the result.
//
// Grounded line-for-line on
// _examples/original_source/src/cobble/target/__init__.py's Target,
// UsingContext, evaluate/_evaluate, _topo_sort/_topo_merge, Product, and
// EvaluationError.
package target

import (
	"fmt"

	"cobble/cmd/cobble/env"
)

// Package is the subset of project.Package a Target needs: resolving a
// dependency identifier to another Target, and turning a package-relative
// identifier into its absolute "//relpath:name" form. Defined here (rather
// than imported from package project) because project.Package itself holds
// a map of *Target: project depends on target, never the reverse.
type Package interface {
	// MakeAbsolute turns a possibly package-relative identifier (":name")
	// into an absolute one, leaving an already-absolute identifier
	// ("//path:name") untouched.
	MakeAbsolute(ident string) string

	// FindTarget resolves ident (absolute or, for a leading ":", relative to
	// this package) to the Target it names.
	FindTarget(ident string) (*Target, error)
}

// DownFunc replaces an incoming environment outright, used only by concrete
// targets (spec.md §3 "Concrete target"): "its down delta is specifically a
// function that replaces the incoming environment... rather than mutating
// it".
type DownFunc func(*env.Env) (*env.Env, error)

// UsingAndProductsFunc is a target's user-supplied computation (spec.md
// §4.5): given the using-context assembled from this target's own
// environment and its dependencies' contributions, return the delta this
// target contributes to its own dependents plus the concrete Products it
// emits.
type UsingAndProductsFunc func(*UsingContext) (env.Delta, []*Product, error)

// Options configures a new Target (spec.md §3 "Target": three deltas, a
// deps set, a concreteness flag, a using-and-products function).
type Options struct {
	// Concrete marks a target that can be evaluated without an incoming
	// environment. When true, DownFunc is required and Down must be left
	// unset: a concrete target's down delta must replace, not mutate.
	Concrete bool

	// DownFunc is the concrete-target down delta. Required when Concrete is
	// true; must be left nil otherwise.
	DownFunc DownFunc

	// Down is the non-concrete down delta, applied via Env.Derive against
	// the incoming environment to produce the environment dependencies see.
	// Must be left nil when Concrete is true.
	Down env.Delta

	// Local is applied to the down-environment to produce this target's
	// first-approximation local environment, before folding in dependency
	// using-deltas (spec.md §4.5 "derive_local").
	Local env.Delta

	// Deps lists this target's dependency identifiers, in whatever form the
	// declaring package wrote them (absolute "//pkg:name" or package-relative
	// ":name"); New resolves each to absolute form.
	Deps []string

	// UsingAndProducts is this target's using-and-products computation.
	// Required: every target must produce at least a (possibly nil) using
	// delta and a (possibly empty) product list.
	UsingAndProducts UsingAndProductsFunc

	// Transparent overrides the default transparency policy (nil means "use
	// the default", !Concrete). See evaluator.go's evaluateUncached for how
	// transparency gates what a dependent sees of this target's subgraph.
	Transparent *bool
}

// Target is one parameterised build target: a named declaration, owned by a
// package, whose own environment and emitted products depend on an incoming
// environment threaded through three deltas (down, local, using) and folded
// with its dependencies' contributions (spec.md §3).
//
// Target carries exactly one piece of mutable state, the evaluation cache
// (spec.md §3 "Lifecycle"): every other field is fixed at construction.
type Target struct {
	pkg   Package
	name  string
	ident string

	concrete    bool
	transparent bool

	downFunc DownFunc
	down     env.Delta
	local    env.Delta
	deps     []string

	usingAndProducts UsingAndProductsFunc

	cache map[string]*cacheEntry
}

// New constructs a Target owned by pkg. It validates opts's shape (spec.md
// §4.5 "Construction contract": deltas are validated, the using-and-products
// field is a function, dependency identifiers are coerced to absolute form)
// but does not register the target with pkg — callers (a plugin constructor,
// then its loader) call pkg.AddTarget separately once New succeeds.
func New(pkg Package, name string, opts Options) (*Target, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: target name must not be empty", ErrInvalidTarget)
	}
	if opts.UsingAndProducts == nil {
		return nil, fmt.Errorf("%w: target %s: using-and-products function is required", ErrShapeError, name)
	}

	if opts.Concrete {
		if opts.DownFunc == nil {
			return nil, fmt.Errorf("%w: concrete target %s: down delta must be a function", ErrInvalidTarget, name)
		}
		if opts.Down != nil {
			return nil, fmt.Errorf("%w: concrete target %s: down must be a function, not a delta map", ErrInvalidTarget, name)
		}
	} else if opts.DownFunc != nil {
		return nil, fmt.Errorf("%w: non-concrete target %s: down must be a regular delta, not a replacing function", ErrInvalidTarget, name)
	}

	transparent := !opts.Concrete
	if opts.Transparent != nil {
		transparent = *opts.Transparent
	}

	ident := pkg.MakeAbsolute(":" + name)

	deps := make([]string, len(opts.Deps))
	for i, d := range opts.Deps {
		deps[i] = pkg.MakeAbsolute(d)
	}

	return &Target{
		pkg:   pkg,
		name:  name,
		ident: ident,

		concrete:    opts.Concrete,
		transparent: transparent,

		downFunc: opts.DownFunc,
		down:     opts.Down,
		local:    opts.Local,
		deps:     deps,

		usingAndProducts: opts.UsingAndProducts,

		cache: make(map[string]*cacheEntry),
	}, nil
}

// Name returns the target's bare name, unique within its owning package.
func (t *Target) Name() string { return t.name }

// Ident returns the target's canonical absolute identifier,
// "//<package-relpath>:<name>".
func (t *Target) Ident() string { return t.ident }

// Concrete reports whether this target can be evaluated with no incoming
// environment.
func (t *Target) Concrete() bool { return t.concrete }

// Transparent reports whether this target's rank-map subgraph is visible to
// its dependents (spec.md §4.6 step 13).
func (t *Target) Transparent() bool { return t.transparent }

// Deps returns this target's dependency identifiers, already resolved to
// absolute form at construction time (key references inside them are
// resolved later, per-evaluation, against the local environment).
func (t *Target) Deps() []string {
	out := make([]string, len(t.deps))
	copy(out, t.deps)
	return out
}

// UniqueEnvironments returns the number of distinct incoming environments
// this target has been evaluated under so far, i.e. the size of its
// memoisation cache. A target evaluated only once (the common case for a
// concrete root) reports 1; a heavily-shared non-concrete target pulled in
// by many differently-configured dependents can report many more. Grounded
// on original_source/src/cobble/target/__init__.py's Target.stats(), a
// debugging/introspection hook with no effect on evaluation itself.
func (t *Target) UniqueEnvironments() int { return len(t.cache) }

// deriveDown yields the environment seen by this target's dependencies
// (spec.md §4.5 "derive_down"): down(env) if concrete, else env.Derive(down).
func (t *Target) deriveDown(up *env.Env) (*env.Env, error) {
	if t.concrete {
		return t.downFunc(up)
	}
	if up == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoIncomingEnv, t.ident)
	}
	return up.Derive(t.down)
}

// deriveLocal yields the first approximation of this target's own
// environment (spec.md §4.5 "derive_local"), before using-deltas from
// dependencies are folded in.
func (t *Target) deriveLocal(down *env.Env) (*env.Env, error) {
	return down.Derive(t.local)
}
