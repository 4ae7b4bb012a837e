package target

import (
	"fmt"
	"sort"

	"cobble/cmd/cobble/env"
	"cobble/cmd/cobble/frozen"
)

// ProductOptions supplies the parts of a Product that aren't derived
// directly from its environment: its inputs, any implicit-output files
// beyond its primary outputs, an optional stable symlink path, and an
// optional dynamic-dependency file (spec.md §3 "Product").
type ProductOptions struct {
	Inputs          []string
	ImplicitOutputs []string
	SymlinkAs       string
	DynDepsFile     string
}

// Product is one concrete low-level build step: one (or, with a symlink,
// one-plus-one) emitter rule instance (spec.md §3 "Product", §4.7 "Product
// assembly"). Once built, a Product is immutable except for the Expose
// bookkeeping, which only ever adds entries.
type Product struct {
	Outputs         []string
	Rule            string
	Inputs          []string
	Implicit        []string
	OrderOnly       []string
	ImplicitOutputs []string
	SymlinkAs       string
	DynDepsFile     string

	// Variables is the readout of this product's environment, minus the two
	// reserved keys (Implicit/OrderOnly), which become edges above instead
	// of rule variables (spec.md design notes: "strip them from the 'env
	// for readout' view").
	Variables map[string]any

	exposed map[string]string
}

// NewProduct builds a Product with the given outputs and rule, whose
// implicit/order-only deps and variables come from e (spec.md §4.7): the
// environment's __implicit__ and
// __order_only__ keys become Implicit/OrderOnly, and every other key's
// readout becomes a Variables entry.
func NewProduct(e *env.Env, outputs []string, rule string, opts ProductOptions) (*Product, error) {
	if len(outputs) == 0 {
		return nil, fmt.Errorf("%w: product for rule %q declares no outputs", ErrInvalidTarget, rule)
	}
	if rule == "" {
		return nil, fmt.Errorf("%w: product declares no rule", ErrInvalidTarget)
	}

	implicitVal, err := e.GetValue(Implicit.Name)
	if err != nil {
		return nil, err
	}
	orderOnlyVal, err := e.GetValue(OrderOnly.Name)
	if err != nil {
		return nil, err
	}

	variables := e.ReadoutAll()
	delete(variables, Implicit.Name)
	delete(variables, OrderOnly.Name)

	return &Product{
		Outputs:         append([]string{}, outputs...),
		Rule:            rule,
		Inputs:          append([]string{}, opts.Inputs...),
		Implicit:        sortedSetStrings(implicitVal),
		OrderOnly:       sortedSetStrings(orderOnlyVal),
		ImplicitOutputs: append([]string{}, opts.ImplicitOutputs...),
		SymlinkAs:       opts.SymlinkAs,
		DynDepsFile:     opts.DynDepsFile,
		Variables:       variables,
		exposed:         make(map[string]string),
	}, nil
}

// sortedSetStrings collapses a frozen set-of-strings value into a sorted
// plain []string, giving Implicit/OrderOnly a deterministic iteration order
// independent of the set's internal (insertion) element order.
func sortedSetStrings(v frozen.Value) []string {
	elts := v.Elements()
	out := make([]string, len(elts))
	for i, e := range elts {
		out[i] = e.Str()
	}
	sort.Strings(out)
	return out
}

// Expose records that path (one of p.Outputs) may be referenced elsewhere by
// the symbolic name. Fails if name was already exposed to a different path
// (spec.md §3 "Products expose a sub-mapping of named output paths").
func (p *Product) Expose(path, name string) error {
	if existing, ok := p.exposed[name]; ok {
		if existing == path {
			return nil
		}
		return fmt.Errorf("%w: output %q already exposed as %s, cannot also expose as %s", ErrConflictingOutput, name, existing, path)
	}
	found := false
	for _, o := range p.Outputs {
		if o == path {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("%w: exposed path %s is not one of this product's outputs", ErrOutputNotFound, path)
	}
	p.exposed[name] = path
	return nil
}

// FindOutput looks up a previously-exposed output by symbolic name.
func (p *Product) FindOutput(name string) (string, bool) {
	path, ok := p.exposed[name]
	return path, ok
}
