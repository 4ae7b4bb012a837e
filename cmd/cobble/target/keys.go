package target

import "cobble/cmd/cobble/env"

// Implicit and OrderOnly are the two reserved set-of-string environment keys
// every target's environment carries, accumulating Ninja-level implicit and
// order-only edges across a target's transitive dependencies (spec.md §4.4
// "Two reserved keys are predefined"). Plugins merge paths into these keys
// via their using-deltas; Product reads them back out and strips them from
// its variables map (spec.md design notes: "model them as first-class
// fields of Product").
var (
	Implicit  = env.UnorderedStringSet("__implicit__", nil)
	OrderOnly = env.UnorderedStringSet("__order_only__", nil)
)

// DefineReservedKeys registers Implicit and OrderOnly into r. A loader calls
// this once, before any plugin-contributed keys, so every environment in the
// project can carry the two reserved keys regardless of which plugins are
// compiled in.
func DefineReservedKeys(r *env.Registry) error {
	if err := r.Define(Implicit); err != nil {
		return err
	}
	if err := r.Define(OrderOnly); err != nil {
		return err
	}
	return nil
}
