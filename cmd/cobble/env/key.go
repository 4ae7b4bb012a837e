package env

import (
	"fmt"

	"cobble/cmd/cobble/frozen"
)

// FromLiteralFunc coerces a rewritten literal into the shape a key requires,
// failing with ErrBadLiteral (wrapped) if the literal can't be used. A nil
// FromLiteralFunc accepts any frozen value unchanged.
type FromLiteralFunc func(frozen.Value) (frozen.Value, error)

// CombineFunc merges the environment's current value for a key with a
// newly-derived one. The second return reports whether the merged value
// should be kept; false means "delete the key" (the merge function returned
// null-for-delete, spec.md §3/§4.2). A nil CombineFunc means override is
// disallowed: Env.Derive rejects merging two unequal values for the key.
type CombineFunc func(old, new frozen.Value) (merged frozen.Value, keep bool)

// ReadoutFunc prepares a stored value for external consumption (e.g. joining
// an appending-string-seq with spaces for command-line interpolation). A nil
// ReadoutFunc is identity: it returns the frozen.Value itself.
type ReadoutFunc func(frozen.Value) any

// Key is an environment key: a name plus the strategy functions that govern
// how literals are accepted, how two values for the same key combine, what
// the key defaults to when absent, and how a value is read out for use.
type Key struct {
	Name        string
	FromLiteral FromLiteralFunc
	Combine     CombineFunc
	// HasDefault/Default: spec.md's "default (frozen datum or absent)". A key
	// with no default requires SubsetRequire callers to supply a value.
	HasDefault bool
	Default    frozen.Value
	Readout    ReadoutFunc
	Help       string
}

func (k *Key) fromLiteral(v frozen.Value) (frozen.Value, error) {
	if k.FromLiteral == nil {
		return v, nil
	}
	out, err := k.FromLiteral(v)
	if err != nil {
		return frozen.Null, fmt.Errorf("%w: key %q: %v", ErrBadLiteral, k.Name, err)
	}
	return out, nil
}

func (k *Key) readout(v frozen.Value) any {
	if k.Readout == nil {
		return v
	}
	return k.Readout(v)
}

// OverrideableString makes a key that accepts a single string literal and
// lets later derivations freely override earlier ones (spec.md §4.4).
func OverrideableString(name string, def *string) *Key {
	k := &Key{
		Name: name,
		FromLiteral: func(v frozen.Value) (frozen.Value, error) {
			if v.Kind() != frozen.KindString {
				return frozen.Null, fmt.Errorf("expected a string, got %v", v)
			}
			return v, nil
		},
		Combine: func(_, new frozen.Value) (frozen.Value, bool) { return new, true },
	}
	if def != nil {
		k.HasDefault = true
		k.Default = frozen.String(*def)
	}
	return k
}

// OverrideableBool is OverrideableString's bool counterpart. readout is
// optional (nil means identity readout, i.e. the raw frozen.Value) and
// exists for keys like c_deps_include_system whose external representation
// isn't just str(bool) (spec.md's env §4.4 readout hook).
func OverrideableBool(name string, def *bool, readout ReadoutFunc) *Key {
	k := &Key{
		Name: name,
		FromLiteral: func(v frozen.Value) (frozen.Value, error) {
			if v.Kind() != frozen.KindBool {
				return frozen.Null, fmt.Errorf("expected a bool, got %v", v)
			}
			return v, nil
		},
		Combine: func(_, new frozen.Value) (frozen.Value, bool) { return new, true },
		Readout: readout,
	}
	if def != nil {
		k.HasDefault = true
		k.Default = frozen.Bool(*def)
	}
	return k
}

// AppendingStringSeq makes a key that accepts a sequence of strings and
// combines successive derivations by appending (old ++ new). A bare string
// literal is rejected rather than silently iterated character-by-character.
// Defaults to the empty tuple.
func AppendingStringSeq(name string, readout ReadoutFunc) *Key {
	return &Key{
		Name:        name,
		FromLiteral: seqFromLiteral,
		Combine: func(old, new frozen.Value) (frozen.Value, bool) {
			return frozen.Tuple(append(append([]frozen.Value{}, old.Elements()...), new.Elements()...)...), true
		},
		HasDefault: true,
		Default:    frozen.Tuple(),
		Readout:    readout,
	}
}

// PrependingStringSeq is AppendingStringSeq's mirror: new values are
// combined in front of old ones (new ++ old). Used where the most-derived
// value should take precedence in ordering, e.g. link search paths.
func PrependingStringSeq(name string) *Key {
	return &Key{
		Name:        name,
		FromLiteral: seqFromLiteral,
		Combine: func(old, new frozen.Value) (frozen.Value, bool) {
			return frozen.Tuple(append(append([]frozen.Value{}, new.Elements()...), old.Elements()...)...), true
		},
		HasDefault: true,
		Default:    frozen.Tuple(),
	}
}

// UnorderedStringSet makes a key that accepts an iterable of strings and
// combines successive derivations by set union. Defaults to the empty set.
func UnorderedStringSet(name string, readout ReadoutFunc) *Key {
	return &Key{
		Name: name,
		FromLiteral: func(v frozen.Value) (frozen.Value, error) {
			elts, err := seqElements(v)
			if err != nil {
				return frozen.Null, err
			}
			return frozen.Set(elts...), nil
		},
		Combine: func(old, new frozen.Value) (frozen.Value, bool) {
			return frozen.Set(append(append([]frozen.Value{}, old.Elements()...), new.Elements()...)...), true
		},
		HasDefault: true,
		Default:    frozen.Set(),
		Readout:    readout,
	}
}

func seqFromLiteral(v frozen.Value) (frozen.Value, error) {
	elts, err := seqElements(v)
	if err != nil {
		return frozen.Null, err
	}
	return frozen.Tuple(elts...), nil
}

// seqElements validates that v is a tuple or set of strings (never a bare
// string, which Go-level callers could otherwise pass by mistake and have it
// silently explode into one-character tokens).
func seqElements(v frozen.Value) ([]frozen.Value, error) {
	if v.Kind() == frozen.KindString {
		return nil, fmt.Errorf("expected a list of strings, got a bare string %q", v.Str())
	}
	if v.Kind() != frozen.KindTuple && v.Kind() != frozen.KindSet {
		return nil, fmt.Errorf("expected a list of strings, got %v", v)
	}
	for _, e := range v.Elements() {
		if e.Kind() != frozen.KindString {
			return nil, fmt.Errorf("expected a list of strings, got element %v", e)
		}
	}
	return v.Elements(), nil
}

// JoinReadout is a ready-made ReadoutFunc for appending/prepending string-seq
// keys that should present as a single space-joined string (e.g. c_flags
// interpolated into a compiler command line).
func JoinReadout(v frozen.Value) any {
	elts := v.Elements()
	parts := make([]string, len(elts))
	for i, e := range elts {
		parts[i] = e.Str()
	}
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += " "
		}
		out += p
	}
	return out
}
