// Package frozen implements the canonical immutable value representation
// shared by every environment, delta, and digest in cobble: strings, bools,
// null, ordered tuples, and unordered sets. Nothing else is a legal
// environment value.
package frozen

import (
	"fmt"
	"sort"
)

// Kind identifies which of the five frozen shapes a Value holds.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindBool
	KindTuple
	KindSet
)

// Value is a frozen datum: string, bool, null, ordered tuple, or unordered
// set of frozen data. The zero Value is Null.
//
// Values are immutable once constructed: the Tuple/Set slice fields must
// never be mutated by callers after a Value escapes a constructor, exactly
// as the Python original treats tuple/frozenset as opaque once built.
type Value struct {
	kind Kind
	str  string
	b    bool
	elts []Value // Tuple: ordered; Set: canonical element order is insertion order
}

// Null is the frozen null value.
var Null = Value{kind: KindNull}

// String wraps a string as a frozen Value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Bool wraps a bool as a frozen Value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Tuple builds an ordered frozen tuple from already-frozen elements.
func Tuple(elts ...Value) Value {
	out := make([]Value, len(elts))
	copy(out, elts)
	return Value{kind: KindTuple, elts: out}
}

// Set builds an unordered frozen set from already-frozen elements,
// de-duplicating by Equal.
func Set(elts ...Value) Value {
	var out []Value
	for _, e := range elts {
		dup := false
		for _, o := range out {
			if o.Equal(e) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, e)
		}
	}
	return Value{kind: KindSet, elts: out}
}

func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is the frozen null value.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Str returns the wrapped string. Panics if v is not a KindString.
func (v Value) Str() string {
	if v.kind != KindString {
		panic(fmt.Sprintf("frozen: Str() on non-string value %v", v.kind))
	}
	return v.str
}

// BoolVal returns the wrapped bool. Panics if v is not a KindBool.
func (v Value) BoolVal() bool {
	if v.kind != KindBool {
		panic(fmt.Sprintf("frozen: BoolVal() on non-bool value %v", v.kind))
	}
	return v.b
}

// Elements returns the tuple or set's elements. Panics for scalar kinds.
// The returned slice must not be mutated.
func (v Value) Elements() []Value {
	if v.kind != KindTuple && v.kind != KindSet {
		panic(fmt.Sprintf("frozen: Elements() on scalar value %v", v.kind))
	}
	return v.elts
}

// Len returns the number of elements in a tuple or set, 0 for scalars/null.
func (v Value) Len() int {
	if v.kind == KindTuple || v.kind == KindSet {
		return len(v.elts)
	}
	return 0
}

// Equal reports deep, kind-sensitive equality. Sets compare as unordered
// multisets-of-unique-elements (duplicates can't occur by construction).
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindString:
		return v.str == o.str
	case KindBool:
		return v.b == o.b
	case KindTuple:
		if len(v.elts) != len(o.elts) {
			return false
		}
		for i := range v.elts {
			if !v.elts[i].Equal(o.elts[i]) {
				return false
			}
		}
		return true
	case KindSet:
		if len(v.elts) != len(o.elts) {
			return false
		}
		for _, e := range v.elts {
			found := false
			for _, oe := range o.elts {
				if e.Equal(oe) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
		return true
	}
	return false
}

// Freeze converts a plain Go value into a frozen Value. Legal inputs are:
// string, bool, nil, []any (or []string/[]Value, recursively frozen into a
// Tuple), and map[Value]struct{}-shaped set inputs are not accepted directly
// — use FreezeSet. Anything else fails with an error, mirroring the Python
// original's freeze() TypeError for unsupported types.
func Freeze(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null, nil
	case Value:
		return t, nil
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case []string:
		elts := make([]Value, len(t))
		for i, s := range t {
			elts[i] = String(s)
		}
		return Tuple(elts...), nil
	case []any:
		elts := make([]Value, len(t))
		for i, e := range t {
			fe, err := Freeze(e)
			if err != nil {
				return Null, err
			}
			elts[i] = fe
		}
		return Tuple(elts...), nil
	case []Value:
		return Tuple(t...), nil
	default:
		return Null, fmt.Errorf("frozen: value cannot be frozen for use in an environment: %#v", x)
	}
}

// FreezeSet freezes a slice of plain strings into a frozen Set.
func FreezeSet(ss []string) Value {
	elts := make([]Value, len(ss))
	for i, s := range ss {
		elts[i] = String(s)
	}
	return Set(elts...)
}

// IsFrozen reports whether v could have resulted from Freeze. Every Value
// constructed through this package's API trivially satisfies this, so it
// exists mainly as an assertion at the boundary with caller-supplied data
// (e.g. a value decoded from YAML and then wrapped by hand).
func IsFrozen(v Value) bool {
	switch v.kind {
	case KindNull, KindString, KindBool:
		return true
	case KindTuple, KindSet:
		for _, e := range v.elts {
			if !IsFrozen(e) {
				return false
			}
		}
		return true
	}
	return false
}

// Normalize returns a canonical tuple-shaped rendering of v in which every
// set is replaced by a tuple of its elements sorted by their rendered form.
// Used only for digesting (spec: "sets collapsed to sorted tuples").
func Normalize(v Value) Value {
	switch v.kind {
	case KindNull, KindString, KindBool:
		return v
	case KindTuple:
		out := make([]Value, len(v.elts))
		for i, e := range v.elts {
			out[i] = Normalize(e)
		}
		return Tuple(out...)
	case KindSet:
		out := make([]Value, len(v.elts))
		for i, e := range v.elts {
			out[i] = Normalize(e)
		}
		sort.Slice(out, func(i, j int) bool { return renderKey(out[i]) < renderKey(out[j]) })
		return Tuple(out...)
	}
	return v
}

// renderKey produces a total order key for sorting normalized elements.
// It is deliberately simple (not collision-proof against adversarial data)
// because it's a sort key, not a digest.
func renderKey(v Value) string {
	switch v.kind {
	case KindNull:
		return "n:"
	case KindString:
		return "s:" + v.str
	case KindBool:
		if v.b {
			return "b:1"
		}
		return "b:0"
	case KindTuple:
		s := "t:("
		for _, e := range v.elts {
			s += renderKey(e) + ","
		}
		return s + ")"
	}
	return ""
}

// String renders a human-readable (not round-trippable) form, used in error
// messages and as the fallback text of a non-string value formatted with fmt
// (strings render quoted here; callers wanting the bare text use Str).
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindString:
		return fmt.Sprintf("%q", v.str)
	case KindBool:
		return fmt.Sprintf("%t", v.b)
	case KindTuple:
		return fmt.Sprintf("%v", v.elts)
	case KindSet:
		return fmt.Sprintf("set%v", v.elts)
	}
	return "?"
}
