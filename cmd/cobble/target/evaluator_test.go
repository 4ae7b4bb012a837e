package target_test

import (
	"errors"
	"strings"
	"testing"

	"cobble/cmd/cobble/env"
	"cobble/cmd/cobble/frozen"
	"cobble/cmd/cobble/target"
)

// TestEvaluator_SingleTargetNoDeps covers spec.md §8 end-to-end scenario 6's
// basic shape in miniature: one concrete target, no deps, one product.
func TestEvaluator_SingleTargetNoDeps(t *testing.T) {
	r := testRegistry(t)
	tagKey := env.OverrideableString("tag", nil)
	if err := r.Define(tagKey); err != nil {
		t.Fatal(err)
	}
	pkg := newFakePackage(".")

	var calls int
	leaf, err := target.New(pkg, "leaf", target.Options{
		Concrete: true,
		DownFunc: func(_ *env.Env) (*env.Env, error) {
			return env.New(r, map[string]any{"tag": "leaf"})
		},
		UsingAndProducts: func(ctx *target.UsingContext) (env.Delta, []*target.Product, error) {
			calls++
			p, err := target.NewProduct(ctx.Env, []string{"/build/leaf.out"}, "touch", target.ProductOptions{})
			if err != nil {
				return nil, nil, err
			}
			return nil, []*target.Product{p}, nil
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	pkg.add(leaf)

	rankMap, productMap, err := target.Evaluate(leaf, nil)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(rankMap) != 1 {
		t.Fatalf("expected exactly one rank-map entry, got %d", len(rankMap))
	}
	if len(productMap) != 1 {
		t.Fatalf("expected exactly one product-map entry, got %d", len(productMap))
	}
	for _, ps := range productMap {
		if len(ps) != 1 || ps[0].Outputs[0] != "/build/leaf.out" {
			t.Fatalf("unexpected products: %v", ps)
		}
	}

	// Memoisation: re-evaluating the same (target, env) pair
	// must not re-invoke UsingAndProducts.
	if _, _, err := target.Evaluate(leaf, nil); err != nil {
		t.Fatalf("second Evaluate: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected UsingAndProducts to run exactly once (memoised), ran %d times", calls)
	}
}

// buildChain wires three targets root -> mid -> leaf, where root is
// concrete (the evaluation entry point) and mid/leaf are non-concrete, both
// contributing a using-delta for the same key so overriding order can be
// observed. Returns the final environment root's own UsingAndProducts saw.
func buildChain(t *testing.T, valueFromLeaf, valueFromMid string) *env.Env {
	t.Helper()
	r := testRegistry(t)
	valKey := env.OverrideableString("val", nil)
	if err := r.Define(valKey); err != nil {
		t.Fatal(err)
	}
	pkg := newFakePackage(".")

	leaf, err := target.New(pkg, "leaf", target.Options{
		UsingAndProducts: func(ctx *target.UsingContext) (env.Delta, []*target.Product, error) {
			return env.MapDelta{"val": valueFromLeaf}, nil, nil
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	pkg.add(leaf)

	mid, err := target.New(pkg, "mid", target.Options{
		Deps: []string{":leaf"},
		UsingAndProducts: func(ctx *target.UsingContext) (env.Delta, []*target.Product, error) {
			return env.MapDelta{"val": valueFromMid}, nil, nil
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	pkg.add(mid)

	var rootEnv *env.Env
	root, err := target.New(pkg, "root", target.Options{
		Concrete: true,
		DownFunc: func(_ *env.Env) (*env.Env, error) {
			return env.New(r, nil)
		},
		Deps: []string{":mid"},
		UsingAndProducts: func(ctx *target.UsingContext) (env.Delta, []*target.Product, error) {
			rootEnv = ctx.Env
			return nil, nil, nil
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	pkg.add(root)

	if _, _, err := target.Evaluate(root, nil); err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	return rootEnv
}

// TestEvaluator_TopoOrderAppliesDeeperUsingDeltasFirst exercises spec.md
// §4.6 steps 9-10: root -> mid -> leaf is a three-level chain, and root's
// local environment must reflect mid's using-delta (mid is shallower,
// applied after leaf's deeper one) rather than leaf's.
func TestEvaluator_TopoOrderAppliesDeeperUsingDeltasFirst(t *testing.T) {
	finalEnv := buildChain(t, "fromLeaf", "fromMid")
	got, err := finalEnv.GetValue("val")
	if err != nil {
		t.Fatalf("GetValue(val): %v", err)
	}
	if !got.Equal(frozen.String("fromMid")) {
		t.Fatalf("expected root's local environment to see mid's (shallower) override %q, got %v", "fromMid", got)
	}
}

// TestEvaluator_CycleDetected covers spec.md §8's cycle-detection property:
// a depends on b, b depends on a; both (A, E) and (B, E) breadcrumbs must
// appear in the error.
func TestEvaluator_CycleDetected(t *testing.T) {
	r := testRegistry(t)
	pkg := newFakePackage(".")

	var a, b *target.Target
	var err error

	a, err = target.New(pkg, "a", target.Options{
		Deps:             []string{":b"},
		UsingAndProducts: noopUsing,
	})
	if err != nil {
		t.Fatal(err)
	}
	pkg.add(a)

	b, err = target.New(pkg, "b", target.Options{
		Deps:             []string{":a"},
		UsingAndProducts: noopUsing,
	})
	if err != nil {
		t.Fatal(err)
	}
	pkg.add(b)

	root, err := target.New(pkg, "root", target.Options{
		Concrete: true,
		DownFunc: func(_ *env.Env) (*env.Env, error) {
			return env.New(r, nil)
		},
		Deps:             []string{":a"},
		UsingAndProducts: noopUsing,
	})
	if err != nil {
		t.Fatal(err)
	}
	pkg.add(root)

	_, _, evalErr := target.Evaluate(root, nil)
	if !errors.Is(evalErr, target.ErrCycleDetected) {
		t.Fatalf("expected ErrCycleDetected, got %v", evalErr)
	}
	msg := evalErr.Error()
	if !containsAll(msg, "//:a", "//:b") {
		t.Fatalf("expected cycle error to carry breadcrumbs for both //:a and //:b, got: %s", msg)
	}
}

// TestEvaluator_CachedFailureIsStable covers spec.md §8 "repeated
// evaluations with the same key short-circuit to the same failure".
func TestEvaluator_CachedFailureIsStable(t *testing.T) {
	r := testRegistry(t)
	pkg := newFakePackage(".")

	root, err := target.New(pkg, "root", target.Options{
		Concrete: true,
		DownFunc: func(_ *env.Env) (*env.Env, error) {
			return env.New(r, nil)
		},
		Deps:             []string{":missing"},
		UsingAndProducts: noopUsing,
	})
	if err != nil {
		t.Fatal(err)
	}
	pkg.add(root)

	_, _, err1 := target.Evaluate(root, nil)
	if !errors.Is(err1, target.ErrUnknownTarget) {
		t.Fatalf("expected ErrUnknownTarget, got %v", err1)
	}
	_, _, err2 := target.Evaluate(root, nil)
	if err2.Error() != err1.Error() {
		t.Fatalf("expected repeated evaluation to return the identical cached failure, got %q then %q", err1, err2)
	}
}

// TestEvaluator_DiamondDependencySharesSingleEvaluation covers spec.md §8's
// memoisation property across a shared subgraph: A depends on both B and C,
// which both depend on D. D's UsingAndProducts must run exactly once, and
// the merged product map must carry exactly one entry for D (spec.md §4.6
// steps 7-8's merge being keyed by (target, env), not by which dependent
// reached it).
func TestEvaluator_DiamondDependencySharesSingleEvaluation(t *testing.T) {
	r := testRegistry(t)
	pkg := newFakePackage(".")

	var dCalls int
	d, err := target.New(pkg, "d", target.Options{
		UsingAndProducts: func(ctx *target.UsingContext) (env.Delta, []*target.Product, error) {
			dCalls++
			p, err := target.NewProduct(ctx.Env, []string{"/build/d.out"}, "touch", target.ProductOptions{})
			if err != nil {
				return nil, nil, err
			}
			return nil, []*target.Product{p}, nil
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	pkg.add(d)

	b, err := target.New(pkg, "b", target.Options{
		Deps:             []string{":d"},
		UsingAndProducts: noopUsing,
	})
	if err != nil {
		t.Fatal(err)
	}
	pkg.add(b)

	c, err := target.New(pkg, "c", target.Options{
		Deps:             []string{":d"},
		UsingAndProducts: noopUsing,
	})
	if err != nil {
		t.Fatal(err)
	}
	pkg.add(c)

	a, err := target.New(pkg, "a", target.Options{
		Concrete: true,
		DownFunc: func(_ *env.Env) (*env.Env, error) {
			return env.New(r, nil)
		},
		Deps:             []string{":b", ":c"},
		UsingAndProducts: noopUsing,
	})
	if err != nil {
		t.Fatal(err)
	}
	pkg.add(a)

	_, productMap, err := target.Evaluate(a, nil)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if dCalls != 1 {
		t.Fatalf("expected d's UsingAndProducts to run exactly once, ran %d times", dCalls)
	}

	var dEntries int
	for key := range productMap {
		if key.Target == d {
			dEntries++
		}
	}
	if dEntries != 1 {
		t.Fatalf("expected exactly one product-map entry for d, got %d", dEntries)
	}
}

func containsAll(s string, subs ...string) bool {
	for _, sub := range subs {
		if !strings.Contains(s, sub) {
			return false
		}
	}
	return true
}
