package target

import (
	"fmt"
	"sort"

	"cobble/cmd/cobble/env"
)

// Key identifies one (target, environment) pair in a RankMap/ProductMap.
// Digest, not the *env.Env pointer itself, carries the environment identity:
// two Env values with equal content (equal digest) for the same Target must
// collapse to the same Key, even if they were constructed as distinct *Env
// objects by different branches of the graph (spec.md §4.6 step 7's "merge
// disambiguation contract").
type Key struct {
	Target *Target
	Digest string
}

// RankEntry is one RankMap value: the longest-path rank from the evaluation
// root, the using-delta that Target contributed, and the environment it was
// evaluated against (spec.md §4.6 "rank_map").
type RankEntry struct {
	Rank  int
	Using env.Delta
	Env   *env.Env
}

// RankMap maps (target, env) to (rank, using-delta), one entry per distinct
// pair reachable from the evaluation root (spec.md §4.6).
type RankMap map[Key]RankEntry

// ProductMap maps (target, env) to the Products that pair emitted (spec.md
// §4.6).
type ProductMap map[Key][]*Product

// Evaluate runs the evaluator (spec.md §4.6) starting from t against the
// incoming environment up (nil is legal only when t is concrete), returning
// every (target, env) pair reachable from this root and the products each
// one emits.
func Evaluate(t *Target, up *env.Env) (RankMap, ProductMap, error) {
	return t.evaluate(up)
}

type cacheState int

const (
	stateInProgress cacheState = iota
	stateDone
	stateFailed
)

// cacheEntry is one slot in a Target's per-incoming-environment memoisation
// cache (spec.md design notes: "a tagged variant" over in-progress / failure
// / success).
type cacheEntry struct {
	state cacheState

	rankMap    RankMap
	productMap ProductMap
	err        error
}

func digestOf(e *env.Env) string {
	if e == nil {
		return ""
	}
	return e.Digest()
}

// breadcrumb renders a (target, env) pair the way error messages and cycle
// reports thread it through the unwind (spec.md §7 "breadcrumbs").
func (t *Target) breadcrumb(up *env.Env) string {
	if up == nil {
		return t.ident
	}
	return fmt.Sprintf("%s@%s", t.ident, up.Digest())
}

// evaluate is the memoised, cycle-checked entry point every recursive call
// (including Evaluate itself) goes through (spec.md §4.6 steps 1-2, 15).
func (t *Target) evaluate(up *env.Env) (RankMap, ProductMap, error) {
	cacheKey := digestOf(up)

	if entry, ok := t.cache[cacheKey]; ok {
		switch entry.state {
		case stateInProgress:
			return nil, nil, fmt.Errorf("%w: %s", ErrCycleDetected, t.breadcrumb(up))
		case stateFailed:
			return nil, nil, entry.err
		default: // stateDone
			return entry.rankMap, entry.productMap, nil
		}
	}

	t.cache[cacheKey] = &cacheEntry{state: stateInProgress}

	rankMap, productMap, err := t.evaluateUncached(up)
	if err != nil {
		wrapped := fmt.Errorf("%s: %w", t.breadcrumb(up), err)
		t.cache[cacheKey] = &cacheEntry{state: stateFailed, err: wrapped}
		return nil, nil, wrapped
	}

	t.cache[cacheKey] = &cacheEntry{state: stateDone, rankMap: rankMap, productMap: productMap}
	return rankMap, productMap, nil
}

// evaluateUncached implements spec.md §4.6 steps 3-14 for one (target,
// incoming-env) pair, assuming the caller has already handled memoisation
// and cycle detection.
func (t *Target) evaluateUncached(up *env.Env) (RankMap, ProductMap, error) {
	eDown, err := t.deriveDown(up)
	if err != nil {
		return nil, nil, err
	}

	eLocal0, err := t.deriveLocal(eDown)
	if err != nil {
		return nil, nil, err
	}

	rewrittenDeps := make([]string, len(t.deps))
	for i, d := range t.deps {
		rd, err := eLocal0.RewriteString(d)
		if err != nil {
			return nil, nil, fmt.Errorf("dep %q: %w", d, err)
		}
		rewrittenDeps[i] = rd
	}

	mergedRank := RankMap{}
	mergedProducts := ProductMap{}

	for _, depIdent := range rewrittenDeps {
		depTarget, err := t.pkg.FindTarget(depIdent)
		if err != nil {
			return nil, nil, err
		}
		depRank, depProducts, err := depTarget.evaluate(eDown)
		if err != nil {
			return nil, nil, err
		}
		if err := mergeInto(mergedRank, mergedProducts, depRank, depProducts); err != nil {
			return nil, nil, err
		}
	}

	ordered := topoSort(mergedRank)

	eLocal1 := eLocal0
	for _, key := range ordered {
		eLocal1, err = eLocal1.Derive(mergedRank[key].Using)
		if err != nil {
			return nil, nil, err
		}
	}

	ctx := &UsingContext{
		Package:    t.pkg,
		Env:        eLocal1,
		rankMap:    mergedRank,
		productMap: mergedProducts,
	}

	using, products, err := t.usingAndProducts(ctx)
	if err != nil {
		return nil, nil, err
	}

	if !t.transparent {
		// A non-transparent target (every concrete target, plus any
		// non-concrete target explicitly opting out) hides its subgraph's
		// *rank-map* bookkeeping from whatever depends on it: a dependent
		// sees only this target's own (rank 0) entry, not its internal
		// topology (spec.md §4.6 step 13 discards only "the merged rank
		// map"). The product map is never truncated — every concrete
		// product produced transitively underneath T must still reach the
		// emitter, or a non-transparent target's own dependencies would
		// silently vanish from the manifest.
		mergedRank = RankMap{}
	}

	selfKey := Key{Target: t, Digest: digestOf(up)}
	mergedRank[selfKey] = RankEntry{Rank: 0, Using: using, Env: up}
	mergedProducts[selfKey] = products

	return mergedRank, mergedProducts, nil
}

// mergeInto folds one dependency's (rankMap, productMap) result into the
// accumulators being built for the current target (spec.md §4.6 steps 7-8).
func mergeInto(mergedRank RankMap, mergedProducts ProductMap, depRank RankMap, depProducts ProductMap) error {
	for key, entry := range depRank {
		candidate := RankEntry{Rank: entry.Rank + 1, Using: entry.Using, Env: entry.Env}
		if existing, ok := mergedRank[key]; !ok || candidate.Rank > existing.Rank {
			mergedRank[key] = candidate
		}
	}
	for key, products := range depProducts {
		if existing, ok := mergedProducts[key]; ok {
			if !sameProducts(existing, products) {
				return fmt.Errorf("%w: %s", ErrConflictingOutput, key.Target.Ident())
			}
			continue
		}
		mergedProducts[key] = products
	}
	return nil
}

// sameProducts compares two product slices by pointer identity rather than
// deep content equality: the evaluator's own memoisation guarantees that
// re-evaluating one (target, env) pair always returns the exact same
// underlying []*Product slice, so pointer identity is sufficient here and
// far cheaper than reflect.DeepEqual (spec.md §9 Open Question: "Conflict
// resolution ... is only detected at output-path-collision time" — this
// implementation detects it eagerly instead, at merge time).
func sameProducts(a, b []*Product) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// topoSort orders rankMap's keys by descending rank, then target identifier,
// then env digest (spec.md §4.6 step 9). A deeper dependency's using-delta
// is folded into the local environment before a shallower one's, so
// shallower deltas can override deeper ones (spec.md §4.6 step 10).
//
// The Python original's fourth tiebreaker (the using-delta's own value) is
// dropped: rank-map keys are already unique (target, digest) pairs, so
// (-rank, ident, digest) alone is already a total order and the fourth
// field could never actually fire (see DESIGN.md).
func topoSort(rankMap RankMap) []Key {
	keys := make([]Key, 0, len(rankMap))
	for k := range rankMap {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ri, rj := rankMap[keys[i]].Rank, rankMap[keys[j]].Rank
		if ri != rj {
			return ri > rj
		}
		ii, ij := keys[i].Target.Ident(), keys[j].Target.Ident()
		if ii != ij {
			return ii < ij
		}
		return keys[i].Digest < keys[j].Digest
	})
	return keys
}
