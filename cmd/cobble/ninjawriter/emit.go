package ninjawriter

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"cobble/cmd/cobble/project"
	"cobble/cmd/cobble/target"
)

// RegenRuleName names the self-regeneration rule written at the top of every
// manifest (original_source/src/cobble/output.py's "cobble_generate_ninja").
const RegenRuleName = "cobble_generate_ninja"

// SymlinkRuleName is the rule project.New pre-registers for every
// SymlinkAs-bearing product's secondary build edge.
const SymlinkRuleName = "cobble_symlink_product"

// uniqueProduct is one flattened build edge plus the (target, env-digest) it
// belongs to, mirroring output.py's unique_products_by_target structure.
type uniqueProduct struct {
	targetIdent string
	envDigest   string
	products    []*target.Product
}

// WriteProject evaluates every concrete target in proj and writes the
// resulting Ninja manifest to ninjaPath, plus its companion depfile at
// depsPath (spec.md §6 "Emitter output"). Both files are written via a
// temp-then-rename, matching output.py's '.tmp' + os.rename dance so a
// reader (e.g. a concurrently-running ninja) never observes a half-written
// manifest.
func WriteProject(proj *project.Project, ninjaPath, depsPath string) error {
	if err := writeDepsFile(proj, ninjaPath, depsPath); err != nil {
		return err
	}

	tmpPath := ninjaPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("ninjawriter: %w", err)
	}

	w := NewWriter(f)
	if err := writeManifest(w, proj, depsPath); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("ninjawriter: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("ninjawriter: %w", err)
	}
	if err := os.Rename(tmpPath, ninjaPath); err != nil {
		return fmt.Errorf("ninjawriter: %w", err)
	}
	return nil
}

// writeDepsFile writes the depfile listing every declaration file
// ninjaPath's regeneration rule depends on, so ninja reruns the loader
// whenever a BUILD.yml/cobble.yml changes.
func writeDepsFile(proj *project.Project, ninjaPath, depsPath string) error {
	tmpPath := depsPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("ninjawriter: %w", err)
	}

	fmt.Fprintf(f, "%s: \\\n", filepath.Base(ninjaPath))
	for _, file := range proj.SourceFiles() {
		fmt.Fprintf(f, "  %s \\\n", file)
	}
	fmt.Fprint(f, "\n")

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("ninjawriter: %w", err)
	}
	return os.Rename(tmpPath, depsPath)
}

// writeManifest writes the self-regeneration header, every registered Ninja
// rule, and every product, to w.
func writeManifest(w *Writer, proj *project.Project, depsPath string) error {
	w.Comment("Automatic regeneration")
	w.Rule(RegenRuleName, map[string]string{
		"command":     "./cobble init --reinit " + proj.Root,
		"description": "(cobbling something together)",
		"depfile":     depsPath,
		"generator":   "1",
	})
	w.Build([]string{"build.ninja"}, RegenRuleName, nil, nil, nil, nil)
	w.Newline()

	for _, name := range proj.NinjaRuleNames() {
		rule, _ := proj.NinjaRule(name)
		w.Rule(name, rule)
		w.Newline()
	}

	uniques, err := collectProducts(proj)
	if err != nil {
		return err
	}
	writeProducts(w, uniques)
	return nil
}

// collectProducts evaluates every concrete target with no incoming
// environment and flattens the resulting product maps into one
// target-ident -> env-digest -> products table, checking that the same
// (target, env) pair never resolves to two different product lists across
// separate concrete-target evaluations (output.py's "internal error:
// evaluations differ" assertion) — expected never to fire, since the
// evaluator's own memoisation guarantees identical results, but cheap
// enough to check eagerly rather than trust silently.
func collectProducts(proj *project.Project) ([]uniqueProduct, error) {
	byTarget := make(map[string]map[string][]*target.Product)

	for _, ct := range proj.ConcreteTargets() {
		_, productMap, err := target.Evaluate(ct, nil)
		if err != nil {
			return nil, fmt.Errorf("evaluating %s: %w", ct.Ident(), err)
		}
		for key, products := range productMap {
			ti := key.Target.Ident()
			ed := key.Digest
			byDigest, ok := byTarget[ti]
			if !ok {
				byDigest = make(map[string][]*target.Product)
				byTarget[ti] = byDigest
			}
			if existing, ok := byDigest[ed]; ok {
				if !sameProductSlice(existing, products) {
					return nil, fmt.Errorf("ninjawriter: internal error: evaluations of %s (env %s) differ across concrete targets", ti, ed)
				}
				continue
			}
			byDigest[ed] = products
		}
	}

	idents := make([]string, 0, len(byTarget))
	for ti := range byTarget {
		idents = append(idents, ti)
	}
	sort.Strings(idents)

	out := make([]uniqueProduct, 0, len(byTarget))
	for _, ti := range idents {
		byDigest := byTarget[ti]
		digests := make([]string, 0, len(byDigest))
		for ed := range byDigest {
			digests = append(digests, ed)
		}
		sort.Strings(digests)
		for _, ed := range digests {
			out = append(out, uniqueProduct{targetIdent: ti, envDigest: ed, products: byDigest[ed]})
		}
	}
	return out, nil
}

func sameProductSlice(a, b []*target.Product) bool {
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

// writeProducts writes one comment + build block per unique (target, env)
// entry, sorted by target identifier then env digest (spec.md §6: "one
// build block per product (sorted by target identifier, then env digest)").
// A target evaluated under exactly one environment gets a bare comment with
// no digest, since the digest carries no useful information in that case.
func writeProducts(w *Writer, uniques []uniqueProduct) {
	envCount := make(map[string]int, len(uniques))
	for _, u := range uniques {
		envCount[u.targetIdent]++
	}

	for _, u := range uniques {
		if envCount[u.targetIdent] == 1 {
			w.Comment(fmt.Sprintf("---- target %s", u.targetIdent))
		} else {
			w.Comment(fmt.Sprintf("---- target %s @ %s", u.targetIdent, u.envDigest))
		}
		for _, p := range u.products {
			writeProduct(w, p)
		}
		w.Newline()
	}
}

// writeProduct writes one Product's primary build edge and, if it declares
// a symlink target, the secondary "symlink to target" edge pointing the
// stable latest/ path at the primary output (spec.md §4.7).
func writeProduct(w *Writer, p *target.Product) {
	w.Build(p.Outputs, p.Rule, p.Inputs, p.Implicit, p.OrderOnly, p.Variables)

	if p.SymlinkAs == "" {
		return
	}
	rel, err := filepath.Rel(filepath.Dir(p.SymlinkAs), p.Outputs[0])
	if err != nil {
		rel = p.Outputs[0]
	}
	w.Build([]string{p.SymlinkAs}, SymlinkRuleName, nil, nil, p.Outputs, map[string]any{
		"target": rel,
	})
}
