package target

import (
	"fmt"
	"sort"
	"strings"

	"cobble/cmd/cobble/env"
)

// UsingContext is handed to a target's UsingAndProducts function (spec.md
// §4.6 step 11): the package the target belongs to, its final local
// environment, and read access to everything its dependencies contributed
// so far in this evaluation.
type UsingContext struct {
	Package Package
	Env     *env.Env

	rankMap    RankMap
	productMap ProductMap
}

// RewriteSources resolves a list of source-path strings the way spec.md
// §4.6's "Source reference rewrite" describes: an entry of the form
// ":target#output" or "//pkg:target#output" is resolved to the concrete
// output path that target exposed under that symbolic name; anything else
// is treated as a package-relative input path and passed through
// Env.RewriteString for $key interpolation.
func (ctx *UsingContext) RewriteSources(sources []string) ([]string, error) {
	out := make([]string, len(sources))
	for i, s := range sources {
		rewritten, err := ctx.rewriteSource(s)
		if err != nil {
			return nil, err
		}
		out[i] = rewritten
	}
	return out, nil
}

func (ctx *UsingContext) rewriteSource(s string) (string, error) {
	if isTargetOutputRef(s) {
		idx := strings.IndexByte(s, '#')
		targetRef, outputName := s[:idx], s[idx+1:]
		ident := ctx.Package.MakeAbsolute(targetRef)

		for _, key := range ctx.sortedKeys() {
			if key.Target.Ident() != ident {
				continue
			}
			for _, p := range ctx.productMap[key] {
				if path, ok := p.FindOutput(outputName); ok {
					return path, nil
				}
			}
		}
		return "", fmt.Errorf("%w: %s (no product of %s exposes output %q)", ErrOutputNotFound, s, ident, outputName)
	}
	return ctx.Env.RewriteString(s)
}

// isTargetOutputRef reports whether s names a target's exposed output
// rather than a plain package-relative path: it must start with ":" or
// "//" and contain a "#" output-name separator.
func isTargetOutputRef(s string) bool {
	return (strings.HasPrefix(s, ":") || strings.HasPrefix(s, "//")) && strings.Contains(s, "#")
}

// sortedKeys returns ctx.rankMap's keys in deterministic order, so that if
// more than one (target, env) entry happens to share an identifier (a
// target reached transitively under two different environments), output
// resolution is reproducible rather than dependent on Go's random map
// iteration order.
func (ctx *UsingContext) sortedKeys() []Key {
	keys := make([]Key, 0, len(ctx.rankMap))
	for k := range ctx.rankMap {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Target.Ident() != keys[j].Target.Ident() {
			return keys[i].Target.Ident() < keys[j].Target.Ident()
		}
		return keys[i].Digest < keys[j].Digest
	})
	return keys
}

// RankOf looks up the rank this evaluation assigned to target's entry under
// env's digest, for plugins that want to reason about relative depth.
func (ctx *UsingContext) RankOf(t *Target, e *env.Env) (int, bool) {
	entry, ok := ctx.rankMap[Key{Target: t, Digest: digestOf(e)}]
	return entry.Rank, ok
}
