package target_test

import (
	"fmt"
	"strings"
	"testing"

	"cobble/cmd/cobble/env"
	"cobble/cmd/cobble/target"
)

// fakePackage is a minimal target.Package double used to unit-test the
// target/evaluator package in isolation from package project (which itself
// depends on target — a real *project.Package is exercised end-to-end by
// cplugin's own tests instead). It only resolves targets that tests have
// registered with add.
type fakePackage struct {
	relpath string
	targets map[string]*target.Target
}

func newFakePackage(relpath string) *fakePackage {
	return &fakePackage{relpath: relpath, targets: make(map[string]*target.Target)}
}

// MakeAbsolute mirrors project.Package.MakeAbsolute's contract exactly.
func (p *fakePackage) MakeAbsolute(ident string) string {
	if strings.HasPrefix(ident, "//") {
		return ident
	}
	if p.relpath == "." {
		return "//" + ident
	}
	return "//" + p.relpath + ident
}

func (p *fakePackage) FindTarget(ident string) (*target.Target, error) {
	t, ok := p.targets[ident]
	if !ok {
		return nil, fmt.Errorf("%w: %s", target.ErrUnknownTarget, ident)
	}
	return t, nil
}

func (p *fakePackage) add(t *target.Target) { p.targets[t.Ident()] = t }

// testRegistry returns a fresh env.Registry with the two reserved keys
// every target's environment needs, matching what a real loader defines
// before any plugin keys (cobble/cmd/cobble/loadyaml.Load does the same).
func testRegistry(t *testing.T) *env.Registry {
	t.Helper()
	r := env.NewRegistry()
	if err := target.DefineReservedKeys(r); err != nil {
		t.Fatalf("defining reserved keys: %v", err)
	}
	return r
}
