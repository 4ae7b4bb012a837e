package project

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"cobble/cmd/cobble/env"
	"cobble/cmd/cobble/target"
)

// Package is one directory's worth of target declarations. It implements
// target.Package so Target values can resolve local ":name" references and
// build paths without project importing target (project depends on target,
// never the reverse).
type Package struct {
	project *Project
	relpath string
	targets map[string]*target.Target
}

// NewPackage creates a Package at relpath and registers it with proj.
func NewPackage(proj *Project, relpath string) (*Package, error) {
	pkg := &Package{
		project: proj,
		relpath: filepath.Clean(relpath),
		targets: make(map[string]*target.Target),
	}
	if err := proj.AddPackage(pkg); err != nil {
		return nil, err
	}
	return pkg, nil
}

// RelPath returns this package's path relative to the project root, "."
// for the project root itself.
func (pkg *Package) RelPath() string { return pkg.relpath }

// AddTarget registers t under its bare name. Redeclaring a name within one
// package is fatal.
func (pkg *Package) AddTarget(t *target.Target) error {
	if _, exists := pkg.targets[t.Name()]; exists {
		return fmt.Errorf("%w: %s in package %s", target.ErrDuplicateTarget, t.Name(), pkg.relpath)
	}
	pkg.targets[t.Name()] = t
	return nil
}

// Targets returns every target declared in this package, sorted by name.
func (pkg *Package) Targets() []*target.Target {
	names := make([]string, 0, len(pkg.targets))
	for n := range pkg.targets {
		names = append(names, n)
	}
	sort.Strings(names)
	out := make([]*target.Target, len(names))
	for i, n := range names {
		out[i] = pkg.targets[n]
	}
	return out
}

// MakeAbsolute turns a possibly package-relative identifier (":name") into
// an absolute one ("//relpath:name"), leaving already-absolute identifiers
// untouched.
func (pkg *Package) MakeAbsolute(ident string) string {
	if strings.HasPrefix(ident, "//") {
		return ident
	}
	if pkg.relpath == "." {
		return "//" + ident
	}
	return "//" + pkg.relpath + ident
}

// FindTarget resolves ident relative to this package: a leading ":" is
// expanded against this package's own path before delegating to the
// project-wide resolver.
func (pkg *Package) FindTarget(ident string) (*target.Target, error) {
	if strings.HasPrefix(ident, ":") {
		return pkg.project.FindTarget(pkg.MakeAbsolute(ident))
	}
	return pkg.project.FindTarget(ident)
}

// OutPath builds a build-directory-relative path to an output of this
// package, namespaced by e's digest and this package's source path.
func (pkg *Package) OutPath(e *env.Env, parts ...string) string {
	return pkg.project.OutPath(e, append([]string{pkg.relpath}, parts...)...)
}

// InPath builds a path to a source file within this package.
func (pkg *Package) InPath(parts ...string) string {
	return pkg.project.InPath(append([]string{pkg.relpath}, parts...)...)
}

// LinkPath builds a path into this package's "latest" symlink tree.
func (pkg *Package) LinkPath(parts ...string) string {
	return pkg.project.LinkPath(append([]string{pkg.relpath}, parts...)...)
}

// Project returns the project this package belongs to.
func (pkg *Package) Project() *Project { return pkg.project }

// ConcreteTargets returns every concrete target declared in this package,
// sorted by name — the roots the emitter drives evaluation from (spec.md
// §4.6: "the evaluator is invoked on each concrete target with no incoming
// environment").
func (pkg *Package) ConcreteTargets() []*target.Target {
	var out []*target.Target
	for _, t := range pkg.Targets() {
		if t.Concrete() {
			out = append(out, t)
		}
	}
	return out
}
