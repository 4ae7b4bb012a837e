// Package project implements cobble's project-level state: the root
// Project (filesystem paths, named environments, global Ninja rule table)
// and the Package type that anchors every target to a location in the
// source tree (spec.md §5.4, grounded on
// _examples/original_source/src/cobble/project.py).
package project

import (
	"fmt"
	"path/filepath"
	"sort"

	"cobble/cmd/cobble/env"
	"cobble/cmd/cobble/target"
)

// NinjaRule is a named, reusable Ninja rule body (command, description, and
// any extra rule-level attributes like depfile/deps). Plugins register these
// once via AddNinjaRules; the emitter later writes one `rule` block per name.
type NinjaRule map[string]string

// Project tracks overall build configuration: the root of the source tree,
// the build output directory, every declared Package, every named starting
// environment, and the global table of Ninja rules contributed by plugins.
type Project struct {
	Root     string
	BuildDir string

	namedEnvs   map[string]*env.Env
	packages    map[string]*Package
	ninjaRules  map[string]NinjaRule
	sourceFiles []string
}

// New creates a Project rooted at root, writing build output under
// buildDir. The symlink-secondary-rule "cobble_symlink_product" is
// pre-registered, matching every concrete target that asks for a "latest/"
// link (spec.md §5.3).
func New(root, buildDir string) *Project {
	return &Project{
		Root:      root,
		BuildDir:  buildDir,
		namedEnvs: make(map[string]*env.Env),
		packages:  make(map[string]*Package),
		ninjaRules: map[string]NinjaRule{
			"cobble_symlink_product": {
				"command":     "ln -sf $target $out",
				"description": "SYMLINK $out",
			},
		},
	}
}

// InPath joins parts onto the project root, producing a path to a source
// file.
func (p *Project) InPath(parts ...string) string {
	return filepath.Join(append([]string{p.Root}, parts...)...)
}

// OutPath joins parts onto the build directory, namespaced by e's digest so
// that the same product built in different environments never collides on
// disk.
func (p *Project) OutPath(e *env.Env, parts ...string) string {
	return filepath.Join(append([]string{p.BuildDir, "env", e.Digest()}, parts...)...)
}

// LinkPath joins parts onto the build directory's "latest" tree, the
// environment-independent symlink farm pointing at the most recent build of
// each concrete target.
func (p *Project) LinkPath(parts ...string) string {
	return filepath.Join(append([]string{p.BuildDir, "latest"}, parts...)...)
}

// AddPackage registers pkg. It's fatal to register two packages at the same
// relative path.
func (p *Project) AddPackage(pkg *Package) error {
	if _, exists := p.packages[pkg.RelPath()]; exists {
		return fmt.Errorf("duplicate package at %s", pkg.RelPath())
	}
	p.packages[pkg.RelPath()] = pkg
	return nil
}

// FindTarget resolves an absolute "//path/to/pkg:name" (or "//path/to/pkg",
// implying a target sharing the final path component's name) identifier.
func (p *Project) FindTarget(ident string) (*target.Target, error) {
	if len(ident) < 2 || ident[:2] != "//" {
		return nil, fmt.Errorf("%w: %q (must start with //)", target.ErrBadIdentifier, ident)
	}
	rest := ident[2:]

	var pkgPath, name string
	colon := -1
	for i, c := range rest {
		if c == ':' {
			colon = i
			break
		}
	}
	if colon < 0 {
		pkgPath = rest
		name = filepath.Base(rest)
	} else {
		pkgPath = rest[:colon]
		name = rest[colon+1:]
		if containsColon(name) {
			return nil, fmt.Errorf("%w: too many colons in %q", target.ErrBadIdentifier, ident)
		}
	}
	if pkgPath == "" {
		pkgPath = "."
	}

	pkg, ok := p.packages[filepath.Clean(pkgPath)]
	if !ok {
		return nil, fmt.Errorf("%w: package %q referenced by %q", target.ErrUnknownTarget, pkgPath, ident)
	}
	t, ok := pkg.targets[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s in package %s", target.ErrUnknownTarget, name, pkgPath)
	}
	return t, nil
}

func containsColon(s string) bool {
	for _, c := range s {
		if c == ':' {
			return true
		}
	}
	return false
}

// DefineEnvironment registers a named starting environment, typically the
// down-environment a family of concrete targets (e.g. all c_binary targets
// built for one toolchain configuration) derive from.
func (p *Project) DefineEnvironment(name string, e *env.Env) error {
	if _, exists := p.namedEnvs[name]; exists {
		return fmt.Errorf("more than one environment named %s", name)
	}
	p.namedEnvs[name] = e
	return nil
}

// NamedEnv looks up a previously-defined named environment.
func (p *Project) NamedEnv(name string) (*env.Env, error) {
	e, ok := p.namedEnvs[name]
	if !ok {
		return nil, fmt.Errorf("reference to undefined named environment %q", name)
	}
	return e, nil
}

// AddNinjaRules merges rules into the project's global Ninja rule table.
// Redefining an existing rule name with different contents is fatal: rules
// are meant to be a global, plugin-contributed namespace, and two plugins
// silently clobbering each other's rule bodies is a bug worth catching at
// load time (spec.md §5.4).
func (p *Project) AddNinjaRules(rules map[string]NinjaRule) error {
	for name, body := range rules {
		if existing, ok := p.ninjaRules[name]; ok {
			if !sameRule(existing, body) {
				return fmt.Errorf("ninja rule %s defined incompatibly in multiple places", name)
			}
			continue
		}
		p.ninjaRules[name] = body
	}
	return nil
}

func sameRule(a, b NinjaRule) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}

// NinjaRuleNames returns every registered rule name, sorted, for deterministic
// emission order.
func (p *Project) NinjaRuleNames() []string {
	out := make([]string, 0, len(p.ninjaRules))
	for n := range p.ninjaRules {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// NinjaRule returns the rule body registered under name.
func (p *Project) NinjaRule(name string) (NinjaRule, bool) {
	r, ok := p.ninjaRules[name]
	return r, ok
}

// Packages returns every registered package, sorted by relative path, for
// deterministic iteration during emission.
func (p *Project) Packages() []*Package {
	paths := make([]string, 0, len(p.packages))
	for rp := range p.packages {
		paths = append(paths, rp)
	}
	sort.Strings(paths)
	out := make([]*Package, len(paths))
	for i, rp := range paths {
		out[i] = p.packages[rp]
	}
	return out
}

// ConcreteTargets returns every concrete target across every registered
// package, sorted by package path then target name — the full set of
// evaluation roots the emitter walks (spec.md §4.6, §6 "Emitter output").
func (p *Project) ConcreteTargets() []*target.Target {
	var out []*target.Target
	for _, pkg := range p.Packages() {
		out = append(out, pkg.ConcreteTargets()...)
	}
	return out
}

// SourceFiles returns the file list this project's build.ninja depends on
// for regeneration purposes — every declaration file the loader read while
// building this Project. A loader populates this via AddSourceFile as it
// reads each manifest.
func (p *Project) SourceFiles() []string {
	out := make([]string, len(p.sourceFiles))
	copy(out, p.sourceFiles)
	sort.Strings(out)
	return out
}

// AddSourceFile records path as one of the declaration files this project
// was loaded from (original_source/src/cobble/output.py's "project.files()",
// consumed to write the build.ninja.deps self-regeneration depfile).
func (p *Project) AddSourceFile(path string) {
	p.sourceFiles = append(p.sourceFiles, path)
}
