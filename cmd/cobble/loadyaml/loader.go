package loadyaml

import (
	"fmt"
	"os"
	"strings"

	"cobble/cmd/cobble/env"
	"cobble/cmd/cobble/plugin"
	"cobble/cmd/cobble/project"
	"cobble/cmd/cobble/target"
)

// ProjectFileName and PackageFileName are the conventional filenames Load
// looks for: one project file at the project root, one package file per
// directory a package is declared in.
const (
	ProjectFileName = "cobble.yml"
	PackageFileName = "BUILD.yml"
)

// rootKey and buildKey seed every environment derived with no explicit base
// with the project's own paths, mirroring loader.py's base environment:
//
//	cobble.env.Env(kr, {'ROOT': project.root, 'BUILD': project.build_dir})
//
// so that BUILD-file-equivalent declarations can interpolate "$ROOT" /
// "$BUILD" into source/output paths the same way the original does.
var (
	rootKey  = env.OverrideableString("ROOT", nil)
	buildKey = env.OverrideableString("BUILD", nil)
)

// Load reads root's project file and every package file reachable from it —
// either seeded directly in the project file's "packages" list or
// discovered transitively through a target's own dependencies — and returns
// a fully populated *project.Project ready for target.Evaluate.
//
// plugins supplies the compiled-in target-type constructors, environment
// keys, and Ninja rule templates (there is no Python-style importlib-driven
// dynamic plugin discovery in Go; the set of available target types is
// fixed at compile time, per the "Plugin contract" of spec.md §6).
func Load(root, buildDir string, plugins *plugin.Registry) (*project.Project, error) {
	registry := env.NewRegistry()
	if err := target.DefineReservedKeys(registry); err != nil {
		return nil, err
	}
	if err := registry.Define(rootKey); err != nil {
		return nil, err
	}
	if err := registry.Define(buildKey); err != nil {
		return nil, err
	}
	for _, k := range plugins.Keys() {
		if err := registry.Define(k); err != nil {
			return nil, err
		}
	}

	proj := project.New(root, buildDir)
	if err := proj.AddNinjaRules(plugins.NinjaRules()); err != nil {
		return nil, err
	}

	projPath := proj.InPath(ProjectFileName)
	data, err := os.ReadFile(projPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNoProjectFile, projPath, err)
	}
	pf, err := ParseProjectFile(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", projPath, err)
	}
	proj.AddSourceFile(projPath)

	for _, ed := range pf.Environments {
		e, err := buildNamedEnv(proj, registry, ed)
		if err != nil {
			return nil, fmt.Errorf("environment %q: %w", ed.Name, err)
		}
		if err := proj.DefineEnvironment(ed.Name, e); err != nil {
			return nil, err
		}
	}

	visited := make(map[string]bool)
	worklist := append([]string{}, pf.Packages...)
	for len(worklist) > 0 {
		ident := worklist[0]
		worklist = worklist[1:]

		relpath, err := packageRelPath(ident)
		if err != nil {
			return nil, err
		}
		if visited[relpath] {
			continue
		}
		visited[relpath] = true

		deps, err := loadPackage(proj, plugins, relpath)
		if err != nil {
			return nil, err
		}
		worklist = append(worklist, deps...)
	}

	return proj, nil
}

// buildNamedEnv derives one named environment from its declaration: either
// relative to a previously-declared base, or relative to the ROOT/BUILD
// seed environment if it declares no base.
func buildNamedEnv(proj *project.Project, registry *env.Registry, ed EnvDecl) (*env.Env, error) {
	var base *env.Env
	var err error
	if ed.Base != "" {
		base, err = proj.NamedEnv(ed.Base)
		if err != nil {
			return nil, err
		}
	} else {
		base, err = env.New(registry, map[string]any{
			rootKey.Name:  proj.Root,
			buildKey.Name: proj.BuildDir,
		})
		if err != nil {
			return nil, err
		}
	}
	return base.Derive(env.MapDelta(ed.Contents))
}

// loadPackage reads relpath's package file, constructs every target it
// declares via the matching plugin constructor, and returns the absolute
// identifiers of every dependency those targets name — the next round of
// the worklist in Load.
func loadPackage(proj *project.Project, plugins *plugin.Registry, relpath string) ([]string, error) {
	pkg, err := project.NewPackage(proj, relpath)
	if err != nil {
		return nil, err
	}

	buildPath := proj.InPath(relpath, PackageFileName)
	data, err := os.ReadFile(buildPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNoPackageFile, buildPath, err)
	}
	bf, err := ParsePackageFile(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", buildPath, err)
	}
	proj.AddSourceFile(buildPath)

	var deps []string
	for _, decl := range bf.Targets {
		ctor, ok := plugins.Lookup(decl.Type)
		if !ok {
			return nil, fmt.Errorf("%w: %q (in %s)", ErrUnknownVerb, decl.Type, buildPath)
		}
		t, err := ctor(pkg, decl.Name, decl.Params)
		if err != nil {
			return nil, fmt.Errorf("%s: target %q: %w", buildPath, decl.Name, err)
		}
		if err := pkg.AddTarget(t); err != nil {
			return nil, err
		}
		deps = append(deps, t.Deps()...)
	}
	return deps, nil
}

// packageRelPath extracts a package's relative path from an absolute
// "//path/to/pkg[:name]" identifier, mirroring loader.py's _get_relpath.
func packageRelPath(ident string) (string, error) {
	if !strings.HasPrefix(ident, "//") {
		return "", fmt.Errorf("%w: %q (must start with //)", target.ErrBadIdentifier, ident)
	}
	rest := ident[2:]
	if i := strings.IndexByte(rest, ':'); i >= 0 {
		rest = rest[:i]
	}
	if rest == "" {
		rest = "."
	}
	return rest, nil
}
