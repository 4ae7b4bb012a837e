package loadyaml

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cobble/cmd/cobble/cplugin"
	"cobble/cmd/cobble/env"
	"cobble/cmd/cobble/plugin"
	"cobble/cmd/cobble/target"
)

func requireParseProjectOK(t *testing.T, yml string) ProjectFile {
	t.Helper()
	pf, err := ParseProjectFile([]byte(yml))
	if err != nil {
		t.Fatalf("expected success, got: %v", err)
	}
	return pf
}

func TestParseProjectFile_MappingForm(t *testing.T) {
	pf := requireParseProjectOK(t, `
environments:
  - name: host
    contents:
      cc: gcc
  - name: embedded
    base: host
    contents:
      c_flags: ["-mcpu=cortex-m4"]
packages:
  - //app
  - //lib/foo
`)
	if len(pf.Environments) != 2 {
		t.Fatalf("want 2 environments, got %d", len(pf.Environments))
	}
	if pf.Environments[1].Base != "host" {
		t.Errorf("want embedded's base to be host, got %q", pf.Environments[1].Base)
	}
	if len(pf.Packages) != 2 || pf.Packages[0] != "//app" {
		t.Errorf("unexpected packages: %v", pf.Packages)
	}
}

func TestParseProjectFile_ShorthandForm(t *testing.T) {
	pf := requireParseProjectOK(t, `
- //app
- //lib/foo
`)
	if len(pf.Environments) != 0 {
		t.Errorf("shorthand form should have no environments, got %v", pf.Environments)
	}
	if len(pf.Packages) != 2 {
		t.Fatalf("want 2 packages, got %d", len(pf.Packages))
	}
}

func TestParsePackageFile_TargetDeclSplitsReservedFromParams(t *testing.T) {
	bf, err := ParsePackageFile([]byte(`
targets:
  - type: c_library
    name: mylib
    sources: [a.c, b.c]
    local:
      c_flags: ["-Wall"]
  - type: copy_file
    name: readme
    source: README.md
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(bf.Targets) != 2 {
		t.Fatalf("want 2 targets, got %d", len(bf.Targets))
	}

	lib := bf.Targets[0]
	if lib.Type != "c_library" || lib.Name != "mylib" {
		t.Fatalf("unexpected decl: %+v", lib)
	}
	if _, has := lib.Params["type"]; has {
		t.Errorf("Params should not carry the reserved 'type' field")
	}
	if _, has := lib.Params["name"]; has {
		t.Errorf("Params should not carry the reserved 'name' field")
	}
	sources, ok := lib.Params["sources"].([]any)
	if !ok || len(sources) != 2 {
		t.Errorf("expected sources param to survive as a 2-element list, got %#v", lib.Params["sources"])
	}
}

func TestParsePackageFile_MissingTypeIsFatal(t *testing.T) {
	_, err := ParsePackageFile([]byte(`
targets:
  - name: mylib
    sources: [a.c]
`))
	if err == nil {
		t.Fatal("expected an error for a declaration missing 'type'")
	}
}

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
}

// TestLoad_EndToEnd builds a tiny on-disk project — one named environment, a
// library package, and a binary package depending on it — and checks that
// Load discovers the library package purely by following the binary
// target's dependency identifier (only "//app" is seeded in the project
// file) and that the resulting project evaluates end to end.
func TestLoad_EndToEnd(t *testing.T) {
	root := t.TempDir()
	build := filepath.Join(root, "_build")

	writeFile(t, filepath.Join(root, ProjectFileName), `
environments:
  - name: host
    contents:
      cc: gcc
      cxx: g++
      ar: ar
packages:
  - //app
`)
	writeFile(t, filepath.Join(root, "lib", PackageFileName), `
targets:
  - type: c_library
    name: mylib
    sources: [a.c]
`)
	writeFile(t, filepath.Join(root, "app", PackageFileName), `
targets:
  - type: c_binary
    name: myprog
    env: host
    sources: [main.c]
    deps: ["//lib:mylib"]
`)

	plugins := plugin.NewRegistry()
	cplugin.Register(plugins)

	proj, err := Load(root, build, plugins)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	bin, err := proj.FindTarget("//app:myprog")
	if err != nil {
		t.Fatalf("FindTarget //app:myprog: %v", err)
	}

	rootEnv, err := proj.NamedEnv("host")
	if err != nil {
		t.Fatalf("NamedEnv host: %v", err)
	}

	// c_binary's DownFunc ignores its incoming environment (it resolves its
	// own named environment by name), so any Env built against the same
	// registry works as Evaluate's root argument.
	e, err := env.New(rootEnv.Registry(), nil)
	if err != nil {
		t.Fatal(err)
	}
	_, products, err := target.Evaluate(bin, e)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}

	var sawCompile, sawLink bool
	for _, ps := range products {
		for _, p := range ps {
			if p.Rule == "compile_c_obj" {
				sawCompile = true
			}
			if p.Rule == "link_c_program" {
				sawLink = true
			}
		}
	}
	if !sawCompile || !sawLink {
		t.Fatalf("expected both compile and link products, got: %v", products)
	}

	if _, err := proj.FindTarget("//lib:mylib"); err != nil {
		t.Errorf("lib package should have been discovered transitively: %v", err)
	}
}

func TestLoad_MissingProjectFile(t *testing.T) {
	plugins := plugin.NewRegistry()
	cplugin.Register(plugins)

	_, err := Load(t.TempDir(), "build", plugins)
	if err == nil || !strings.Contains(err.Error(), "project file not found") {
		t.Fatalf("expected a project-file-not-found error, got: %v", err)
	}
}
