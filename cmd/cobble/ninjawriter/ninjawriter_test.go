package ninjawriter

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cobble/cmd/cobble/cplugin"
	"cobble/cmd/cobble/env"
	"cobble/cmd/cobble/plugin"
	"cobble/cmd/cobble/project"
	"cobble/cmd/cobble/target"
)

func buildTestProject(t *testing.T) *project.Project {
	t.Helper()
	r := env.NewRegistry()
	if err := target.DefineReservedKeys(r); err != nil {
		t.Fatal(err)
	}
	pr := plugin.NewRegistry()
	cplugin.Register(pr)
	for _, k := range pr.Keys() {
		if err := r.Define(k); err != nil {
			t.Fatal(err)
		}
	}

	proj := project.New("/src", "/build")
	if err := proj.AddNinjaRules(pr.NinjaRules()); err != nil {
		t.Fatal(err)
	}
	proj.AddSourceFile("/src/cobble.yml")
	proj.AddSourceFile("/src/BUILD.yml")

	baseEnv, err := env.New(r, map[string]any{"cc": "gcc", "cxx": "g++", "ar": "ar"})
	if err != nil {
		t.Fatal(err)
	}
	if err := proj.DefineEnvironment("host", baseEnv); err != nil {
		t.Fatal(err)
	}

	pkg, err := project.NewPackage(proj, ".")
	if err != nil {
		t.Fatal(err)
	}
	bin, err := cplugin.CBinary(pkg, "prog", map[string]any{
		"sources": []string{"main.c"},
		"env":     "host",
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := pkg.AddTarget(bin); err != nil {
		t.Fatal(err)
	}

	return proj
}

func TestWriteProject_ProducesWellFormedManifest(t *testing.T) {
	proj := buildTestProject(t)

	dir := t.TempDir()
	ninjaPath := filepath.Join(dir, "build.ninja")
	depsPath := filepath.Join(dir, "build.ninja.deps")

	if err := WriteProject(proj, ninjaPath, depsPath); err != nil {
		t.Fatalf("WriteProject: %v", err)
	}

	manifest, err := os.ReadFile(ninjaPath)
	if err != nil {
		t.Fatalf("reading manifest: %v", err)
	}
	text := string(manifest)

	for _, want := range []string{
		"rule cobble_generate_ninja",
		"build build.ninja: cobble_generate_ninja",
		"rule compile_c_obj",
		"rule link_c_program",
		"rule cobble_symlink_product",
		"---- target //:prog",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("manifest missing %q:\n%s", want, text)
		}
	}

	deps, err := os.ReadFile(depsPath)
	if err != nil {
		t.Fatalf("reading depfile: %v", err)
	}
	depsText := string(deps)
	if !strings.Contains(depsText, "build.ninja: \\") {
		t.Fatalf("depfile missing header: %s", depsText)
	}
	if !strings.Contains(depsText, "/src/cobble.yml") || !strings.Contains(depsText, "/src/BUILD.yml") {
		t.Fatalf("depfile missing declared source files: %s", depsText)
	}
}

func TestWriter_LineWrapsLongCommands(t *testing.T) {
	var sb strings.Builder
	w := NewWriter(&sb)
	w.Rule("long", map[string]string{
		"command": strings.Repeat("word ", 40) + "end",
	})
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}
	out := sb.String()
	if !strings.Contains(out, " $\n") {
		t.Fatalf("expected a wrapped continuation line, got:\n%s", out)
	}
}

func TestWriter_EscapePathSpacesAndColons(t *testing.T) {
	var sb strings.Builder
	w := NewWriter(&sb)
	w.Build([]string{"a dir/out file.o"}, "cc", []string{"src:weird.c"}, nil, nil, nil)
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}
	out := sb.String()
	if !strings.Contains(out, `a$ dir/out$ file.o`) {
		t.Fatalf("expected escaped output path, got:\n%s", out)
	}
	if !strings.Contains(out, `src$:weird.c`) {
		t.Fatalf("expected escaped colon in input path, got:\n%s", out)
	}
}
