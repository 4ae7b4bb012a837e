package cplugin

import (
	"testing"

	"cobble/cmd/cobble/env"
	"cobble/cmd/cobble/plugin"
	"cobble/cmd/cobble/project"
	"cobble/cmd/cobble/target"
)

func setup(t *testing.T) (*env.Registry, *project.Project) {
	t.Helper()
	r := env.NewRegistry()
	if err := target.DefineReservedKeys(r); err != nil {
		t.Fatalf("reserved keys: %v", err)
	}
	pr := plugin.NewRegistry()
	Register(pr)
	for _, k := range pr.Keys() {
		if err := r.Define(k); err != nil {
			t.Fatalf("defining key %s: %v", k.Name, err)
		}
	}

	proj := project.New("/src", "/build")
	if err := proj.AddNinjaRules(pr.NinjaRules()); err != nil {
		t.Fatalf("adding ninja rules: %v", err)
	}

	baseEnv, err := env.New(r, map[string]any{
		"cc":  "gcc",
		"cxx": "g++",
		"ar":  "ar",
	})
	if err != nil {
		t.Fatalf("building base env: %v", err)
	}
	if err := proj.DefineEnvironment("host", baseEnv); err != nil {
		t.Fatalf("defining named env: %v", err)
	}
	return r, proj
}

func TestCLibrary_ArchivedAndConsumedByBinary(t *testing.T) {
	r, proj := setup(t)

	pkg, err := project.NewPackage(proj, ".")
	if err != nil {
		t.Fatal(err)
	}

	lib, err := CLibrary(pkg, "mylib", map[string]any{
		"sources": []string{"a.c", "b.c"},
		"local": map[string]any{
			"c_library_archive_products": true,
		},
	})
	if err != nil {
		t.Fatalf("building c_library: %v", err)
	}
	if err := pkg.AddTarget(lib); err != nil {
		t.Fatal(err)
	}

	bin, err := CBinary(pkg, "myprog", map[string]any{
		"sources": []string{"main.c"},
		"deps":    []string{":mylib"},
		"env":     "host",
	})
	if err != nil {
		t.Fatalf("building c_binary: %v", err)
	}
	if err := pkg.AddTarget(bin); err != nil {
		t.Fatal(err)
	}

	rootEnv, err := env.New(r, nil)
	if err != nil {
		t.Fatal(err)
	}

	_, products, err := target.Evaluate(bin, rootEnv)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}

	var sawArchive, sawLink, sawCompile bool
	for _, ps := range products {
		for _, p := range ps {
			switch p.Rule {
			case "archive_c_library":
				sawArchive = true
			case "link_c_program":
				sawLink = true
				if len(p.Outputs) != 1 {
					t.Fatalf("expected exactly one linked output, got %v", p.Outputs)
				}
			case "compile_c_obj":
				sawCompile = true
			}
		}
	}
	if !sawArchive {
		t.Fatalf("expected an archive_c_library product somewhere in the graph")
	}
	if !sawLink {
		t.Fatalf("expected a link_c_program product")
	}
	if !sawCompile {
		t.Fatalf("expected compile_c_obj products for the .c sources")
	}
}

// TestTwoBinariesShareOneLibraryUnderDifferentEnvs covers a c_library with
// two c_binary dependents, evaluated in two distinct named environments: the
// shared library's object file must get a different output path in each
// environment, so the two builds never alias on disk.
func TestTwoBinariesShareOneLibraryUnderDifferentEnvs(t *testing.T) {
	r, proj := setup(t)

	releaseEnv, err := env.New(r, map[string]any{"cc": "clang", "cxx": "clang++", "ar": "llvm-ar"})
	if err != nil {
		t.Fatal(err)
	}
	if err := proj.DefineEnvironment("release", releaseEnv); err != nil {
		t.Fatal(err)
	}

	pkg, err := project.NewPackage(proj, "shared")
	if err != nil {
		t.Fatal(err)
	}

	lib, err := CLibrary(pkg, "common", map[string]any{"sources": []string{"common.c"}})
	if err != nil {
		t.Fatal(err)
	}
	if err := pkg.AddTarget(lib); err != nil {
		t.Fatal(err)
	}

	hostBin, err := CBinary(pkg, "host_prog", map[string]any{
		"sources": []string{"main.c"},
		"deps":    []string{":common"},
		"env":     "host",
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := pkg.AddTarget(hostBin); err != nil {
		t.Fatal(err)
	}

	releaseBin, err := CBinary(pkg, "release_prog", map[string]any{
		"sources": []string{"main.c"},
		"deps":    []string{":common"},
		"env":     "release",
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := pkg.AddTarget(releaseBin); err != nil {
		t.Fatal(err)
	}

	_, hostProducts, err := target.Evaluate(hostBin, nil)
	if err != nil {
		t.Fatalf("evaluating host_prog: %v", err)
	}
	_, releaseProducts, err := target.Evaluate(releaseBin, nil)
	if err != nil {
		t.Fatalf("evaluating release_prog: %v", err)
	}

	hostObj := compileObjectOutput(t, hostProducts, "common.c")
	releaseObj := compileObjectOutput(t, releaseProducts, "common.c")
	if hostObj == releaseObj {
		t.Fatalf("host and release builds of common.c must not share an output path, both got %s", hostObj)
	}
}

func compileObjectOutput(t *testing.T, productMap map[target.Key][]*target.Product, sourceSuffix string) string {
	t.Helper()
	for _, ps := range productMap {
		for _, p := range ps {
			if p.Rule == "compile_c_obj" && len(p.Inputs) == 1 && len(p.Outputs) == 1 {
				if strSuffix(p.Inputs[0], sourceSuffix) {
					return p.Outputs[0]
				}
			}
		}
	}
	t.Fatalf("no compile_c_obj product found compiling a source ending in %q", sourceSuffix)
	return ""
}

func strSuffix(s, suffix string) bool {
	return len(s) >= len(suffix) && s[len(s)-len(suffix):] == suffix
}

// TestCBinary_SymlinkPathAndSingleEnvShape covers end-to-end scenario 6: a
// single target in a single environment must produce exactly one compile
// product plus one link product, and the link product must expose its
// stable "latest/" symlink path.
func TestCBinary_SymlinkPathAndSingleEnvShape(t *testing.T) {
	_, proj := setup(t)

	pkg, err := project.NewPackage(proj, "prog")
	if err != nil {
		t.Fatal(err)
	}

	bin, err := CBinary(pkg, "solo", map[string]any{
		"sources": []string{"main.c"},
		"env":     "host",
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := pkg.AddTarget(bin); err != nil {
		t.Fatal(err)
	}

	_, products, err := target.Evaluate(bin, nil)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}

	var compileCount, linkCount int
	var linkProduct *target.Product
	for _, ps := range products {
		for _, p := range ps {
			switch p.Rule {
			case "compile_c_obj":
				compileCount++
			case "link_c_program":
				linkCount++
				linkProduct = p
			}
		}
	}
	if compileCount != 1 {
		t.Fatalf("expected exactly one compile product, got %d", compileCount)
	}
	if linkCount != 1 {
		t.Fatalf("expected exactly one link product, got %d", linkCount)
	}
	if linkProduct.SymlinkAs != pkg.LinkPath("solo") {
		t.Fatalf("expected link product's symlink path to be %s, got %s", pkg.LinkPath("solo"), linkProduct.SymlinkAs)
	}
}
