package cplugin

import (
	"fmt"
	"path/filepath"

	"cobble/cmd/cobble/env"
	"cobble/cmd/cobble/project"
	"cobble/cmd/cobble/target"
)

var fileTypeRules = map[string]struct {
	rule string
	keys []string
}{
	".c":   {"compile_c_obj", []string{CC.Name, CFlags.Name}},
	".cc":  {"compile_cxx_obj", []string{CXX.Name, CXXFlags.Name}},
	".cpp": {"compile_cxx_obj", []string{CXX.Name, CXXFlags.Name}},
	".S":   {"assemble_obj_pp", []string{ASPP.Name, ASPPFlags.Name}},
}

// compileObject is the common factor of every target type that compiles C
// family source code: one source file in, one Product (a ".o" file) out,
// picking the compile rule from the source's extension.
func compileObject(pkg *project.Package, source string, e *env.Env) (*target.Product, error) {
	ext := filepath.Ext(source)
	ft, ok := fileTypeRules[ext]
	if !ok {
		return nil, fmt.Errorf("don't know how to compile a source file with extension %q", ext)
	}

	keys := append(append([]string{}, compileKeys...), ft.keys...)
	oEnv, err := e.SubsetRequire(keys)
	if err != nil {
		return nil, fmt.Errorf("compiling %s: %w", source, err)
	}

	return target.NewProduct(
		oEnv,
		[]string{pkg.OutPath(oEnv, source+".o")},
		ft.rule,
		target.ProductOptions{Inputs: []string{pkg.InPath(source)}},
	)
}

// CBinary implements the c_binary target type: a linked, executable program
// built from the target's own sources plus whatever its c_library
// dependencies contribute via LinkSrcs/Implicit.
func CBinary(pkg *project.Package, name string, params map[string]any) (*target.Target, error) {
	deps, err := stringListParam(params, "deps")
	if err != nil {
		return nil, err
	}
	sources, err := stringListParam(params, "sources")
	if err != nil {
		return nil, err
	}
	local, err := deltaParam(params, "local")
	if err != nil {
		return nil, err
	}
	extra, err := deltaParam(params, "extra")
	if err != nil {
		return nil, err
	}
	envName, err := stringParam(params, "env")
	if err != nil {
		return nil, err
	}

	mkusing := func(ctx *target.UsingContext) (env.Delta, []*target.Product, error) {
		sourcesI, err := ctx.RewriteSources(sources)
		if err != nil {
			return nil, nil, err
		}
		_ = sourcesI // interpolated paths aren't separately needed; compileObject re-derives its own input path

		objects := make([]*target.Product, 0, len(sources))
		var objFiles []string
		for _, s := range sources {
			obj, err := compileObject(pkg, s, ctx.Env)
			if err != nil {
				return nil, nil, err
			}
			objects = append(objects, obj)
			objFiles = append(objFiles, obj.Outputs...)
		}

		programEnv, err := ctx.Env.SubsetRequire(linkKeys)
		if err != nil {
			return nil, nil, err
		}
		programEnv, err = programEnv.Derive(env.MapDelta{
			LinkSrcs.Name:        objFiles,
			target.Implicit.Name: objFiles,
		})
		if err != nil {
			return nil, nil, err
		}

		programPath := pkg.OutPath(programEnv, name)
		symlinkAs := pkg.LinkPath(name)
		program, err := target.NewProduct(programEnv, []string{programPath}, "link_c_program", target.ProductOptions{
			SymlinkAs: symlinkAs,
		})
		if err != nil {
			return nil, nil, err
		}
		if err := program.Expose(programPath, name); err != nil {
			return nil, nil, err
		}

		using := env.MapDelta{target.Implicit.Name: []string{symlinkAs}}
		products := append(objects, program)
		return using, products, nil
	}

	return target.New(pkg, name, target.Options{
		Concrete: true,
		DownFunc: func(_ *env.Env) (*env.Env, error) {
			namedEnv, err := pkg.Project().NamedEnv(envName)
			if err != nil {
				return nil, err
			}
			return namedEnv.Derive(extra)
		},
		Local:            local,
		Deps:             deps,
		UsingAndProducts: mkusing,
	})
}

// CLibrary implements the c_library target type. Depending on
// ArchiveProducts, it either archives its object files into a static
// library or hands them to dependents as a loose bag of ".o" files.
func CLibrary(pkg *project.Package, name string, params map[string]any) (*target.Target, error) {
	deps, err := stringListParam(params, "deps")
	if err != nil {
		return nil, err
	}
	sources, err := stringListParam(params, "sources")
	if err != nil {
		return nil, err
	}
	local, err := deltaParam(params, "local")
	if err != nil {
		return nil, err
	}
	using, err := deltaParam(params, "using")
	if err != nil {
		return nil, err
	}

	mkusing := func(ctx *target.UsingContext) (env.Delta, []*target.Product, error) {
		sourcesI, err := ctx.RewriteSources(sources)
		if err != nil {
			return nil, nil, err
		}
		_ = sourcesI

		objects := make([]*target.Product, 0, len(sources))
		var objFiles []string
		for _, s := range sources {
			obj, err := compileObject(pkg, s, ctx.Env)
			if err != nil {
				return nil, nil, err
			}
			objects = append(objects, obj)
			objFiles = append(objFiles, obj.Outputs...)
		}

		archiveProducts, err := boolValue(ctx.Env, ArchiveProducts.Name)
		if err != nil {
			return nil, nil, err
		}

		var outs, linkSrcs []string
		var library []*target.Product

		if archiveProducts {
			outs = []string{pkg.OutPath(ctx.Env, "lib"+name+".a")}
			arEnv, err := ctx.Env.SubsetRequire(archiveKeys)
			if err != nil {
				return nil, nil, err
			}
			arEnv, err = arEnv.Derive(env.MapDelta{LinkSrcs.Name: objFiles})
			if err != nil {
				return nil, nil, err
			}
			lib, err := target.NewProduct(arEnv, outs, "archive_c_library", target.ProductOptions{Inputs: objFiles})
			if err != nil {
				return nil, nil, err
			}
			library = []*target.Product{lib}

			whole, err := boolValue(ctx.Env, WholeArchive.Name)
			if err != nil {
				return nil, nil, err
			}
			if whole {
				linkSrcs = append([]string{"-Wl,-whole-archive"}, outs...)
				linkSrcs = append(linkSrcs, "-Wl,-no-whole-archive")
			} else {
				linkSrcs = outs
			}
		} else {
			outs = objFiles
			linkSrcs = objFiles
			library = nil
		}

		outUsing := env.SeqDelta{
			using,
			env.MapDelta{
				target.Implicit.Name: outs,
				LinkSrcs.Name:        linkSrcs,
			},
		}
		products := append(objects, library...)
		return outUsing, products, nil
	}

	return target.New(pkg, name, target.Options{
		Local:            local,
		Deps:             deps,
		UsingAndProducts: mkusing,
	})
}

func boolValue(e *env.Env, name string) (bool, error) {
	v, err := e.GetValue(name)
	if err != nil {
		return false, err
	}
	return v.BoolVal(), nil
}
