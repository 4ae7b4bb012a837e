package cplugin

import (
	"cobble/cmd/cobble/env"
	"cobble/cmd/cobble/project"
	"cobble/cmd/cobble/target"
)

// CopyFile implements the copy_file target type: copy one file, as-is, to a
// new name within the current package's output directory. Grounded on
// _examples/original_source/src/cobble/target/copy_file.py, whose author's
// own comment calls it "a test for the make simple things simple goal" —
// one source, one destination, no compilation.
func CopyFile(pkg *project.Package, name string, params map[string]any) (*target.Target, error) {
	source, err := stringParam(params, "source")
	if err != nil {
		return nil, err
	}
	dest, _ := params["dest"].(string)
	if dest == "" {
		dest = name
	}
	local, err := deltaParam(params, "local")
	if err != nil {
		return nil, err
	}

	mkusing := func(ctx *target.UsingContext) (env.Delta, []*target.Product, error) {
		eSource, err := ctx.Env.RewriteString(source)
		if err != nil {
			return nil, nil, err
		}
		eDest, err := ctx.Env.RewriteString(dest)
		if err != nil {
			return nil, nil, err
		}

		outPath := pkg.OutPath(ctx.Env, eDest)
		product, err := target.NewProduct(ctx.Env, []string{outPath}, "copy_file", target.ProductOptions{
			Inputs: []string{pkg.InPath(eSource)},
		})
		if err != nil {
			return nil, nil, err
		}
		if err := product.Expose(outPath, name); err != nil {
			return nil, nil, err
		}

		return nil, []*target.Product{product}, nil
	}

	return target.New(pkg, name, target.Options{
		Local:            local,
		UsingAndProducts: mkusing,
	})
}

// CopyFileNinjaRule is copy_file's sole Ninja rule.
func CopyFileNinjaRule() map[string]project.NinjaRule {
	return map[string]project.NinjaRule{
		"copy_file": {
			"command":     "cp $in $out",
			"description": "CP $out",
		},
	}
}
