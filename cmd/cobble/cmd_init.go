package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"cobble/cmd/cobble/cplugin"
	"cobble/cmd/cobble/loadyaml"
	"cobble/cmd/cobble/ninjawriter"
	"cobble/cmd/cobble/plugin"
	"cobble/cmd/cobble/project"
)

var initCmd = &cobra.Command{
	Use:   "init <project-root>",
	Short: "Load a project and (re)generate its build.ninja",
	Long: "Runs the loader, then the evaluator over every concrete target, then the\n" +
		"emitter, writing build.ninja and build.ninja.deps at the project root\n" +
		"(spec.md §6: \"./cobble init --reinit <project-root>\").",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reinit, _ := cmd.Flags().GetBool("reinit")
		if !reinit {
			return fmt.Errorf("init currently only supports regeneration: pass --reinit <project-root>")
		}

		root := args[0]
		buildDir, _ := cmd.Flags().GetString("build-dir")
		if buildDir == "" {
			buildDir = filepath.Join(root, "build")
		}

		proj, err := loadProject(root, buildDir)
		if err != nil {
			return err
		}

		ninjaPath := filepath.Join(root, "build.ninja")
		depsPath := filepath.Join(root, "build.ninja.deps")
		if err := ninjawriter.WriteProject(proj, ninjaPath, depsPath); err != nil {
			return fmt.Errorf("writing %s: %w", ninjaPath, err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", ninjaPath)
		return nil
	},
}

func init() {
	initCmd.Flags().Bool("reinit", false, "regenerate build.ninja for an already-initialised project root")
	initCmd.Flags().String("build-dir", "", "build output directory (default: <project-root>/build)")
}

// loadProject wires the compiled-in reference plugin set into the loader,
// the only plugin package this repository ships (spec.md §1: real project
// plugins are a separate, external concern).
func loadProject(root, buildDir string) (*project.Project, error) {
	plugins := plugin.NewRegistry()
	cplugin.Register(plugins)
	return loadyaml.Load(root, buildDir, plugins)
}
