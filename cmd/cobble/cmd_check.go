package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"cobble/cmd/cobble/target"
)

var checkCmd = &cobra.Command{
	Use:   "check <project-root>",
	Short: "Load a project and evaluate every concrete target without writing build.ninja",
	Long: "Runs the loader and the evaluator over every concrete target, reporting the\n" +
		"first fatal loader or evaluation error without touching build.ninja — useful\n" +
		"in CI or a pre-commit hook where only validation is wanted.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := args[0]
		buildDir, _ := cmd.Flags().GetString("build-dir")
		if buildDir == "" {
			buildDir = filepath.Join(root, "build")
		}

		proj, err := loadProject(root, buildDir)
		if err != nil {
			return err
		}

		concrete := proj.ConcreteTargets()
		for _, t := range concrete {
			if _, _, err := target.Evaluate(t, nil); err != nil {
				return fmt.Errorf("evaluating %s: %w", t.Ident(), err)
			}
		}

		fmt.Fprintf(cmd.OutOrStdout(), "ok: %d concrete target(s) evaluated cleanly\n", len(concrete))
		return nil
	},
}

func init() {
	checkCmd.Flags().String("build-dir", "", "build output directory (default: <project-root>/build)")
}
