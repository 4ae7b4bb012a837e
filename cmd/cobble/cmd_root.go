package main

import (
	"github.com/spf13/cobra"
)

const appName = "cobble"

var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "Generate a Ninja build manifest from a declarative project description",
	Long: appName + " reads a project's environment/target declarations and writes\n" +
		"build.ninja, the Ninja manifest Ninja itself then drives.",
}

func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(checkCmd)
}
