// Command cobble reads a declarative project description and emits a Ninja
// build manifest (spec.md §6 "CLI surface"). Grounded on cmd/devshell's
// cobra command tree (cmd_root.go, cmd_init.go) and pkg/lib/exit.go's
// non-zero-exit-on-error convention.
package main

import (
	"cobble/pkg/lib"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		lib.Exit(err)
	}
}
