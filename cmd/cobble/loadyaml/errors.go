// Package loadyaml is cobble's project loader: it satisfies the "loader
// contract" of spec.md §6 by reading a declarative YAML project file and a
// tree of per-package YAML files, instead of the original Python
// implementation's exec-a-BUILD-file approach
// (_examples/original_source/src/cobble/loader.py). Structurally it follows
// the same worklist algorithm loader.py uses — seed a list of package paths,
// visit each once, grow the list from every target's own dependencies — but
// the thing being interpreted is data, not code.
package loadyaml

import "errors"

// Sentinel errors for the loader. Wrapped with fmt.Errorf("%w: ...") at the
// call site so the offending path/name stays in the message.
var (
	ErrNoProjectFile = errors.New("project file not found")
	ErrNoPackageFile = errors.New("package file not found")
	ErrUnknownVerb   = errors.New("unknown target type")
	ErrBadDecl       = errors.New("malformed declaration")
)
