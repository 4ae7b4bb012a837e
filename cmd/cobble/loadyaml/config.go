package loadyaml

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// ProjectFile is the top-level project file's shape (conventionally named
// "cobble.yml", see ProjectFileName): the named environments concrete
// targets may reference, and a seed worklist of package identifiers to
// start loading from. More packages than are listed here typically get
// visited too — transitively, through every target's own Deps, exactly as
// loader.py's packages_to_visit list grows from tgt.deps.
type ProjectFile struct {
	Environments []EnvDecl `yaml:"environments,omitempty"`
	Packages     []string  `yaml:"packages,omitempty"`
}

// EnvDecl is one named-environment declaration: an optional base (another
// previously-declared named environment) plus a literal delta applied on
// top of it. Mirrors loader.py's environment() BUILD.conf function.
type EnvDecl struct {
	Name     string         `yaml:"name"`
	Base     string         `yaml:"base,omitempty"`
	Contents map[string]any `yaml:"contents,omitempty"`
}

// PackageFile is one package directory's target declarations (conventionally
// named "BUILD.yml", see PackageFileName).
type PackageFile struct {
	Targets []TargetDecl
}

// TargetDecl is one target declaration: which plugin constructor builds it
// (Type, e.g. "c_binary"), its bare Name, and every other field in the
// declaration verbatim as Params — the shape plugin.Constructor consumes
// (spec.md §6's "Plugin contract").
type TargetDecl struct {
	Type   string
	Name   string
	Params map[string]any
}

// UnmarshalYAML pulls "type" and "name" out of the declaration's mapping and
// collects every remaining field into Params, mirroring the same
// reserved-keys-vs-rest-becomes-params walk that
// cmd/devshell/dslyaml/dslyaml.go's decodeTypedWith uses for "with" list
// items — except values here keep their native decoded type (string, bool,
// list, nested map) rather than being stringified, since plugin.Constructor
// params are typed (cplugin's stringListParam/deltaParam/stringParam expect
// real Go shapes, not all-strings).
func (t *TargetDecl) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("%w: target declaration must be a mapping, got YAML kind %d", ErrBadDecl, node.Kind)
	}
	params := make(map[string]any)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		val := node.Content[i+1]
		switch key {
		case "type":
			if err := val.Decode(&t.Type); err != nil {
				return fmt.Errorf("type: %w", err)
			}
		case "name":
			if err := val.Decode(&t.Name); err != nil {
				return fmt.Errorf("name: %w", err)
			}
		default:
			var v any
			if err := val.Decode(&v); err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			params[key] = v
		}
	}
	if t.Type == "" {
		return fmt.Errorf("%w: target declaration missing 'type'", ErrBadDecl)
	}
	if t.Name == "" {
		return fmt.Errorf("%w: %s declaration missing 'name'", ErrBadDecl, t.Type)
	}
	t.Params = params
	return nil
}

// ParseProjectFile parses a project file, accepting two equivalent forms —
// the same mapping-vs-shorthand-sequence dispatch dslyaml.Parse uses for DSL
// documents:
//   - Mapping form (typical): a mapping with "environments" and "packages".
//   - Shorthand form: a bare sequence of package identifiers, no
//     environments — useful for tiny projects with no named environments.
func ParseProjectFile(data []byte) (ProjectFile, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return ProjectFile{}, err
	}
	if len(root.Content) == 0 {
		return ProjectFile{}, fmt.Errorf("%w: empty project file", ErrBadDecl)
	}
	doc := root.Content[0]

	switch doc.Kind {
	case yaml.SequenceNode:
		var pkgs []string
		if err := doc.Decode(&pkgs); err != nil {
			return ProjectFile{}, err
		}
		return ProjectFile{Packages: pkgs}, nil

	case yaml.MappingNode:
		var pf ProjectFile
		if err := doc.Decode(&pf); err != nil {
			return ProjectFile{}, err
		}
		return pf, nil

	default:
		return ProjectFile{}, fmt.Errorf("%w: unexpected YAML root kind %d for project file", ErrBadDecl, doc.Kind)
	}
}

// ParsePackageFile parses one package's target declarations, accepting the
// same two forms as ParseProjectFile: a bare sequence of target
// declarations, or a mapping with a "targets" key.
func ParsePackageFile(data []byte) (PackageFile, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return PackageFile{}, err
	}
	if len(root.Content) == 0 {
		// An empty BUILD.yml is unusual but legal: a package that declares
		// no targets of its own (e.g. a directory that exists only to group
		// subpackages).
		return PackageFile{}, nil
	}
	doc := root.Content[0]

	switch doc.Kind {
	case yaml.SequenceNode:
		var targets []TargetDecl
		if err := doc.Decode(&targets); err != nil {
			return PackageFile{}, err
		}
		return PackageFile{Targets: targets}, nil

	case yaml.MappingNode:
		var pf struct {
			Targets []TargetDecl `yaml:"targets"`
		}
		if err := doc.Decode(&pf); err != nil {
			return PackageFile{}, err
		}
		return PackageFile{Targets: pf.Targets}, nil

	default:
		return PackageFile{}, fmt.Errorf("%w: unexpected YAML root kind %d for package file", ErrBadDecl, doc.Kind)
	}
}
