// Package cplugin implements cobble's reference C/C++ target family
// (c_binary, c_library) and the copy_file utility target, grounded on
// _examples/original_source/src/cobble/target/c.py and
// _examples/original_source/src/cobble/target/copy_file.py.
package cplugin

import (
	"cobble/cmd/cobble/env"
	"cobble/cmd/cobble/frozen"
	"cobble/cmd/cobble/project"
	"cobble/cmd/cobble/target"
)

var (
	// DepsIncludeSystem's readout is the compiler flag that toggles whether
	// generated dependency information covers system headers, not the bare
	// str(bool) the identity readout would otherwise produce (grounded on
	// original_source/src/cobble/target/c.py's DEPS_INCLUDE_SYSTEM readout
	// lambda: '-MMD' if x else '-MD').
	DepsIncludeSystem = env.OverrideableBool("c_deps_include_system", boolPtr(false), depsIncludeSystemReadout)
	LinkSrcs          = env.PrependingStringSeq("c_link_srcs")
	LinkFlags         = env.AppendingStringSeq("c_link_flags", env.JoinReadout)
	CC                = env.OverrideableString("cc", nil)
	CXX               = env.OverrideableString("cxx", nil)
	ASPP              = env.OverrideableString("aspp", nil)
	AR                = env.OverrideableString("ar", nil)
	CFlags            = env.AppendingStringSeq("c_flags", env.JoinReadout)
	CXXFlags          = env.AppendingStringSeq("cxx_flags", env.JoinReadout)
	ASPPFlags         = env.AppendingStringSeq("aspp_flags", env.JoinReadout)
	ArchiveProducts   = env.OverrideableBool("c_library_archive_products", boolPtr(false), nil)
	WholeArchive      = env.OverrideableBool("c_library_whole_archive", boolPtr(false), nil)
)

func boolPtr(b bool) *bool { return &b }

func depsIncludeSystemReadout(v frozen.Value) any {
	if v.BoolVal() {
		return "-MMD"
	}
	return "-MD"
}

// Keys lists every environment key this plugin package defines, for a
// loader to register in one pass.
func Keys() []*env.Key {
	return []*env.Key{
		DepsIncludeSystem, LinkSrcs, LinkFlags, CC, CXX, ASPP, AR,
		CFlags, CXXFlags, ASPPFlags, ArchiveProducts, WholeArchive,
	}
}

var (
	commonKeys  = []string{target.Implicit.Name, target.OrderOnly.Name}
	compileKeys = append(append([]string{}, commonKeys...), DepsIncludeSystem.Name)
	linkKeys    = append(append([]string{}, commonKeys...), CXX.Name, LinkSrcs.Name, LinkFlags.Name)
	archiveKeys = append(append([]string{}, commonKeys...), AR.Name)
)

// NinjaRules returns the Ninja rule bodies this plugin package requires:
// compiling each of the three source-file families it recognizes, linking a
// program, and archiving a static library. depfile/deps=gcc let Ninja pick
// up compiler-generated dependency information, mirroring the C rules in
// the original Python implementation's target/c.py almost verbatim.
func NinjaRules() map[string]project.NinjaRule {
	return map[string]project.NinjaRule{
		"compile_c_obj": {
			"command":     "$cc $c_deps_include_system -MF $depfile $c_flags -c -o $out $in",
			"description": "C $in",
			"depfile":     "$out.d",
			"deps":        "gcc",
		},
		"compile_cxx_obj": {
			"command":     "$cxx $c_deps_include_system -MF $depfile $cxx_flags -c -o $out $in",
			"description": "CXX $in",
			"depfile":     "$out.d",
			"deps":        "gcc",
		},
		"assemble_obj_pp": {
			"command":     "$aspp $c_deps_include_system -MF $depfile $aspp_flags -c -o $out $in",
			"description": "AS+CPP $in",
			"depfile":     "$out.d",
			"deps":        "gcc",
		},
		"link_c_program": {
			"command":     "$cxx $c_link_flags -o $out $in $c_link_srcs",
			"description": "LINK $out",
		},
		"archive_c_library": {
			"command":     "$ar rcs $out $in",
			"description": "AR $out",
		},
	}
}
