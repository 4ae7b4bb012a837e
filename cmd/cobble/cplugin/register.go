package cplugin

import "cobble/cmd/cobble/plugin"

// Register wires every target type, environment key, and Ninja rule this
// plugin package contributes into r. Called once while a loader is setting
// up a project, before any packages are parsed.
func Register(r *plugin.Registry) {
	r.Register("c_binary", CBinary)
	r.Register("c_library", CLibrary)
	r.Register("copy_file", CopyFile)

	r.AddKeys(Keys()...)

	r.AddNinjaRules(NinjaRules())
	r.AddNinjaRules(CopyFileNinjaRule())
}
