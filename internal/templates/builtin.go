package templates

import (
	"embed"
	"io/fs"
)

//go:embed builtin
var builtinFS embed.FS

// BuiltinFS returns the template tree bundled with nbtemplates, rooted so
// that its subdirectories become catalog groups.
func BuiltinFS() fs.FS {
	sub, err := fs.Sub(builtinFS, "builtin")
	if err != nil {
		// The embedded tree always contains builtin/.
		panic(err)
	}
	return sub
}
