package templates

import (
	"os"
	"path/filepath"
	"strings"
)

// coreSubdir is the directory name scanned inside each standard data path.
const coreSubdir = "notebook_templates"

// CorePaths returns the per-installation standard template directories in
// precedence order: entries from $NBTEMPLATES_PATH, then the user data
// directory, then system-wide data directories. Callers append these to the
// configured roots; directories that don't exist are skipped by the walk.
func CorePaths() []string {
	paths := make([]string, 0, 4)

	if env := os.Getenv("NBTEMPLATES_PATH"); env != "" {
		for _, p := range strings.Split(env, string(os.PathListSeparator)) {
			if p != "" {
				paths = append(paths, filepath.Join(p, coreSubdir))
			}
		}
	}

	if data := userDataDir(); data != "" {
		paths = append(paths, filepath.Join(data, "nbtemplates", coreSubdir))
	}

	paths = append(paths,
		filepath.Join(string(filepath.Separator), "usr", "local", "share", "nbtemplates", coreSubdir),
		filepath.Join(string(filepath.Separator), "usr", "share", "nbtemplates", coreSubdir),
	)

	return paths
}

func userDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return xdg
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ""
	}
	return filepath.Join(home, ".local", "share")
}
