package manifest

import (
	"strings"

	"otapush/internal/config"
)

// NormalizeEntryName rewrites every path separator to forward slash.
// Archives written by legacy Windows tooling carry backslash entry names;
// manifest keys must not depend on the host platform, so normalization
// cannot be left to the OS-specific separator.
func NormalizeEntryName(name string) string {
	return strings.ReplaceAll(name, `\`, "/")
}

// Ignored reports whether a normalized relative path is platform trash that
// must never enter a manifest or a diff archive. The signing-metadata file
// is deliberately NOT ignored here; it is only excluded from the package
// hash computation.
func Ignored(relPath string) bool {
	p := NormalizeEntryName(relPath)

	for _, prefix := range config.TrashDirPrefixes {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	for _, name := range config.TrashFileNames {
		if p == name || strings.HasSuffix(p, "/"+name) {
			return true
		}
	}
	return false
}
