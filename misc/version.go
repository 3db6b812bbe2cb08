// Package misc keeps build time information.
package misc

import (
	"os"
	"path/filepath"
	"strings"
)

// Set by the linker: -ldflags "-X pkbuild/misc.version=... -X pkbuild/misc.githash=..."
var (
	version = "dev"
	githash = "unknown"
)

// GetVersion returns program version.
func GetVersion() string {
	return version
}

// GetGitHash returns commit the program was built from.
func GetGitHash() string {
	return githash
}

// GetAppName returns name of the executable without extension.
func GetAppName() string {
	name := filepath.Base(os.Args[0])
	if name == "" || name == "." || strings.HasSuffix(name, ".test") {
		return "pkbuild"
	}
	return strings.TrimSuffix(name, filepath.Ext(name))
}
