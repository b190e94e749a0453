// Package filesystem locates pdqa's per-user files.
package filesystem

import (
	"os"
	"path/filepath"
	"strings"
)

// AppDirName is the directory under $HOME holding config and history.
const AppDirName = ".pdqa"

// UserHomeDir returns the current user's home directory, or "." when it
// cannot be determined.
func UserHomeDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	return "."
}

// AppPath joins elem onto ~/.pdqa.
func AppPath(elem ...string) string {
	return filepath.Join(append([]string{UserHomeDir(), AppDirName}, elem...)...)
}

// ExpandHome resolves a leading "~/" and cleans relative paths.
func ExpandHome(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if path == "~" {
		return UserHomeDir()
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(UserHomeDir(), path[2:])
	}
	return filepath.Clean(path)
}
