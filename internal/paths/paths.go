// Package paths resolves the directories plugrove owns on disk.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// DefaultDataRoot returns the default data root.
// Uses XDG_DATA_HOME if set, otherwise ~/.local/share/plugrove.
func DefaultDataRoot() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "plugrove")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		if runtime.GOOS == "windows" {
			return filepath.Join(os.TempDir(), "plugrove")
		}
		return filepath.Join("/tmp", "plugrove")
	}
	return filepath.Join(home, ".local", "share", "plugrove")
}

// InstallRoot returns the directory that holds one working copy per
// installed plugin.
func InstallRoot(dataRoot string) string {
	return filepath.Join(dataRoot, "plugins")
}
