package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/plugrove/plugrove/internal/lockfile"
	"github.com/plugrove/plugrove/internal/logging"
	"github.com/plugrove/plugrove/internal/manifest"
	"github.com/plugrove/plugrove/internal/paths"
	"github.com/plugrove/plugrove/internal/registry"
)

// resolvedDataRoot applies the XDG default when --root is not given.
func resolvedDataRoot() string {
	if dataRoot != "" {
		return dataRoot
	}
	return paths.DefaultDataRoot()
}

// resolvedLockfilePath places the lockfile under the data root unless
// --lockfile points elsewhere.
func resolvedLockfilePath() string {
	if lockfilePath != "" {
		return lockfilePath
	}
	return filepath.Join(resolvedDataRoot(), "plugrove.lock")
}

func installRoot() string {
	return paths.InstallRoot(resolvedDataRoot())
}

// newLogger opens the run log under the data root.
func newLogger() *logging.Logger {
	log, err := logging.New(resolvedDataRoot())
	if err != nil {
		errorf("opening log: %v", err)
		return logging.Discard()
	}
	return log
}

// loadRegistry reads every manifest in the manifest dir and builds the
// canonical plugin graph.
func loadRegistry() (*registry.Registry, error) {
	decls, err := manifest.LoadDir(manifestDir)
	if err != nil {
		return nil, err
	}
	return registry.Build(decls)
}

// loadLock is fail-open: a malformed lockfile yields an empty store so
// a damaged lock never blocks a run. The warning still surfaces.
func loadLock() *lockfile.Store {
	store, err := lockfile.Load(resolvedLockfilePath())
	if err != nil {
		errorf("lockfile %s unreadable, starting empty: %v", resolvedLockfilePath(), err)
	}
	return store
}

// saveLock persists the store when anything changed.
func saveLock(store *lockfile.Store) error {
	if !store.Changed() {
		return nil
	}
	path := resolvedLockfilePath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("saving lockfile: %w", err)
	}
	return store.Save(path)
}

// info prints a line unless quiet mode is active.
func info(format string, args ...any) {
	if !quiet {
		fmt.Printf(format+"\n", args...)
	}
}

// detail prints a line only in verbose mode.
func detail(format string, args ...any) {
	if verbose {
		fmt.Printf("  "+format+"\n", args...)
	}
}

// errorf prints an error message to stderr.
func errorf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
}
