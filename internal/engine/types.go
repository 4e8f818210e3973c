// Package engine implements the resolution core: installing declared
// plugins dependency-first, reconciling working copies to their pins,
// restoring the locked state, and collecting branch updates.
package engine

import "fmt"

// Options configures an engine operation.
type Options struct {
	DryRun bool
}

// NodeError is a failure scoped to a single plugin. Sibling subtrees
// keep going; the node is retried on the next invocation.
type NodeError struct {
	Identity string
	Op       string
	Err      error
}

func (e NodeError) Error() string {
	return fmt.Sprintf("%s: %s failed: %s", e.Identity, e.Op, e.Err)
}

func (e NodeError) Unwrap() error {
	return e.Err
}

// CycleError reports a dependency edge that re-entered an identity still
// being processed. The node is treated as satisfied; the cycle is
// surfaced so the manifest author can break it.
type CycleError struct {
	Identity string
}

func (e CycleError) Error() string {
	return fmt.Sprintf("dependency cycle through %s — the edge was ignored, break the cycle in the manifests", e.Identity)
}

// Change records a working copy moving from one commit to another.
type Change struct {
	Identity string
	From     string
	To       string
}

// InstallResult holds the outcome of an install pass.
type InstallResult struct {
	Installed []string // freshly cloned (or would be, under dry-run)
	Present   []string // already installed and intact
	Cycles    []CycleError
	Errors    []NodeError
}

// SyncResult holds the outcome of a sync pass.
type SyncResult struct {
	Updated   []Change
	Unchanged []string
	Removed   []string // lock entries dropped for undeclared identities
	Errors    []NodeError
}

// RestoreResult holds the outcome of a restore pass.
type RestoreResult struct {
	CheckedOut []Change
	Unchanged  []string
	Deleted    []string // install directories absent from the lock store
	Errors     []NodeError
}

// UpdateInfo summarizes available drift for one branch-tracked plugin.
type UpdateInfo struct {
	Identity  string
	Branch    string
	OldCommit string
	NewCommit string
	Tag       string   // nearest tag reachable from NewCommit, if any
	Log       []string // oneline log for OldCommit..NewCommit
}

// CollectResult holds the outcome of an update collection pass.
type CollectResult struct {
	Updates []UpdateInfo
	Errors  []NodeError
}

// ShortCommit abbreviates a commit hash for display.
func ShortCommit(c string) string {
	if len(c) > 8 {
		return c[:8]
	}
	return c
}
