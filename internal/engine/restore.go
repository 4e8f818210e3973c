package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/plugrove/plugrove/internal/gitx"
	"github.com/plugrove/plugrove/internal/lockfile"
	"github.com/plugrove/plugrove/internal/logging"
	"github.com/plugrove/plugrove/internal/manifest"
)

// RestoreEngine reproduces the locked state exactly. The lock store is
// the sole authority: installs it does not mention are removed, and
// every remaining working copy ends up at its recorded commit.
type RestoreEngine struct {
	Git         gitx.Client
	Lock        *lockfile.Store
	InstallRoot string
	Log         *logging.Logger
}

// RestoreAll walks the install root and reconciles every directory
// against the lock store.
func (e *RestoreEngine) RestoreAll(ctx context.Context, opts Options) *RestoreResult {
	res := &RestoreResult{}

	byDir := make(map[string]string, e.Lock.Len())
	for _, id := range e.Lock.Identities() {
		byDir[manifest.DirName(id)] = id
	}

	entries, err := os.ReadDir(e.InstallRoot)
	if os.IsNotExist(err) {
		return res
	}
	if err != nil {
		res.Errors = append(res.Errors, NodeError{Identity: e.InstallRoot, Op: "restore", Err: err})
		return res
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		identity, locked := byDir[name]
		if !locked {
			res.Deleted = append(res.Deleted, name)
			if opts.DryRun {
				continue
			}
			if err := removeUnder(e.InstallRoot, name); err != nil {
				e.Log.Errorf("removing %s: %v", name, err)
				res.Errors = append(res.Errors, NodeError{Identity: name, Op: "remove", Err: err})
			} else {
				e.Log.Printf("removed %s: not present in lock store", name)
			}
			continue
		}

		e.restoreOne(ctx, identity, filepath.Join(e.InstallRoot, name), opts, res)
	}
	return res
}

func (e *RestoreEngine) restoreOne(ctx context.Context, identity, dir string, opts Options, res *RestoreResult) {
	entry, _ := e.Lock.Get(identity)

	cur, err := e.Git.CurrentRevision(ctx, dir)
	if err != nil {
		e.Log.Errorf("%s: resolving current revision: %v", identity, err)
		res.Errors = append(res.Errors, NodeError{Identity: identity, Op: "restore", Err: err})
		return
	}
	if cur == entry.Commit {
		res.Unchanged = append(res.Unchanged, identity)
		return
	}

	if !opts.DryRun {
		if err := e.Git.Checkout(ctx, dir, entry.Commit); err != nil {
			// The locked commit may not be local yet; fetch and retry
			// once before giving up on the node.
			if ferr := e.Git.Fetch(ctx, dir); ferr != nil {
				e.Log.Errorf("%s: fetch: %v", identity, ferr)
				res.Errors = append(res.Errors, NodeError{Identity: identity, Op: "fetch", Err: ferr})
				return
			}
			if err := e.Git.Checkout(ctx, dir, entry.Commit); err != nil {
				e.Log.Errorf("%s: checkout %s: %v", identity, ShortCommit(entry.Commit), err)
				res.Errors = append(res.Errors, NodeError{Identity: identity, Op: "checkout", Err: err})
				return
			}
		}
	}
	res.CheckedOut = append(res.CheckedOut, Change{Identity: identity, From: cur, To: entry.Commit})
}

// removeUnder deletes root/name after checking the joined path cannot
// escape the install root.
func removeUnder(root, name string) error {
	path := filepath.Join(root, name)
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("refusing to remove %s: outside install root %s", path, root)
	}
	return os.RemoveAll(path)
}
