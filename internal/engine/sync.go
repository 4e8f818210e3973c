package engine

import (
	"context"
	"os"
	"path/filepath"

	"github.com/plugrove/plugrove/internal/gitx"
	"github.com/plugrove/plugrove/internal/lockfile"
	"github.com/plugrove/plugrove/internal/logging"
	"github.com/plugrove/plugrove/internal/manifest"
	"github.com/plugrove/plugrove/internal/registry"
)

// SyncEngine reconciles every installed working copy to the version its
// pin implies and keeps the lock store authoritative. Sync never
// installs; missing working copies are the install engine's job.
type SyncEngine struct {
	Git         gitx.Client
	Registry    *registry.Registry
	Lock        *lockfile.Store
	InstallRoot string
	Log         *logging.Logger
}

// SyncAll reconciles each registered identity once, then drops lock
// entries for identities no longer declared anywhere.
func (e *SyncEngine) SyncAll(ctx context.Context, opts Options) *SyncResult {
	res := &SyncResult{}
	seen := make(map[string]bool)
	for _, id := range e.Registry.Identities() {
		e.sync(ctx, seen, id, opts, res)
	}

	for _, id := range e.Lock.Identities() {
		if e.Registry.Has(id) {
			continue
		}
		res.Removed = append(res.Removed, id)
		if !opts.DryRun {
			e.Lock.Remove(id)
		}
	}
	return res
}

func (e *SyncEngine) sync(ctx context.Context, seen map[string]bool, identity string, opts Options, res *SyncResult) {
	if seen[identity] {
		return
	}
	seen[identity] = true

	spec, ok := e.Registry.Lookup(identity)
	if !ok {
		return
	}
	dir := filepath.Join(e.InstallRoot, manifest.DirName(identity))
	if _, err := os.Stat(dir); err != nil {
		return
	}

	switch {
	case spec.Commit != "":
		e.syncCommit(ctx, spec, dir, opts, res)
	case spec.Tag != "":
		e.syncTag(ctx, spec, dir, opts, res)
	default:
		e.syncBranch(ctx, spec, dir, opts, res)
	}
}

// syncCommit enforces an exact checkout. Even when nothing moves on
// disk, the lock entry is rewritten so the lock stays authoritative.
func (e *SyncEngine) syncCommit(ctx context.Context, spec *registry.Spec, dir string, opts Options, res *SyncResult) {
	cur, err := e.Git.CurrentRevision(ctx, dir)
	if err != nil {
		e.nodeErr(res, spec.Identity, "sync", err)
		return
	}

	if cur != spec.Commit {
		if !opts.DryRun {
			if err := e.Git.Checkout(ctx, dir, spec.Commit); err != nil {
				e.nodeErr(res, spec.Identity, "checkout", err)
				return
			}
		}
		res.Updated = append(res.Updated, Change{Identity: spec.Identity, From: cur, To: spec.Commit})
	} else {
		res.Unchanged = append(res.Unchanged, spec.Identity)
	}

	if !opts.DryRun {
		e.Lock.Set(spec.Identity, lockfile.Entry{Branch: spec.Branch, Commit: spec.Commit})
	}
}

// syncTag checks out the tag and records whatever commit it resolves to
// now; tags are re-resolved every run since they can move upstream.
func (e *SyncEngine) syncTag(ctx context.Context, spec *registry.Spec, dir string, opts Options, res *SyncResult) {
	cur, err := e.Git.CurrentRevision(ctx, dir)
	if err != nil {
		e.nodeErr(res, spec.Identity, "sync", err)
		return
	}
	if opts.DryRun {
		res.Unchanged = append(res.Unchanged, spec.Identity)
		return
	}

	if err := e.Git.Checkout(ctx, dir, spec.Tag); err != nil {
		e.nodeErr(res, spec.Identity, "checkout", err)
		return
	}
	now, err := e.Git.CurrentRevision(ctx, dir)
	if err != nil {
		e.nodeErr(res, spec.Identity, "sync", err)
		return
	}

	if now != cur {
		res.Updated = append(res.Updated, Change{Identity: spec.Identity, From: cur, To: now})
	} else {
		res.Unchanged = append(res.Unchanged, spec.Identity)
	}
	e.Lock.Set(spec.Identity, lockfile.Entry{Commit: now})
}

// syncBranch tracks a branch head: checkout defends against a detached
// HEAD left by a previous exact-commit pin, then fast-forward from
// upstream, then record the resulting commit.
func (e *SyncEngine) syncBranch(ctx context.Context, spec *registry.Spec, dir string, opts Options, res *SyncResult) {
	cur, err := e.Git.CurrentRevision(ctx, dir)
	if err != nil {
		e.nodeErr(res, spec.Identity, "sync", err)
		return
	}
	if opts.DryRun {
		res.Unchanged = append(res.Unchanged, spec.Identity)
		return
	}

	branch := spec.Branch
	if branch == "" {
		// Bare dependency stub: track whatever branch the clone left
		// checked out.
		branch, _ = e.Git.CurrentBranch(ctx, dir)
	}

	if branch != "" {
		onBranch, _ := e.Git.CurrentBranch(ctx, dir)
		if onBranch != branch {
			if err := e.Git.Checkout(ctx, dir, branch); err != nil {
				e.nodeErr(res, spec.Identity, "checkout", err)
				return
			}
		}
		if err := e.Git.Pull(ctx, dir); err != nil {
			e.nodeErr(res, spec.Identity, "pull", err)
			return
		}
	}

	now, err := e.Git.CurrentRevision(ctx, dir)
	if err != nil {
		e.nodeErr(res, spec.Identity, "sync", err)
		return
	}

	if now != cur {
		res.Updated = append(res.Updated, Change{Identity: spec.Identity, From: cur, To: now})
	} else {
		res.Unchanged = append(res.Unchanged, spec.Identity)
	}
	e.Lock.Set(spec.Identity, lockfile.Entry{Branch: branch, Commit: now})
}

func (e *SyncEngine) nodeErr(res *SyncResult, identity, op string, err error) {
	e.Log.Errorf("%s: %s: %v", identity, op, err)
	res.Errors = append(res.Errors, NodeError{Identity: identity, Op: op, Err: err})
}
