package engine

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/plugrove/plugrove/internal/gitx"
	"github.com/plugrove/plugrove/internal/lockfile"
	"github.com/plugrove/plugrove/internal/logging"
	"github.com/plugrove/plugrove/internal/manifest"
	"github.com/plugrove/plugrove/internal/registry"
)

// remoteProbes bounds how many remotes are queried at once during
// update collection. The probes are read-only and touch no shared node
// state, so they are the one place the engine runs concurrently.
const remoteProbes = 4

// UpdateEngine finds branch-tracked plugins whose locked commit has
// drifted behind the remote branch head.
type UpdateEngine struct {
	Git         gitx.Client
	Registry    *registry.Registry
	Lock        *lockfile.Store
	InstallRoot string
	Log         *logging.Logger
}

// Collect fetches every eligible remote and reports drift. Plugins
// pinned to an exact commit or a tag are not subject to drift-based
// updates, and neither are plugins with no install or no lock entry.
func (e *UpdateEngine) Collect(ctx context.Context) *CollectResult {
	res := &CollectResult{}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(remoteProbes)

	for _, id := range e.Registry.Identities() {
		spec, ok := e.Registry.Lookup(id)
		if !ok || spec.Branch == "" || spec.Commit != "" || spec.Tag != "" {
			continue
		}
		locked, ok := e.Lock.Get(id)
		if !ok {
			continue
		}
		dir := filepath.Join(e.InstallRoot, manifest.DirName(id))
		if _, err := os.Stat(dir); err != nil {
			continue
		}

		g.Go(func() error {
			info, err := e.probe(gctx, spec, dir, locked)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				e.Log.Errorf("%s: collecting updates: %v", spec.Identity, err)
				res.Errors = append(res.Errors, NodeError{Identity: spec.Identity, Op: "fetch", Err: err})
				return nil
			}
			if info != nil {
				res.Updates = append(res.Updates, *info)
			}
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(res.Updates, func(i, j int) bool {
		return res.Updates[i].Identity < res.Updates[j].Identity
	})
	sort.Slice(res.Errors, func(i, j int) bool {
		return res.Errors[i].Identity < res.Errors[j].Identity
	})
	return res
}

func (e *UpdateEngine) probe(ctx context.Context, spec *registry.Spec, dir string, locked lockfile.Entry) (*UpdateInfo, error) {
	if err := e.Git.Fetch(ctx, dir); err != nil {
		return nil, err
	}
	head, err := e.Git.RemoteRevision(ctx, dir, spec.Branch)
	if err != nil {
		return nil, err
	}
	if head == locked.Commit {
		return nil, nil
	}

	info := &UpdateInfo{
		Identity:  spec.Identity,
		Branch:    spec.Branch,
		OldCommit: locked.Commit,
		NewCommit: head,
	}
	// Log and tag are advisory; failure to summarize must not hide the
	// update itself.
	if lines, err := e.Git.LogRange(ctx, dir, locked.Commit, head); err == nil {
		info.Log = lines
	}
	if tag, err := e.Git.NearestTag(ctx, dir, head); err == nil {
		info.Tag = tag
	}
	return info, nil
}

// Apply writes the approved updates into the lock store. The caller
// persists the store and runs a restore to make working copies match.
func (e *UpdateEngine) Apply(approved []UpdateInfo) {
	for _, u := range approved {
		e.Lock.Set(u.Identity, lockfile.Entry{Branch: u.Branch, Commit: u.NewCommit})
	}
}
