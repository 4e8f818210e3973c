package engine

import (
	"context"
	"os"
	"path/filepath"

	"github.com/plugrove/plugrove/internal/activate"
	"github.com/plugrove/plugrove/internal/gitx"
	"github.com/plugrove/plugrove/internal/lockfile"
	"github.com/plugrove/plugrove/internal/logging"
	"github.com/plugrove/plugrove/internal/manifest"
	"github.com/plugrove/plugrove/internal/registry"
)

// InstallEngine walks the canonical graph depth-first and ensures every
// identity is installed, locked, and registered for activation, with
// dependencies handled before dependents.
type InstallEngine struct {
	Git         gitx.Client
	Registry    *registry.Registry
	Lock        *lockfile.Store
	Activator   *activate.Engine
	InstallRoot string
	Log         *logging.Logger

	// Hooks maps identities to in-process activation hooks registered by
	// library embedders; they take precedence over a declared 'run:'.
	Hooks map[string]activate.Hook
}

// runState is the per-invocation dedup state, created fresh at every
// top-level call and threaded through the traversal explicitly so that
// repeated invocations never share leftover state.
type runState struct {
	done   map[string]bool
	active map[string]bool // currently on the recursion stack
}

func newRunState() *runState {
	return &runState{done: make(map[string]bool), active: make(map[string]bool)}
}

// EnsureAll processes every registered identity. Per-node failures are
// accumulated; siblings and independent subtrees continue.
func (e *InstallEngine) EnsureAll(ctx context.Context, opts Options) *InstallResult {
	st := newRunState()
	res := &InstallResult{}
	for _, id := range e.Registry.Identities() {
		e.ensure(ctx, st, id, opts, res)
	}
	return res
}

func (e *InstallEngine) ensure(ctx context.Context, st *runState, identity string, opts Options, res *InstallResult) {
	if st.done[identity] {
		return
	}
	if st.active[identity] {
		e.Log.Printf("dependency cycle through %s", identity)
		res.Cycles = append(res.Cycles, CycleError{Identity: identity})
		return
	}
	spec, ok := e.Registry.Lookup(identity)
	if !ok {
		return
	}

	st.active[identity] = true
	for _, dep := range spec.Requires {
		e.ensure(ctx, st, dep, opts, res)
	}
	delete(st.active, identity)
	st.done[identity] = true

	dir := filepath.Join(e.InstallRoot, manifest.DirName(identity))
	present, stale := inspectInstall(dir)

	if stale && !opts.DryRun {
		e.Log.Printf("reinstalling %s: stale working copy at %s", identity, dir)
		if err := os.RemoveAll(dir); err != nil {
			e.Log.Errorf("removing stale install %s: %v", dir, err)
			res.Errors = append(res.Errors, NodeError{Identity: identity, Op: "reinstall", Err: err})
			return
		}
		present = false
	}

	if !present {
		if opts.DryRun {
			res.Installed = append(res.Installed, identity)
			return
		}
		cloneOpts := gitx.CloneOptions{Branch: spec.Branch, Tag: spec.Tag, Commit: spec.Commit}
		if err := e.Git.Clone(ctx, identity, dir, cloneOpts); err != nil {
			e.Log.Errorf("installing %s: %v", identity, err)
			res.Errors = append(res.Errors, NodeError{Identity: identity, Op: "install", Err: err})
			return
		}
		res.Installed = append(res.Installed, identity)
	} else {
		res.Present = append(res.Present, identity)
	}

	if opts.DryRun {
		return
	}

	// A node with no lock entry yet gets one synthesized from the
	// working copy so the lock store stays authoritative.
	if _, locked := e.Lock.Get(identity); !locked {
		head, err := e.Git.CurrentRevision(ctx, dir)
		if err != nil {
			e.Log.Errorf("resolving %s: %v", identity, err)
			res.Errors = append(res.Errors, NodeError{Identity: identity, Op: "resolve", Err: err})
			return
		}
		e.Lock.Set(identity, lockfile.Entry{Branch: spec.Branch, Commit: head})
	}

	e.registerActivation(spec, dir, res)
}

func (e *InstallEngine) registerActivation(spec *registry.Spec, dir string, res *InstallResult) {
	if e.Activator == nil {
		return
	}
	hook := e.Hooks[spec.Identity]
	if hook == nil && spec.Run != "" {
		hook = activate.ShellHook(dir, spec.Run)
	}
	if err := e.Activator.Register(spec.Identity, dir, toTriggers(spec.Triggers), hook); err != nil {
		e.Log.Errorf("activating %s: %v", spec.Identity, err)
		res.Errors = append(res.Errors, NodeError{Identity: spec.Identity, Op: "activate", Err: err})
	}
}

func toTriggers(t *manifest.Triggers) activate.Triggers {
	if t == nil {
		return activate.Triggers{}
	}
	return activate.Triggers{
		Filetypes: t.Filetypes,
		Events:    t.Events,
		Keys:      t.Keys,
		Commands:  t.Commands,
	}
}

// inspectInstall classifies an install directory: present means a usable
// working copy exists; stale means the path exists but holds nothing
// besides version-control metadata and must be recreated.
func inspectInstall(dir string) (present, stale bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false, false
	}
	for _, e := range entries {
		if e.Name() != ".git" {
			return true, false
		}
	}
	return false, true
}
