// Package plugrove provides the public Go library API for plugrove.
//
// plugrove is a declarative plugin lifecycle manager: plugins are
// declared in YAML manifests, installed as git working copies, pinned
// through a lockfile, and activated lazily when a host trigger fires.
// This package exposes a Client for embedding plugrove in other Go
// programs.
//
// # Basic Usage
//
//	client, err := plugrove.New(plugrove.Options{
//	    ManifestDir: "plugrove",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Install declared plugins and reconcile pins
//	report, err := client.Sync(ctx, plugrove.SyncOptions{})
//
//	// Pull in upstream movement on branch-tracked plugins
//	updates, err := client.Update(ctx, plugrove.UpdateOptions{})
//
//	// Reproduce the locked state exactly
//	result, err := client.Restore(ctx, plugrove.RestoreOptions{})
package plugrove

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/plugrove/plugrove/internal/activate"
	"github.com/plugrove/plugrove/internal/engine"
	"github.com/plugrove/plugrove/internal/gitx"
	"github.com/plugrove/plugrove/internal/host"
	"github.com/plugrove/plugrove/internal/lockfile"
	"github.com/plugrove/plugrove/internal/logging"
	"github.com/plugrove/plugrove/internal/manifest"
	"github.com/plugrove/plugrove/internal/paths"
	"github.com/plugrove/plugrove/internal/registry"
)

// SyncOptions configures a sync operation.
type SyncOptions struct {
	DryRun bool
}

// UpdateOptions configures an update operation.
type UpdateOptions struct {
	DryRun bool
}

// RestoreOptions configures a restore operation.
type RestoreOptions struct {
	DryRun bool
}

// SyncReport holds the outcome of a sync: the install pass first, then
// the pin reconciliation pass over everything on disk.
type SyncReport struct {
	Install *InstallResult
	Sync    *SyncResult
}

// UpdateResult holds the outcome of an update. The library API
// auto-approves every collected update; interactive review is the
// CLI's concern.
type UpdateResult struct {
	Applied []UpdateInfo
	Errors  []NodeError
}

// PluginStatus is one row of a List call.
type PluginStatus struct {
	Identity  string
	Pin       string // "branch main", "tag v1.2.0", "commit abc1234", or "(dependency)"
	Locked    string // locked commit, "" when unlocked
	Installed bool
	State     State
	Activated bool // false when the plugin was never registered this session
}

// Options configures a plugrove Client.
type Options struct {
	// ManifestDir is the directory scanned for *.yaml declaration files.
	// Default: "plugrove".
	ManifestDir string

	// LockfilePath is the path to the lockfile.
	// Default: <DataRoot>/plugrove.lock.
	LockfilePath string

	// DataRoot is the directory plugrove owns on disk. If empty, uses
	// XDG_DATA_HOME/plugrove with a ~/.local/share fallback.
	DataRoot string

	// Git overrides the git client. Default: shells out to git.
	Git gitx.Client

	// Runtime is the host surface plugins activate against. Default: an
	// in-process event bus.
	Runtime Runtime

	// Logger overrides the run log. Default: <DataRoot>/logs/plugrove.log.
	Logger *logging.Logger
}

// Client is the main entry point for the plugrove library.
type Client struct {
	manifestDir  string
	lockfilePath string
	dataRoot     string
	git          gitx.Client
	log          *logging.Logger
	activator    *activate.Engine
	hooks        map[string]activate.Hook
}

// New creates a new plugrove Client.
func New(opts Options) (*Client, error) {
	if opts.ManifestDir == "" {
		opts.ManifestDir = "plugrove"
	}
	if opts.DataRoot == "" {
		opts.DataRoot = paths.DefaultDataRoot()
	}
	if opts.LockfilePath == "" {
		opts.LockfilePath = filepath.Join(opts.DataRoot, "plugrove.lock")
	}
	if opts.Git == nil {
		opts.Git = gitx.ExecClient{}
	}
	if opts.Runtime == nil {
		opts.Runtime = host.NewBus()
	}

	log := opts.Logger
	if log == nil {
		var err error
		log, err = logging.New(opts.DataRoot)
		if err != nil {
			return nil, fmt.Errorf("initializing log: %w", err)
		}
	}

	return &Client{
		manifestDir:  opts.ManifestDir,
		lockfilePath: opts.LockfilePath,
		dataRoot:     opts.DataRoot,
		git:          opts.Git,
		log:          log,
		activator:    activate.New(opts.Runtime, log),
		hooks:        make(map[string]activate.Hook),
	}, nil
}

// WithHook registers an in-process activation hook for a plugin. It
// takes precedence over any 'run:' command the declaration carries.
// The source is canonicalized, so "owner/repo" shorthand is accepted.
func (c *Client) WithHook(source string, hook Hook) *Client {
	c.hooks[manifest.CanonicalSource(source)] = hook
	return c
}

// Close releases the run log.
func (c *Client) Close() error {
	return c.log.Close()
}

func (c *Client) loadRegistry() (*registry.Registry, error) {
	decls, err := manifest.LoadDir(c.manifestDir)
	if err != nil {
		return nil, err
	}
	return registry.Build(decls)
}

// loadLock is fail-open: a malformed lockfile yields an empty store and
// a logged warning, so a damaged lock never blocks an operation.
func (c *Client) loadLock() *lockfile.Store {
	store, err := lockfile.Load(c.lockfilePath)
	if err != nil {
		c.log.Errorf("lockfile %s unreadable, starting empty: %v", c.lockfilePath, err)
	}
	return store
}

func (c *Client) saveLock(store *lockfile.Store, dryRun bool) error {
	if dryRun || !store.Changed() {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(c.lockfilePath), 0o755); err != nil {
		return fmt.Errorf("saving lockfile: %w", err)
	}
	return store.Save(c.lockfilePath)
}

func (c *Client) installRoot() string {
	return paths.InstallRoot(c.dataRoot)
}

// Sync installs every declared plugin that is missing, reconciles every
// working copy to its pin, registers activation, and writes the lock.
func (c *Client) Sync(ctx context.Context, opts SyncOptions) (*SyncReport, error) {
	reg, err := c.loadRegistry()
	if err != nil {
		return nil, err
	}
	lock := c.loadLock()

	install := &engine.InstallEngine{
		Git:         c.git,
		Registry:    reg,
		Lock:        lock,
		Activator:   c.activator,
		InstallRoot: c.installRoot(),
		Log:         c.log,
		Hooks:       c.hooks,
	}
	sync := &engine.SyncEngine{
		Git:         c.git,
		Registry:    reg,
		Lock:        lock,
		InstallRoot: c.installRoot(),
		Log:         c.log,
	}

	engOpts := engine.Options{DryRun: opts.DryRun}
	report := &SyncReport{
		Install: install.EnsureAll(ctx, engOpts),
		Sync:    sync.SyncAll(ctx, engOpts),
	}
	if err := c.saveLock(lock, opts.DryRun); err != nil {
		return report, err
	}
	return report, nil
}

// Update fetches branch-tracked plugins, applies every collected
// update to the lock, and restores working copies to match.
func (c *Client) Update(ctx context.Context, opts UpdateOptions) (*UpdateResult, error) {
	reg, err := c.loadRegistry()
	if err != nil {
		return nil, err
	}
	lock := c.loadLock()

	upd := &engine.UpdateEngine{
		Git:         c.git,
		Registry:    reg,
		Lock:        lock,
		InstallRoot: c.installRoot(),
		Log:         c.log,
	}
	collected := upd.Collect(ctx)
	out := &UpdateResult{Errors: collected.Errors}
	if len(collected.Updates) == 0 {
		return out, nil
	}
	if opts.DryRun {
		out.Applied = collected.Updates
		return out, nil
	}

	upd.Apply(collected.Updates)
	out.Applied = collected.Updates
	if err := c.saveLock(lock, false); err != nil {
		return out, err
	}

	restore := &engine.RestoreEngine{
		Git:         c.git,
		Lock:        lock,
		InstallRoot: c.installRoot(),
		Log:         c.log,
	}
	res := restore.RestoreAll(ctx, engine.Options{})
	out.Errors = append(out.Errors, res.Errors...)
	return out, nil
}

// Restore reproduces the locked state exactly: working copies move to
// their recorded commits and installs absent from the lock are removed.
func (c *Client) Restore(ctx context.Context, opts RestoreOptions) (*RestoreResult, error) {
	restore := &engine.RestoreEngine{
		Git:         c.git,
		Lock:        c.loadLock(),
		InstallRoot: c.installRoot(),
		Log:         c.log,
	}
	return restore.RestoreAll(ctx, engine.Options{DryRun: opts.DryRun}), nil
}

// List reports the status of every declared plugin.
func (c *Client) List(ctx context.Context) ([]PluginStatus, error) {
	reg, err := c.loadRegistry()
	if err != nil {
		return nil, err
	}
	lock := c.loadLock()

	var out []PluginStatus
	for _, id := range reg.Identities() {
		spec, ok := reg.Lookup(id)
		if !ok {
			continue
		}
		st := PluginStatus{Identity: id, Pin: describePin(spec)}
		if entry, ok := lock.Get(id); ok {
			st.Locked = entry.Commit
		}
		dir := filepath.Join(c.installRoot(), manifest.DirName(id))
		if _, err := os.Stat(dir); err == nil {
			st.Installed = true
		}
		if state, ok := c.activator.StateOf(id); ok {
			st.State = state
			st.Activated = true
		}
		out = append(out, st)
	}
	return out, nil
}

func describePin(spec *registry.Spec) string {
	switch {
	case spec.Commit != "":
		return "commit " + engine.ShortCommit(spec.Commit)
	case spec.Tag != "":
		return "tag " + spec.Tag
	case spec.Branch != "":
		return "branch " + spec.Branch
	case !spec.Configured():
		return "(dependency)"
	default:
		return "default branch"
	}
}
