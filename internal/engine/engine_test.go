package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/plugrove/plugrove/internal/activate"
	"github.com/plugrove/plugrove/internal/gitx"
	"github.com/plugrove/plugrove/internal/lockfile"
	"github.com/plugrove/plugrove/internal/logging"
	"github.com/plugrove/plugrove/internal/manifest"
	"github.com/plugrove/plugrove/internal/registry"
)

// fakeRemote is the upstream state of one repository.
type fakeRemote struct {
	defaultBranch string
	branches      map[string]string // branch -> commit
	tags          map[string]string // tag -> commit
}

// fakeRepo is one working copy created by the fake client.
type fakeRepo struct {
	url           string
	head          string
	branch        string            // "" when detached
	localBranches map[string]string // branch -> local head
	fetched       map[string]string // origin branch heads as of last fetch
}

// fakeGit implements gitx.Client against in-memory remotes. Clone
// creates a real directory so the engines' filesystem checks hold.
type fakeGit struct {
	mu        sync.Mutex
	remotes     map[string]*fakeRemote // url -> upstream
	repos       map[string]*fakeRepo   // dest path -> working copy
	cloneErr    map[string]error       // url -> forced failure
	checkoutErr map[string]error       // ref -> forced failure
	fetchErr    map[string]error       // url -> forced failure
	cloned      []string               // clone order, by url
	checkouts   []string               // "path ref" in call order
}

func newFakeGit() *fakeGit {
	return &fakeGit{
		remotes:     make(map[string]*fakeRemote),
		repos:       make(map[string]*fakeRepo),
		cloneErr:    make(map[string]error),
		checkoutErr: make(map[string]error),
		fetchErr:    make(map[string]error),
	}
}

func (g *fakeGit) addRemote(url, defaultBranch string, branches map[string]string) *fakeRemote {
	r := &fakeRemote{defaultBranch: defaultBranch, branches: branches, tags: make(map[string]string)}
	g.remotes[url] = r
	return r
}

func (g *fakeGit) Clone(ctx context.Context, url, dest string, opts gitx.CloneOptions) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.cloneErr[url]; err != nil {
		return err
	}
	remote, ok := g.remotes[url]
	if !ok {
		return fmt.Errorf("fake: unknown remote %s", url)
	}

	repo := &fakeRepo{
		url:           url,
		localBranches: make(map[string]string),
		fetched:       make(map[string]string),
	}
	for b, c := range remote.branches {
		repo.localBranches[b] = c
	}

	switch {
	case opts.Commit != "":
		repo.head = opts.Commit
	case opts.Tag != "":
		c, ok := remote.tags[opts.Tag]
		if !ok {
			return fmt.Errorf("fake: unknown tag %s", opts.Tag)
		}
		repo.head = c
	case opts.Branch != "":
		c, ok := remote.branches[opts.Branch]
		if !ok {
			return fmt.Errorf("fake: unknown branch %s", opts.Branch)
		}
		repo.head = c
		repo.branch = opts.Branch
	default:
		repo.head = remote.branches[remote.defaultBranch]
		repo.branch = remote.defaultBranch
	}

	if err := os.MkdirAll(dest, 0755); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dest, "README.md"), []byte(url), 0644); err != nil {
		return err
	}
	g.repos[dest] = repo
	g.cloned = append(g.cloned, url)
	return nil
}

func (g *fakeGit) repo(path string) (*fakeRepo, error) {
	r, ok := g.repos[path]
	if !ok {
		return nil, fmt.Errorf("fake: no working copy at %s", path)
	}
	return r, nil
}

func (g *fakeGit) Pull(ctx context.Context, path string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	r, err := g.repo(path)
	if err != nil {
		return err
	}
	if r.branch == "" {
		return fmt.Errorf("fake: pull on detached HEAD")
	}
	remote := g.remotes[r.url]
	r.localBranches[r.branch] = remote.branches[r.branch]
	r.head = r.localBranches[r.branch]
	return nil
}

func (g *fakeGit) Fetch(ctx context.Context, path string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	r, err := g.repo(path)
	if err != nil {
		return err
	}
	if err := g.fetchErr[r.url]; err != nil {
		return err
	}
	remote := g.remotes[r.url]
	for b, c := range remote.branches {
		r.fetched[b] = c
	}
	return nil
}

func (g *fakeGit) Checkout(ctx context.Context, path, ref string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	r, err := g.repo(path)
	if err != nil {
		return err
	}
	if err := g.checkoutErr[ref]; err != nil {
		return err
	}
	g.checkouts = append(g.checkouts, path+" "+ref)

	if head, ok := r.localBranches[ref]; ok {
		r.branch = ref
		r.head = head
		return nil
	}
	if c, ok := g.remotes[r.url].tags[ref]; ok {
		r.branch = ""
		r.head = c
		return nil
	}
	// Commit checkout leaves HEAD detached.
	r.branch = ""
	r.head = ref
	return nil
}

func (g *fakeGit) CurrentRevision(ctx context.Context, path string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	r, err := g.repo(path)
	if err != nil {
		return "", err
	}
	return r.head, nil
}

func (g *fakeGit) CurrentBranch(ctx context.Context, path string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	r, err := g.repo(path)
	if err != nil {
		return "", err
	}
	return r.branch, nil
}

func (g *fakeGit) RemoteRevision(ctx context.Context, path, branch string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	r, err := g.repo(path)
	if err != nil {
		return "", err
	}
	c, ok := r.fetched[branch]
	if !ok {
		return "", fmt.Errorf("fake: branch %s not fetched", branch)
	}
	return c, nil
}

func (g *fakeGit) LogRange(ctx context.Context, path, oldCommit, newCommit string) ([]string, error) {
	return []string{ShortCommit(newCommit) + " some upstream change"}, nil
}

func (g *fakeGit) NearestTag(ctx context.Context, path, commit string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	r, err := g.repo(path)
	if err != nil {
		return "", err
	}
	for tag, c := range g.remotes[r.url].tags {
		if c == commit {
			return tag, nil
		}
	}
	return "", nil
}

func (g *fakeGit) checkoutCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.checkouts)
}

// buildRegistry is a test helper around registry.Build.
func buildRegistry(t *testing.T, decls ...manifest.Declaration) *registry.Registry {
	t.Helper()
	r, err := registry.Build(decls)
	if err != nil {
		t.Fatalf("registry.Build: %v", err)
	}
	return r
}

func identityOf(source string) string {
	return manifest.CanonicalSource(source)
}

func installDir(root, source string) string {
	return filepath.Join(root, manifest.DirName(identityOf(source)))
}

// nullRuntime satisfies activate.Runtime for tests that don't care
// about triggers.
type nullRuntime struct{}

func (nullRuntime) AddPath(string) error { return nil }
func (nullRuntime) SubscribeOnce(activate.TriggerKind, string, func()) (activate.Handle, error) {
	return 0, nil
}
func (nullRuntime) Unsubscribe(activate.Handle) error { return nil }

func newInstallEngine(git gitx.Client, reg *registry.Registry, lock *lockfile.Store, root string) *InstallEngine {
	return &InstallEngine{
		Git:         git,
		Registry:    reg,
		Lock:        lock,
		Activator:   activate.New(nullRuntime{}, logging.Discard()),
		InstallRoot: root,
		Log:         logging.Discard(),
	}
}
