package plugrove

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/plugrove/plugrove/internal/gitx"
	"github.com/plugrove/plugrove/internal/logging"
)

// stubGit is a minimal in-memory git client. Every clone succeeds and
// leaves HEAD at a fixed commit per url.
type stubGit struct {
	heads  map[string]string // dest -> commit
	cloned []string
}

func newStubGit() *stubGit {
	return &stubGit{heads: make(map[string]string)}
}

func (g *stubGit) Clone(ctx context.Context, url, dest string, opts gitx.CloneOptions) error {
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dest, "plugin.go"), []byte(url), 0o644); err != nil {
		return err
	}
	g.heads[dest] = "c-" + filepath.Base(dest)
	g.cloned = append(g.cloned, url)
	return nil
}

func (g *stubGit) Pull(ctx context.Context, path string) error  { return nil }
func (g *stubGit) Fetch(ctx context.Context, path string) error { return nil }

func (g *stubGit) Checkout(ctx context.Context, path, ref string) error {
	g.heads[path] = ref
	return nil
}

func (g *stubGit) CurrentRevision(ctx context.Context, path string) (string, error) {
	head, ok := g.heads[path]
	if !ok {
		return "", fmt.Errorf("stub: no repo at %s", path)
	}
	return head, nil
}

func (g *stubGit) CurrentBranch(ctx context.Context, path string) (string, error) {
	return "main", nil
}

func (g *stubGit) RemoteRevision(ctx context.Context, path, branch string) (string, error) {
	return g.heads[path], nil
}

func (g *stubGit) LogRange(ctx context.Context, path, oldCommit, newCommit string) ([]string, error) {
	return nil, nil
}

func (g *stubGit) NearestTag(ctx context.Context, path, commit string) (string, error) {
	return "", nil
}

func writeManifest(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func newTestClient(t *testing.T, git gitx.Client, manifestDir string) *Client {
	t.Helper()
	c, err := New(Options{
		ManifestDir: manifestDir,
		DataRoot:    t.TempDir(),
		Git:         git,
		Logger:      logging.Discard(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestNewDefaultsLockfileUnderDataRoot(t *testing.T) {
	root := t.TempDir()
	c, err := New(Options{DataRoot: root, Git: newStubGit(), Logger: logging.Discard()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.lockfilePath != filepath.Join(root, "plugrove.lock") {
		t.Errorf("lockfilePath = %s", c.lockfilePath)
	}
	if c.manifestDir != "plugrove" {
		t.Errorf("manifestDir = %s", c.manifestDir)
	}
}

func TestSyncInstallsAndWritesLock(t *testing.T) {
	manifests := t.TempDir()
	writeManifest(t, manifests, "plugins.yaml", `
plugins:
  - source: acme/widget
    branch: main
`)

	git := newStubGit()
	c := newTestClient(t, git, manifests)
	report, err := c.Sync(context.Background(), SyncOptions{})
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if len(report.Install.Installed) != 1 {
		t.Fatalf("installed = %v", report.Install.Installed)
	}
	if len(git.cloned) != 1 || git.cloned[0] != "https://github.com/acme/widget" {
		t.Errorf("cloned = %v, shorthand should canonicalize", git.cloned)
	}
	if _, err := os.Stat(c.lockfilePath); err != nil {
		t.Errorf("lockfile not written: %v", err)
	}
}

func TestSyncDryRunWritesNothing(t *testing.T) {
	manifests := t.TempDir()
	writeManifest(t, manifests, "plugins.yaml", `
plugins:
  - source: acme/widget
`)

	git := newStubGit()
	c := newTestClient(t, git, manifests)
	if _, err := c.Sync(context.Background(), SyncOptions{DryRun: true}); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if len(git.cloned) != 0 {
		t.Errorf("dry-run cloned %v", git.cloned)
	}
	if _, err := os.Stat(c.lockfilePath); !os.IsNotExist(err) {
		t.Error("dry-run must not write the lockfile")
	}
}

func TestWithHookRunsOnActivation(t *testing.T) {
	manifests := t.TempDir()
	writeManifest(t, manifests, "plugins.yaml", `
plugins:
  - source: acme/widget
`)

	ran := false
	c := newTestClient(t, newStubGit(), manifests)
	c.WithHook("acme/widget", func() error { ran = true; return nil })

	if _, err := c.Sync(context.Background(), SyncOptions{}); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if !ran {
		t.Error("hook for a trigger-less plugin should run during sync")
	}
}

func TestListReportsStatus(t *testing.T) {
	manifests := t.TempDir()
	writeManifest(t, manifests, "plugins.yaml", `
plugins:
  - source: acme/widget
    tag: v1.0.0
  - source: acme/gadget
    branch: main
    on:
      commands: [Gadget]
`)

	c := newTestClient(t, newStubGit(), manifests)
	if _, err := c.Sync(context.Background(), SyncOptions{}); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	list, err := c.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("list = %+v", list)
	}
	byID := map[string]PluginStatus{}
	for _, st := range list {
		byID[st.Identity] = st
	}

	widget := byID["https://github.com/acme/widget"]
	if widget.Pin != "tag v1.0.0" || !widget.Installed || widget.Locked == "" {
		t.Errorf("widget = %+v", widget)
	}
	gadget := byID["https://github.com/acme/gadget"]
	if gadget.State != StateArmed || !gadget.Activated {
		t.Errorf("gadget = %+v, triggered plugin should be armed", gadget)
	}
}

func TestMissingManifestDirIsEmptyNotError(t *testing.T) {
	c := newTestClient(t, newStubGit(), filepath.Join(t.TempDir(), "absent"))
	report, err := c.Sync(context.Background(), SyncOptions{})
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if len(report.Install.Installed) != 0 {
		t.Errorf("installed = %v", report.Install.Installed)
	}
}
