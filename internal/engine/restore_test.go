package engine

import (
	"context"
	"os"
	"testing"

	"github.com/plugrove/plugrove/internal/gitx"
	"github.com/plugrove/plugrove/internal/lockfile"
	"github.com/plugrove/plugrove/internal/logging"
)

func newRestoreEngine(git gitx.Client, lock *lockfile.Store, root string) *RestoreEngine {
	return &RestoreEngine{Git: git, Lock: lock, InstallRoot: root, Log: logging.Discard()}
}

func TestRestoreChecksOutLockedCommit(t *testing.T) {
	root := t.TempDir()
	git := newFakeGit()
	git.addRemote("https://github.com/x/plug", "main", map[string]string{"main": "c-2"})
	clonePlug(t, git, root, "x/plug", gitx.CloneOptions{Branch: "main"})

	lock := lockfile.NewStore()
	lock.Set(identityOf("x/plug"), lockfile.Entry{Branch: "main", Commit: "c-1"})

	res := newRestoreEngine(git, lock, root).RestoreAll(context.Background(), Options{})
	if len(res.Errors) != 0 {
		t.Fatalf("errors: %v", res.Errors)
	}
	if len(res.CheckedOut) != 1 || res.CheckedOut[0].To != "c-1" {
		t.Fatalf("checked out = %+v", res.CheckedOut)
	}
	if head, _ := git.CurrentRevision(context.Background(), installDir(root, "x/plug")); head != "c-1" {
		t.Errorf("head = %s, want locked commit c-1", head)
	}
}

func TestRestoreMatchingCommitIsNoOp(t *testing.T) {
	root := t.TempDir()
	git := newFakeGit()
	git.addRemote("https://github.com/x/plug", "main", map[string]string{"main": "c-1"})
	clonePlug(t, git, root, "x/plug", gitx.CloneOptions{Branch: "main"})

	lock := lockfile.NewStore()
	lock.Set(identityOf("x/plug"), lockfile.Entry{Branch: "main", Commit: "c-1"})

	before := git.checkoutCount()
	res := newRestoreEngine(git, lock, root).RestoreAll(context.Background(), Options{})
	if len(res.Unchanged) != 1 {
		t.Errorf("unchanged = %v", res.Unchanged)
	}
	if git.checkoutCount() != before {
		t.Error("matching commit should not trigger a checkout")
	}
}

func TestRestoreDeletesUnlockedInstalls(t *testing.T) {
	root := t.TempDir()
	git := newFakeGit()
	git.addRemote("https://github.com/keep/plug", "main", map[string]string{"main": "c-1"})
	git.addRemote("https://github.com/gone/plug", "main", map[string]string{"main": "c-2"})
	clonePlug(t, git, root, "keep/plug", gitx.CloneOptions{Branch: "main"})
	clonePlug(t, git, root, "gone/plug", gitx.CloneOptions{Branch: "main"})

	lock := lockfile.NewStore()
	lock.Set(identityOf("keep/plug"), lockfile.Entry{Branch: "main", Commit: "c-1"})

	res := newRestoreEngine(git, lock, root).RestoreAll(context.Background(), Options{})
	if len(res.Deleted) != 1 {
		t.Fatalf("deleted = %v", res.Deleted)
	}
	if _, err := os.Stat(installDir(root, "gone/plug")); !os.IsNotExist(err) {
		t.Error("unlocked install should be removed from disk")
	}
	if _, err := os.Stat(installDir(root, "keep/plug")); err != nil {
		t.Errorf("locked install should survive: %v", err)
	}

	// Lock consistency: every directory left corresponds to a lock entry.
	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if e.IsDir() && e.Name() != "github.com__keep__plug" {
			t.Errorf("unexpected directory %s after restore", e.Name())
		}
	}
}

func TestRestoreDryRunLeavesDiskAlone(t *testing.T) {
	root := t.TempDir()
	git := newFakeGit()
	git.addRemote("https://github.com/gone/plug", "main", map[string]string{"main": "c-2"})
	clonePlug(t, git, root, "gone/plug", gitx.CloneOptions{Branch: "main"})

	lock := lockfile.NewStore()
	res := newRestoreEngine(git, lock, root).RestoreAll(context.Background(), Options{DryRun: true})

	if len(res.Deleted) != 1 {
		t.Fatalf("dry-run should report the pending deletion, got %v", res.Deleted)
	}
	if _, err := os.Stat(installDir(root, "gone/plug")); err != nil {
		t.Errorf("dry-run must not delete: %v", err)
	}
}

func TestRestoreMissingInstallRoot(t *testing.T) {
	git := newFakeGit()
	res := newRestoreEngine(git, lockfile.NewStore(), t.TempDir()+"/never-created").RestoreAll(context.Background(), Options{})
	if len(res.Errors) != 0 {
		t.Errorf("missing install root should be empty, not an error: %v", res.Errors)
	}
}
