// Package gitx wraps the git operations the engines depend on behind a
// small interface so the core stays testable without a network.
package gitx

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// CloneOptions narrows what a fresh clone checks out. Branch and Tag are
// mutually exclusive; Commit forces an exact checkout after cloning.
type CloneOptions struct {
	Branch string
	Tag    string
	Commit string
}

// Client is the version-control collaborator used by the install, sync,
// restore, and update engines.
type Client interface {
	Clone(ctx context.Context, url, dest string, opts CloneOptions) error
	Pull(ctx context.Context, path string) error
	Fetch(ctx context.Context, path string) error
	Checkout(ctx context.Context, path, ref string) error

	// CurrentRevision returns the commit HEAD resolves to.
	CurrentRevision(ctx context.Context, path string) (string, error)

	// CurrentBranch returns the checked-out branch name, or "" when
	// HEAD is detached.
	CurrentBranch(ctx context.Context, path string) (string, error)

	// RemoteRevision returns the commit the remote branch head resolves
	// to, as of the last fetch.
	RemoteRevision(ctx context.Context, path, branch string) (string, error)

	// LogRange returns oneline log entries for old..new.
	LogRange(ctx context.Context, path, oldCommit, newCommit string) ([]string, error)

	// NearestTag returns the most recent tag reachable from commit, or
	// "" when no tag is reachable.
	NearestTag(ctx context.Context, path, commit string) (string, error)
}

// ExecClient implements Client by shelling out to the git binary.
type ExecClient struct{}

func (ExecClient) Clone(ctx context.Context, url, dest string, opts CloneOptions) error {
	ref := opts.Branch
	if ref == "" {
		ref = opts.Tag
	}

	if ref != "" {
		args := []string{"clone", "--branch", ref, "--single-branch", url, dest}
		if _, err := runGit(ctx, "", args...); err == nil {
			return checkoutCommitIfSet(ctx, dest, opts.Commit)
		}
		// A missing remote branch and a transport failure look alike
		// here; retry with a plain clone so the ref error surfaces on
		// the checkout instead.
	}

	if _, err := runGit(ctx, "", "clone", url, dest); err != nil {
		return err
	}
	if ref != "" && opts.Commit == "" {
		if _, err := runGit(ctx, dest, "checkout", ref); err != nil {
			return err
		}
	}
	return checkoutCommitIfSet(ctx, dest, opts.Commit)
}

func checkoutCommitIfSet(ctx context.Context, dest, commit string) error {
	if commit == "" {
		return nil
	}
	_, err := runGit(ctx, dest, "checkout", commit)
	return err
}

func (ExecClient) Pull(ctx context.Context, path string) error {
	_, err := runGit(ctx, path, "pull", "--ff-only")
	return err
}

func (ExecClient) Fetch(ctx context.Context, path string) error {
	_, err := runGit(ctx, path, "fetch", "--tags", "origin")
	return err
}

func (ExecClient) Checkout(ctx context.Context, path, ref string) error {
	_, err := runGit(ctx, path, "checkout", ref)
	return err
}

func (ExecClient) CurrentRevision(ctx context.Context, path string) (string, error) {
	return runGit(ctx, path, "rev-parse", "HEAD")
}

func (ExecClient) CurrentBranch(ctx context.Context, path string) (string, error) {
	out, err := runGit(ctx, path, "symbolic-ref", "--short", "-q", "HEAD")
	if err != nil {
		// symbolic-ref exits non-zero on a detached HEAD; that is a
		// valid state, not a failure.
		return "", nil
	}
	return out, nil
}

func (ExecClient) RemoteRevision(ctx context.Context, path, branch string) (string, error) {
	return runGit(ctx, path, "rev-parse", "refs/remotes/origin/"+branch)
}

func (ExecClient) LogRange(ctx context.Context, path, oldCommit, newCommit string) ([]string, error) {
	out, err := runGit(ctx, path, "log", "--oneline", oldCommit+".."+newCommit)
	if err != nil {
		return nil, err
	}
	if out == "" {
		return nil, nil
	}
	return strings.Split(out, "\n"), nil
}

func (ExecClient) NearestTag(ctx context.Context, path, commit string) (string, error) {
	out, err := runGit(ctx, path, "describe", "--tags", "--abbrev=0", commit)
	if err != nil {
		// No reachable tag.
		return "", nil
	}
	return out, nil
}

func runGit(ctx context.Context, dir string, args ...string) (string, error) {
	sub := args[0]
	if dir != "" {
		args = append([]string{"-C", dir}, args...)
	}
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("git %s failed: %s: %w", sub, strings.TrimSpace(string(output)), err)
	}
	return strings.TrimSpace(string(output)), nil
}
