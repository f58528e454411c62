package git

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ExecRunner implements Runner using exec.CommandContext. All commands run
// with the runner's directory as working directory, so a runner bound to a
// worktree operates on that worktree.
type ExecRunner struct {
	dir string
}

// NewRunner creates a git runner operating in the given directory.
func NewRunner(dir string) *ExecRunner {
	return &ExecRunner{dir: dir}
}

// run executes a git command and returns its trimmed output.
func (r *ExecRunner) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = r.dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, string(out))
	}
	return strings.TrimSpace(string(out)), nil
}

// runSilent executes a git command and ignores output.
func (r *ExecRunner) runSilent(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = r.dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, string(out))
	}
	return nil
}

// TopLevel returns the absolute path of the repository's top-level directory.
func (r *ExecRunner) TopLevel(ctx context.Context) (string, error) {
	return r.run(ctx, "rev-parse", "--show-toplevel")
}

// CurrentBranch returns the name of the current branch.
func (r *ExecRunner) CurrentBranch(ctx context.Context) (string, error) {
	return r.run(ctx, "rev-parse", "--abbrev-ref", "HEAD")
}

// Head returns the commit hash of HEAD.
func (r *ExecRunner) Head(ctx context.Context) (string, error) {
	return r.run(ctx, "rev-parse", "HEAD")
}

// BranchExists returns true if the local branch exists.
func (r *ExecRunner) BranchExists(ctx context.Context, name string) (bool, error) {
	cmd := exec.CommandContext(ctx, "git", "show-ref", "--verify", "--quiet", "refs/heads/"+name)
	cmd.Dir = r.dir
	err := cmd.Run()
	if err != nil {
		// Exit code 1 means the branch doesn't exist (not an error).
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return false, nil
		}
		return false, fmt.Errorf("check branch exists: %w", err)
	}
	return true, nil
}

// WorktreeAddNewBranch creates a worktree at path on a new branch.
func (r *ExecRunner) WorktreeAddNewBranch(ctx context.Context, path, branch string) error {
	return r.runSilent(ctx, "worktree", "add", path, "-b", branch)
}

// WorktreeRemove force-removes the worktree at the given path.
func (r *ExecRunner) WorktreeRemove(ctx context.Context, path string) error {
	return r.runSilent(ctx, "worktree", "remove", "--force", path)
}

// status returns the output of git status --porcelain.
func (r *ExecRunner) status(ctx context.Context) (string, error) {
	return r.run(ctx, "status", "--porcelain")
}

// HasChanges returns true if there are uncommitted changes.
func (r *ExecRunner) HasChanges(ctx context.Context) (bool, error) {
	out, err := r.status(ctx)
	if err != nil {
		return false, err
	}
	return len(out) > 0, nil
}

// CommitAll stages all changes and commits with the given message. A clean
// working tree is a no-op rather than an error, so callers can checkpoint
// unconditionally.
func (r *ExecRunner) CommitAll(ctx context.Context, message string) error {
	if err := r.runSilent(ctx, "add", "-A"); err != nil {
		return err
	}
	hasChanges, err := r.HasChanges(ctx)
	if err != nil {
		return err
	}
	if !hasChanges {
		return nil
	}
	return r.runSilent(ctx, "commit", "-m", message)
}

// CheckoutHeadAll restores all tracked files to their HEAD state.
func (r *ExecRunner) CheckoutHeadAll(ctx context.Context) error {
	return r.runSilent(ctx, "checkout", "HEAD", "--", ".")
}

// CleanUntracked removes untracked files and directories.
func (r *ExecRunner) CleanUntracked(ctx context.Context) error {
	return r.runSilent(ctx, "clean", "-fd")
}

// DiffHead returns the uncolored diff of the working tree against HEAD.
func (r *ExecRunner) DiffHead(ctx context.Context) (string, error) {
	cmd := exec.CommandContext(ctx, "git", "diff", "--no-color", "HEAD")
	cmd.Dir = r.dir
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("git diff --no-color HEAD: %w: %s", err, string(exitErr.Stderr))
		}
		return "", fmt.Errorf("git diff --no-color HEAD: %w", err)
	}
	return string(out), nil
}

// Verify ExecRunner implements Runner at compile time.
var _ Runner = (*ExecRunner)(nil)
