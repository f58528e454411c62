// Package git invokes the version control system for ralphd. Every command
// goes through the argv form; user-supplied text (commit messages, branch
// names) is always passed as a single argument, never interpolated into a
// shell string.
package git

import "context"

// RepoOperations defines repository-level queries.
type RepoOperations interface {
	// TopLevel returns the absolute path of the repository's top-level
	// directory, or an error when the runner's path is not inside one.
	TopLevel(ctx context.Context) (string, error)
	// CurrentBranch returns the name of the current branch.
	CurrentBranch(ctx context.Context) (string, error)
	// Head returns the commit hash of HEAD.
	Head(ctx context.Context) (string, error)
}

// BranchOperations defines branch queries.
type BranchOperations interface {
	// BranchExists returns true if a local branch with the name exists.
	BranchExists(ctx context.Context, name string) (bool, error)
}

// WorktreeOperations defines worktree lifecycle operations.
type WorktreeOperations interface {
	// WorktreeAddNewBranch creates a worktree at path on a new branch
	// (git worktree add <path> -b <branch>).
	WorktreeAddNewBranch(ctx context.Context, path, branch string) error
	// WorktreeRemove force-removes the worktree at the given path.
	WorktreeRemove(ctx context.Context, path string) error
}

// CheckpointOperations defines the commit and revert operations the
// iteration loop performs at the end of each iteration.
type CheckpointOperations interface {
	// HasChanges returns true if there are uncommitted changes.
	HasChanges(ctx context.Context) (bool, error)
	// CommitAll stages everything and commits; a clean tree is a no-op.
	CommitAll(ctx context.Context, message string) error
	// CheckoutHeadAll restores all tracked files to their HEAD state.
	CheckoutHeadAll(ctx context.Context) error
	// CleanUntracked removes untracked files and directories.
	CleanUntracked(ctx context.Context) error
}

// DiffOperations defines diff queries.
type DiffOperations interface {
	// DiffHead returns the uncolored diff of the working tree against HEAD.
	DiffHead(ctx context.Context) (string, error)
}

// Runner defines the complete interface for git operations. Consumers should
// prefer the focused interfaces when possible.
type Runner interface {
	RepoOperations
	BranchOperations
	WorktreeOperations
	CheckpointOperations
	DiffOperations
}
