// Package worktree creates isolated git worktrees for threads. Each thread
// gets its own working directory and branch under the repository it targets,
// so concurrent runs never touch each other's files.
package worktree

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ShayCichocki/ralphd/internal/git"
)

// ErrNotARepository is returned when the requested path is not inside a git
// repository.
var ErrNotARepository = errors.New("not a git repository")

// ErrWorktreeFailed is returned when git could not create the worktree. The
// wrapped error carries git's output.
var ErrWorktreeFailed = errors.New("worktree creation failed")

// Info describes a created worktree.
type Info struct {
	// RepoRoot is the top-level directory of the base repository.
	RepoRoot string
	// Path is the absolute path of the worktree directory.
	Path string
	// Branch is the name of the branch checked out in the worktree.
	Branch string
}

// Manager creates and removes thread worktrees. Worktrees live under
// <repoRoot>/.ralph/worktrees/ and their branches are named
// ralph/thread-<shortID>.
type Manager struct {
	mu sync.Mutex

	// newRunner builds a git runner for a directory. Overridable in tests.
	newRunner func(dir string) git.Runner
}

// NewManager creates a worktree manager.
func NewManager() *Manager {
	return &Manager{
		newRunner: func(dir string) git.Runner { return git.NewRunner(dir) },
	}
}

// Create makes a worktree and branch for the thread inside the repository at
// repoPath. On a name collision it retries once with a timestamp suffix; a
// second failure returns ErrWorktreeFailed. Create is not idempotent, so
// callers must not call it again for a thread that already has a worktree.
func (m *Manager) Create(ctx context.Context, repoPath, threadID string) (*Info, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	g := m.newRunner(repoPath)
	root, err := g.TopLevel(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotARepository, repoPath)
	}

	short := shortID(threadID)
	baseDir := filepath.Join(root, ".ralph", "worktrees")
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create worktree base directory: %w", err)
	}

	path := filepath.Join(baseDir, short)
	branch := "ralph/thread-" + short

	retried := false
	if m.collides(ctx, g, path, branch) {
		short = fmt.Sprintf("%s-%d", short, time.Now().Unix())
		path = filepath.Join(baseDir, short)
		branch = "ralph/thread-" + short
		retried = true
	}

	if err := g.WorktreeAddNewBranch(ctx, path, branch); err != nil {
		if retried {
			return nil, fmt.Errorf("%w: %v", ErrWorktreeFailed, err)
		}
		short = fmt.Sprintf("%s-%d", short, time.Now().Unix())
		path = filepath.Join(baseDir, short)
		branch = "ralph/thread-" + short
		if err := g.WorktreeAddNewBranch(ctx, path, branch); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrWorktreeFailed, err)
		}
	}

	return &Info{RepoRoot: root, Path: path, Branch: branch}, nil
}

// Remove force-removes the worktree at path from the repository at repoPath.
// Used to undo Create when thread persistence fails.
func (m *Manager) Remove(ctx context.Context, repoPath, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	g := m.newRunner(repoPath)
	if err := g.WorktreeRemove(ctx, path); err != nil {
		return fmt.Errorf("remove worktree: %w", err)
	}
	return nil
}

// collides reports whether the worktree path or the branch already exists.
func (m *Manager) collides(ctx context.Context, g git.Runner, path, branch string) bool {
	if _, err := os.Stat(path); err == nil {
		return true
	}
	exists, err := g.BranchExists(ctx, branch)
	if err != nil {
		return false
	}
	return exists
}

// shortID derives a filesystem- and branch-safe identifier from a thread id:
// alphanumeric characters only, at most 10 of them, lowercased. An id with no
// usable characters maps to the literal "thread".
func shortID(threadID string) string {
	var b strings.Builder
	for _, r := range threadID {
		if b.Len() == 10 {
			break
		}
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'z':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		}
	}
	if b.Len() == 0 {
		return "thread"
	}
	return b.String()
}
