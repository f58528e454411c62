package git

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// initTestRepo creates a throwaway git repository with one commit.
func initTestRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	mustGit(t, dir, "init")
	mustGit(t, dir, "config", "user.email", "test@example.com")
	mustGit(t, dir, "config", "user.name", "Test")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("hello\n"), 0644))
	mustGit(t, dir, "add", "-A")
	mustGit(t, dir, "commit", "-m", "initial")

	return dir
}

func mustGit(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %v: %s", args, out)
}

func TestTopLevel(t *testing.T) {
	dir := initTestRepo(t)
	ctx := context.Background()

	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.MkdirAll(sub, 0755))

	top, err := NewRunner(sub).TopLevel(ctx)
	require.NoError(t, err)

	// Resolve symlinks so macOS /private/var temp dirs compare equal.
	wantTop, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	gotTop, err := filepath.EvalSymlinks(top)
	require.NoError(t, err)
	assert.Equal(t, wantTop, gotTop)
}

func TestTopLevelOutsideRepo(t *testing.T) {
	dir := t.TempDir()

	_, err := NewRunner(dir).TopLevel(context.Background())
	assert.Error(t, err)
}

func TestBranchExists(t *testing.T) {
	dir := initTestRepo(t)
	ctx := context.Background()
	r := NewRunner(dir)

	current, err := r.CurrentBranch(ctx)
	require.NoError(t, err)

	exists, err := r.BranchExists(ctx, current)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = r.BranchExists(ctx, "no-such-branch")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestWorktreeAddNewBranch(t *testing.T) {
	dir := initTestRepo(t)
	ctx := context.Background()
	r := NewRunner(dir)

	wtPath := filepath.Join(dir, ".ralph", "worktrees", "abc123")
	require.NoError(t, r.WorktreeAddNewBranch(ctx, wtPath, "ralph/thread-abc123"))

	_, err := os.Stat(filepath.Join(wtPath, "README.md"))
	assert.NoError(t, err, "worktree should contain the repo's files")

	exists, err := r.BranchExists(ctx, "ralph/thread-abc123")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, r.WorktreeRemove(ctx, wtPath))
	_, err = os.Stat(wtPath)
	assert.True(t, os.IsNotExist(err))
}

func TestCommitAll(t *testing.T) {
	dir := initTestRepo(t)
	ctx := context.Background()
	r := NewRunner(dir)

	before, err := r.Head(ctx)
	require.NoError(t, err)

	// Clean tree: no-op, HEAD unchanged.
	require.NoError(t, r.CommitAll(ctx, "ralph: iteration 1 (0/1 passing)"))
	after, err := r.Head(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	// Dirty tree: commits and advances HEAD.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "new.txt"), []byte("x\n"), 0644))
	require.NoError(t, r.CommitAll(ctx, "ralph: iteration 2 (1/1 passing)"))
	after, err = r.Head(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, before, after)

	hasChanges, err := r.HasChanges(ctx)
	require.NoError(t, err)
	assert.False(t, hasChanges)
}

func TestRevertRestoresHead(t *testing.T) {
	dir := initTestRepo(t)
	ctx := context.Background()
	r := NewRunner(dir)

	head, err := r.Head(ctx)
	require.NoError(t, err)

	// Modify a tracked file and add an untracked one.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("mutated\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "junk.txt"), []byte("junk\n"), 0644))

	require.NoError(t, r.CheckoutHeadAll(ctx))
	require.NoError(t, r.CleanUntracked(ctx))

	content, err := os.ReadFile(filepath.Join(dir, "README.md"))
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(content))

	_, err = os.Stat(filepath.Join(dir, "junk.txt"))
	assert.True(t, os.IsNotExist(err))

	after, err := r.Head(ctx)
	require.NoError(t, err)
	assert.Equal(t, head, after)

	hasChanges, err := r.HasChanges(ctx)
	require.NoError(t, err)
	assert.False(t, hasChanges)
}

func TestDiffHead(t *testing.T) {
	dir := initTestRepo(t)
	ctx := context.Background()
	r := NewRunner(dir)

	diff, err := r.DiffHead(ctx)
	require.NoError(t, err)
	assert.Empty(t, diff)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("changed\n"), 0644))

	diff, err = r.DiffHead(ctx)
	require.NoError(t, err)
	assert.Contains(t, diff, "-hello")
	assert.Contains(t, diff, "+changed")
}
