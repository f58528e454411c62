package control

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ShayCichocki/ralphd/internal/worktree"
	"github.com/ShayCichocki/ralphd/pkg/models"
)

// CreateThreadRequest carries the fields of POST /threads.
type CreateThreadRequest struct {
	Name     string
	Task     string
	RepoPath string
	Agent    string
	Validate []string
}

// CreateThread provisions a worktree and persists the thread. The worktree
// comes first: a thread row without a worktree is useless, while the reverse
// is just a stray directory that gets removed on rollback.
func (p *Plane) CreateThread(ctx context.Context, req CreateThreadRequest) (*models.Thread, error) {
	if req.Name == "" {
		return nil, invalidInput("name is required")
	}
	if req.Task == "" {
		return nil, invalidInput("task is required")
	}
	if req.RepoPath == "" {
		return nil, invalidInput("repoPath is required")
	}

	agentName := req.Agent
	if agentName == "" {
		agentName = p.cfg.Agent.Default
	}
	if _, err := p.agents.Get(agentName); err != nil {
		return nil, invalidInput("unknown agent %q", agentName)
	}

	id := uuid.NewString()
	wt, err := p.worktrees.Create(ctx, req.RepoPath, id)
	if err != nil {
		if errors.Is(err, worktree.ErrNotARepository) {
			return nil, invalidInput("%s is not inside a git repository", req.RepoPath)
		}
		return nil, err
	}

	validateCmds := req.Validate
	if validateCmds == nil {
		validateCmds = []string{}
	}

	now := time.Now().UTC().Truncate(time.Second)
	thread := &models.Thread{
		ID:           id,
		Name:         req.Name,
		Task:         req.Task,
		RepoPath:     wt.RepoRoot,
		WorktreePath: wt.Path,
		Branch:       wt.Branch,
		Agent:        agentName,
		Validate:     validateCmds,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := p.store.CreateThread(thread); err != nil {
		if rmErr := p.worktrees.Remove(ctx, wt.RepoRoot, wt.Path); rmErr != nil {
			p.log.Error("roll back worktree", "path", wt.Path, "error", rmErr)
		}
		return nil, fmt.Errorf("create thread: %w", err)
	}

	p.emit(models.EventThreadCreated, thread.ID, "", models.ThreadCreatedPayload{
		Name:     thread.Name,
		RepoPath: thread.RepoPath,
		Agent:    thread.Agent,
	})
	p.emit(models.EventThreadWorktreeCreated, thread.ID, "", models.WorktreeCreatedPayload{
		Path:   wt.Path,
		Branch: wt.Branch,
	})

	p.log.Info("thread created", "thread", thread.ID, "name", thread.Name, "worktree", wt.Path)
	return thread, nil
}

// ListThreads returns all threads, newest first, with their runs embedded.
func (p *Plane) ListThreads() ([]models.Thread, error) {
	threads, err := p.store.ListThreads()
	if err != nil {
		return nil, err
	}
	for i := range threads {
		runs, err := p.store.ListRunsByThread(threads[i].ID)
		if err != nil {
			return nil, err
		}
		threads[i].Runs = runs
	}
	return threads, nil
}

// GetThread returns one thread with its runs embedded.
func (p *Plane) GetThread(id string) (*models.Thread, error) {
	thread, err := p.getThread(id)
	if err != nil {
		return nil, err
	}
	runs, err := p.store.ListRunsByThread(id)
	if err != nil {
		return nil, err
	}
	thread.Runs = runs
	return thread, nil
}

// ThreadEvents returns the thread's journal, newest first.
func (p *Plane) ThreadEvents(threadID string, limit int) ([]models.Event, error) {
	if _, err := p.getThread(threadID); err != nil {
		return nil, err
	}
	return p.store.ThreadEvents(threadID, limit)
}

// ThreadDiff returns the worktree's uncolored diff against HEAD.
func (p *Plane) ThreadDiff(ctx context.Context, threadID string) (string, error) {
	thread, err := p.getThread(threadID)
	if err != nil {
		return "", err
	}
	diff, err := p.differ(thread.WorktreePath).DiffHead(ctx)
	if err != nil {
		return "", fmt.Errorf("diff thread %s: %w", threadID, err)
	}
	return diff, nil
}

// getThread loads a thread without embedding runs, wrapping absence in
// ErrNotFound.
func (p *Plane) getThread(id string) (*models.Thread, error) {
	thread, err := p.store.GetThread(id)
	if err != nil {
		return nil, err
	}
	if thread == nil {
		return nil, fmt.Errorf("thread %s: %w", id, ErrNotFound)
	}
	return thread, nil
}
