// Package control is the daemon's core: one Plane value owns the store, the
// run queue, the broadcast hub, the automation scheduler, and the worktree
// manager, and exposes the operations the HTTP layer serves. There is no
// ambient state; everything hangs off the Plane built at startup.
package control

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/ShayCichocki/ralphd/internal/agent"
	"github.com/ShayCichocki/ralphd/internal/automation"
	"github.com/ShayCichocki/ralphd/internal/broadcast"
	"github.com/ShayCichocki/ralphd/internal/config"
	"github.com/ShayCichocki/ralphd/internal/exec"
	"github.com/ShayCichocki/ralphd/internal/git"
	"github.com/ShayCichocki/ralphd/internal/loop"
	"github.com/ShayCichocki/ralphd/internal/progress"
	"github.com/ShayCichocki/ralphd/internal/queue"
	"github.com/ShayCichocki/ralphd/internal/store"
	"github.com/ShayCichocki/ralphd/internal/validate"
	"github.com/ShayCichocki/ralphd/internal/worktree"
	"github.com/ShayCichocki/ralphd/pkg/models"
)

// WorktreeManager isolates the worktree operations the plane needs.
type WorktreeManager interface {
	Create(ctx context.Context, repoPath, threadID string) (*worktree.Info, error)
	Remove(ctx context.Context, repoPath, path string) error
}

// LoopRunner executes the iteration loop for one run.
type LoopRunner interface {
	Run(ctx context.Context, cfg loop.Config, emit loop.Emitter) (loop.Result, error)
}

// Plane wires the daemon together. Construct with New, then Start.
type Plane struct {
	cfg       *config.Config
	log       *log.Logger
	store     *store.DB
	hub       *broadcast.Hub
	queue     *queue.Queue
	scheduler *automation.Scheduler
	agents    *agent.Registry
	worktrees WorktreeManager
	loop      LoopRunner
	differ    func(dir string) git.DiffOperations
	group     *errgroup.Group
}

// New opens the store, runs migrations, and assembles the plane. Nothing
// executes until Start.
func New(cfg *config.Config, logger *log.Logger) (*Plane, error) {
	db, err := store.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}

	execr := exec.NewRunner()
	registry := agent.NewRegistry(agent.Options{
		Model:           cfg.Agent.Model,
		AdditionalFlags: cfg.Agent.AdditionalFlags,
	})
	validator := validate.NewRunner(execr, cfg.Loop.ValidateTimeout)

	p := &Plane{
		cfg:       cfg,
		log:       logger,
		store:     db,
		hub:       broadcast.New(0),
		agents:    registry,
		worktrees: worktree.NewManager(),
		loop:      loop.New(registry, execr, validator, logger.WithPrefix("loop")),
		differ:    func(dir string) git.DiffOperations { return git.NewRunner(dir) },
	}
	p.queue = queue.New(db, p.emit, p.runLoop, cfg.Queue.MaxConcurrent, logger.WithPrefix("queue"))
	p.scheduler = automation.NewScheduler(db, p.launchAutomation, p.emit, logger.WithPrefix("automation"))
	return p, nil
}

// Hub exposes the broadcast hub for the WebSocket layer.
func (p *Plane) Hub() *broadcast.Hub {
	return p.hub
}

// Start repairs state left by an unclean shutdown, re-adopts queued runs,
// seeds automations, and launches the scheduler. Background work stops when
// ctx is cancelled; Wait reports its outcome.
func (p *Plane) Start(ctx context.Context) error {
	if err := p.recoverRuns(); err != nil {
		return fmt.Errorf("startup recovery: %w", err)
	}

	if p.cfg.Automations.File != "" {
		created, err := automation.SeedFromFile(p.store, p.emit, p.cfg.Automations.File, p.cfg.Loop.MaxIterations, p.log)
		if err != nil {
			return fmt.Errorf("seed automations: %w", err)
		}
		if created > 0 {
			p.log.Info("seeded automations", "file", p.cfg.Automations.File, "created", created)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	p.group = g
	g.Go(func() error { return p.scheduler.Run(gctx) })
	return nil
}

// Wait blocks until the background work started by Start has finished.
func (p *Plane) Wait() error {
	if p.group == nil {
		return nil
	}
	return p.group.Wait()
}

// Shutdown aborts executing runs, waits for their executors, and closes the
// hub and store.
func (p *Plane) Shutdown() {
	p.queue.Close()
	p.hub.Close()
	if err := p.store.Close(); err != nil {
		p.log.Error("close store", "error", err)
	}
}

// recoverRuns marks runs orphaned in status running as failed and puts
// persisted queued runs back into the queue, oldest first.
func (p *Plane) recoverRuns() error {
	repaired, err := p.store.RecoverInterrupted()
	if err != nil {
		return err
	}
	for _, run := range repaired {
		p.emit(models.EventRunFailed, run.ThreadID, run.ID, models.RunFailedPayload{Message: run.Error})
		p.log.Warn("recovered interrupted run", "run", run.ID, "thread", run.ThreadID)
	}

	queued, err := p.store.ListRunsByStatus(models.RunStatusQueued)
	if err != nil {
		return err
	}
	for i := range queued {
		p.queue.Enqueue(&queued[i])
	}
	if len(queued) > 0 {
		p.log.Info("re-adopted queued runs", "count", len(queued))
	}
	return nil
}

// emit journals an event and, on success, broadcasts it to live observers.
// Journal failures are logged, never fatal.
func (p *Plane) emit(kind models.EventKind, threadID, runID string, payload any) {
	ev, err := models.NewEvent(kind, threadID, runID, payload)
	if err != nil {
		p.log.Error("build event", "kind", kind, "error", err)
		return
	}
	stored, err := p.store.AppendEvent(ev)
	if err != nil {
		p.log.Error("journal event", "kind", kind, "thread", threadID, "error", err)
		return
	}
	p.hub.Publish(stored)
}

// runLoop is the queue's executor body: it resolves the thread, mirrors the
// progress document to live observers, and hands control to the iteration
// loop.
func (p *Plane) runLoop(ctx context.Context, run *models.Run) (loop.Result, error) {
	thread, err := p.store.GetThread(run.ThreadID)
	if err != nil {
		return loop.Result{}, err
	}
	if thread == nil {
		return loop.Result{}, fmt.Errorf("thread %s not found", run.ThreadID)
	}

	progressFile := p.cfg.Loop.ProgressFile
	if progressFile == "" {
		progressFile = progress.DefaultFileName(thread.ID)
	}

	if w, err := progress.Watch(thread.ID, thread.WorktreePath, progressFile); err != nil {
		p.log.Warn("progress watcher unavailable", "thread", thread.ID, "error", err)
	} else {
		defer w.Close()
		go func() {
			for u := range w.Updates() {
				p.hub.PublishProgress(u.ThreadID, u.Content)
			}
		}()
	}

	cfg := loop.Config{
		WorktreePath:           thread.WorktreePath,
		Task:                   run.TaskText(thread),
		ValidateCommands:       thread.Validate,
		MaxIterations:          run.MaxIterations,
		ProgressFile:           progressFile,
		FailureContextMaxChars: p.cfg.Loop.FailureContextMaxChars,
		GitCheckpoint:          p.cfg.Loop.GitCheckpoint,
		AgentName:              thread.Agent,
		DelaySeconds:           p.cfg.Loop.DelaySeconds,
		AgentTimeout:           p.cfg.Loop.AgentTimeout,
	}
	emit := func(kind models.EventKind, payload any) {
		p.emit(kind, thread.ID, run.ID, payload)
	}
	return p.loop.Run(ctx, cfg, emit)
}

// launchAutomation is the scheduler's launch hook: a fresh run on the linked
// thread with the automation's iteration budget.
func (p *Plane) launchAutomation(a *models.Automation) (*models.Run, error) {
	return p.CreateRun(a.ThreadID, CreateRunRequest{MaxIterations: a.MaxIterations})
}
