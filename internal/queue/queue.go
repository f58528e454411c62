// Package queue owns run scheduling: a FIFO of pending runs, a bounded set
// of executing runs, and the cancellation handles of the latter. The queue
// drives each run through the status state machine and journals every
// transition; the iteration loop itself is injected as a callback.
package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/ShayCichocki/ralphd/internal/loop"
	"github.com/ShayCichocki/ralphd/pkg/models"
)

// DefaultMaxConcurrent caps simultaneous runs when no cap is configured.
const DefaultMaxConcurrent = 2

// ErrNotFound is returned when the referenced run doesn't exist.
var ErrNotFound = errors.New("run not found")

// ErrIllegalTransition is returned when an operation is valid in general but
// not in the run's current state.
var ErrIllegalTransition = errors.New("illegal run transition")

// Store is the slice of the persistence layer the queue needs.
type Store interface {
	GetRun(id string) (*models.Run, error)
	UpdateRun(r *models.Run) error
}

// Emitter journals and broadcasts a queue lifecycle event.
type Emitter func(kind models.EventKind, threadID, runID string, payload any)

// RunFunc executes one run to completion: it owns the iteration loop and
// everything thread-specific. The queue wraps it with status transitions,
// panic recovery, and slot accounting.
type RunFunc func(ctx context.Context, run *models.Run) (loop.Result, error)

type queuedRun struct {
	id       string
	threadID string
}

// Queue is the run scheduler. Construct with New.
type Queue struct {
	store         Store
	emit          Emitter
	runFn         RunFunc
	maxConcurrent int
	log           *log.Logger

	mu          sync.Mutex
	pending     []queuedRun
	running     map[string]string // run id -> thread id
	controllers map[string]context.CancelFunc

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a run queue. A non-positive maxConcurrent falls back to
// DefaultMaxConcurrent.
func New(store Store, emit Emitter, runFn RunFunc, maxConcurrent int, logger *log.Logger) *Queue {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Queue{
		store:         store,
		emit:          emit,
		runFn:         runFn,
		maxConcurrent: maxConcurrent,
		log:           logger,
		running:       make(map[string]string),
		controllers:   make(map[string]context.CancelFunc),
		ctx:           ctx,
		cancel:        cancel,
	}
}

// Enqueue adds a run to the pending FIFO and ticks. The caller has already
// persisted the run as queued and journaled run.queued.
func (q *Queue) Enqueue(run *models.Run) {
	q.mu.Lock()
	q.pending = append(q.pending, queuedRun{id: run.ID, threadID: run.ThreadID})
	q.tickLocked()
	q.mu.Unlock()
}

// Pause takes a pending run out of the queue. Pausing a running run is not
// supported; stop it instead.
func (q *Queue) Pause(runID string) error {
	q.mu.Lock()
	idx := q.pendingIndexLocked(runID)
	if idx < 0 {
		q.mu.Unlock()
		run, err := q.store.GetRun(runID)
		if err != nil {
			return err
		}
		if run == nil {
			return ErrNotFound
		}
		return fmt.Errorf("%w: cannot pause a %s run", ErrIllegalTransition, run.Status)
	}
	q.pending = append(q.pending[:idx], q.pending[idx+1:]...)
	q.mu.Unlock()

	run, err := q.store.GetRun(runID)
	if err != nil {
		return err
	}
	if run == nil {
		return ErrNotFound
	}
	run.Status = models.RunStatusPaused
	if err := q.store.UpdateRun(run); err != nil {
		return err
	}
	q.emit(models.EventRunPaused, run.ThreadID, run.ID, nil)
	return nil
}

// Resume puts a paused run back into the queue.
func (q *Queue) Resume(runID string) error {
	run, err := q.store.GetRun(runID)
	if err != nil {
		return err
	}
	if run == nil {
		return ErrNotFound
	}
	if run.Status != models.RunStatusPaused {
		return fmt.Errorf("%w: cannot resume a %s run", ErrIllegalTransition, run.Status)
	}

	run.Status = models.RunStatusQueued
	if err := q.store.UpdateRun(run); err != nil {
		return err
	}
	q.emit(models.EventRunResumed, run.ThreadID, run.ID, nil)
	q.Enqueue(run)
	return nil
}

// Stop cancels a run. A pending run is cancelled immediately; a running run
// has its controller aborted and is finalized by its executor. Returns false
// when the run is in neither collection.
func (q *Queue) Stop(runID string) (bool, error) {
	q.mu.Lock()
	if idx := q.pendingIndexLocked(runID); idx >= 0 {
		q.pending = append(q.pending[:idx], q.pending[idx+1:]...)
		q.mu.Unlock()

		run, err := q.store.GetRun(runID)
		if err != nil {
			return false, err
		}
		if run == nil {
			return false, ErrNotFound
		}
		now := time.Now().UTC().Truncate(time.Second)
		run.Status = models.RunStatusCancelled
		run.FinishedAt = &now
		if err := q.store.UpdateRun(run); err != nil {
			return false, err
		}
		q.emit(models.EventRunCancelled, run.ThreadID, run.ID, nil)
		return true, nil
	}

	if cancel, ok := q.controllers[runID]; ok {
		q.mu.Unlock()
		cancel()
		return true, nil
	}

	q.mu.Unlock()
	return false, nil
}

// Tick fills free slots from the pending FIFO.
func (q *Queue) Tick() {
	q.mu.Lock()
	q.tickLocked()
	q.mu.Unlock()
}

// RunningCount returns the number of currently executing runs.
func (q *Queue) RunningCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.running)
}

// Close aborts all executing runs and waits for their executors to finish.
func (q *Queue) Close() {
	q.cancel()
	q.wg.Wait()
}

// tickLocked pops eligible pending runs while slots are free. A run is
// eligible when its thread has no executing run, so two runs on one thread
// never race on the worktree. FIFO order is preserved among eligible runs.
// Callers must hold q.mu.
func (q *Queue) tickLocked() {
	for len(q.running) < q.maxConcurrent && len(q.pending) > 0 {
		idx := -1
		for i, p := range q.pending {
			if !q.threadBusyLocked(p.threadID) {
				idx = i
				break
			}
		}
		if idx < 0 {
			return
		}

		p := q.pending[idx]
		q.pending = append(q.pending[:idx], q.pending[idx+1:]...)

		run, err := q.store.GetRun(p.id)
		if err != nil {
			q.log.Error("load queued run", "run", p.id, "error", err)
			continue
		}
		// Paused or stopped while pending; nothing to start.
		if run == nil || run.Status != models.RunStatusQueued {
			continue
		}

		runCtx, cancel := context.WithCancel(q.ctx)
		q.controllers[p.id] = cancel
		q.running[p.id] = p.threadID

		q.wg.Add(1)
		go q.execute(runCtx, run)
	}
}

func (q *Queue) threadBusyLocked(threadID string) bool {
	for _, tid := range q.running {
		if tid == threadID {
			return true
		}
	}
	return false
}

func (q *Queue) pendingIndexLocked(runID string) int {
	for i, p := range q.pending {
		if p.id == runID {
			return i
		}
	}
	return -1
}

// execute drives one run: marks it running, invokes the loop, finalizes the
// terminal status. The deferred block releases the slot and re-ticks no
// matter how the loop ended.
func (q *Queue) execute(ctx context.Context, run *models.Run) {
	defer q.wg.Done()
	defer func() {
		q.mu.Lock()
		delete(q.controllers, run.ID)
		delete(q.running, run.ID)
		q.tickLocked()
		q.mu.Unlock()
	}()

	now := time.Now().UTC().Truncate(time.Second)
	run.Status = models.RunStatusRunning
	run.StartedAt = &now
	if err := q.store.UpdateRun(run); err != nil {
		q.log.Error("mark run running", "run", run.ID, "error", err)
	}
	q.emit(models.EventRunStarted, run.ThreadID, run.ID, nil)

	var result loop.Result
	var runErr error
	func() {
		defer func() {
			if r := recover(); r != nil {
				runErr = fmt.Errorf("run panicked: %v", r)
			}
		}()
		result, runErr = q.runFn(ctx, run)
	}()

	q.finalize(ctx, run, result, runErr)
}

// finalize records the terminal status. Cancellation takes precedence over
// failure: a stopped run is never marked failed, whatever the loop reported.
func (q *Queue) finalize(ctx context.Context, run *models.Run, result loop.Result, runErr error) {
	finished := time.Now().UTC().Truncate(time.Second)
	run.Iterations = result.Iterations
	run.FinishedAt = &finished

	switch {
	case result.Cancelled || ctx.Err() != nil:
		run.Status = models.RunStatusCancelled
	case runErr != nil:
		run.Status = models.RunStatusFailed
		run.Error = runErr.Error()
	case result.Success:
		run.Status = models.RunStatusCompleted
	default:
		run.Status = models.RunStatusFailed
		run.Error = "Loop ended before completion"
	}

	if err := q.store.UpdateRun(run); err != nil {
		q.log.Error("finalize run", "run", run.ID, "error", err)
	}

	switch run.Status {
	case models.RunStatusCancelled:
		q.emit(models.EventRunCancelled, run.ThreadID, run.ID, nil)
	case models.RunStatusFailed:
		q.emit(models.EventRunFailed, run.ThreadID, run.ID, models.RunFailedPayload{Message: run.Error})
	case models.RunStatusCompleted:
		q.emit(models.EventRunCompleted, run.ThreadID, run.ID, models.RunCompletedPayload{Iterations: run.Iterations})
	}

	q.log.Info("run finished", "run", run.ID, "status", run.Status, "iterations", run.Iterations)
}
