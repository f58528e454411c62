package control

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ShayCichocki/ralphd/pkg/models"
)

// CreateRunRequest carries the optional fields of POST /threads/{id}/runs.
type CreateRunRequest struct {
	MaxIterations int
	TaskOverride  string
	SourceRunID   string
}

// CreateRun persists a queued run, journals run.queued, and hands it to the
// queue.
func (p *Plane) CreateRun(threadID string, req CreateRunRequest) (*models.Run, error) {
	if _, err := p.getThread(threadID); err != nil {
		return nil, err
	}

	if req.SourceRunID != "" {
		source, err := p.store.GetRun(req.SourceRunID)
		if err != nil {
			return nil, err
		}
		if source == nil || source.ThreadID != threadID {
			return nil, invalidInput("unknown source run %q", req.SourceRunID)
		}
	}

	maxIterations := req.MaxIterations
	if maxIterations <= 0 {
		maxIterations = p.cfg.Loop.MaxIterations
	}

	run := &models.Run{
		ID:            uuid.NewString(),
		ThreadID:      threadID,
		Status:        models.RunStatusQueued,
		MaxIterations: maxIterations,
		TaskOverride:  req.TaskOverride,
		SourceRunID:   req.SourceRunID,
		CreatedAt:     time.Now().UTC().Truncate(time.Second),
	}
	if err := p.store.CreateRun(run); err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}

	p.emit(models.EventRunQueued, threadID, run.ID, nil)
	p.queue.Enqueue(run)

	p.log.Info("run queued", "run", run.ID, "thread", threadID, "maxIterations", maxIterations)
	return run, nil
}

// GetRun returns one run.
func (p *Plane) GetRun(id string) (*models.Run, error) {
	run, err := p.store.GetRun(id)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	return run, nil
}

// ControlRun applies a lifecycle action to a run. For retry it returns the
// newly created run; for the others, the run's current state.
func (p *Plane) ControlRun(runID, action string) (*models.Run, error) {
	run, err := p.GetRun(runID)
	if err != nil {
		return nil, err
	}

	switch action {
	case "pause":
		if err := p.queue.Pause(runID); err != nil {
			return nil, err
		}
	case "resume":
		if err := p.queue.Resume(runID); err != nil {
			return nil, err
		}
	case "stop":
		stopped, err := p.queue.Stop(runID)
		if err != nil {
			return nil, err
		}
		if !stopped {
			return nil, fmt.Errorf("%w: run %s is %s", ErrConflict, runID, run.Status)
		}
	case "retry":
		if !run.Status.Terminal() {
			return nil, fmt.Errorf("%w: cannot retry a %s run", ErrConflict, run.Status)
		}
		return p.CreateRun(run.ThreadID, CreateRunRequest{
			MaxIterations: run.MaxIterations,
			TaskOverride:  run.TaskOverride,
			SourceRunID:   run.ID,
		})
	default:
		return nil, invalidInput("unknown action %q", action)
	}

	return p.GetRun(runID)
}
