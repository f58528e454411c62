package models

import "time"

// RunStatus represents the current state of a run.
type RunStatus string

const (
	// RunStatusQueued indicates the run is waiting for a queue slot.
	RunStatusQueued RunStatus = "queued"
	// RunStatusRunning indicates the iteration loop is executing.
	RunStatusRunning RunStatus = "running"
	// RunStatusPaused indicates a pending run was taken out of the queue.
	RunStatusPaused RunStatus = "paused"
	// RunStatusCompleted indicates the agent finished and all validations passed.
	RunStatusCompleted RunStatus = "completed"
	// RunStatusFailed indicates the loop ended without completion or errored.
	RunStatusFailed RunStatus = "failed"
	// RunStatusCancelled indicates the run was stopped before completion.
	RunStatusCancelled RunStatus = "cancelled"
)

// Valid returns true if the status is a known value.
func (s RunStatus) Valid() bool {
	switch s {
	case RunStatusQueued, RunStatusRunning, RunStatusPaused,
		RunStatusCompleted, RunStatusFailed, RunStatusCancelled:
		return true
	default:
		return false
	}
}

// Terminal returns true if the status accepts no further transitions.
func (s RunStatus) Terminal() bool {
	switch s {
	case RunStatusCompleted, RunStatusFailed, RunStatusCancelled:
		return true
	default:
		return false
	}
}

// Run is one bounded attempt to drive a thread's task to completion.
type Run struct {
	// ID is the unique identifier for this run.
	ID string `json:"id"`
	// ThreadID is the owning thread.
	ThreadID string `json:"threadId"`
	// Status is the current state; transitions follow the queue's state machine.
	Status RunStatus `json:"status"`
	// MaxIterations is the iteration budget for this run.
	MaxIterations int `json:"maxIterations"`
	// Iterations is the number of iterations consumed so far.
	Iterations int `json:"iterations"`
	// TaskOverride replaces the thread's task text for this run, if set.
	TaskOverride string `json:"taskOverride,omitempty"`
	// SourceRunID backreferences the run this one was derived from, if any.
	SourceRunID string `json:"sourceRunId,omitempty"`
	// Error holds the failure message when the run ends in status failed.
	Error string `json:"error,omitempty"`
	// CreatedAt is when the run was created.
	CreatedAt time.Time `json:"createdAt"`
	// StartedAt is set when the run first transitions to running.
	StartedAt *time.Time `json:"startedAt,omitempty"`
	// FinishedAt is set when the run reaches a terminal status.
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
}

// TaskText returns the effective task for this run: the override when
// present, otherwise the thread's base task.
func (r *Run) TaskText(thread *Thread) string {
	if r.TaskOverride != "" {
		return r.TaskOverride
	}
	return thread.Task
}
