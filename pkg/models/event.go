package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventKind identifies the type of a journal event. The set is closed; new
// kinds are additions to this list, never ad-hoc strings.
type EventKind string

const (
	EventThreadCreated         EventKind = "thread.created"
	EventThreadWorktreeCreated EventKind = "thread.worktree.created"
	EventReviewCommentCreated  EventKind = "review.comment.created"
	EventReviewRerunQueued     EventKind = "review.rerun.queued"
	EventAutomationCreated     EventKind = "automation.created"
	EventAutomationTriggered   EventKind = "automation.triggered"
	EventRunQueued             EventKind = "run.queued"
	EventRunStarted            EventKind = "run.started"
	EventRunPaused             EventKind = "run.paused"
	EventRunResumed            EventKind = "run.resumed"
	EventRunCancelled          EventKind = "run.cancelled"
	EventRunCompleted          EventKind = "run.completed"
	EventRunFailed             EventKind = "run.failed"
	EventIterationStarted      EventKind = "loop.iteration.started"
	EventAgentSpawned          EventKind = "loop.agent.spawned"
	EventAgentExited           EventKind = "loop.agent.exited"
	EventValidationCompleted   EventKind = "loop.validation.completed"
	EventRegressionReverted    EventKind = "loop.regression.reverted"
	EventCheckpointCommitted   EventKind = "loop.checkpoint.committed"
)

// Valid returns true if the kind is part of the closed set.
func (k EventKind) Valid() bool {
	switch k {
	case EventThreadCreated, EventThreadWorktreeCreated,
		EventReviewCommentCreated, EventReviewRerunQueued,
		EventAutomationCreated, EventAutomationTriggered,
		EventRunQueued, EventRunStarted, EventRunPaused, EventRunResumed,
		EventRunCancelled, EventRunCompleted, EventRunFailed,
		EventIterationStarted, EventAgentSpawned, EventAgentExited,
		EventValidationCompleted, EventRegressionReverted, EventCheckpointCommitted:
		return true
	default:
		return false
	}
}

// Event is an immutable record of something observable. Identifiers are
// assigned by the journal at append time and strictly increase; payloads are
// stored and forwarded as raw JSON so unknown fields round-trip untouched.
type Event struct {
	// ID is the monotonic journal identifier.
	ID int64 `json:"id"`
	// ThreadID is the thread the event belongs to.
	ThreadID string `json:"threadId"`
	// RunID is set when the event was produced by or about a specific run.
	RunID string `json:"runId,omitempty"`
	// Type is the event kind.
	Type EventKind `json:"type"`
	// Payload is the kind-specific structured payload.
	Payload json.RawMessage `json:"payload"`
	// CreatedAt is assigned by the journal at append time.
	CreatedAt time.Time `json:"createdAt"`
}

// NewEvent builds an unjournaled event (ID and CreatedAt zero) with the given
// payload marshaled to JSON. A nil payload becomes an empty JSON object.
func NewEvent(kind EventKind, threadID, runID string, payload any) (Event, error) {
	raw := json.RawMessage(`{}`)
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return Event{}, fmt.Errorf("marshal %s payload: %w", kind, err)
		}
		raw = b
	}
	return Event{
		ThreadID: threadID,
		RunID:    runID,
		Type:     kind,
		Payload:  raw,
	}, nil
}

// Typed payloads, one variant per event kind that carries data. Kinds absent
// here journal an empty object.

// ThreadCreatedPayload accompanies thread.created.
type ThreadCreatedPayload struct {
	Name     string `json:"name"`
	RepoPath string `json:"repoPath"`
	Agent    string `json:"agent"`
}

// WorktreeCreatedPayload accompanies thread.worktree.created.
type WorktreeCreatedPayload struct {
	Path   string `json:"path"`
	Branch string `json:"branch"`
}

// CommentCreatedPayload accompanies review.comment.created.
type CommentCreatedPayload struct {
	CommentID  string `json:"commentId"`
	FilePath   string `json:"filePath"`
	LineNumber int    `json:"lineNumber"`
}

// RerunQueuedPayload accompanies review.rerun.queued.
type RerunQueuedPayload struct {
	RunID      string   `json:"runId"`
	CommentIDs []string `json:"commentIds"`
}

// AutomationCreatedPayload accompanies automation.created.
type AutomationCreatedPayload struct {
	AutomationID string `json:"automationId"`
	Name         string `json:"name"`
	Cron         string `json:"cron"`
}

// AutomationTriggeredPayload accompanies automation.triggered.
type AutomationTriggeredPayload struct {
	AutomationID string `json:"automationId"`
	RunID        string `json:"runId"`
}

// RunCompletedPayload accompanies run.completed.
type RunCompletedPayload struct {
	Iterations int `json:"iterations"`
}

// RunFailedPayload accompanies run.failed.
type RunFailedPayload struct {
	Message string `json:"message"`
}

// IterationStartedPayload accompanies loop.iteration.started.
type IterationStartedPayload struct {
	Iteration int `json:"iteration"`
}

// AgentSpawnedPayload accompanies loop.agent.spawned.
type AgentSpawnedPayload struct {
	Iteration int    `json:"iteration"`
	Agent     string `json:"agent"`
}

// AgentExitedPayload accompanies loop.agent.exited.
type AgentExitedPayload struct {
	Iteration int   `json:"iteration"`
	ExitCode  int   `json:"exitCode"`
	ElapsedMs int64 `json:"elapsedMs"`
}

// ValidationCompletedPayload accompanies loop.validation.completed.
type ValidationCompletedPayload struct {
	Iteration  int  `json:"iteration"`
	PassCount  int  `json:"passCount"`
	TotalCount int  `json:"totalCount"`
	AllPassed  bool `json:"allPassed"`
}

// RegressionRevertedPayload accompanies loop.regression.reverted.
type RegressionRevertedPayload struct {
	Iteration int `json:"iteration"`
	Score     int `json:"score"`
	BestScore int `json:"bestScore"`
}

// CheckpointCommittedPayload accompanies loop.checkpoint.committed.
type CheckpointCommittedPayload struct {
	Iteration int `json:"iteration"`
	Score     int `json:"score"`
	Total     int `json:"total"`
}
