package models

import "time"

// CommentStatus represents the lifecycle state of a review comment.
type CommentStatus string

const (
	// CommentStatusOpen indicates the comment has not been folded into a rerun.
	CommentStatusOpen CommentStatus = "open"
	// CommentStatusApplied indicates the comment was consumed by a feedback rerun.
	CommentStatusApplied CommentStatus = "applied"
)

// ReviewComment is inline feedback on a diff line. File path and line number
// are free-form; they are never verified against the current diff.
type ReviewComment struct {
	// ID is the unique identifier for this comment.
	ID string `json:"id"`
	// ThreadID is the thread the comment belongs to.
	ThreadID string `json:"threadId"`
	// RunID cites the run whose diff was being reviewed, if any.
	RunID string `json:"runId,omitempty"`
	// FilePath is the commented file, in new-side coordinates.
	FilePath string `json:"filePath"`
	// LineNumber is the 1-based line in the new side of the diff.
	LineNumber int `json:"lineNumber"`
	// Body is the comment text.
	Body string `json:"body"`
	// Status transitions open to applied exactly once.
	Status CommentStatus `json:"status"`
	// CreatedAt is when the comment was created.
	CreatedAt time.Time `json:"createdAt"`
}
