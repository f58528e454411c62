package control

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ShayCichocki/ralphd/internal/review"
	"github.com/ShayCichocki/ralphd/pkg/models"
)

// CreateCommentRequest carries the fields of POST /threads/{id}/comments.
type CreateCommentRequest struct {
	RunID      string
	FilePath   string
	LineNumber int
	Body       string
}

// CreateComment stores an open review comment against the thread. The file
// path and line number are free-form; they are not verified against the
// current diff.
func (p *Plane) CreateComment(threadID string, req CreateCommentRequest) (*models.ReviewComment, error) {
	if _, err := p.getThread(threadID); err != nil {
		return nil, err
	}
	if req.FilePath == "" {
		return nil, invalidInput("filePath is required")
	}
	if req.LineNumber < 1 {
		return nil, invalidInput("lineNumber must be 1 or greater")
	}
	if req.Body == "" {
		return nil, invalidInput("body is required")
	}
	if req.RunID != "" {
		cited, err := p.store.GetRun(req.RunID)
		if err != nil {
			return nil, err
		}
		if cited == nil || cited.ThreadID != threadID {
			return nil, invalidInput("unknown run %q", req.RunID)
		}
	}

	comment := &models.ReviewComment{
		ID:         uuid.NewString(),
		ThreadID:   threadID,
		RunID:      req.RunID,
		FilePath:   req.FilePath,
		LineNumber: req.LineNumber,
		Body:       req.Body,
		Status:     models.CommentStatusOpen,
		CreatedAt:  time.Now().UTC().Truncate(time.Second),
	}
	if err := p.store.CreateComment(comment); err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}

	p.emit(models.EventReviewCommentCreated, threadID, comment.RunID, models.CommentCreatedPayload{
		CommentID:  comment.ID,
		FilePath:   comment.FilePath,
		LineNumber: comment.LineNumber,
	})
	return comment, nil
}

// ListComments returns the thread's comments in submission order.
func (p *Plane) ListComments(threadID string) ([]models.ReviewComment, error) {
	if _, err := p.getThread(threadID); err != nil {
		return nil, err
	}
	return p.store.ListComments(threadID)
}

// RerunFromComments folds the selected comments into a fresh run's task
// override, marks them applied, and enqueues the run. Comments belonging to
// other threads are silently ignored; selecting none that match is an input
// error.
func (p *Plane) RerunFromComments(threadID string, commentIDs []string) (*models.Run, error) {
	thread, err := p.getThread(threadID)
	if err != nil {
		return nil, err
	}
	if len(commentIDs) == 0 {
		return nil, invalidInput("commentIds is required")
	}

	comments, err := p.store.GetCommentsByIDs(threadID, commentIDs)
	if err != nil {
		return nil, err
	}
	if len(comments) == 0 {
		return nil, invalidInput("no matching comments on thread %s", threadID)
	}

	run, err := p.CreateRun(threadID, CreateRunRequest{
		TaskOverride: review.BuildTaskOverride(thread.Task, comments),
		SourceRunID:  review.SourceRunID(comments),
	})
	if err != nil {
		return nil, err
	}

	matched := make([]string, len(comments))
	for i, c := range comments {
		matched[i] = c.ID
	}
	if err := p.store.MarkCommentsApplied(threadID, matched); err != nil {
		p.log.Error("mark comments applied", "thread", threadID, "error", err)
	}

	p.emit(models.EventReviewRerunQueued, threadID, run.ID, models.RerunQueuedPayload{
		RunID:      run.ID,
		CommentIDs: matched,
	})
	return run, nil
}
