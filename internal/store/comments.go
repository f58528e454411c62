package store

import (
	"database/sql"
	"fmt"

	"github.com/ShayCichocki/ralphd/pkg/models"
)

// CreateComment inserts a new review comment.
func (db *DB) CreateComment(c *models.ReviewComment) error {
	_, err := db.exec(`
		INSERT INTO review_comments (id, thread_id, run_id, file_path, line_number, body, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.ThreadID, c.RunID, c.FilePath, c.LineNumber, c.Body, string(c.Status), formatTime(c.CreatedAt))
	if err != nil {
		return fmt.Errorf("create comment: %w", err)
	}
	return nil
}

// ListComments lists a thread's review comments in submission order.
func (db *DB) ListComments(threadID string) ([]models.ReviewComment, error) {
	rows, err := db.query(`
		SELECT id, thread_id, run_id, file_path, line_number, body, status, created_at
		FROM review_comments WHERE thread_id = ? ORDER BY created_at, id
	`, threadID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	var comments []models.ReviewComment
	for rows.Next() {
		c, err := scanComment(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, *c)
	}
	return comments, rows.Err()
}

// GetCommentsByIDs returns the requested comments in the requested order,
// restricted to the given thread. IDs that don't exist or belong to another
// thread are silently dropped.
func (db *DB) GetCommentsByIDs(threadID string, ids []string) ([]models.ReviewComment, error) {
	var comments []models.ReviewComment
	for _, id := range ids {
		row := db.queryRow(`
			SELECT id, thread_id, run_id, file_path, line_number, body, status, created_at
			FROM review_comments WHERE id = ? AND thread_id = ?
		`, id, threadID)

		c, err := scanComment(row.Scan)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("get comment %s: %w", id, err)
		}
		comments = append(comments, *c)
	}
	return comments, nil
}

// MarkCommentsApplied flips the given comments from open to applied. Comments
// already applied, missing, or on another thread are left untouched.
func (db *DB) MarkCommentsApplied(threadID string, ids []string) error {
	for _, id := range ids {
		_, err := db.exec(`
			UPDATE review_comments SET status = ? WHERE id = ? AND thread_id = ? AND status = ?
		`, string(models.CommentStatusApplied), id, threadID, string(models.CommentStatusOpen))
		if err != nil {
			return fmt.Errorf("mark comment %s applied: %w", id, err)
		}
	}
	return nil
}

// scanComment scans one comment row through the given scan function.
func scanComment(scan func(dest ...any) error) (*models.ReviewComment, error) {
	var c models.ReviewComment
	var createdAt string
	err := scan(&c.ID, &c.ThreadID, &c.RunID, &c.FilePath, &c.LineNumber, &c.Body, &c.Status, &createdAt)
	if err != nil {
		return nil, err
	}

	c.CreatedAt, _ = parseTime(createdAt)
	return &c, nil
}
