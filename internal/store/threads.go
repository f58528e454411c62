package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/ShayCichocki/ralphd/pkg/models"
)

// CreateThread inserts a new thread row.
func (db *DB) CreateThread(t *models.Thread) error {
	validate, _ := json.Marshal(t.Validate)

	_, err := db.exec(`
		INSERT INTO threads (id, name, task, repo_path, worktree_path, branch, agent, validate_commands, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.Name, t.Task, t.RepoPath, t.WorktreePath, t.Branch, t.Agent, string(validate), formatTime(t.CreatedAt), formatTime(t.UpdatedAt))
	if err != nil {
		return fmt.Errorf("create thread: %w", err)
	}
	return nil
}

// GetThread retrieves a thread by ID. Returns (nil, nil) when absent.
func (db *DB) GetThread(id string) (*models.Thread, error) {
	row := db.queryRow(`
		SELECT id, name, task, repo_path, worktree_path, branch, agent, validate_commands, created_at, updated_at
		FROM threads WHERE id = ?
	`, id)

	t, err := scanThread(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get thread: %w", err)
	}
	return t, nil
}

// UpdateThread updates a thread's mutable fields and its updated-at stamp.
func (db *DB) UpdateThread(t *models.Thread) error {
	validate, _ := json.Marshal(t.Validate)

	_, err := db.exec(`
		UPDATE threads SET name = ?, task = ?, worktree_path = ?, branch = ?, agent = ?, validate_commands = ?, updated_at = ?
		WHERE id = ?
	`, t.Name, t.Task, t.WorktreePath, t.Branch, t.Agent, string(validate), formatTime(t.UpdatedAt), t.ID)
	if err != nil {
		return fmt.Errorf("update thread: %w", err)
	}
	return nil
}

// ListThreads lists all threads, newest first.
func (db *DB) ListThreads() ([]models.Thread, error) {
	rows, err := db.query(`
		SELECT id, name, task, repo_path, worktree_path, branch, agent, validate_commands, created_at, updated_at
		FROM threads ORDER BY created_at DESC, id
	`)
	if err != nil {
		return nil, fmt.Errorf("list threads: %w", err)
	}
	defer rows.Close()

	var threads []models.Thread
	for rows.Next() {
		t, err := scanThread(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan thread: %w", err)
		}
		threads = append(threads, *t)
	}
	return threads, rows.Err()
}

// scanThread scans one thread row through the given scan function.
func scanThread(scan func(dest ...any) error) (*models.Thread, error) {
	var t models.Thread
	var validate string
	var createdAt, updatedAt string
	err := scan(&t.ID, &t.Name, &t.Task, &t.RepoPath, &t.WorktreePath, &t.Branch, &t.Agent, &validate, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	json.Unmarshal([]byte(validate), &t.Validate)
	t.CreatedAt, _ = parseTime(createdAt)
	t.UpdatedAt, _ = parseTime(updatedAt)
	return &t, nil
}
