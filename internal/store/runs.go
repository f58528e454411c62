package store

import (
	"database/sql"
	"fmt"

	"github.com/ShayCichocki/ralphd/pkg/models"
)

// CreateRun inserts a new run row.
func (db *DB) CreateRun(r *models.Run) error {
	_, err := db.exec(`
		INSERT INTO runs (id, thread_id, status, max_iterations, iterations, task_override, source_run_id, error, created_at, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.ThreadID, string(r.Status), r.MaxIterations, r.Iterations, r.TaskOverride, r.SourceRunID, r.Error,
		formatTime(r.CreatedAt), formatNullableTime(r.StartedAt), formatNullableTime(r.FinishedAt))
	if err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID. Returns (nil, nil) when absent.
func (db *DB) GetRun(id string) (*models.Run, error) {
	row := db.queryRow(`
		SELECT id, thread_id, status, max_iterations, iterations, task_override, source_run_id, error, created_at, started_at, finished_at
		FROM runs WHERE id = ?
	`, id)

	r, err := scanRun(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return r, nil
}

// UpdateRun updates a run's mutable fields. Task override and source run are
// fixed at creation and never rewritten.
func (db *DB) UpdateRun(r *models.Run) error {
	_, err := db.exec(`
		UPDATE runs SET status = ?, iterations = ?, error = ?, started_at = ?, finished_at = ?
		WHERE id = ?
	`, string(r.Status), r.Iterations, r.Error, formatNullableTime(r.StartedAt), formatNullableTime(r.FinishedAt), r.ID)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	return nil
}

// ListRunsByThread lists a thread's runs, newest first.
func (db *DB) ListRunsByThread(threadID string) ([]models.Run, error) {
	rows, err := db.query(`
		SELECT id, thread_id, status, max_iterations, iterations, task_override, source_run_id, error, created_at, started_at, finished_at
		FROM runs WHERE thread_id = ? ORDER BY created_at DESC, id
	`, threadID)
	if err != nil {
		return nil, fmt.Errorf("list runs by thread: %w", err)
	}
	defer rows.Close()

	return collectRuns(rows)
}

// ListRunsByStatus lists all runs in the given status, oldest first. The
// queue uses this at startup to restore its FIFO order.
func (db *DB) ListRunsByStatus(status models.RunStatus) ([]models.Run, error) {
	rows, err := db.query(`
		SELECT id, thread_id, status, max_iterations, iterations, task_override, source_run_id, error, created_at, started_at, finished_at
		FROM runs WHERE status = ? ORDER BY created_at, id
	`, string(status))
	if err != nil {
		return nil, fmt.Errorf("list runs by status: %w", err)
	}
	defer rows.Close()

	return collectRuns(rows)
}

func collectRuns(rows *sql.Rows) ([]models.Run, error) {
	var runs []models.Run
	for rows.Next() {
		r, err := scanRun(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

// scanRun scans one run row through the given scan function.
func scanRun(scan func(dest ...any) error) (*models.Run, error) {
	var r models.Run
	var createdAt string
	var startedAt, finishedAt sql.NullString
	err := scan(&r.ID, &r.ThreadID, &r.Status, &r.MaxIterations, &r.Iterations, &r.TaskOverride, &r.SourceRunID, &r.Error,
		&createdAt, &startedAt, &finishedAt)
	if err != nil {
		return nil, err
	}

	r.CreatedAt, _ = parseTime(createdAt)
	r.StartedAt = parseNullableTime(startedAt)
	r.FinishedAt = parseNullableTime(finishedAt)
	return &r, nil
}
