package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ShayCichocki/ralphd/pkg/models"
)

// DefaultEventLimit bounds thread event queries when the caller passes no
// explicit limit.
const DefaultEventLimit = 200

// AppendEvent journals an event, assigning its identifier and creation
// timestamp, and returns the completed record. The journal is append-only;
// rows are never updated or deleted.
func (db *DB) AppendEvent(ev models.Event) (models.Event, error) {
	ev.CreatedAt = time.Now().UTC().Truncate(time.Second)
	if len(ev.Payload) == 0 {
		ev.Payload = json.RawMessage(`{}`)
	}

	var runID *string
	if ev.RunID != "" {
		runID = &ev.RunID
	}

	res, err := db.exec(`
		INSERT INTO events (thread_id, run_id, type, payload, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, ev.ThreadID, runID, string(ev.Type), string(ev.Payload), formatTime(ev.CreatedAt))
	if err != nil {
		return models.Event{}, fmt.Errorf("append event: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return models.Event{}, fmt.Errorf("event id: %w", err)
	}
	ev.ID = id
	return ev, nil
}

// GetEvent retrieves an event by ID. Returns (nil, nil) when absent.
func (db *DB) GetEvent(id int64) (*models.Event, error) {
	row := db.queryRow(`
		SELECT id, thread_id, run_id, type, payload, created_at
		FROM events WHERE id = ?
	`, id)

	ev, err := scanEvent(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	return ev, nil
}

// ThreadEvents lists a thread's events newest first. A limit of zero or less
// falls back to DefaultEventLimit.
func (db *DB) ThreadEvents(threadID string, limit int) ([]models.Event, error) {
	if limit <= 0 {
		limit = DefaultEventLimit
	}

	rows, err := db.query(`
		SELECT id, thread_id, run_id, type, payload, created_at
		FROM events WHERE thread_id = ? ORDER BY created_at DESC, id DESC LIMIT ?
	`, threadID, limit)
	if err != nil {
		return nil, fmt.Errorf("list thread events: %w", err)
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		ev, err := scanEvent(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, *ev)
	}
	return events, rows.Err()
}

// scanEvent scans one event row through the given scan function.
func scanEvent(scan func(dest ...any) error) (*models.Event, error) {
	var ev models.Event
	var runID sql.NullString
	var payload, createdAt string
	err := scan(&ev.ID, &ev.ThreadID, &runID, &ev.Type, &payload, &createdAt)
	if err != nil {
		return nil, err
	}

	if runID.Valid {
		ev.RunID = runID.String
	}
	ev.Payload = json.RawMessage(payload)
	ev.CreatedAt, _ = parseTime(createdAt)
	return &ev, nil
}
