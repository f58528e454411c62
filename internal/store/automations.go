package store

import (
	"database/sql"
	"fmt"

	"github.com/ShayCichocki/ralphd/pkg/models"
)

// CreateAutomation inserts a new automation.
func (db *DB) CreateAutomation(a *models.Automation) error {
	_, err := db.exec(`
		INSERT INTO automations (id, name, cron, thread_id, max_iterations, enabled, last_triggered_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.Name, a.Cron, a.ThreadID, a.MaxIterations, boolToInt(a.Enabled), formatNullableTime(a.LastTriggeredAt), formatTime(a.CreatedAt))
	if err != nil {
		return fmt.Errorf("create automation: %w", err)
	}
	return nil
}

// GetAutomation retrieves an automation by ID. Returns (nil, nil) when absent.
func (db *DB) GetAutomation(id string) (*models.Automation, error) {
	row := db.queryRow(`
		SELECT id, name, cron, thread_id, max_iterations, enabled, last_triggered_at, created_at
		FROM automations WHERE id = ?
	`, id)

	a, err := scanAutomation(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get automation: %w", err)
	}
	return a, nil
}

// UpdateAutomation updates an automation.
func (db *DB) UpdateAutomation(a *models.Automation) error {
	_, err := db.exec(`
		UPDATE automations SET name = ?, cron = ?, thread_id = ?, max_iterations = ?, enabled = ?, last_triggered_at = ?
		WHERE id = ?
	`, a.Name, a.Cron, a.ThreadID, a.MaxIterations, boolToInt(a.Enabled), formatNullableTime(a.LastTriggeredAt), a.ID)
	if err != nil {
		return fmt.Errorf("update automation: %w", err)
	}
	return nil
}

// ListAutomations lists all automations in creation order.
func (db *DB) ListAutomations() ([]models.Automation, error) {
	return db.listAutomations(`
		SELECT id, name, cron, thread_id, max_iterations, enabled, last_triggered_at, created_at
		FROM automations ORDER BY created_at, id
	`)
}

// ListEnabledAutomations lists automations the scheduler should consider.
func (db *DB) ListEnabledAutomations() ([]models.Automation, error) {
	return db.listAutomations(`
		SELECT id, name, cron, thread_id, max_iterations, enabled, last_triggered_at, created_at
		FROM automations WHERE enabled = 1 ORDER BY created_at, id
	`)
}

func (db *DB) listAutomations(query string, args ...any) ([]models.Automation, error) {
	rows, err := db.query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list automations: %w", err)
	}
	defer rows.Close()

	var automations []models.Automation
	for rows.Next() {
		a, err := scanAutomation(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan automation: %w", err)
		}
		automations = append(automations, *a)
	}
	return automations, rows.Err()
}

// scanAutomation scans one automation row through the given scan function.
func scanAutomation(scan func(dest ...any) error) (*models.Automation, error) {
	var a models.Automation
	var enabled int
	var lastTriggered sql.NullString
	var createdAt string
	err := scan(&a.ID, &a.Name, &a.Cron, &a.ThreadID, &a.MaxIterations, &enabled, &lastTriggered, &createdAt)
	if err != nil {
		return nil, err
	}

	a.Enabled = enabled != 0
	a.LastTriggeredAt = parseNullableTime(lastTriggered)
	a.CreatedAt, _ = parseTime(createdAt)
	return &a, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
