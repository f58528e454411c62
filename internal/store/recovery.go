package store

import (
	"fmt"
	"time"

	"github.com/ShayCichocki/ralphd/pkg/models"
)

// RecoverInterrupted repairs run state after a daemon restart. Any run still
// marked running lost its loop when the previous process died, so it is moved
// to failed with a finished-at stamp. The repaired runs are returned so the
// caller can journal their failure. Queued runs are left alone; the queue
// re-adopts them separately.
func (db *DB) RecoverInterrupted() ([]models.Run, error) {
	running, err := db.ListRunsByStatus(models.RunStatusRunning)
	if err != nil {
		return nil, fmt.Errorf("list interrupted runs: %w", err)
	}

	now := time.Now().UTC().Truncate(time.Second)
	for i := range running {
		r := &running[i]
		r.Status = models.RunStatusFailed
		r.Error = "interrupted by daemon restart"
		r.FinishedAt = &now
		if err := db.UpdateRun(r); err != nil {
			return nil, fmt.Errorf("fail interrupted run %s: %w", r.ID, err)
		}
	}
	return running, nil
}
