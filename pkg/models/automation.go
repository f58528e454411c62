package models

import "time"

// Automation is a recurring trigger bound to a thread. Its cron expression
// uses a five-field dialect that accepts only integer literals and `*`.
type Automation struct {
	// ID is the unique identifier for this automation.
	ID string `json:"id"`
	// Name is the human-readable label.
	Name string `json:"name"`
	// Cron is the five-field schedule expression.
	Cron string `json:"cron"`
	// ThreadID is the thread new runs are created against.
	ThreadID string `json:"threadId"`
	// MaxIterations is the iteration budget given to triggered runs.
	MaxIterations int `json:"maxIterations"`
	// Enabled gates whether the scheduler considers this automation.
	Enabled bool `json:"enabled"`
	// LastTriggeredAt is when the automation last fired; a tick in the same
	// minute bucket never fires a second run.
	LastTriggeredAt *time.Time `json:"lastTriggeredAt,omitempty"`
	// CreatedAt is when the automation was created.
	CreatedAt time.Time `json:"createdAt"`
}
