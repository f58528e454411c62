package control

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ShayCichocki/ralphd/internal/automation"
	"github.com/ShayCichocki/ralphd/pkg/models"
)

// CreateAutomationRequest carries the fields of POST /automations.
type CreateAutomationRequest struct {
	Name          string
	Cron          string
	ThreadID      string
	MaxIterations int
	Enabled       *bool
}

// CreateAutomation validates the cron expression and persists the
// automation. Enabled defaults to true.
func (p *Plane) CreateAutomation(req CreateAutomationRequest) (*models.Automation, error) {
	if req.Name == "" {
		return nil, invalidInput("name is required")
	}
	if _, err := automation.ParseCron(req.Cron); err != nil {
		return nil, invalidInput("%v", err)
	}
	if _, err := p.getThread(req.ThreadID); err != nil {
		return nil, err
	}

	maxIterations := req.MaxIterations
	if maxIterations <= 0 {
		maxIterations = p.cfg.Loop.MaxIterations
	}
	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	a := &models.Automation{
		ID:            uuid.NewString(),
		Name:          req.Name,
		Cron:          req.Cron,
		ThreadID:      req.ThreadID,
		MaxIterations: maxIterations,
		Enabled:       enabled,
		CreatedAt:     time.Now().UTC().Truncate(time.Second),
	}
	if err := p.store.CreateAutomation(a); err != nil {
		return nil, fmt.Errorf("create automation: %w", err)
	}

	p.emit(models.EventAutomationCreated, a.ThreadID, "", models.AutomationCreatedPayload{
		AutomationID: a.ID,
		Name:         a.Name,
		Cron:         a.Cron,
	})
	p.log.Info("automation created", "automation", a.ID, "name", a.Name, "cron", a.Cron)
	return a, nil
}

// ListAutomations returns every automation, enabled or not.
func (p *Plane) ListAutomations() ([]models.Automation, error) {
	return p.store.ListAutomations()
}

// ToggleAutomation flips the enabled flag.
func (p *Plane) ToggleAutomation(id string, enabled bool) (*models.Automation, error) {
	a, err := p.store.GetAutomation(id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, fmt.Errorf("automation %s: %w", id, ErrNotFound)
	}

	a.Enabled = enabled
	if err := p.store.UpdateAutomation(a); err != nil {
		return nil, fmt.Errorf("toggle automation: %w", err)
	}
	return a, nil
}

// TriggerAutomation fires the automation immediately and returns the run it
// created.
func (p *Plane) TriggerAutomation(id string) (*models.Run, error) {
	return p.scheduler.TriggerNow(id)
}
