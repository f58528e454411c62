package automation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/ShayCichocki/ralphd/pkg/models"
)

// DefaultTickInterval is how often the scheduler evaluates cron expressions.
const DefaultTickInterval = 30 * time.Second

// ErrNotFound is returned when the referenced automation doesn't exist.
var ErrNotFound = errors.New("automation not found")

// Store is the slice of the persistence layer the scheduler needs.
type Store interface {
	ListAutomations() ([]models.Automation, error)
	ListEnabledAutomations() ([]models.Automation, error)
	GetAutomation(id string) (*models.Automation, error)
	CreateAutomation(a *models.Automation) error
	UpdateAutomation(a *models.Automation) error
}

// Emitter journals and broadcasts an automation event.
type Emitter func(kind models.EventKind, threadID, runID string, payload any)

// LaunchFunc creates and enqueues a run on the automation's thread with the
// automation's iteration budget. The control plane implements it and journals
// run.queued there.
type LaunchFunc func(a *models.Automation) (*models.Run, error)

// Scheduler fires automations whose cron matches the wall clock. Construct
// with NewScheduler.
type Scheduler struct {
	store    Store
	launch   LaunchFunc
	emit     Emitter
	interval time.Duration
	now      func() time.Time
	log      *log.Logger
}

// NewScheduler creates a scheduler ticking at DefaultTickInterval.
func NewScheduler(store Store, launch LaunchFunc, emit Emitter, logger *log.Logger) *Scheduler {
	return &Scheduler{
		store:    store,
		launch:   launch,
		emit:     emit,
		interval: DefaultTickInterval,
		now:      time.Now,
		log:      logger,
	}
}

// Run ticks until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.tick(s.now())
		}
	}
}

// tick fires every enabled automation whose cron matches now and whose last
// trigger fell in an earlier minute bucket. A 30-second tick visits each
// minute twice; the bucket check keeps the second visit from double-firing.
func (s *Scheduler) tick(now time.Time) {
	autos, err := s.store.ListEnabledAutomations()
	if err != nil {
		s.log.Error("list automations", "error", err)
		return
	}

	for i := range autos {
		a := &autos[i]
		spec, err := ParseCron(a.Cron)
		if err != nil {
			s.log.Warn("automation has invalid cron, skipping", "automation", a.ID, "error", err)
			continue
		}
		if !spec.Matches(now) || sameMinuteBucket(a.LastTriggeredAt, now) {
			continue
		}
		if _, err := s.fire(a, now); err != nil {
			s.log.Error("fire automation", "automation", a.ID, "name", a.Name, "error", err)
		}
	}
}

// TriggerNow fires the automation immediately, skipping the cron match and
// the minute-bucket dedupe. Disabled automations fire too; the manual intent
// is explicit.
func (s *Scheduler) TriggerNow(id string) (*models.Run, error) {
	a, err := s.store.GetAutomation(id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, ErrNotFound
	}
	return s.fire(a, s.now())
}

func (s *Scheduler) fire(a *models.Automation, now time.Time) (*models.Run, error) {
	run, err := s.launch(a)
	if err != nil {
		return nil, fmt.Errorf("launch run: %w", err)
	}
	s.emit(models.EventAutomationTriggered, a.ThreadID, run.ID, models.AutomationTriggeredPayload{
		AutomationID: a.ID,
		RunID:        run.ID,
	})

	stamped := now.UTC().Truncate(time.Second)
	a.LastTriggeredAt = &stamped
	if err := s.store.UpdateAutomation(a); err != nil {
		return run, fmt.Errorf("stamp last trigger: %w", err)
	}

	s.log.Info("automation fired", "automation", a.ID, "name", a.Name, "run", run.ID)
	return run, nil
}
