package automation

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/ShayCichocki/ralphd/pkg/models"
)

// seedEntry is one item of the automations seed file.
type seedEntry struct {
	Name          string `yaml:"name"`
	Cron          string `yaml:"cron"`
	ThreadID      string `yaml:"thread_id"`
	MaxIterations int    `yaml:"max_iterations"`
	Enabled       *bool  `yaml:"enabled"`
}

// SeedFromFile creates the automations listed in a YAML file, skipping any
// whose name already exists. Entries with an invalid cron or an unknown
// thread are logged and skipped rather than failing the whole seed. Returns
// how many automations were created.
func SeedFromFile(st Store, emit Emitter, path string, defaultMaxIterations int, logger *log.Logger) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read automations seed: %w", err)
	}

	var entries []seedEntry
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return 0, fmt.Errorf("parse automations seed: %w", err)
	}

	existing, err := st.ListAutomations()
	if err != nil {
		return 0, err
	}
	names := make(map[string]bool, len(existing))
	for _, a := range existing {
		names[a.Name] = true
	}

	created := 0
	for _, e := range entries {
		if e.Name == "" || names[e.Name] {
			continue
		}
		if _, err := ParseCron(e.Cron); err != nil {
			logger.Warn("seed entry has invalid cron, skipping", "name", e.Name, "error", err)
			continue
		}

		maxIter := e.MaxIterations
		if maxIter <= 0 {
			maxIter = defaultMaxIterations
		}
		enabled := true
		if e.Enabled != nil {
			enabled = *e.Enabled
		}

		a := &models.Automation{
			ID:            uuid.NewString(),
			Name:          e.Name,
			Cron:          e.Cron,
			ThreadID:      e.ThreadID,
			MaxIterations: maxIter,
			Enabled:       enabled,
			CreatedAt:     time.Now().UTC().Truncate(time.Second),
		}
		// An unknown thread fails the foreign key here; skip and move on.
		if err := st.CreateAutomation(a); err != nil {
			logger.Warn("seed entry rejected, skipping", "name", e.Name, "error", err)
			continue
		}

		emit(models.EventAutomationCreated, a.ThreadID, "", models.AutomationCreatedPayload{
			AutomationID: a.ID,
			Name:         a.Name,
			Cron:         a.Cron,
		})
		names[a.Name] = true
		created++
	}

	return created, nil
}
