// Package prd loads and saves product-requirement documents: a JSON task
// list the local run mode works through one task at a time, persisting each
// task's pass state back to the file.
package prd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/ShayCichocki/ralphd/pkg/models"
)

// Document is a parsed prd.json.
type Document struct {
	// Project names the overall effort.
	Project string `json:"project"`
	// Description frames the project for the agent.
	Description string `json:"description,omitempty"`
	// BranchName optionally names the branch the work belongs on.
	BranchName string `json:"branch_name,omitempty"`
	// Tasks is the ordered work list.
	Tasks []Task `json:"tasks"`
}

// Task is one unit of work in the document.
type Task struct {
	// ID appears in checkpoint commit messages.
	ID string `json:"id"`
	// Title is the short label.
	Title string `json:"title"`
	// Description is the full statement of the work.
	Description string `json:"description"`
	// AcceptanceCriteria list what must hold for the task to pass.
	AcceptanceCriteria []string `json:"acceptance_criteria,omitempty"`
	// Passes records whether the task has been completed.
	Passes bool `json:"passes"`
}

// Load reads and validates a prd.json.
func Load(path string) (*Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prd: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse prd: %w", err)
	}
	if doc.Project == "" {
		return nil, fmt.Errorf("prd: missing project name")
	}
	if len(doc.Tasks) == 0 {
		return nil, fmt.Errorf("prd: no tasks")
	}
	for i, task := range doc.Tasks {
		if task.ID == "" {
			return nil, fmt.Errorf("prd: task %d has no id", i+1)
		}
	}
	return &doc, nil
}

// Save writes the document back, preserving the two-space indentation the
// generators produce.
func (d *Document) Save(path string) error {
	raw, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("encode prd: %w", err)
	}
	raw = append(raw, '\n')
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write prd: %w", err)
	}
	return nil
}

// NextUnfinished returns the index of the first task that doesn't pass yet,
// or -1 when everything is done.
func (d *Document) NextUnfinished() int {
	for i, task := range d.Tasks {
		if !task.Passes {
			return i
		}
	}
	return -1
}

// Remaining counts tasks that don't pass yet.
func (d *Document) Remaining() int {
	n := 0
	for _, task := range d.Tasks {
		if !task.Passes {
			n++
		}
	}
	return n
}

// CompletedSummary lists finished tasks, one per line, for the prompt's
// done-work section. Empty when nothing has passed.
func (d *Document) CompletedSummary() string {
	var lines []string
	for _, task := range d.Tasks {
		if task.Passes {
			lines = append(lines, fmt.Sprintf("- %s: %s", task.ID, task.Title))
		}
	}
	return strings.Join(lines, "\n")
}

// ContextFor builds the loop's PRD context for the task at index i.
func (d *Document) ContextFor(i int) *models.PRDContext {
	task := d.Tasks[i]
	return &models.PRDContext{
		TaskID:             task.ID,
		TaskIndex:          i + 1,
		TaskTotal:          len(d.Tasks),
		Project:            d.Project,
		Description:        d.Description,
		AcceptanceCriteria: task.AcceptanceCriteria,
		CompletedSummary:   d.CompletedSummary(),
	}
}

// TaskText is the task statement handed to the loop: title and description
// when both are present, whichever exists otherwise.
func (t Task) TaskText() string {
	switch {
	case t.Title != "" && t.Description != "":
		return t.Title + "\n\n" + t.Description
	case t.Description != "":
		return t.Description
	default:
		return t.Title
	}
}
