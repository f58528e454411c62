package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShayCichocki/ralphd/pkg/models"
)

func baseContext() Context {
	return Context{
		Task:             "Add a healthcheck endpoint",
		Iteration:        2,
		MaxIterations:    10,
		ProgressContent:  "# Ralph Loop Progress\n\niteration 1: scaffolded handler\n",
		ProgressExists:   true,
		ValidateCommands: []string{"go build ./...", "go test ./..."},
		Secret:           "RALPH_COMPLETE_deadbeef",
		ProgressFile:     "ralph-progress-t1.md",
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	c := baseContext()

	assert.Equal(t, Build(c), Build(c))
}

func TestBuildSectionOrder(t *testing.T) {
	c := baseContext()
	c.WasReverted = true
	c.LastFailureOutput = "### go test ./... (FAILED (exit code 1))\n```\nboom\n```"

	got := Build(c)

	task := strings.Index(got, "Add a healthcheck endpoint")
	rules := strings.Index(got, "## Rules")
	progress := strings.Index(got, "## Progress so far")
	warning := strings.Index(got, "## Warning")
	failures := strings.Index(got, "## Previous validation failures")
	completion := strings.Index(got, "## Completion")

	for name, idx := range map[string]int{
		"task": task, "rules": rules, "progress": progress,
		"warning": warning, "failures": failures, "completion": completion,
	} {
		require.GreaterOrEqual(t, idx, 0, "section %s missing", name)
	}

	assert.Less(t, task, rules)
	assert.Less(t, rules, progress)
	assert.Less(t, progress, warning)
	assert.Less(t, warning, failures)
	assert.Less(t, failures, completion)
}

func TestBuildNamesIterationAndCommands(t *testing.T) {
	got := Build(baseContext())

	assert.Contains(t, got, "iteration 2 of 10")
	assert.Contains(t, got, "ralph-progress-t1.md")
	assert.Contains(t, got, "1. go build ./...")
	assert.Contains(t, got, "2. go test ./...")
}

func TestBuildSecretIsNamed(t *testing.T) {
	got := Build(baseContext())

	assert.Contains(t, got, "RALPH_COMPLETE_deadbeef")
}

func TestBuildFirstIterationNotice(t *testing.T) {
	c := baseContext()
	c.ProgressExists = false
	c.ProgressContent = ""

	got := Build(c)

	assert.Contains(t, got, "first iteration")
	assert.NotContains(t, got, "scaffolded handler")
}

func TestBuildOmitsConditionalSections(t *testing.T) {
	got := Build(baseContext())

	assert.NotContains(t, got, "## Warning")
	assert.NotContains(t, got, "## Previous validation failures")
}

func TestBuildNoValidationCommands(t *testing.T) {
	c := baseContext()
	c.ValidateCommands = nil

	got := Build(c)

	assert.Contains(t, got, "no validation commands")
}

func TestBuildWithPRDContext(t *testing.T) {
	c := baseContext()
	c.PRD = &models.PRDContext{
		TaskID:             "T-3",
		TaskIndex:          3,
		TaskTotal:          5,
		Project:            "Checkout revamp",
		Description:        "Rebuild the checkout flow.",
		AcceptanceCriteria: []string{"cart survives reload", "payment errors are retried"},
		CompletedSummary:   "T-1 (cart model), T-2 (session store)",
	}

	got := Build(c)

	assert.Contains(t, got, "## Project: Checkout revamp (task 3 of 5)")
	assert.Contains(t, got, "- cart survives reload")
	assert.Contains(t, got, "- payment errors are retried")
	assert.Contains(t, got, "T-1 (cart model)")

	// Project framing sits between the task and the rules.
	assert.Less(t, strings.Index(got, "Add a healthcheck endpoint"), strings.Index(got, "## Project:"))
	assert.Less(t, strings.Index(got, "## Project:"), strings.Index(got, "## Rules"))
}
