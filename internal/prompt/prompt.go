// Package prompt assembles the text handed to the agent at the start of each
// iteration. Build is a pure function of its context: equal contexts produce
// byte-identical prompts.
package prompt

import (
	"fmt"
	"strings"

	"github.com/ShayCichocki/ralphd/pkg/models"
)

// Context carries everything one iteration's prompt is built from.
type Context struct {
	// Task is the task text, including any override.
	Task string
	// Iteration is the current 1-based iteration number.
	Iteration int
	// MaxIterations is the run's iteration budget.
	MaxIterations int
	// ProgressContent is the progress document read at iteration start.
	ProgressContent string
	// ProgressExists is false when the document could not be read.
	ProgressExists bool
	// ValidateCommands are the commands that define done.
	ValidateCommands []string
	// Secret is the completion token the agent must echo.
	Secret string
	// ProgressFile is the progress document's filename inside the worktree.
	ProgressFile string
	// LastFailureOutput is the previous iteration's failure context.
	LastFailureOutput string
	// WasReverted is true when the previous iteration was rolled back.
	WasReverted bool
	// PRD is set when the run works through a task list.
	PRD *models.PRDContext
}

// Build renders the prompt. Sections appear in a fixed order: task, optional
// project framing, rules, progress, optional revert warning, optional prior
// failures, completion instruction.
func Build(c Context) string {
	var sb strings.Builder

	sb.WriteString(c.Task)
	sb.WriteString("\n")

	if c.PRD != nil {
		writePRD(&sb, c.PRD)
	}

	writeRules(&sb, c)
	writeProgress(&sb, c)

	if c.WasReverted {
		sb.WriteString("\n## Warning\n\n")
		sb.WriteString("Your previous iteration lowered the validation score, so all of its changes were reverted. ")
		sb.WriteString("The worktree is back at the last good state. Take a different approach this time.\n")
	}

	if c.LastFailureOutput != "" {
		sb.WriteString("\n## Previous validation failures\n\n")
		sb.WriteString(c.LastFailureOutput)
		sb.WriteString("\n")
	}

	sb.WriteString("\n## Completion\n\n")
	sb.WriteString("When the task is fully done and every validation command passes, end your reply with this exact line:\n\n")
	sb.WriteString(c.Secret)
	sb.WriteString("\n\nDo not output that line under any other circumstances.\n")

	return sb.String()
}

func writePRD(sb *strings.Builder, prd *models.PRDContext) {
	fmt.Fprintf(sb, "\n## Project: %s (task %d of %d)\n\n", prd.Project, prd.TaskIndex, prd.TaskTotal)
	if prd.Description != "" {
		sb.WriteString(prd.Description)
		sb.WriteString("\n\n")
	}
	if len(prd.AcceptanceCriteria) > 0 {
		sb.WriteString("Acceptance criteria:\n")
		for _, ac := range prd.AcceptanceCriteria {
			fmt.Fprintf(sb, "- %s\n", ac)
		}
		sb.WriteString("\n")
	}
	if prd.CompletedSummary != "" {
		fmt.Fprintf(sb, "Already completed: %s\n", prd.CompletedSummary)
	}
}

func writeRules(sb *strings.Builder, c Context) {
	sb.WriteString("\n## Rules\n\n")
	fmt.Fprintf(sb, "- This is iteration %d of %d.\n", c.Iteration, c.MaxIterations)
	fmt.Fprintf(sb, "- Read %s before changing anything, and append a short entry for this iteration describing what you did and what remains.\n", c.ProgressFile)
	sb.WriteString("- Work in small steps. Do not commit; checkpoints are handled for you.\n")
	if len(c.ValidateCommands) > 0 {
		sb.WriteString("- These commands must all pass:\n")
		for i, cmd := range c.ValidateCommands {
			fmt.Fprintf(sb, "  %d. %s\n", i+1, cmd)
		}
	} else {
		sb.WriteString("- There are no validation commands; judge completion against the task description.\n")
	}
}

func writeProgress(sb *strings.Builder, c Context) {
	if c.ProgressExists {
		sb.WriteString("\n## Progress so far\n\n")
		sb.WriteString(c.ProgressContent)
		if !strings.HasSuffix(c.ProgressContent, "\n") {
			sb.WriteString("\n")
		}
		return
	}
	sb.WriteString("\n## Progress so far\n\n")
	sb.WriteString("This is the first iteration. Nothing has been recorded yet.\n")
}
