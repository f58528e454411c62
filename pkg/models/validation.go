package models

// ValidationResult is the outcome of a single validation command.
type ValidationResult struct {
	// Command is the shell command that was executed.
	Command string `json:"command"`
	// Passed is true when the command exited zero.
	Passed bool `json:"passed"`
	// Stdout is the captured standard output.
	Stdout string `json:"stdout"`
	// Stderr is the captured standard error.
	Stderr string `json:"stderr"`
	// ExitCode is the command's exit code.
	ExitCode int `json:"exitCode"`
	// ElapsedMs is the wall-clock duration in milliseconds.
	ElapsedMs int64 `json:"elapsedMs"`
}

// ValidationReport aggregates the results of an ordered validation pass.
// Score for loop purposes is PassCount: higher is better, ties mean no change.
type ValidationReport struct {
	// Results holds one entry per command, in execution order.
	Results []ValidationResult `json:"results"`
	// PassCount is the number of commands that exited zero.
	PassCount int `json:"passCount"`
	// TotalCount is the number of commands executed.
	TotalCount int `json:"totalCount"`
	// AllPassed is true when every command exited zero.
	AllPassed bool `json:"allPassed"`
}

// PRDContext carries the optional product-requirements framing for a run
// driven from a task list: the task's position, the surrounding project, and
// what has already been finished.
type PRDContext struct {
	// TaskID is the identifier used in checkpoint commit messages.
	TaskID string `json:"taskId"`
	// TaskIndex is the 1-based position of the task in the list.
	TaskIndex int `json:"taskIndex"`
	// TaskTotal is the number of tasks in the list.
	TaskTotal int `json:"taskTotal"`
	// Project is the project name.
	Project string `json:"project"`
	// Description is the project description.
	Description string `json:"description,omitempty"`
	// AcceptanceCriteria lists the task's acceptance criteria.
	AcceptanceCriteria []string `json:"acceptanceCriteria,omitempty"`
	// CompletedSummary summarizes previously completed tasks.
	CompletedSummary string `json:"completedSummary,omitempty"`
}
