// Package exec runs child processes for ralphd: agent subprocesses, VCS
// commands, and validation commands. Execution never returns a Go error;
// every outcome, including a failed spawn, is carried in the Result so
// callers score exit codes instead of handling exceptions.
package exec

import (
	"context"
	"time"
)

// Result is the outcome of a child process execution. On spawn failure the
// runner synthesizes ExitCode 1 with the error message in Stderr.
type Result struct {
	// Stdout is the captured standard output.
	Stdout string
	// Stderr is the captured standard error.
	Stderr string
	// ExitCode is the process exit code; non-zero when killed or failed.
	ExitCode int
	// ElapsedMs is the wall-clock duration in milliseconds.
	ElapsedMs int64
}

// Options carries per-invocation settings.
type Options struct {
	// Dir is the working directory; empty means the caller's cwd.
	Dir string
	// Env holds KEY=VALUE pairs merged over the process environment.
	Env []string
	// Timeout kills the child after the given duration; zero means none.
	Timeout time.Duration
}

// Runner defines the interface for running external commands. The argv form
// never passes input through a shell; RunShell is opt-in and reserved for
// validation commands, where pipes and && are expected to work.
type Runner interface {
	// Run executes name with args. Cancellation of ctx terminates the child.
	Run(ctx context.Context, name string, args []string, opts Options) Result

	// RunShell executes command through "sh -c".
	RunShell(ctx context.Context, command string, opts Options) Result
}
