package exec

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"time"
)

// ProcessRunner implements Runner using os/exec.
type ProcessRunner struct{}

// NewRunner creates a new ProcessRunner.
func NewRunner() *ProcessRunner {
	return &ProcessRunner{}
}

// Run executes a command with an explicit argv and returns its Result. It
// never returns an error: spawn failures synthesize ExitCode 1 with the
// message in Stderr, and a context cancellation or timeout surfaces as a
// non-zero exit after the child is killed.
func (r *ProcessRunner) Run(ctx context.Context, name string, args []string, opts Options) Result {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, name, args...)
	if opts.Dir != "" {
		cmd.Dir = opts.Dir
	}
	if len(opts.Env) > 0 {
		cmd.Env = append(os.Environ(), opts.Env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start).Milliseconds()

	res := Result{
		Stdout:    stdout.String(),
		Stderr:    stderr.String(),
		ElapsedMs: elapsed,
	}

	if err != nil {
		var exitErr *exec.ExitError
		switch {
		case errors.As(err, &exitErr):
			res.ExitCode = exitErr.ExitCode()
			// Killed by signal (timeout or cancellation) reports -1.
			if res.ExitCode < 0 {
				res.ExitCode = 1
				if res.Stderr == "" {
					res.Stderr = err.Error()
				}
			}
		default:
			// Spawn failure: command not found, permission denied, bad dir.
			res.ExitCode = 1
			if res.Stderr == "" {
				res.Stderr = err.Error()
			}
		}
	}

	return res
}

// RunShell executes a command line through "sh -c" so pipes and && work.
// Reserved for validation commands; agent and VCS invocations always use the
// argv form.
func (r *ProcessRunner) RunShell(ctx context.Context, command string, opts Options) Result {
	return r.Run(ctx, "sh", []string{"-c", command}, opts)
}

// Verify ProcessRunner implements Runner at compile time.
var _ Runner = (*ProcessRunner)(nil)
