// Package validate runs a thread's validation commands in its worktree and
// scores the outcome. The score is the number of passing commands; the loop
// compares scores across iterations to detect regressions.
package validate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ShayCichocki/ralphd/internal/exec"
	"github.com/ShayCichocki/ralphd/pkg/models"
)

// TruncationSentinel marks failure context whose head was dropped to fit
// the char cap. The sentinel counts toward the cap; the tail survives.
const TruncationSentinel = "...(truncated)\n"

// Runner executes validation command lists.
type Runner struct {
	exec exec.Runner
	// timeout bounds each individual command; zero means unbounded.
	timeout time.Duration
}

// NewRunner creates a validation runner. timeout applies per command and may
// be zero.
func NewRunner(r exec.Runner, timeout time.Duration) *Runner {
	return &Runner{exec: r, timeout: timeout}
}

// Run executes the commands sequentially in dir, each through the shell so
// pipes and && work. An empty command list yields an all-passed report with
// zero totals.
func (r *Runner) Run(ctx context.Context, dir string, commands []string) models.ValidationReport {
	report := models.ValidationReport{
		Results:    make([]models.ValidationResult, 0, len(commands)),
		TotalCount: len(commands),
	}

	for _, command := range commands {
		res := r.exec.RunShell(ctx, command, exec.Options{Dir: dir, Timeout: r.timeout})
		passed := res.ExitCode == 0
		if passed {
			report.PassCount++
		}
		report.Results = append(report.Results, models.ValidationResult{
			Command:   command,
			Passed:    passed,
			Stdout:    res.Stdout,
			Stderr:    res.Stderr,
			ExitCode:  res.ExitCode,
			ElapsedMs: res.ElapsedMs,
		})
	}

	report.AllPassed = report.PassCount == report.TotalCount
	return report
}

// Score returns the report's score. Higher is better; equal scores count as
// no regression.
func Score(report models.ValidationReport) int {
	return report.PassCount
}

// FailureContext renders the failing commands of a report for inclusion in
// the next iteration's prompt. Each failing command contributes a heading and
// a fenced block holding stderr when non-empty, stdout otherwise. A report
// with no failures renders as the empty string. When the rendered text
// exceeds maxChars, only the tail is kept, prefixed with the truncation
// sentinel; the result never exceeds maxChars. maxChars <= 0 disables the
// cap.
func FailureContext(report models.ValidationReport, maxChars int) string {
	if report.AllPassed {
		return ""
	}

	var blocks []string
	for _, res := range report.Results {
		if res.Passed {
			continue
		}
		output := res.Stderr
		if output == "" {
			output = res.Stdout
		}
		output = strings.TrimRight(output, "\n")
		blocks = append(blocks, fmt.Sprintf("### %s (FAILED (exit code %d))\n```\n%s\n```", res.Command, res.ExitCode, output))
	}
	if len(blocks) == 0 {
		return ""
	}

	text := strings.Join(blocks, "\n\n")
	if maxChars > 0 && len(text) > maxChars {
		keep := maxChars - len(TruncationSentinel)
		if keep < 0 {
			keep = 0
		}
		text = TruncationSentinel + text[len(text)-keep:]
		if len(text) > maxChars {
			text = text[:maxChars]
		}
	}
	return text
}
