// Package loop implements the iteration loop that drives a single run: spawn
// the agent, validate, score, commit or revert, and repeat until the agent
// completes the task, the budget runs out, or the run is cancelled.
package loop

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/ShayCichocki/ralphd/internal/agent"
	"github.com/ShayCichocki/ralphd/internal/exec"
	"github.com/ShayCichocki/ralphd/internal/git"
	"github.com/ShayCichocki/ralphd/internal/progress"
	"github.com/ShayCichocki/ralphd/internal/prompt"
	"github.com/ShayCichocki/ralphd/internal/validate"
	"github.com/ShayCichocki/ralphd/pkg/models"
)

// AdapterResolver resolves agent names to adapters.
type AdapterResolver interface {
	Get(name string) (agent.Adapter, error)
}

// Emitter receives each loop event as it happens. The caller attaches thread
// and run identity and journals it.
type Emitter func(kind models.EventKind, payload any)

// Config carries everything one run needs.
type Config struct {
	// WorktreePath is the thread's isolated working directory.
	WorktreePath string
	// Task is the full task text, including any override.
	Task string
	// ValidateCommands define done; empty means validation always passes.
	ValidateCommands []string
	// MaxIterations is the iteration budget.
	MaxIterations int
	// ProgressFile is the progress document name inside the worktree.
	ProgressFile string
	// FailureContextMaxChars caps the failure context fed into prompts.
	FailureContextMaxChars int
	// GitCheckpoint enables per-iteration commit and regression revert.
	GitCheckpoint bool
	// AgentName selects the adapter.
	AgentName string
	// DryRun stops after building the first iteration's agent command.
	DryRun bool
	// DelaySeconds pauses between iterations.
	DelaySeconds int
	// AgentTimeout bounds each agent subprocess.
	AgentTimeout time.Duration
	// PRD is set when the run works through a task list.
	PRD *models.PRDContext
}

// Result is the outcome of a run's loop.
type Result struct {
	// Success is true when the agent echoed the secret and all validation
	// commands passed.
	Success bool
	// Iterations is the number of completed iterations.
	Iterations int
	// Cancelled is true when the context was cancelled mid-run.
	Cancelled bool
}

// Runner executes iteration loops. One Runner serves all runs; per-run state
// lives on the stack of Run.
type Runner struct {
	agents   AdapterResolver
	exec     exec.Runner
	validate *validate.Runner
	newGit   func(dir string) git.Runner
	log      *log.Logger
}

// New creates a loop runner.
func New(agents AdapterResolver, execr exec.Runner, val *validate.Runner, logger *log.Logger) *Runner {
	return &Runner{
		agents:   agents,
		exec:     execr,
		validate: val,
		newGit:   func(dir string) git.Runner { return git.NewRunner(dir) },
		log:      logger,
	}
}

// Run drives the loop to completion, exhaustion, or cancellation. Subprocess
// failures never surface as errors; they are scored. The returned error is
// reserved for fatal conditions (unknown agent, unwritable worktree) that
// the queue records as a failed run.
func (r *Runner) Run(ctx context.Context, cfg Config, emit Emitter) (Result, error) {
	if emit == nil {
		emit = func(models.EventKind, any) {}
	}

	secret := NewSecret()

	adapter, err := r.agents.Get(cfg.AgentName)
	if err != nil {
		return Result{}, err
	}
	if !adapter.Installed(ctx) {
		r.log.Warn("agent CLI not found, continuing anyway", "agent", cfg.AgentName)
	}

	if err := progress.Init(cfg.WorktreePath, cfg.ProgressFile, cfg.Task); err != nil {
		return Result{}, err
	}

	baseline := r.validate.Run(ctx, cfg.WorktreePath, cfg.ValidateCommands)
	bestScore := validate.Score(baseline)
	r.log.Info("baseline established", "score", bestScore, "total", baseline.TotalCount)

	g := r.newGit(cfg.WorktreePath)
	lastFailure := ""
	wasReverted := false

	for i := 1; i <= cfg.MaxIterations; i++ {
		select {
		case <-ctx.Done():
			return Result{Iterations: i - 1, Cancelled: true}, nil
		default:
		}

		emit(models.EventIterationStarted, models.IterationStartedPayload{Iteration: i})

		content, exists := progress.Read(cfg.WorktreePath, cfg.ProgressFile)
		promptText := prompt.Build(prompt.Context{
			Task:              cfg.Task,
			Iteration:         i,
			MaxIterations:     cfg.MaxIterations,
			ProgressContent:   content,
			ProgressExists:    exists,
			ValidateCommands:  cfg.ValidateCommands,
			Secret:            secret,
			ProgressFile:      cfg.ProgressFile,
			LastFailureOutput: lastFailure,
			WasReverted:       wasReverted,
			PRD:               cfg.PRD,
		})

		spawn := adapter.BuildCommand(promptText, cfg.WorktreePath)
		if cfg.DryRun {
			r.log.Info("dry run", "command", spawn.Command, "args", len(spawn.Args))
			return Result{Success: true, Iterations: 0}, nil
		}

		emit(models.EventAgentSpawned, models.AgentSpawnedPayload{Iteration: i, Agent: adapter.Name()})
		res := r.exec.Run(ctx, spawn.Command, spawn.Args, exec.Options{
			Dir:     spawn.Dir,
			Timeout: cfg.AgentTimeout,
		})
		emit(models.EventAgentExited, models.AgentExitedPayload{
			Iteration: i,
			ExitCode:  res.ExitCode,
			ElapsedMs: res.ElapsedMs,
		})

		claimed := Detect(res.Stdout+"\n"+res.Stderr, secret)

		// The agent's self-claim is never trusted alone.
		report := r.validate.Run(ctx, cfg.WorktreePath, cfg.ValidateCommands)
		emit(models.EventValidationCompleted, models.ValidationCompletedPayload{
			Iteration:  i,
			PassCount:  report.PassCount,
			TotalCount: report.TotalCount,
			AllPassed:  report.AllPassed,
		})
		score := validate.Score(report)

		if claimed && report.AllPassed {
			if cfg.GitCheckpoint {
				if err := g.CommitAll(ctx, completionMessage(cfg.PRD, i)); err != nil {
					r.log.Warn("completion commit failed", "err", err)
				}
			}
			return Result{Success: true, Iterations: i}, nil
		}
		if claimed {
			r.log.Warn("agent claimed completion but validation failed",
				"iteration", i, "passing", report.PassCount, "total", report.TotalCount)
		}

		if cfg.GitCheckpoint {
			if score < bestScore {
				if err := g.CheckoutHeadAll(ctx); err != nil {
					r.log.Warn("revert checkout failed", "err", err)
				}
				if err := g.CleanUntracked(ctx); err != nil {
					r.log.Warn("revert clean failed", "err", err)
				}
				emit(models.EventRegressionReverted, models.RegressionRevertedPayload{
					Iteration: i,
					Score:     score,
					BestScore: bestScore,
				})
				wasReverted = true
			} else {
				wasReverted = false
				if score > bestScore {
					bestScore = score
				}
				if err := g.CommitAll(ctx, checkpointMessage(cfg.PRD, i, report.PassCount, report.TotalCount)); err != nil {
					r.log.Warn("checkpoint commit failed", "err", err)
				}
				emit(models.EventCheckpointCommitted, models.CheckpointCommittedPayload{
					Iteration: i,
					Score:     score,
					Total:     report.TotalCount,
				})
			}
		} else {
			wasReverted = false
		}
		lastFailure = validate.FailureContext(report, cfg.FailureContextMaxChars)

		if cfg.DelaySeconds > 0 && i < cfg.MaxIterations {
			select {
			case <-time.After(time.Duration(cfg.DelaySeconds) * time.Second):
			case <-ctx.Done():
				// The next iteration's cancellation check reports it.
			}
		}
	}

	return Result{Success: false, Iterations: cfg.MaxIterations}, nil
}

func completionMessage(prd *models.PRDContext, iteration int) string {
	if prd != nil {
		return fmt.Sprintf("ralph: [%s] complete (iteration %d)", prd.TaskID, iteration)
	}
	return fmt.Sprintf("ralph: task complete (iteration %d)", iteration)
}

func checkpointMessage(prd *models.PRDContext, iteration, passing, total int) string {
	if prd != nil {
		return fmt.Sprintf("ralph: [%s] iteration %d (%d/%d passing)", prd.TaskID, iteration, passing, total)
	}
	return fmt.Sprintf("ralph: iteration %d (%d/%d passing)", iteration, passing, total)
}
