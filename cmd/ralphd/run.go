package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/ralphd/internal/agent"
	"github.com/ShayCichocki/ralphd/internal/config"
	"github.com/ShayCichocki/ralphd/internal/exec"
	"github.com/ShayCichocki/ralphd/internal/logging"
	"github.com/ShayCichocki/ralphd/internal/loop"
	"github.com/ShayCichocki/ralphd/internal/prd"
	"github.com/ShayCichocki/ralphd/internal/progress"
	"github.com/ShayCichocki/ralphd/internal/validate"
	"github.com/ShayCichocki/ralphd/pkg/models"
)

var (
	runTask          string
	runValidate      []string
	runAgent         string
	runMaxIterations int
	runDelay         int
	runDryRun        bool
	runNoCheckpoint  bool
	runPRDPath       string
	runProgressFile  string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run an iteration loop in the current repository",
	Long: `Run the iteration loop directly in the current directory, without the
daemon. No thread, queue, or journal is involved; events are rendered to
the console as they happen.

Each iteration prompts the agent with the task (plus any validation
failures from the previous round), runs it, validates, and either
checkpoints progress or reverts a regression. The loop ends when the
agent declares completion and validation passes, or when the iteration
budget runs out.

With --prd, tasks come from a prd.json file instead of --task: the loop
runs once per unfinished task, marks it done in the file after each
success, and stops at the first task that exhausts its budget.

Examples:
  ralphd run --task "fix the flaky auth test" --validate "go test ./..."
  ralphd run --task "add pagination" --validate "go build ./..." --validate "go test ./..."
  ralphd run --prd prd.json --max-iterations 15
  ralphd run --task "refactor storage" --dry-run`,
	Args: cobra.NoArgs,
	RunE: runLocal,
}

func init() {
	runCmd.Flags().StringVar(&runTask, "task", "", "Task text for the agent")
	runCmd.Flags().StringArrayVar(&runValidate, "validate", nil, "Validation command (repeatable; all must pass)")
	runCmd.Flags().StringVar(&runAgent, "agent", "", "Agent adapter: claude, codex, or opencode")
	runCmd.Flags().IntVar(&runMaxIterations, "max-iterations", 0, "Iteration budget (overrides config)")
	runCmd.Flags().IntVar(&runDelay, "delay", 0, "Seconds to wait between iterations")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "Build the first agent command and exit without running it")
	runCmd.Flags().BoolVar(&runNoCheckpoint, "no-checkpoint", false, "Disable per-iteration git commits and regression reverts")
	runCmd.Flags().StringVar(&runPRDPath, "prd", "", "Path to a prd.json task list (mutually exclusive with --task)")
	runCmd.Flags().StringVar(&runProgressFile, "progress-file", "", "Progress document name inside the repository")
}

func runLocal(cmd *cobra.Command, args []string) error {
	if runTask == "" && runPRDPath == "" {
		return fmt.Errorf("either --task or --prd is required")
	}
	if runTask != "" && runPRDPath != "" {
		return fmt.Errorf("--task and --prd are mutually exclusive")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nReceived interrupt, shutting down...")
		cancel()
	}()

	execr := exec.NewRunner()
	registry := agent.NewRegistry(agent.Options{
		Model:           cfg.Agent.Model,
		AdditionalFlags: cfg.Agent.AdditionalFlags,
	})
	validator := validate.NewRunner(execr, cfg.Loop.ValidateTimeout)
	runner := loop.New(registry, execr, validator, logging.New("loop"))

	loopCfg := baseLoopConfig(cmd, cfg, wd)

	if runPRDPath != "" {
		return runWithPRD(ctx, runner, loopCfg, runPRDPath)
	}

	loopCfg.Task = runTask
	result, err := runner.Run(ctx, loopCfg, renderEvent)
	if err != nil {
		return err
	}
	return reportOutcome(result)
}

// baseLoopConfig merges config-file defaults with explicit flags. Flags win
// only when the user actually set them.
func baseLoopConfig(cmd *cobra.Command, cfg *config.Config, worktree string) loop.Config {
	agentName := cfg.Agent.Default
	if runAgent != "" {
		agentName = runAgent
	}
	maxIterations := cfg.Loop.MaxIterations
	if runMaxIterations > 0 {
		maxIterations = runMaxIterations
	}
	delay := cfg.Loop.DelaySeconds
	if cmd.Flags().Changed("delay") {
		delay = runDelay
	}
	progressFile := runProgressFile
	if progressFile == "" {
		progressFile = cfg.Loop.ProgressFile
	}
	if progressFile == "" {
		progressFile = progress.DefaultFileName("local")
	}

	return loop.Config{
		WorktreePath:           worktree,
		ValidateCommands:       runValidate,
		MaxIterations:          maxIterations,
		ProgressFile:           progressFile,
		FailureContextMaxChars: cfg.Loop.FailureContextMaxChars,
		GitCheckpoint:          cfg.Loop.GitCheckpoint && !runNoCheckpoint,
		AgentName:              agentName,
		DryRun:                 runDryRun,
		DelaySeconds:           delay,
		AgentTimeout:           cfg.Loop.AgentTimeout,
	}
}

// runWithPRD works through the task list one unfinished task at a time,
// persisting passes:true after each success.
func runWithPRD(ctx context.Context, runner *loop.Runner, base loop.Config, path string) error {
	doc, err := prd.Load(path)
	if err != nil {
		return err
	}
	if doc.NextUnfinished() < 0 {
		printStatus("✓", "all tasks already pass", color.FgGreen)
		return nil
	}

	fmt.Printf("Project: %s (%d task(s) remaining)\n", doc.Project, doc.Remaining())

	for {
		idx := doc.NextUnfinished()
		if idx < 0 {
			break
		}
		task := doc.Tasks[idx]

		fmt.Printf("\n%s [%s] %s (%d/%d)\n", color.CyanString("▶"), task.ID, task.Title, idx+1, len(doc.Tasks))

		taskCfg := base
		taskCfg.Task = task.TaskText()
		taskCfg.PRD = doc.ContextFor(idx)

		result, err := runner.Run(ctx, taskCfg, renderEvent)
		if err != nil {
			return err
		}
		if result.Cancelled {
			printStatus("⚠", fmt.Sprintf("cancelled during task %s", task.ID), color.FgYellow)
			return nil
		}
		if !result.Success {
			printStatus("✗", fmt.Sprintf("task %s did not complete within %d iteration(s)", task.ID, base.MaxIterations), color.FgRed)
			return fmt.Errorf("Loop ended before completion")
		}

		doc.Tasks[idx].Passes = true
		if err := doc.Save(path); err != nil {
			return fmt.Errorf("saving %s: %w", path, err)
		}
		printStatus("✓", fmt.Sprintf("task %s complete after %d iteration(s)", task.ID, result.Iterations), color.FgGreen)
	}

	printStatus("✓", fmt.Sprintf("all %d task(s) pass", len(doc.Tasks)), color.FgGreen)
	return nil
}

func reportOutcome(result loop.Result) error {
	switch {
	case runDryRun:
		fmt.Println("Dry run: agent command built, nothing executed.")
		return nil
	case result.Cancelled:
		printStatus("⚠", fmt.Sprintf("cancelled after %d iteration(s)", result.Iterations), color.FgYellow)
		return nil
	case result.Success:
		printStatus("✓", fmt.Sprintf("task complete after %d iteration(s)", result.Iterations), color.FgGreen)
		return nil
	default:
		printStatus("✗", fmt.Sprintf("no completion after %d iteration(s)", result.Iterations), color.FgRed)
		return fmt.Errorf("Loop ended before completion")
	}
}

// renderEvent prints loop events as they happen. It is the console
// counterpart of the journal the daemon keeps.
func renderEvent(_ models.EventKind, payload any) {
	switch p := payload.(type) {
	case models.IterationStartedPayload:
		fmt.Printf("\n%s Iteration %d\n", color.CyanString("▶"), p.Iteration)
	case models.AgentSpawnedPayload:
		fmt.Printf("  %s running...\n", p.Agent)
	case models.AgentExitedPayload:
		if p.ExitCode == 0 {
			fmt.Printf("  agent finished in %.1fs\n", float64(p.ElapsedMs)/1000)
		} else {
			printStatus("⚠", fmt.Sprintf("agent exited with code %d after %.1fs", p.ExitCode, float64(p.ElapsedMs)/1000), color.FgYellow)
		}
	case models.ValidationCompletedPayload:
		if p.AllPassed {
			printStatus("✓", fmt.Sprintf("validation passed (%d/%d)", p.PassCount, p.TotalCount), color.FgGreen)
		} else {
			printStatus("✗", fmt.Sprintf("validation failed (%d/%d)", p.PassCount, p.TotalCount), color.FgRed)
		}
	case models.RegressionRevertedPayload:
		printStatus("↩", fmt.Sprintf("regression (%d < best %d), reverted", p.Score, p.BestScore), color.FgYellow)
	case models.CheckpointCommittedPayload:
		fmt.Printf("  checkpoint committed (%d/%d passing)\n", p.Score, p.Total)
	}
}
