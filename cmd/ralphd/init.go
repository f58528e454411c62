package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init [directory]",
	Short: "Write a starter .ralphd.yaml",
	Long: `Create a .ralphd.yaml template in the target directory (default:
current directory) and check that the tools ralphd shells out to are
available.

The template lists every setting with its default, commented out.
Settings can also come from ~/.config/ralphd/config.yaml or RALPHD_*
environment variables; the project file wins over the user file.

Examples:
  ralphd init              # Initialize current directory
  ralphd init ./myproject  # Initialize specific directory
  ralphd init --force      # Overwrite an existing .ralphd.yaml`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing .ralphd.yaml")
}

func runInit(cmd *cobra.Command, args []string) error {
	targetDir := "."
	if len(args) > 0 {
		targetDir = args[0]
	}
	absPath, err := filepath.Abs(targetDir)
	if err != nil {
		return fmt.Errorf("resolving absolute path: %w", err)
	}
	if err := os.MkdirAll(absPath, 0755); err != nil {
		return fmt.Errorf("creating directory %s: %w", absPath, err)
	}

	if _, err := exec.LookPath("git"); err != nil {
		printStatus("✗", "git not found in PATH (required for worktrees and checkpoints)", color.FgRed)
		return fmt.Errorf("git not found in PATH")
	}
	printStatus("✓", "git found", color.FgGreen)

	found := false
	for _, name := range []string{"claude", "codex", "opencode"} {
		if _, err := exec.LookPath(name); err == nil {
			printStatus("✓", fmt.Sprintf("%s CLI found", name), color.FgGreen)
			found = true
		}
	}
	if !found {
		printStatus("⚠", "no agent CLI found (claude, codex, or opencode); install one before running", color.FgYellow)
	}

	configPath := filepath.Join(absPath, ".ralphd.yaml")
	if _, err := os.Stat(configPath); err == nil && !initForce {
		fmt.Printf("%s already exists. Use --force to overwrite.\n", configPath)
		return nil
	}

	if err := os.WriteFile(configPath, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", configPath, err)
	}
	printStatus("✓", "Created .ralphd.yaml template", color.FgGreen)

	fmt.Printf("\n%s ralphd initialization complete!\n\n", color.GreenString("✓"))
	fmt.Println("Next steps:")
	fmt.Println("  ralphd serve                  # start the daemon")
	fmt.Println("  ralphd run --task \"...\"       # or loop right here, no daemon")
	fmt.Println()
	return nil
}

const configTemplate = `# ralphd project configuration
# This file overrides defaults from ~/.config/ralphd/config.yaml.
# Environment variables (RALPHD_*) override both.

# server:
#   host: 127.0.0.1
#   port: 4242

# database:
#   path: .ralph/ralphd.db

# queue:
#   max_concurrent: 2

# loop:
#   max_iterations: 10
#   delay_seconds: 0
#   failure_context_max_chars: 8000
#   git_checkpoint: true
#   progress_file: ""
#   agent_timeout: 5m
#   validate_timeout: 0s

# agent:
#   default: claude
#   model: ""
#   additional_flags: []

# automations:
#   file: ""
`
