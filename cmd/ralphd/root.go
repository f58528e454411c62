package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/ralphd/internal/config"
	"github.com/ShayCichocki/ralphd/internal/logging"
)

var (
	flagVerbose bool
	flagJSON    bool
	flagConfig  string
)

var rootCmd = &cobra.Command{
	Use:   "ralphd",
	Short: "Iteration-loop daemon for coding agents",
	Long: `Ralphd drives coding-agent CLIs (claude, codex, opencode) through
self-correcting iteration loops: prompt, run the agent, validate, score,
checkpoint or revert, repeat until done or out of budget.

Threads pin a task to an isolated git worktree; runs execute the loop
against a thread through a bounded queue; every state change lands in a
persistent event journal and on the live WebSocket stream. Automations
fire runs on a cron schedule, and review comments feed targeted reruns.

Start the daemon with 'ralphd serve', or drive a loop directly in the
current repository with 'ralphd run'.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Setup(flagVerbose, flagJSON)
	},
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig honors --config when set, otherwise the usual lookup chain
// (env vars, project .ralphd.yaml, user config, defaults).
func loadConfig() (*config.Config, error) {
	if flagConfig != "" {
		return config.LoadFromPath(flagConfig)
	}
	return config.Load()
}

func printStatus(symbol, message string, colorAttr color.Attribute) {
	c := color.New(colorAttr)
	fmt.Printf("%s %s\n", c.Sprint(symbol), message)
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Log as JSON instead of text")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to a config file (bypasses the lookup chain)")

	// Add subcommands
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
}
