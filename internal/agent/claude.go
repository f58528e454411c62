package agent

import (
	"context"
	"os/exec"
	"strconv"
)

// Compile-time check that Claude implements Adapter.
var _ Adapter = (*Claude)(nil)

// Claude drives the Claude Code CLI in non-interactive print mode with
// permission prompts disabled, since nobody is at the terminal to answer
// them.
type Claude struct {
	opts Options
}

// NewClaude creates the claude adapter.
func NewClaude(opts Options) *Claude {
	return &Claude{opts: opts}
}

// Name returns "claude".
func (c *Claude) Name() string { return "claude" }

// Installed reports whether the claude CLI responds to --version.
func (c *Claude) Installed(ctx context.Context) bool {
	return exec.CommandContext(ctx, "claude", "--version").Run() == nil
}

// BuildCommand assembles the claude invocation. The prompt is the final
// positional argument.
func (c *Claude) BuildCommand(prompt, cwd string) SpawnSpec {
	args := []string{"-p", "--dangerously-skip-permissions"}
	if c.opts.Model != "" {
		args = append(args, "--model", c.opts.Model)
	}
	if c.opts.MaxTurns > 0 {
		args = append(args, "--max-turns", strconv.Itoa(c.opts.MaxTurns))
	}
	args = append(args, c.opts.AdditionalFlags...)
	args = append(args, prompt)

	return SpawnSpec{Command: "claude", Args: args, Dir: cwd}
}
