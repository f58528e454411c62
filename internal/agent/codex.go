package agent

import (
	"context"
	"os/exec"
)

// Compile-time check that Codex implements Adapter.
var _ Adapter = (*Codex)(nil)

// Codex drives the OpenAI Codex CLI through its non-interactive exec
// subcommand.
type Codex struct {
	opts Options
}

// NewCodex creates the codex adapter.
func NewCodex(opts Options) *Codex {
	return &Codex{opts: opts}
}

// Name returns "codex".
func (c *Codex) Name() string { return "codex" }

// Installed reports whether the codex CLI responds to --version.
func (c *Codex) Installed(ctx context.Context) bool {
	return exec.CommandContext(ctx, "codex", "--version").Run() == nil
}

// BuildCommand assembles the codex invocation. The prompt is the final
// positional argument.
func (c *Codex) BuildCommand(prompt, cwd string) SpawnSpec {
	args := []string{"exec", "--full-auto", "--skip-git-repo-check"}
	if c.opts.Model != "" {
		args = append(args, "--model", c.opts.Model)
	}
	if c.opts.Sandbox != "" {
		args = append(args, "--sandbox", c.opts.Sandbox)
	}
	args = append(args, c.opts.AdditionalFlags...)
	args = append(args, prompt)

	return SpawnSpec{Command: "codex", Args: args, Dir: cwd}
}
