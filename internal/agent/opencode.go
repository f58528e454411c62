package agent

import (
	"context"
	"os/exec"
)

// Compile-time check that Opencode implements Adapter.
var _ Adapter = (*Opencode)(nil)

// Opencode drives the opencode CLI through its run subcommand.
type Opencode struct {
	opts Options
}

// NewOpencode creates the opencode adapter.
func NewOpencode(opts Options) *Opencode {
	return &Opencode{opts: opts}
}

// Name returns "opencode".
func (o *Opencode) Name() string { return "opencode" }

// Installed reports whether the opencode CLI responds to --version.
func (o *Opencode) Installed(ctx context.Context) bool {
	return exec.CommandContext(ctx, "opencode", "--version").Run() == nil
}

// BuildCommand assembles the opencode invocation. The prompt is the final
// positional argument.
func (o *Opencode) BuildCommand(prompt, cwd string) SpawnSpec {
	args := []string{"run"}
	if o.opts.Model != "" {
		args = append(args, "--model", o.opts.Model)
	}
	args = append(args, o.opts.AdditionalFlags...)
	args = append(args, prompt)

	return SpawnSpec{Command: "opencode", Args: args, Dir: cwd}
}
