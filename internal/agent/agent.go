// Package agent translates prompts into concrete CLI invocations for the
// supported coding agents. Each agent is a black-box subprocess; an adapter
// only knows the agent's binary name, how to check that it is installed, and
// how to assemble an argv for a prompt and working directory. The prompt is
// always the final positional argument.
package agent

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// ErrNotFound is returned by Registry.Get when no adapter with the requested
// name is registered.
var ErrNotFound = errors.New("agent not found")

// DefaultName is the adapter used when a thread does not choose one.
const DefaultName = "claude"

// SpawnSpec describes a ready-to-run agent invocation.
type SpawnSpec struct {
	// Command is the executable name, resolved via PATH.
	Command string
	// Args is the full argument list. The prompt is the last element.
	Args []string
	// Dir is the working directory the agent runs in.
	Dir string
}

// Options configures adapter construction. Model and AdditionalFlags are
// honored by every adapter; MaxTurns and Sandbox only by the adapters whose
// CLIs expose them.
type Options struct {
	// Model selects the model flag value. Empty means the CLI's default.
	Model string
	// AdditionalFlags are appended verbatim before the prompt.
	AdditionalFlags []string
	// MaxTurns caps agent turns (claude only). Zero means no flag.
	MaxTurns int
	// Sandbox selects the sandbox mode (codex only). Empty means no flag.
	Sandbox string
}

// Adapter is implemented by each supported agent CLI.
type Adapter interface {
	// Name returns the adapter's registry key.
	Name() string
	// Installed reports whether the agent CLI responds to --version.
	Installed(ctx context.Context) bool
	// BuildCommand assembles the invocation for a prompt in a directory.
	BuildCommand(prompt, cwd string) SpawnSpec
}

// Registry resolves adapter names to adapters. The set of adapters is fixed
// at construction and the registry is safe for concurrent reads.
type Registry struct {
	adapters map[string]Adapter
}

// NewRegistry creates a registry holding the three supported adapters, all
// constructed from the same options.
func NewRegistry(opts Options) *Registry {
	r := &Registry{adapters: make(map[string]Adapter)}
	for _, a := range []Adapter{
		NewClaude(opts),
		NewCodex(opts),
		NewOpencode(opts),
	} {
		r.adapters[a.Name()] = a
	}
	return r
}

// Get returns the adapter registered under name.
func (r *Registry) Get(name string) (Adapter, error) {
	a, ok := r.adapters[name]
	if !ok {
		return nil, fmt.Errorf("get agent %q: %w", name, ErrNotFound)
	}
	return a, nil
}

// Has reports whether an adapter with the given name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.adapters[name]
	return ok
}

// List returns all registered adapter names, sorted.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
