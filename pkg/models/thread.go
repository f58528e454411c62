// Package models defines the shared domain types for ralphd: threads, runs,
// events, review comments, automations, and validation reports. These types
// cross the HTTP/WebSocket boundary, so their JSON tags are the wire contract.
package models

import "time"

// Thread is a persistent workstream bound to a repository. Each thread owns
// exactly one worktree and accumulates a history of runs.
type Thread struct {
	// ID is the opaque stable identifier for this thread.
	ID string `json:"id"`
	// Name is the human-readable label.
	Name string `json:"name"`
	// Task is the free-text task description driving the thread's runs.
	Task string `json:"task"`
	// RepoPath is the repository path the thread was created against.
	RepoPath string `json:"repoPath"`
	// WorktreePath is the isolated working copy; unique across threads.
	WorktreePath string `json:"worktreePath"`
	// Branch is the worktree's branch; unique per repository.
	Branch string `json:"branch"`
	// Agent is the registered adapter name used for this thread's runs.
	Agent string `json:"agent"`
	// Validate is the ordered list of default validation commands.
	Validate []string `json:"validate"`
	// CreatedAt is when the thread was created.
	CreatedAt time.Time `json:"createdAt"`
	// UpdatedAt is when the thread was last mutated.
	UpdatedAt time.Time `json:"updatedAt"`

	// Runs is populated on list responses; it is not stored on the thread row.
	Runs []Run `json:"runs,omitempty"`
}
