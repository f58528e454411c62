// Package progress owns the per-thread progress document: the markdown file
// inside the worktree that is the agent's only durable memory between
// iterations. The loop initializes and reads it; the agent rewrites it.
package progress

import (
	"fmt"
	"os"
	"path/filepath"
)

const initTemplate = `# Ralph Loop Progress

## Task
%s

## Status
Started — no iterations completed yet.

## Iteration Log
`

// DefaultFileName returns the progress document name for a thread.
func DefaultFileName(threadID string) string {
	return fmt.Sprintf("ralph-progress-%s.md", threadID)
}

// Init creates the progress document with its starting template. An existing
// document is left untouched so a second run on the same thread keeps the
// accumulated history.
func Init(dir, filename, task string) error {
	path := filepath.Join(dir, filename)
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	content := fmt.Sprintf(initTemplate, task)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("init progress file: %w", err)
	}
	return nil
}

// Read returns the document's content and whether it exists.
func Read(dir, filename string) (string, bool) {
	content, err := os.ReadFile(filepath.Join(dir, filename))
	if err != nil {
		return "", false
	}
	return string(content), true
}
