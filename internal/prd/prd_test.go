package prd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePRD = `{
  "project": "checkout service",
  "description": "Rework the checkout flow.",
  "branch_name": "feature/checkout",
  "tasks": [
    {
      "id": "CHK-1",
      "title": "Add cart validation",
      "description": "Reject carts with zero items.",
      "acceptance_criteria": ["empty carts return 400", "tests cover the empty case"],
      "passes": true
    },
    {
      "id": "CHK-2",
      "title": "Wire payment provider",
      "description": "Call the provider sandbox on submit.",
      "passes": false
    }
  ]
}
`

func writePRD(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prd.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	doc, err := Load(writePRD(t, samplePRD))
	require.NoError(t, err)

	assert.Equal(t, "checkout service", doc.Project)
	assert.Equal(t, "feature/checkout", doc.BranchName)
	require.Len(t, doc.Tasks, 2)
	assert.True(t, doc.Tasks[0].Passes)
	assert.Equal(t, []string{"empty carts return 400", "tests cover the empty case"}, doc.Tasks[0].AcceptanceCriteria)
	assert.False(t, doc.Tasks[1].Passes)
}

func TestLoadRejectsInvalidDocuments(t *testing.T) {
	cases := map[string]string{
		"bad json":   `{"project": `,
		"no project": `{"tasks": [{"id": "T-1"}]}`,
		"no tasks":   `{"project": "p", "tasks": []}`,
		"no task id": `{"project": "p", "tasks": [{"title": "untitled"}]}`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writePRD(t, content))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := writePRD(t, samplePRD)
	doc, err := Load(path)
	require.NoError(t, err)

	doc.Tasks[1].Passes = true
	require.NoError(t, doc.Save(path))

	reloaded, err := Load(path)
	require.NoError(t, err)
	assert.True(t, reloaded.Tasks[1].Passes)
	assert.Equal(t, doc.Project, reloaded.Project)
	assert.Equal(t, -1, reloaded.NextUnfinished())
}

func TestNextUnfinishedAndRemaining(t *testing.T) {
	doc, err := Load(writePRD(t, samplePRD))
	require.NoError(t, err)

	assert.Equal(t, 1, doc.NextUnfinished())
	assert.Equal(t, 1, doc.Remaining())

	doc.Tasks[1].Passes = true
	assert.Equal(t, -1, doc.NextUnfinished())
	assert.Zero(t, doc.Remaining())
}

func TestCompletedSummary(t *testing.T) {
	doc, err := Load(writePRD(t, samplePRD))
	require.NoError(t, err)

	assert.Equal(t, "- CHK-1: Add cart validation", doc.CompletedSummary())

	doc.Tasks[0].Passes = false
	assert.Empty(t, doc.CompletedSummary())
}

func TestContextFor(t *testing.T) {
	doc, err := Load(writePRD(t, samplePRD))
	require.NoError(t, err)

	ctx := doc.ContextFor(1)
	assert.Equal(t, "CHK-2", ctx.TaskID)
	assert.Equal(t, 2, ctx.TaskIndex)
	assert.Equal(t, 2, ctx.TaskTotal)
	assert.Equal(t, "checkout service", ctx.Project)
	assert.Equal(t, "Rework the checkout flow.", ctx.Description)
	assert.Empty(t, ctx.AcceptanceCriteria)
	assert.Equal(t, "- CHK-1: Add cart validation", ctx.CompletedSummary)
}

func TestTaskText(t *testing.T) {
	full := Task{Title: "Add cart validation", Description: "Reject carts with zero items."}
	assert.Equal(t, "Add cart validation\n\nReject carts with zero items.", full.TaskText())

	assert.Equal(t, "only description", Task{Description: "only description"}.TaskText())
	assert.Equal(t, "only title", Task{Title: "only title"}.TaskText())
}
