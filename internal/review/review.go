// Package review folds inline review comments into the task for a feedback
// rerun.
package review

import (
	"fmt"
	"strings"

	"github.com/ShayCichocki/ralphd/pkg/models"
)

// Header precedes the numbered feedback list in a rerun's task override.
const Header = "Address the following review feedback before declaring completion:"

// BuildTaskOverride composes the task a feedback rerun is given: the thread's
// base task, a blank line, the header, then one numbered line per comment in
// the submitted order.
func BuildTaskOverride(baseTask string, comments []models.ReviewComment) string {
	var b strings.Builder
	b.WriteString(baseTask)
	b.WriteString("\n\n")
	b.WriteString(Header)
	for i, c := range comments {
		fmt.Fprintf(&b, "\n%d. %s:%d - %s", i+1, c.FilePath, c.LineNumber, c.Body)
	}
	return b.String()
}

// SourceRunID returns the run cited by the first selected comment. Comments
// don't have to cite a run, so this may be empty.
func SourceRunID(comments []models.ReviewComment) string {
	if len(comments) == 0 {
		return ""
	}
	return comments[0].RunID
}
