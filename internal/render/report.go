package render

import (
	"fmt"
	"sort"
	"strings"
	"time"

	humanize "github.com/dustin/go-humanize"

	"github.com/ALT-F4-LLC/treeport/internal/model"
)

// maxReportFailures caps the failures listed in a report.
const maxReportFailures = 20

// Report is the content of an import report for one project.
type Report struct {
	Project  *model.Project
	Run      *model.ImportRun
	Counts   map[string]int
	Failures []model.ImportFailure
}

// ReportMarkdown builds a markdown summary of the latest import of a
// project. The result is meant for RenderMarkdown.
func ReportMarkdown(r Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", r.Project.Path)
	if r.Project.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", r.Project.Description)
	}
	fmt.Fprintf(&b, "- **Visibility:** %s\n", r.Project.Visibility)
	if r.Project.DefaultBranch != "" {
		fmt.Fprintf(&b, "- **Default branch:** %s\n", r.Project.DefaultBranch)
	}
	if r.Project.Archived {
		b.WriteString("- **Archived:** yes\n")
	}

	b.WriteString("\n## Last import\n\n")
	if r.Run == nil {
		b.WriteString("_This project has never been imported._\n")
	} else {
		writeRun(&b, r.Run)
	}

	if len(r.Counts) > 0 {
		b.WriteString("\n## Records\n\n| Relation | Rows |\n|---|---:|\n")
		names := make([]string, 0, len(r.Counts))
		for name := range r.Counts {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(&b, "| %s | %s |\n", name, humanize.Comma(int64(r.Counts[name])))
		}
	}

	if len(r.Failures) > 0 {
		fmt.Fprintf(&b, "\n## Failures (%d)\n\n", len(r.Failures))
		for i, f := range r.Failures {
			if i == maxReportFailures {
				fmt.Fprintf(&b, "- _and %d more_\n", len(r.Failures)-maxReportFailures)
				break
			}
			fmt.Fprintf(&b, "- `%s` %s: %s\n", f.Path, f.ExceptionClass, escapeInline(f.ExceptionMessage))
		}
	}

	return b.String()
}

func writeRun(b *strings.Builder, run *model.ImportRun) {
	fmt.Fprintf(b, "- **Run:** `%s`\n", run.ID)
	fmt.Fprintf(b, "- **Status:** %s\n", run.Status)
	if run.Source != "" {
		fmt.Fprintf(b, "- **Source:** `%s`\n", run.Source)
	}
	if run.Version != "" {
		fmt.Fprintf(b, "- **Export version:** %s\n", run.Version)
	}
	fmt.Fprintf(b, "- **Started:** %s\n", humanize.Time(run.StartedAt))
	if run.FinishedAt != nil {
		fmt.Fprintf(b, "- **Took:** %s\n", run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond))
	}
	fmt.Fprintf(b, "- **Restored:** %s records, %d failures, %d notices, %d warnings\n",
		humanize.Comma(int64(run.Created)), run.Failures, run.Notices, run.Warnings)
	if run.Error != "" {
		fmt.Fprintf(b, "\n> %s\n", escapeInline(run.Error))
	}
}

func escapeInline(s string) string {
	return strings.ReplaceAll(s, "\n", " ")
}
