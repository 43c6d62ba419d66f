package render

import (
	"strings"
	"testing"
	"time"

	"github.com/ALT-F4-LLC/treeport/internal/model"
)

func TestReportMarkdown(t *testing.T) {
	started := time.Now().Add(-time.Minute)
	finished := started.Add(1500 * time.Millisecond)

	got := ReportMarkdown(Report{
		Project: &model.Project{Path: "acme/widgets", Description: "Widgets", Visibility: model.VisibilityInternal, DefaultBranch: "main"},
		Run: &model.ImportRun{
			ID:         "run-1",
			Status:     model.ImportFinished,
			Source:     "/tmp/export",
			Version:    "0.2.4",
			Created:    1500,
			Failures:   1,
			StartedAt:  started,
			FinishedAt: &finished,
		},
		Counts:   map[string]int{"notes": 4, "issues": 2},
		Failures: []model.ImportFailure{{Path: "issues[1]", ExceptionClass: "permanent", ExceptionMessage: "bad\nvalue"}},
	})

	for _, want := range []string{
		"# acme/widgets",
		"Widgets",
		"- **Visibility:** internal",
		"- **Default branch:** main",
		"- **Run:** `run-1`",
		"- **Took:** 1.5s",
		"1,500 records, 1 failures",
		"| issues | 2 |\n| notes | 4 |",
		"- `issues[1]` permanent: bad value",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in report, got:\n%s", want, got)
		}
	}
}

func TestReportMarkdownNeverImported(t *testing.T) {
	got := ReportMarkdown(Report{Project: &model.Project{Path: "p", Visibility: model.VisibilityPrivate}})
	if !strings.Contains(got, "never been imported") {
		t.Errorf("expected never-imported note, got:\n%s", got)
	}
	if strings.Contains(got, "## Records") || strings.Contains(got, "## Failures") {
		t.Errorf("unexpected sections, got:\n%s", got)
	}
}

func TestReportMarkdownCapsFailures(t *testing.T) {
	failures := make([]model.ImportFailure, maxReportFailures+5)
	for i := range failures {
		failures[i] = model.ImportFailure{Path: "events", ExceptionClass: "permanent", ExceptionMessage: "x"}
	}

	got := ReportMarkdown(Report{Project: &model.Project{Path: "p"}, Failures: failures})
	if n := strings.Count(got, "- `events`"); n != maxReportFailures {
		t.Errorf("listed %d failures, want %d", n, maxReportFailures)
	}
	if !strings.Contains(got, "_and 5 more_") {
		t.Errorf("expected overflow line, got:\n%s", got)
	}
}

func TestRenderMarkdownPlain(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	got, err := RenderMarkdown("# Title")
	if err != nil {
		t.Fatalf("RenderMarkdown: %v", err)
	}
	if got != "# Title" {
		t.Errorf("RenderMarkdown = %q, want unmodified content", got)
	}
	if got, _ := RenderMarkdown(""); got != "" {
		t.Errorf("RenderMarkdown(\"\") = %q", got)
	}
}
