package render

import (
	"strings"
	"testing"
	"time"

	"github.com/ALT-F4-LLC/treeport/internal/importexport/tree"
	"github.com/ALT-F4-LLC/treeport/internal/model"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is far too long", 10, "this is..."},
		{"abcdef", 3, "abc"},
		{"héllo wörld", 8, "héllo..."},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.max); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}

func TestShortID(t *testing.T) {
	if got := ShortID("0123456789abcdef"); got != "01234567" {
		t.Errorf("ShortID = %q, want %q", got, "01234567")
	}
	if got := ShortID("abc"); got != "abc" {
		t.Errorf("ShortID = %q, want %q", got, "abc")
	}
}

func TestEmptyStatePlain(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	if got := EmptyState("Nothing.", "Try this.", false); got != "Nothing.\nTry this." {
		t.Errorf("EmptyState = %q", got)
	}
	if got := EmptyState("Nothing.", "Try this.", true); got != "Nothing." {
		t.Errorf("EmptyState quiet = %q", got)
	}
}

func TestRenderFailuresPlain(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	failures := []model.ImportFailure{
		{
			RelationKey:      "issues",
			RelationIndex:    2,
			Path:             "issues",
			ExceptionClass:   "permanent *relation.InvalidRecordError",
			ExceptionMessage: "invalid created_at",
			CreatedAt:        time.Now(),
		},
		{
			RelationKey:      "merge_requests",
			Path:             "merge_requests",
			ExceptionClass:   "retry_exhausted",
			ExceptionMessage: "set latest merge request diff ids failed after 3 attempts",
			RetryCount:       3,
			CreatedAt:        time.Now(),
		},
	}

	got := RenderFailures(failures)
	for _, want := range []string{"Relation", "issues", "invalid created_at", "retry_exhausted", "merge_requests"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in output, got:\n%s", want, got)
		}
	}
	if lines := strings.Count(got, "\n"); lines != 4 {
		t.Errorf("line count = %d, want 4 (header, rule, two rows)", lines)
	}
}

func TestRenderFailuresEmpty(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	got := RenderFailures(nil)
	if !strings.HasPrefix(got, "No import failures recorded.") {
		t.Errorf("unexpected empty output: %q", got)
	}
}

func TestRenderFailuresColored(t *testing.T) {
	t.Setenv("TERM", "xterm-256color")

	got := RenderFailures([]model.ImportFailure{{RelationKey: "labels", Path: "labels", ExceptionClass: "permanent", CreatedAt: time.Now()}})
	if !strings.Contains(got, "labels") || !strings.Contains(got, "Class") {
		t.Errorf("expected table content, got:\n%s", got)
	}
}

func TestRenderRunsPlain(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	runs := []*model.ImportRun{
		{ID: "9f1c2d3e-aaaa-bbbb-cccc-000000000000", Status: model.ImportFinished, Version: "0.2.4", Created: 1234, Failures: 1, StartedAt: time.Now()},
		{ID: "short", Status: model.ImportFailed, StartedAt: time.Now()},
	}

	got := RenderRuns(runs)
	for _, want := range []string{"9f1c2d3e", "finished", "failed", "1,234", "0.2.4"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in output, got:\n%s", want, got)
		}
	}
	if strings.Contains(got, "9f1c2d3e-aaaa") {
		t.Errorf("expected shortened run id, got:\n%s", got)
	}
}

func TestRenderRunsEmpty(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	if got := RenderRuns(nil); !strings.Contains(got, "No imports recorded.") {
		t.Errorf("unexpected empty output: %q", got)
	}
}

func TestRenderCountsPlain(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	got := RenderCounts(
		map[string]int{"issues": 2, "issues.notes": 5, "labels": 1},
		map[string]int{"issues.notes": 1, "events": 3},
	)

	lines := strings.Split(strings.TrimSpace(got), "\n")
	if len(lines) != 6 {
		t.Fatalf("expected 6 lines, got %d:\n%s", len(lines), got)
	}
	order := []string{"events", "issues", "issues.notes", "labels"}
	for i, name := range order {
		if !strings.HasPrefix(lines[i+2], name+" ") {
			t.Errorf("line %d = %q, want prefix %q", i+2, lines[i+2], name)
		}
	}
	if !strings.Contains(lines[2], "3") {
		t.Errorf("expected skipped events count, got %q", lines[2])
	}
}

func TestRenderCountsEmpty(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	if got := RenderCounts(nil, nil); got != "No records restored." {
		t.Errorf("RenderCounts = %q", got)
	}
}

func TestRenderRelationTreePlain(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	got := RenderRelationTree(tree.Project(tree.WithRequired("issues")))
	for _, want := range []string{
		"project_members (members)\n",
		"labels (has_many, shared)\n",
		"issues (has_many, required)\n",
		"  milestone (belongs_to, shared)\n",
		"    system_note_metadata (has_one)\n",
		"  merge_request_diff (has_one)\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in output, got:\n%s", want, got)
		}
	}
}

func TestRenderRelationTreeColored(t *testing.T) {
	t.Setenv("TERM", "xterm-256color")

	got := RenderRelationTree(tree.Project())
	for _, want := range []string{"project", "ci_pipelines", "award_emoji"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in output, got:\n%s", want, got)
		}
	}
}
