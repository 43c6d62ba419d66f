package render

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	humanize "github.com/dustin/go-humanize"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/ALT-F4-LLC/treeport/internal/model"
)

const (
	maxMessageWidth = 48
	maxPathWidth    = 32
	shortIDLength   = 8
)

// StyledText applies a lipgloss style to text when colors are enabled.
// When colors are disabled, it returns the plain text unchanged.
func StyledText(text string, style lipgloss.Style) string {
	if ColorsEnabled() {
		return style.Render(text)
	}
	return text
}

// ColorFromName maps color name strings to lipgloss colors.
func ColorFromName(name string) lipgloss.Color {
	switch name {
	case "red":
		return lipgloss.Color("9")
	case "yellow":
		return lipgloss.Color("11")
	case "blue":
		return lipgloss.Color("12")
	case "green":
		return lipgloss.Color("10")
	case "gray":
		return lipgloss.Color("8")
	default:
		return lipgloss.Color("15")
	}
}

// StatusColor returns the color name used for an import run status.
func StatusColor(s model.ImportStatus) string {
	switch s {
	case model.ImportFinished:
		return "green"
	case model.ImportFailed:
		return "red"
	case model.ImportStarted:
		return "yellow"
	default:
		return "white"
	}
}

// truncate shortens a string to maxLen runes, appending an ellipsis if truncated.
func truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// ShortID returns the leading characters of a run identifier.
func ShortID(id string) string {
	if len(id) <= shortIDLength {
		return id
	}
	return id[:shortIDLength]
}

// EmptyState renders a styled empty-state message with an optional contextual hint.
// When colors are enabled the message is rendered in dim gray and the hint is italic.
// When quiet is true the hint is suppressed.
func EmptyState(message, hint string, quiet bool) string {
	if !ColorsEnabled() {
		if quiet || hint == "" {
			return message
		}
		return message + "\n" + hint
	}

	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	hintStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)

	result := dimStyle.Render(message)
	if !quiet && hint != "" {
		result += "\n" + hintStyle.Render(hint)
	}
	return result
}

// styledTable builds a bordered table. colFn styles body cells; it may be nil.
func styledTable(headers []string, rows [][]string, colFn func(row, col int, s lipgloss.Style) lipgloss.Style) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("8"))).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			s := lipgloss.NewStyle().PaddingLeft(1).PaddingRight(1)
			if row == table.HeaderRow {
				return s.Bold(true).Foreground(lipgloss.Color("15"))
			}
			if row < 0 || row >= len(rows) || colFn == nil {
				return s
			}
			return colFn(row, col, s)
		})
	return t.Render()
}

// RenderFailures renders persisted import failures as a table.
func RenderFailures(failures []model.ImportFailure) string {
	if len(failures) == 0 {
		return EmptyState("No import failures recorded.", "Every relation of the last import was restored.", false)
	}

	rows := make([][]string, 0, len(failures))
	for _, f := range failures {
		rows = append(rows, failureToRow(f))
	}

	if !ColorsEnabled() {
		return renderPlainFailures(rows)
	}

	headers := []string{"Relation", "Index", "Path", "Class", "Message", "Retries", "When"}
	return styledTable(headers, rows, func(row, col int, s lipgloss.Style) lipgloss.Style {
		switch col {
		case 0:
			return s.Bold(true)
		case 3:
			if strings.HasPrefix(rows[row][3], "retry_exhausted") {
				return s.Foreground(ColorFromName("yellow"))
			}
			return s.Foreground(ColorFromName("red"))
		case 6:
			return s.Foreground(ColorFromName("gray"))
		default:
			return s
		}
	})
}

func failureToRow(f model.ImportFailure) []string {
	return []string{
		f.RelationKey,
		strconv.Itoa(f.RelationIndex),
		truncate(f.Path, maxPathWidth),
		f.ExceptionClass,
		truncate(f.ExceptionMessage, maxMessageWidth),
		strconv.Itoa(f.RetryCount),
		humanize.Time(f.CreatedAt),
	}
}

func renderPlainFailures(rows [][]string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%-22s %-6s %-32s %-28s %-48s %-8s %s\n",
		"Relation", "Index", "Path", "Class", "Message", "Retries", "When")
	fmt.Fprintf(&b, "%s\n", strings.Repeat("-", 160))

	for _, r := range rows {
		fmt.Fprintf(&b, "%-22s %-6s %-32s %-28s %-48s %-8s %s\n",
			r[0], r[1], r[2], r[3], r[4], r[5], r[6])
	}

	return b.String()
}

// RenderRuns renders import runs, newest first as given, as a table.
func RenderRuns(runs []*model.ImportRun) string {
	if len(runs) == 0 {
		return EmptyState("No imports recorded.", "Run one with: treeport import <path> <project>", false)
	}

	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, runToRow(r))
	}

	if !ColorsEnabled() {
		var b strings.Builder
		fmt.Fprintf(&b, "%-10s %-10s %-10s %-8s %-9s %-8s %-9s %s\n",
			"Run", "Status", "Version", "Created", "Failures", "Notices", "Warnings", "Started")
		fmt.Fprintf(&b, "%s\n", strings.Repeat("-", 90))
		for _, r := range rows {
			fmt.Fprintf(&b, "%-10s %-10s %-10s %-8s %-9s %-8s %-9s %s\n",
				r[0], r[1], r[2], r[3], r[4], r[5], r[6], r[7])
		}
		return b.String()
	}

	headers := []string{"Run", "Status", "Version", "Created", "Failures", "Notices", "Warnings", "Started"}
	return styledTable(headers, rows, func(row, col int, s lipgloss.Style) lipgloss.Style {
		switch col {
		case 1:
			return s.Foreground(ColorFromName(StatusColor(runs[row].Status)))
		case 4:
			if runs[row].Failures > 0 {
				return s.Foreground(ColorFromName("red"))
			}
			return s
		case 7:
			return s.Foreground(ColorFromName("gray"))
		default:
			return s
		}
	})
}

func runToRow(r *model.ImportRun) []string {
	return []string{
		ShortID(r.ID),
		string(r.Status),
		r.Version,
		humanize.Comma(int64(r.Created)),
		strconv.Itoa(r.Failures),
		strconv.Itoa(r.Notices),
		strconv.Itoa(r.Warnings),
		humanize.Time(r.StartedAt),
	}
}

// RenderCounts renders per-relation record counts sorted by relation name.
// Relations missing from skipped are shown with zero skipped records.
func RenderCounts(counts, skipped map[string]int) string {
	names := make([]string, 0, len(counts)+len(skipped))
	for name := range counts {
		names = append(names, name)
	}
	for name := range skipped {
		if _, ok := counts[name]; !ok {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return EmptyState("No records restored.", "", false)
	}
	sort.Strings(names)

	rows := make([][]string, 0, len(names))
	for _, name := range names {
		rows = append(rows, []string{name, humanize.Comma(int64(counts[name])), humanize.Comma(int64(skipped[name]))})
	}

	if !ColorsEnabled() {
		var b strings.Builder
		fmt.Fprintf(&b, "%-36s %10s %10s\n", "Relation", "Restored", "Skipped")
		fmt.Fprintf(&b, "%s\n", strings.Repeat("-", 58))
		for _, r := range rows {
			fmt.Fprintf(&b, "%-36s %10s %10s\n", r[0], r[1], r[2])
		}
		return b.String()
	}

	return styledTable([]string{"Relation", "Restored", "Skipped"}, rows, func(row, col int, s lipgloss.Style) lipgloss.Style {
		if col == 2 && skipped[rows[row][0]] > 0 {
			return s.Foreground(ColorFromName("yellow"))
		}
		return s
	})
}
