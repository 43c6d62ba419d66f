package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/ALT-F4-LLC/treeport/internal/importexport/tree"
	"github.com/ALT-F4-LLC/treeport/internal/output"
	"github.com/ALT-F4-LLC/treeport/internal/planner"
	"github.com/ALT-F4-LLC/treeport/internal/render"
)

// planPhaseJSON is the JSON wire format for a single restore phase.
type planPhaseJSON struct {
	Phase     int      `json:"phase"`
	Relations []string `json:"relations"`
}

// planResult is the JSON wire format for the plan command output.
type planResult struct {
	Members        string          `json:"members"`
	Phases         []planPhaseJSON `json:"phases"`
	TotalRelations int             `json:"total_relations"`
	TotalPhases    int             `json:"total_phases"`
	MaxWidth       int             `json:"max_width"`
}

var planCmd = &cobra.Command{
	Use:         "plan",
	Short:       "Show the order relations are restored in",
	Annotations: map[string]string{"skipDB": "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)

		required, _ := cmd.Flags().GetStringSlice("required")
		skip, _ := cmd.Flags().GetStringSlice("skip")
		showTree, _ := cmd.Flags().GetBool("tree")

		t := tree.Project(tree.WithRequired(required...))
		if err := checkRelationNames(t, required, skip); err != nil {
			return cmdErr(err, output.ErrValidation)
		}

		plan, err := t.Plan(skip...)
		if err != nil {
			var cycleErr *planner.CycleError
			if errors.As(err, &cycleErr) {
				return cmdErr(err, output.ErrConflict)
			}
			return cmdErr(fmt.Errorf("generating plan: %w", err), output.ErrGeneral)
		}

		phases := make([]planPhaseJSON, len(plan.Phases))
		for i, phase := range plan.Phases {
			phases[i] = planPhaseJSON{Phase: phase.Number, Relations: phase.Relations}
		}
		result := planResult{
			Members:        t.Members,
			Phases:         phases,
			TotalRelations: plan.TotalRelations,
			TotalPhases:    plan.TotalPhases,
			MaxWidth:       plan.MaxWidth,
		}

		jsonMode, _ := cmd.Flags().GetBool("json")
		var message string
		if !jsonMode {
			message = renderPlanHuman(plan, t)
			if showTree {
				message += "\n\n" + render.RenderRelationTree(t)
			}
		}
		w.Success(result, message)
		return nil
	},
}

// renderPlanHuman renders the restore plan as human-readable text.
func renderPlanHuman(plan *planner.Plan, t *tree.Tree) string {
	if plan.TotalRelations == 0 {
		return render.EmptyState("No relations to restore.", "Every relation was skipped.", false)
	}

	if !render.ColorsEnabled() {
		return renderPlanPlain(plan, t)
	}

	var b strings.Builder

	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	phaseStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	nameStyle := lipgloss.NewStyle().Bold(true)
	requiredStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	depStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
	separatorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	boldMetric := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))

	b.WriteString(headerStyle.Render("Restore Plan:"))
	b.WriteString("\n\n")
	b.WriteString(depStyle.Render(fmt.Sprintf("Members (%s) are mapped before phase 1.", t.Members)))
	b.WriteString("\n")

	for i, phase := range plan.Phases {
		if i > 0 {
			b.WriteString(separatorStyle.Render("  ────────────────────────────────"))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(phaseStyle.Render(phaseTitle(phase)))
		b.WriteString("\n")

		for _, name := range phase.Relations {
			n := t.Lookup(name)
			label := nameStyle.Render(name)
			if n.Required {
				label = requiredStyle.Render(name + " (required)")
			}
			if len(n.DependsOn) > 0 {
				fmt.Fprintf(&b, "  %s  %s\n", label, depStyle.Render("(after "+strings.Join(n.DependsOn, ", ")+")"))
			} else {
				fmt.Fprintf(&b, "  %s\n", label)
			}
		}
	}

	b.WriteString("\n")
	fmt.Fprintf(&b, "Summary: %s relations, %s phases, widest phase: %s",
		boldMetric.Render(fmt.Sprintf("%d", plan.TotalRelations)),
		boldMetric.Render(fmt.Sprintf("%d", plan.TotalPhases)),
		boldMetric.Render(fmt.Sprintf("%d", plan.MaxWidth)),
	)

	return b.String()
}

func phaseTitle(phase planner.Phase) string {
	if phase.Number == 1 {
		return fmt.Sprintf("Phase %d (start):", phase.Number)
	}
	return fmt.Sprintf("Phase %d (after Phase %d):", phase.Number, phase.Number-1)
}

// renderPlanPlain renders the restore plan without colors.
func renderPlanPlain(plan *planner.Plan, t *tree.Tree) string {
	var b strings.Builder

	b.WriteString("Restore Plan:\n")
	fmt.Fprintf(&b, "\nMembers (%s) are mapped before phase 1.\n", t.Members)

	for _, phase := range plan.Phases {
		b.WriteString("\n")
		b.WriteString(phaseTitle(phase))
		b.WriteString("\n")

		for _, name := range phase.Relations {
			n := t.Lookup(name)
			line := "  " + name
			if n.Required {
				line += " (required)"
			}
			if len(n.DependsOn) > 0 {
				line += "  (after " + strings.Join(n.DependsOn, ", ") + ")"
			}
			b.WriteString(line + "\n")
		}
	}

	fmt.Fprintf(&b, "\nSummary: %d relations, %d phases, widest phase: %d",
		plan.TotalRelations, plan.TotalPhases, plan.MaxWidth)

	return b.String()
}

func init() {
	planCmd.Flags().StringSlice("skip", nil, "Leave out top-level relations (repeatable)")
	planCmd.Flags().StringSlice("required", nil, "Mark top-level relations as required (repeatable)")
	planCmd.Flags().Bool("tree", false, "Also show the nested relation tree")
	rootCmd.AddCommand(planCmd)
}
