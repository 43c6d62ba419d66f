package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/ALT-F4-LLC/treeport/internal/config"
	"github.com/ALT-F4-LLC/treeport/internal/db"
	"github.com/ALT-F4-LLC/treeport/internal/importexport/importer"
	"github.com/ALT-F4-LLC/treeport/internal/importexport/reader"
	"github.com/ALT-F4-LLC/treeport/internal/importexport/restorer"
	"github.com/ALT-F4-LLC/treeport/internal/importexport/tree"
	"github.com/ALT-F4-LLC/treeport/internal/metrics"
	"github.com/ALT-F4-LLC/treeport/internal/output"
	"github.com/ALT-F4-LLC/treeport/internal/render"
)

type importFailureJSON struct {
	Path    string `json:"path"`
	Index   int    `json:"index"`
	Class   string `json:"class"`
	Message string `json:"message"`
}

type importNoticeJSON struct {
	Kind    string `json:"kind"`
	Path    string `json:"path"`
	Message string `json:"message"`
}

type importOutcomeJSON struct {
	Export   string              `json:"export"`
	Project  string              `json:"project"`
	RunID    string              `json:"run_id,omitempty"`
	Success  bool                `json:"success"`
	Version  string              `json:"version,omitempty"`
	Created  int                 `json:"created"`
	Counts   map[string]int      `json:"counts"`
	Skipped  map[string]int      `json:"skipped"`
	Failures []importFailureJSON `json:"failures"`
	Notices  []importNoticeJSON  `json:"notices"`
	Warnings []string            `json:"warnings"`
	Error    string              `json:"error,omitempty"`
}

var importCmd = &cobra.Command{
	Use:   "import <export>=<project>...",
	Short: "Restore project exports into destination projects",
	Long: `Restore one or more project exports. Each argument pairs an export
(a project.json document or a directory holding one) with the path of the
destination project, which is created when it does not exist.

Records that fail to restore are reported and skipped; the import only
aborts, and rolls back, when the project attributes or a --required relation
cannot be restored.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		cfg := getCfg(cmd)
		conn := getDB(cmd)
		ctx := cmd.Context()

		group, _ := cmd.Flags().GetString("group")
		replace, _ := cmd.Flags().GetBool("replace")
		targets, err := parseTargets(args, group, replace)
		if err != nil {
			return cmdErr(err, output.ErrValidation)
		}

		required, _ := cmd.Flags().GetStringSlice("required")
		skip, _ := cmd.Flags().GetStringSlice("skip")
		relTree := tree.Project(tree.WithRequired(required...))
		if err := checkRelationNames(relTree, required, skip); err != nil {
			return cmdErr(err, output.ErrValidation)
		}

		fallback, _ := cmd.Flags().GetString("fallback")
		if fallback == "" {
			fallback = cfg.Settings.FallbackActor
		}

		if replace && !w.JSONMode {
			yes, _ := cmd.Flags().GetBool("yes")
			if !yes {
				confirmed, err := confirmReplace(targets)
				if err != nil {
					return cmdErr(fmt.Errorf("interactive form failed: %w", err), output.ErrGeneral)
				}
				if !confirmed {
					w.Info("Cancelled.")
					return nil
				}
			}
		}

		as, _ := cmd.Flags().GetString("as")
		if as == "" {
			as = config.DefaultUsername()
		}
		user, err := db.NewStore(conn).GetUserByUsername(ctx, as)
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				return cmdErr(fmt.Errorf("importing user %q does not exist, add it with 'treeport user add %s'", as, as), output.ErrNotFound)
			}
			return cmdErr(err, output.ErrGeneral)
		}

		metricsFile, _ := cmd.Flags().GetString("metrics-file")
		var recorder metrics.Recorder = metrics.Nop{}
		registry := prometheus.NewRegistry()
		if metricsFile != "" {
			recorder = metrics.NewCollector(registry)
		}

		im := importer.New(conn, user, restorer.Options{
			Fallback:             fallback,
			RepairAttempts:       cfg.Settings.RepairAttempts,
			RepairInitialBackoff: cfg.Settings.RepairInitialBackoff,
			Tree:                 relTree,
			Skip:                 skip,
			Metrics:              recorder,
			Logger:               getLogger(cmd),
		})

		outcomes, importErr := im.ImportAll(ctx, targets, cfg.Settings.Parallelism)

		if metricsFile != "" {
			if err := metrics.WriteFile(registry, metricsFile); err != nil {
				w.Warn("writing metrics: %v", err)
			}
		}

		results := make([]importOutcomeJSON, 0, len(outcomes))
		for _, out := range outcomes {
			results = append(results, outcomeToJSON(out))
		}

		if importErr != nil {
			for _, r := range results {
				reportOutcome(w, r)
			}
			return cmdErr(importErr, importErrorCode(importErr))
		}

		var message string
		if !w.JSONMode {
			for _, r := range results[:len(results)-1] {
				reportOutcome(w, r)
			}
			message = formatOutcome(outcomes[len(outcomes)-1], results[len(results)-1])
			reportNotices(w, results[len(results)-1])
		}
		w.Success(results, message)
		return nil
	},
}

// parseTargets splits export=project arguments.
func parseTargets(args []string, group string, replace bool) ([]importer.Target, error) {
	targets := make([]importer.Target, 0, len(args))
	seen := make(map[string]struct{}, len(args))
	for _, arg := range args {
		export, project, ok := strings.Cut(arg, "=")
		if !ok || export == "" || project == "" {
			return nil, fmt.Errorf("invalid target %q: expected <export>=<project>", arg)
		}
		if _, dup := seen[project]; dup {
			return nil, fmt.Errorf("project %q is targeted more than once", project)
		}
		seen[project] = struct{}{}
		targets = append(targets, importer.Target{
			ExportPath: export,
			Project:    project,
			Group:      group,
			Replace:    replace,
		})
	}
	return targets, nil
}

// checkRelationNames rejects names that are not top-level relations.
func checkRelationNames(t *tree.Tree, lists ...[]string) error {
	for _, names := range lists {
		for _, name := range names {
			if t.Lookup(name) == nil {
				return fmt.Errorf("unknown relation %q", name)
			}
		}
	}
	return nil
}

func confirmReplace(targets []importer.Target) (bool, error) {
	projects := make([]string, len(targets))
	for i, t := range targets {
		projects[i] = t.Project
	}

	var confirmed bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("This will delete the restored records of %s before importing. Continue?", strings.Join(projects, ", "))).
				Affirmative("Yes, replace").
				Negative("Cancel").
				Value(&confirmed),
		),
	)
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return false, nil
		}
		return false, err
	}
	return confirmed, nil
}

func importErrorCode(err error) output.ErrorCode {
	switch {
	case errors.Is(err, reader.ErrDocumentFormat):
		return output.ErrFormat
	case errors.Is(err, restorer.ErrFatalRelation):
		return output.ErrFatal
	case errors.Is(err, db.ErrNotFound):
		return output.ErrNotFound
	default:
		return output.ErrGeneral
	}
}

func outcomeToJSON(out *importer.Outcome) importOutcomeJSON {
	r := importOutcomeJSON{
		Export:   out.Target.ExportPath,
		Project:  out.Target.Project,
		Counts:   map[string]int{},
		Skipped:  map[string]int{},
		Failures: []importFailureJSON{},
		Notices:  []importNoticeJSON{},
		Warnings: []string{},
	}
	if out.Run != nil {
		r.RunID = out.Run.ID
	}
	if out.Err != nil {
		r.Error = out.Err.Error()
	}
	res := out.Result
	if res == nil {
		return r
	}
	r.Success = res.Success && out.Err == nil
	r.Version = res.Version
	r.Created = res.Created()
	if res.Counts != nil {
		r.Counts = res.Counts
	}
	if res.Skipped != nil {
		r.Skipped = res.Skipped
	}
	for _, f := range res.Failures {
		r.Failures = append(r.Failures, importFailureJSON{
			Path:    f.Path,
			Index:   f.RelationIndex,
			Class:   f.Class.String(),
			Message: f.Err.Error(),
		})
	}
	for _, n := range res.Notices {
		r.Notices = append(r.Notices, importNoticeJSON{Kind: string(n.Kind), Path: n.Path, Message: n.Message})
	}
	for _, wn := range res.Warnings {
		r.Warnings = append(r.Warnings, wn.String())
	}
	return r
}

func formatOutcome(out *importer.Outcome, r importOutcomeJSON) string {
	bold := lipgloss.NewStyle().Bold(true)
	header := fmt.Sprintf("Imported %s into %s: %d records, %d failures",
		r.Export,
		render.StyledText(r.Project, bold),
		r.Created,
		len(r.Failures),
	)
	if out.Result == nil {
		return header
	}
	return header + "\n\n" + render.RenderCounts(r.Counts, r.Skipped)
}

func reportNotices(w *output.Writer, r importOutcomeJSON) {
	for _, n := range r.Notices {
		w.Notice(n.Path, "%s", n.Message)
	}
	for _, f := range r.Failures {
		w.Warn("%s[%d]: %s", f.Path, f.Index, f.Message)
	}
	for _, msg := range r.Warnings {
		w.Warn("%s", msg)
	}
}

func reportOutcome(w *output.Writer, r importOutcomeJSON) {
	reportNotices(w, r)
	if r.Error != "" {
		w.Warn("%s: import of %s failed", r.Project, r.Export)
		return
	}
	w.Info("%s: restored %d records from %s (%d failures)", r.Project, r.Created, r.Export, len(r.Failures))
}

func init() {
	importCmd.Flags().String("group", "", "Group path new projects are created in; its labels and milestones are reused")
	importCmd.Flags().Bool("replace", false, "Delete the project's restored records before importing")
	importCmd.Flags().BoolP("yes", "y", false, "Skip the --replace confirmation")
	importCmd.Flags().String("as", "", "Username the import acts as (default: git user.name or OS user)")
	importCmd.Flags().String("fallback", "", "Owner of records whose author is unknown: importer or ghost (default from config.yaml)")
	importCmd.Flags().StringSlice("skip", nil, "Top-level relations to leave out (repeatable)")
	importCmd.Flags().StringSlice("required", nil, "Top-level relations whose failures abort the import (repeatable)")
	importCmd.Flags().String("metrics-file", "", "Write restore metrics to this file in Prometheus text format")
	rootCmd.AddCommand(importCmd)
}
