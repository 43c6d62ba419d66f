package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ALT-F4-LLC/treeport/internal/db"
	"github.com/ALT-F4-LLC/treeport/internal/model"
	"github.com/ALT-F4-LLC/treeport/internal/output"
	"github.com/ALT-F4-LLC/treeport/internal/render"
)

var failuresCmd = &cobra.Command{
	Use:   "failures <project>",
	Short: "List relations that failed to restore",
	Long: `List the recorded failures of a project's latest import, or of the run
selected with --run. Use --all to list failures of every run.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		store := db.NewStore(getDB(cmd))
		ctx := cmd.Context()

		project, err := store.GetProjectByPath(ctx, args[0])
		if err != nil {
			return notFoundOr(err, output.ErrGeneral)
		}

		all, _ := cmd.Flags().GetBool("all")
		runFlag, _ := cmd.Flags().GetString("run")
		var correlationID string
		if !all {
			run, err := selectRun(ctx, store, project.ID, runFlag)
			if err != nil {
				return notFoundOr(err, output.ErrValidation)
			}
			correlationID = run.ID
		}

		failures, err := store.ListImportFailures(ctx, project.ID, correlationID)
		if err != nil {
			return cmdErr(err, output.ErrGeneral)
		}
		if failures == nil {
			failures = []model.ImportFailure{}
		}

		jsonMode, _ := cmd.Flags().GetBool("json")
		var msg string
		if !jsonMode {
			msg = render.RenderFailures(failures)
		}
		w.Success(failures, msg)
		return nil
	},
}

// selectRun returns the run whose id starts with prefix, or the latest run
// when prefix is empty.
func selectRun(ctx context.Context, store *db.Store, projectID int64, prefix string) (*model.ImportRun, error) {
	if prefix == "" {
		return store.LatestImportRun(ctx, projectID)
	}
	runs, err := store.ListImportRuns(ctx, projectID)
	if err != nil {
		return nil, err
	}
	var match *model.ImportRun
	for _, r := range runs {
		if !strings.HasPrefix(r.ID, prefix) {
			continue
		}
		if match != nil {
			return nil, fmt.Errorf("run prefix %q is ambiguous", prefix)
		}
		match = r
	}
	if match == nil {
		return nil, fmt.Errorf("import run %q: %w", prefix, db.ErrNotFound)
	}
	return match, nil
}

var runsCmd = &cobra.Command{
	Use:   "runs <project>",
	Short: "List a project's import runs, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		store := db.NewStore(getDB(cmd))

		project, err := store.GetProjectByPath(cmd.Context(), args[0])
		if err != nil {
			return notFoundOr(err, output.ErrGeneral)
		}
		runs, err := store.ListImportRuns(cmd.Context(), project.ID)
		if err != nil {
			return cmdErr(err, output.ErrGeneral)
		}
		if runs == nil {
			runs = []*model.ImportRun{}
		}

		jsonMode, _ := cmd.Flags().GetBool("json")
		var msg string
		if !jsonMode {
			msg = render.RenderRuns(runs)
		}
		w.Success(runs, msg)
		return nil
	},
}

func init() {
	failuresCmd.Flags().String("run", "", "Run id or id prefix (default: the latest run)")
	failuresCmd.Flags().Bool("all", false, "List failures of every run")
	rootCmd.AddCommand(failuresCmd, runsCmd)
}
