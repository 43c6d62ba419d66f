package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ALT-F4-LLC/treeport/internal/db"
	"github.com/ALT-F4-LLC/treeport/internal/model"
	"github.com/ALT-F4-LLC/treeport/internal/output"
	"github.com/ALT-F4-LLC/treeport/internal/render"
)

type reportJSON struct {
	Project  *model.Project        `json:"project"`
	Run      *model.ImportRun      `json:"run"`
	Counts   map[string]int        `json:"counts"`
	Failures []model.ImportFailure `json:"failures"`
}

var reportCmd = &cobra.Command{
	Use:   "report <project>",
	Short: "Summarize a project and its latest import",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		store := db.NewStore(getDB(cmd))
		ctx := cmd.Context()

		project, err := store.GetProjectByPath(ctx, args[0])
		if err != nil {
			return notFoundOr(err, output.ErrGeneral)
		}

		rep := reportJSON{Project: project, Failures: []model.ImportFailure{}}

		run, err := store.LatestImportRun(ctx, project.ID)
		switch {
		case err == nil:
			rep.Run = run
			failures, err := store.ListImportFailures(ctx, project.ID, run.ID)
			if err != nil {
				return cmdErr(err, output.ErrGeneral)
			}
			if failures != nil {
				rep.Failures = failures
			}
		case !errors.Is(err, db.ErrNotFound):
			return cmdErr(err, output.ErrGeneral)
		}

		rep.Counts, err = store.CountRelations(ctx, project.ID)
		if err != nil {
			return cmdErr(fmt.Errorf("counting records: %w", err), output.ErrGeneral)
		}

		jsonMode, _ := cmd.Flags().GetBool("json")
		var msg string
		if !jsonMode {
			md := render.ReportMarkdown(render.Report{
				Project:  rep.Project,
				Run:      rep.Run,
				Counts:   rep.Counts,
				Failures: rep.Failures,
			})
			msg, err = render.RenderMarkdown(md)
			if err != nil {
				w.Warn("rendering markdown: %v", err)
			}
		}
		w.Success(rep, msg)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
}
