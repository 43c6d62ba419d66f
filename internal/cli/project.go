package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ALT-F4-LLC/treeport/internal/db"
	"github.com/ALT-F4-LLC/treeport/internal/importexport/importer"
	"github.com/ALT-F4-LLC/treeport/internal/model"
	"github.com/ALT-F4-LLC/treeport/internal/output"
	"github.com/ALT-F4-LLC/treeport/internal/render"
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage destination projects",
}

var projectAddCmd = &cobra.Command{
	Use:   "add <path>",
	Short: "Add an empty destination project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		store := db.NewStore(getDB(cmd))
		ctx := cmd.Context()

		visibility, _ := cmd.Flags().GetString("visibility")
		if err := model.ValidateVisibility(model.Visibility(visibility)); err != nil {
			return cmdErr(err, output.ErrValidation)
		}

		if _, err := store.GetProjectByPath(ctx, args[0]); err == nil {
			return cmdErr(fmt.Errorf("project %q already exists", args[0]), output.ErrConflict)
		} else if !errors.Is(err, db.ErrNotFound) {
			return cmdErr(err, output.ErrGeneral)
		}

		group, _ := cmd.Flags().GetString("group")
		p, err := importer.EnsureProject(ctx, store, args[0], group)
		if err != nil {
			return cmdErr(fmt.Errorf("creating project: %w", err), output.ErrValidation)
		}

		description, _ := cmd.Flags().GetString("description")
		fields := map[string]any{"visibility": visibility}
		if description != "" {
			fields["description"] = description
		}
		if err := store.UpdateProject(ctx, p.ID, fields); err != nil {
			return cmdErr(fmt.Errorf("updating project: %w", err), output.ErrValidation)
		}
		p.Visibility = model.Visibility(visibility)
		p.Description = description

		w.Success(p, fmt.Sprintf("Added project %s (id %d)", p.Path, p.ID))
		return nil
	},
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List destination projects",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		store := db.NewStore(getDB(cmd))

		projects, err := store.ListProjects(cmd.Context())
		if err != nil {
			return cmdErr(err, output.ErrGeneral)
		}
		if projects == nil {
			projects = []*model.Project{}
		}

		jsonMode, _ := cmd.Flags().GetBool("json")
		var msg string
		if !jsonMode {
			msg = formatProjects(projects)
		}
		w.Success(projects, msg)
		return nil
	},
}

var projectMembersCmd = &cobra.Command{
	Use:   "members <path>",
	Short: "List the members of a project and their access levels",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		store := db.NewStore(getDB(cmd))

		p, err := store.GetProjectByPath(cmd.Context(), args[0])
		if err != nil {
			return notFoundOr(err, output.ErrGeneral)
		}
		members, err := store.ListMembers(cmd.Context(), p.ID)
		if err != nil {
			return cmdErr(err, output.ErrGeneral)
		}

		result := make([]memberJSON, 0, len(members))
		for _, m := range members {
			result = append(result, memberJSON{Username: m.User.Username, Email: m.User.Email, AccessLevel: m.AccessLevel.String()})
		}

		jsonMode, _ := cmd.Flags().GetBool("json")
		var msg string
		if !jsonMode {
			msg = formatMembers(result)
		}
		w.Success(result, msg)
		return nil
	},
}

type memberJSON struct {
	Username    string `json:"username"`
	Email       string `json:"email,omitempty"`
	AccessLevel string `json:"access_level"`
}

func formatMembers(members []memberJSON) string {
	if len(members) == 0 {
		return render.EmptyState("No members.", "Members are added when an export is imported.", false)
	}
	var b strings.Builder
	for _, m := range members {
		fmt.Fprintf(&b, "%-20s %-12s %s\n", m.Username, m.AccessLevel, m.Email)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatProjects(projects []*model.Project) string {
	if len(projects) == 0 {
		return render.EmptyState("No projects.", "Add one with: treeport project add <path>", false)
	}
	var b strings.Builder
	for _, p := range projects {
		fmt.Fprintf(&b, "%-5d %-30s %s\n", p.ID, p.Path, p.Visibility)
	}
	return strings.TrimRight(b.String(), "\n")
}

func init() {
	projectAddCmd.Flags().String("group", "", "Group path the project belongs to (created when absent)")
	projectAddCmd.Flags().String("visibility", string(model.VisibilityPrivate), "Visibility: private, internal or public")
	projectAddCmd.Flags().String("description", "", "Project description")
	projectCmd.AddCommand(projectAddCmd, projectListCmd, projectMembersCmd)
	rootCmd.AddCommand(projectCmd)
}
