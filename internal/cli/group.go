package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ALT-F4-LLC/treeport/internal/db"
	"github.com/ALT-F4-LLC/treeport/internal/model"
	"github.com/ALT-F4-LLC/treeport/internal/output"
)

var groupCmd = &cobra.Command{
	Use:   "group",
	Short: "Manage groups whose labels and milestones imports reuse",
}

var groupAddCmd = &cobra.Command{
	Use:   "add <path>",
	Short: "Add a group",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		store := db.NewStore(getDB(cmd))

		if _, err := store.GetGroupByPath(cmd.Context(), args[0]); err == nil {
			return cmdErr(fmt.Errorf("group %q already exists", args[0]), output.ErrConflict)
		} else if !errors.Is(err, db.ErrNotFound) {
			return cmdErr(err, output.ErrGeneral)
		}

		name, _ := cmd.Flags().GetString("name")
		if name == "" {
			name = args[0]
		}
		g := &model.Group{Name: name, Path: args[0]}
		if _, err := store.CreateGroup(cmd.Context(), g); err != nil {
			return cmdErr(fmt.Errorf("creating group: %w", err), output.ErrValidation)
		}

		w.Success(g, fmt.Sprintf("Added group %s (id %d)", g.Path, g.ID))
		return nil
	},
}

func init() {
	groupAddCmd.Flags().String("name", "", "Display name (default: the path)")
	groupCmd.AddCommand(groupAddCmd)
	rootCmd.AddCommand(groupCmd)
}
