package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ALT-F4-LLC/treeport/internal/db"
	"github.com/ALT-F4-LLC/treeport/internal/model"
	"github.com/ALT-F4-LLC/treeport/internal/output"
	"github.com/ALT-F4-LLC/treeport/internal/render"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage destination users that exported identities map onto",
}

var userAddCmd = &cobra.Command{
	Use:   "add <username>",
	Short: "Add a destination user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		store := db.NewStore(getDB(cmd))

		email, _ := cmd.Flags().GetString("email")
		name, _ := cmd.Flags().GetString("name")
		admin, _ := cmd.Flags().GetBool("admin")

		u := &model.User{Username: args[0], Email: email, Name: name, Admin: admin}
		if _, err := store.CreateUser(cmd.Context(), u); err != nil {
			return cmdErr(fmt.Errorf("creating user: %w", err), output.ErrValidation)
		}

		w.Success(u, fmt.Sprintf("Added user %s (id %d)", u.Username, u.ID))
		return nil
	},
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List destination users",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		store := db.NewStore(getDB(cmd))

		users, err := store.ListUsers(cmd.Context())
		if err != nil {
			return cmdErr(err, output.ErrGeneral)
		}
		if users == nil {
			users = []*model.User{}
		}

		jsonMode, _ := cmd.Flags().GetBool("json")
		var msg string
		if !jsonMode {
			msg = formatUsers(users)
		}
		w.Success(users, msg)
		return nil
	},
}

func formatUsers(users []*model.User) string {
	if len(users) == 0 {
		return render.EmptyState("No users.", "Add one with: treeport user add <username>", false)
	}
	var b strings.Builder
	for _, u := range users {
		var flags []string
		if u.Admin {
			flags = append(flags, "admin")
		}
		if u.Ghost {
			flags = append(flags, "ghost")
		}
		line := fmt.Sprintf("%-5s %-20s %s", strconv.FormatInt(u.ID, 10), u.Username, u.Email)
		if len(flags) > 0 {
			line += " (" + strings.Join(flags, ", ") + ")"
		}
		b.WriteString(strings.TrimRight(line, " ") + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func init() {
	userAddCmd.Flags().String("email", "", "Email address exported members are matched on")
	userAddCmd.Flags().String("name", "", "Display name")
	userAddCmd.Flags().Bool("admin", false, "Grant admin rights")
	userCmd.AddCommand(userAddCmd, userListCmd)
	rootCmd.AddCommand(userCmd)
}
