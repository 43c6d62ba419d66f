package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/ALT-F4-LLC/treeport/internal/config"
	"github.com/ALT-F4-LLC/treeport/internal/db"
	"github.com/ALT-F4-LLC/treeport/internal/model"
	"github.com/ALT-F4-LLC/treeport/internal/output"
	"github.com/ALT-F4-LLC/treeport/internal/render"
)

type initResult struct {
	Path          string `json:"path"`
	DBPath        string `json:"db_path"`
	SettingsPath  string `json:"settings_path"`
	SchemaVersion int    `json:"schema_version"`
	Admin         string `json:"admin,omitempty"`
	Created       bool   `json:"created"`
}

var initCmd = &cobra.Command{
	Use:         "init",
	Short:       "Initialize a treeport database and settings file",
	Annotations: map[string]string{"skipDB": "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		cfg := getCfg(cmd)

		exists, err := cfg.Exists()
		if err != nil {
			return cmdErr(fmt.Errorf("checking database: %w", err), output.ErrGeneral)
		}

		if exists {
			w.Warn("Database already exists at %s", cfg.DBPath)

			conn, err := db.Open(cfg.DBPath)
			if err != nil {
				return cmdErr(fmt.Errorf("opening database: %w", err), output.ErrGeneral)
			}
			defer conn.Close()

			if err := db.Migrate(conn); err != nil {
				return cmdErr(fmt.Errorf("migrating schema: %w", err), output.ErrGeneral)
			}
			schemaVersion, err := db.SchemaVersion(conn)
			if err != nil {
				return cmdErr(fmt.Errorf("reading schema version: %w", err), output.ErrGeneral)
			}

			msg := render.StyledText("Database already initialized", lipgloss.NewStyle().Foreground(lipgloss.Color("3")))
			w.Success(initResult{
				Path:          cfg.Dir,
				DBPath:        cfg.DBPath,
				SettingsPath:  cfg.SettingsPath,
				SchemaVersion: schemaVersion,
			}, msg)
			return nil
		}

		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return cmdErr(fmt.Errorf("creating directory: %w", err), output.ErrGeneral)
		}

		if _, err := os.Stat(cfg.SettingsPath); errors.Is(err, os.ErrNotExist) {
			if err := config.WriteSettings(cfg.SettingsPath, cfg.Settings); err != nil {
				return cmdErr(err, output.ErrGeneral)
			}
		}

		conn, err := db.Open(cfg.DBPath)
		if err != nil {
			return cmdErr(fmt.Errorf("opening database: %w", err), output.ErrGeneral)
		}
		defer conn.Close()

		if err := db.Initialize(conn); err != nil {
			return cmdErr(fmt.Errorf("initializing schema: %w", err), output.ErrGeneral)
		}
		if err := db.Migrate(conn); err != nil {
			return cmdErr(fmt.Errorf("migrating schema: %w", err), output.ErrGeneral)
		}

		schemaVersion, err := db.SchemaVersion(conn)
		if err != nil {
			return cmdErr(fmt.Errorf("reading schema version: %w", err), output.ErrGeneral)
		}

		admin, _ := cmd.Flags().GetString("admin")
		if !cmd.Flags().Changed("admin") {
			admin = config.DefaultUsername()
		}
		if admin != "" {
			email, _ := cmd.Flags().GetString("email")
			u := &model.User{Username: admin, Email: email, Name: admin, Admin: true}
			if _, err := db.NewStore(conn).CreateUser(cmd.Context(), u); err != nil {
				return cmdErr(fmt.Errorf("creating admin user: %w", err), output.ErrValidation)
			}
		}

		successMsg := render.StyledText("Initialized treeport database", lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10")))
		w.Success(initResult{
			Path:          cfg.Dir,
			DBPath:        cfg.DBPath,
			SettingsPath:  cfg.SettingsPath,
			SchemaVersion: schemaVersion,
			Admin:         admin,
			Created:       true,
		}, successMsg)

		w.Info("Database created at %s", cfg.DBPath)
		if admin != "" {
			w.Info("Imports run as %s unless --as is given", admin)
		}
		w.Info("Consider adding .treeport/ to your .gitignore")

		return nil
	},
}

func init() {
	initCmd.Flags().String("admin", "", "Username of the admin user imports act as (default: git user.name or OS user; pass \"\" to skip)")
	initCmd.Flags().String("email", "", "Email of the admin user")
	rootCmd.AddCommand(initCmd)
}
