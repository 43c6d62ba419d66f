package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	humanize "github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ALT-F4-LLC/treeport/internal/config"
	"github.com/ALT-F4-LLC/treeport/internal/db"
	"github.com/ALT-F4-LLC/treeport/internal/output"
	"github.com/ALT-F4-LLC/treeport/internal/render"
)

type configInfo struct {
	DBPath          string          `json:"db_path"`
	DBSizeBytes     int64           `json:"db_size_bytes"`
	SchemaVersion   int             `json:"schema_version"`
	SettingsPath    string          `json:"settings_path"`
	Settings        config.Settings `json:"settings"`
	TreeportPathEnv string          `json:"treeport_path_env"`
	TreeportPathSet bool            `json:"treeport_path_set"`
}

var configCmd = &cobra.Command{
	Use:         "config",
	Short:       "Display treeport configuration",
	Annotations: map[string]string{"skipDB": "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		cfg := getCfg(cmd)

		info := configInfo{
			DBPath:          cfg.DBPath,
			SettingsPath:    cfg.SettingsPath,
			Settings:        cfg.Settings,
			TreeportPathEnv: os.Getenv("TREEPORT_PATH"),
			TreeportPathSet: cfg.EnvVarSet,
		}

		exists, err := cfg.Exists()
		if err != nil {
			return cmdErr(fmt.Errorf("checking database: %w", err), output.ErrGeneral)
		}

		if !exists {
			w.Warn("No treeport database found. Run 'treeport init' to create one.")
			w.Success(info, formatConfigHuman(info, true))
			return nil
		}

		conn, err := db.Open(cfg.DBPath)
		if err != nil {
			return cmdErr(fmt.Errorf("opening database: %w", err), output.ErrGeneral)
		}
		defer conn.Close()

		info.SchemaVersion, err = db.SchemaVersion(conn)
		if err != nil {
			return cmdErr(fmt.Errorf("reading schema version: %w", err), output.ErrGeneral)
		}

		stat, err := os.Stat(cfg.DBPath)
		if err != nil {
			return cmdErr(fmt.Errorf("reading database file: %w", err), output.ErrGeneral)
		}
		info.DBSizeBytes = stat.Size()

		w.Success(info, formatConfigHuman(info, false))
		return nil
	},
}

func formatEnvValue(val string) string {
	if val == "" {
		return "(not set)"
	}
	return val
}

// configLines returns the label/value pairs shown by the config command.
func configLines(info configInfo, notFound bool) [][2]string {
	dbPath := info.DBPath
	if notFound {
		dbPath += " (not found)"
	}
	lines := [][2]string{{"Database path:", dbPath}}
	if !notFound {
		lines = append(lines,
			[2]string{"Database size:", humanize.IBytes(uint64(info.DBSizeBytes))},
			[2]string{"Schema version:", fmt.Sprintf("%d", info.SchemaVersion)},
		)
	}
	s := info.Settings
	return append(lines,
		[2]string{"Settings file:", info.SettingsPath},
		[2]string{"Fallback actor:", s.FallbackActor},
		[2]string{"Repair attempts:", fmt.Sprintf("%d (initial backoff %s)", s.RepairAttempts, s.RepairInitialBackoff)},
		[2]string{"Parallelism:", fmt.Sprintf("%d", s.Parallelism)},
		[2]string{"Log level:", s.LogLevel},
		[2]string{"TREEPORT_PATH:", formatEnvValue(info.TreeportPathEnv)},
	)
}

func formatConfigHuman(info configInfo, notFound bool) string {
	lines := configLines(info, notFound)

	if !render.ColorsEnabled() {
		var b strings.Builder
		for i, l := range lines {
			if i > 0 {
				b.WriteString("\n")
			}
			fmt.Fprintf(&b, "%-17s%s", l[0], l[1])
		}
		return b.String()
	}

	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	keyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Width(17)
	valStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))

	indicator := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render("●")
	if notFound {
		indicator = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Render("●")
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render("Treeport Configuration") + "\n")
	for i, l := range lines {
		b.WriteString("\n  ")
		b.WriteString(keyStyle.Render(l[0]))
		if i == 0 {
			b.WriteString(indicator + " ")
		}
		b.WriteString(valStyle.Render(l[1]))
	}
	return b.String()
}

func init() {
	rootCmd.AddCommand(configCmd)
}
