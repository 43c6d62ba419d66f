package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/ALT-F4-LLC/treeport/internal/importexport/tree"
	"github.com/ALT-F4-LLC/treeport/internal/render"
)

type versionInfo struct {
	Version   string   `json:"version"`
	Commit    string   `json:"commit"`
	BuildDate string   `json:"build_date"`
	Relations []string `json:"relations"`
}

var versionCmd = &cobra.Command{
	Use:         "version",
	Short:       "Print treeport version information",
	Annotations: map[string]string{"skipDB": "true"},
	Run: func(cmd *cobra.Command, args []string) {
		w := getWriter(cmd)

		info := versionInfo{
			Version:   version,
			Commit:    commit,
			BuildDate: buildDate,
			Relations: tree.Project().Names(),
		}

		bold := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
		dim := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
		msg := fmt.Sprintf("treeport version %s %s\n%s",
			render.StyledText(info.Version, bold),
			render.StyledText(fmt.Sprintf("(commit: %s, built: %s)", info.Commit, info.BuildDate), dim),
			render.StyledText("restores: "+strings.Join(info.Relations, ", "), dim),
		)

		w.Success(info, msg)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
