package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/tree"

	reltree "github.com/ALT-F4-LLC/treeport/internal/importexport/tree"
)

// RenderRelationTree renders the nested relations of an export tree. Each
// node shows its association and whether it is shared or required.
func RenderRelationTree(t *reltree.Tree) string {
	if len(t.Relations) == 0 {
		return EmptyState("No relations declared.", "", false)
	}

	if !ColorsEnabled() {
		var b strings.Builder
		if t.Members != "" {
			fmt.Fprintf(&b, "%s (members)\n", t.Members)
		}
		for _, n := range t.Relations {
			renderPlainRelation(&b, n, 0)
		}
		return b.String()
	}

	root := tree.New().Root(lipgloss.NewStyle().Bold(true).Render("project"))
	if t.Members != "" {
		root.Child(t.Members + " " + lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render("(members)"))
	}
	for _, n := range t.Relations {
		root.Child(relationNode(n))
	}
	return root.String()
}

func relationNode(n *reltree.Node) *tree.Tree {
	node := tree.Root(formatRelation(n))
	for _, c := range n.Children {
		node.Child(relationNode(c))
	}
	return node
}

func relationFlags(n *reltree.Node) []string {
	flags := []string{n.Association.String()}
	if n.Shared {
		flags = append(flags, "shared")
	}
	if n.Required {
		flags = append(flags, "required")
	}
	return flags
}

func formatRelation(n *reltree.Node) string {
	nameStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	if n.Required {
		nameStyle = nameStyle.Bold(true).Foreground(ColorFromName("red"))
	}
	flagStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
	return fmt.Sprintf("%s %s",
		nameStyle.Render(n.Name),
		flagStyle.Render("("+strings.Join(relationFlags(n), ", ")+")"),
	)
}

func renderPlainRelation(b *strings.Builder, n *reltree.Node, depth int) {
	fmt.Fprintf(b, "%s%s (%s)\n", strings.Repeat("  ", depth), n.Name, strings.Join(relationFlags(n), ", "))
	for _, c := range n.Children {
		renderPlainRelation(b, c, depth+1)
	}
}
