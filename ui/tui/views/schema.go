package views

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"graphbridge/internal/database/graph"
	"graphbridge/ui/tui/state"
	"graphbridge/ui/tui/styles"
)

type SchemaView struct{}

func (v SchemaView) Render(s state.AppState, props ViewProps) string {
	header := MenuHeaderStyle.Width(props.Width).Render("Graph Schema")
	footer := lipgloss.NewStyle().Padding(1, 2).Foreground(styles.Subtle).Render("[r] Refresh • [b] Back")

	if s.SchemaErr != nil {
		return lipgloss.JoinVertical(lipgloss.Left, header,
			styles.ErrorStyle.Render("\n"+s.SchemaErr.Error()), footer)
	}

	labels := propertyCard("Node labels", s.Schema.NodeProperties)
	rels := propertyCard("Relationship types", s.Schema.RelProperties)

	var patterns []string
	for _, p := range s.Schema.Relationships {
		patterns = append(patterns, p.String())
	}
	if len(patterns) == 0 {
		patterns = append(patterns, "(none)")
	}
	patternBox := styles.CardStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().Bold(true).Render("Patterns"),
		strings.Join(patterns, "\n"),
	))

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		lipgloss.JoinHorizontal(lipgloss.Top, labels, rels),
		patternBox,
		footer,
	)
}

func propertyCard(title string, props map[string][]graph.Property) string {
	var lines []string
	for _, name := range sortedKeys(props) {
		lines = append(lines, lipgloss.NewStyle().Bold(true).Foreground(BrandColor).Render(name))
		for _, p := range props[name] {
			lines = append(lines, fmt.Sprintf("  %s: %s", p.Name, p.Type))
		}
	}
	if len(lines) == 0 {
		lines = append(lines, "(none)")
	}
	return styles.CardStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().Bold(true).Render(title),
		strings.Join(lines, "\n"),
	))
}
