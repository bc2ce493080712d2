package views

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"

	"graphbridge/internal/output"
	"graphbridge/ui/tui/state"
	"graphbridge/ui/tui/styles"
)

type StatsView struct{}

func (v StatsView) Render(s state.AppState, props ViewProps) string {
	header := lipgloss.JoinHorizontal(lipgloss.Left,
		props.SpinnerView,
		styles.TitleStyle.Render("Graph Statistics"),
		fmt.Sprintf(" Last Update: %s", s.LastUpdate.Format("15:04:05")),
	)
	footer := lipgloss.NewStyle().Foreground(styles.Subtle).Render("\n[r] Refresh • [b] Back")

	if s.StatsErr != nil {
		return lipgloss.JoinVertical(lipgloss.Left, header, styles.ErrorStyle.Render(s.StatsErr.Error()), footer)
	}

	view := output.BuildStatsView(s.Stats)
	barWidth := props.Width/2 - 30
	if barWidth < 10 {
		barWidth = 10
	}

	var cards []string
	for _, sec := range view.Sections {
		cards = append(cards, zone.Mark("stats_"+sec.ID, styles.CardStyle.Render(
			lipgloss.JoinVertical(lipgloss.Left,
				lipgloss.NewStyle().Bold(true).Render(sec.Title),
				RenderCountBars(sec.Items, barWidth),
			),
		)))
	}
	if len(cards) == 0 {
		cards = append(cards, CopyStyle.Render("The graph is empty. Run `graphbridge load` first."))
	}

	return zone.Scan(lipgloss.JoinVertical(lipgloss.Left,
		header,
		lipgloss.JoinHorizontal(lipgloss.Top, cards...),
		lipgloss.NewStyle().PaddingLeft(2).Render(view.Summary),
		footer,
	))
}
