package views

import (
	"fmt"
	"math"

	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"

	"graphbridge/ui/tui/state"
)

// MenuOptions are the menu entries in display order.
var MenuOptions = []string{
	"Ask the Graph",
	"Graph Schema",
	"Graph Statistics",
	"Session Log",
}

type MenuView struct{}

func (v MenuView) Render(s state.AppState, props ViewProps) string {
	header := MenuHeaderStyle.Width(props.Width).Render("GRAPHBRIDGE // GRAPH QUESTION ANSWERING")

	var menuItems []string
	listStartY := 6

	for i, option := range MenuOptions {
		// Spring-animated selection highlight.
		dist := math.Abs(float64(i) - props.AnimCursor)
		selectionStrength := 0.0
		if dist < 1.0 {
			selectionStrength = 1.0 - dist
		}

		itemCenterY := listStartY + (i * 3) + 1
		mouseDistY := math.Abs(float64(props.MouseY - itemCenterY))

		borderColor := BaseColor
		if mouseDistY < 10 && 1.0-(mouseDistY/10.0) > 0.5 {
			borderColor = lipgloss.Color("#aaa")
		}
		if selectionStrength > 0.1 || i == props.MenuCursor {
			borderColor = BrandColor
		}

		popOut := int(selectionStrength * 2)
		boxStyle := lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(borderColor).
			Padding(0, 1).
			MarginLeft(2 + popOut).
			Width(40)

		if i == props.MenuCursor {
			boxStyle = boxStyle.Bold(true).Foreground(lipgloss.Color("#FFF"))
		} else {
			boxStyle = boxStyle.Foreground(lipgloss.Color("#AAA"))
		}

		text := fmt.Sprintf("%02d. %s", i+1, option)
		menuItems = append(menuItems, zone.Mark(fmt.Sprintf("menu_%d", i), boxStyle.Render(text)))
	}

	summary := "Graph not loaded yet"
	if s.StatsErr != nil {
		summary = "Graph unavailable: " + s.StatsErr.Error()
	} else if !s.LastUpdate.IsZero() {
		summary = fmt.Sprintf("%d nodes · %d relationships · %d questions asked",
			s.Stats.TotalNodes(), s.Stats.TotalRelationships(), len(s.Exchanges))
	}

	menuContent := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().Bold(true).PaddingLeft(2).Foreground(BrandColor).Render("MODULES"),
		CopyStyle.Render(summary),
		lipgloss.JoinVertical(lipgloss.Left, menuItems...),
	)

	controls := lipgloss.NewStyle().
		PaddingLeft(2).
		Foreground(lipgloss.Color("#555")).
		Render("\n[↑/↓] Navigate • [Enter] Select • [Q] Quit")

	return zone.Scan(lipgloss.JoinVertical(lipgloss.Left,
		header,
		MenuBoxStyle.Render(menuContent),
		controls,
	))
}

var (
	BrandColor = lipgloss.Color("#f27b24")
	BaseColor  = lipgloss.Color("#444")

	MenuHeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(BrandColor).
			Align(lipgloss.Left).
			Padding(1, 2)

	MenuBoxStyle = lipgloss.NewStyle().
			Padding(1, 0).
			MarginTop(1)

	CopyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888")).
			Italic(true).
			MarginBottom(1).
			PaddingLeft(2)
)
