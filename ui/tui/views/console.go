package views

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"graphbridge/ui/tui/state"
)

// ConsoleView is a scrollable log of the session.
type ConsoleView struct{}

func (v ConsoleView) Render(s state.AppState, props ViewProps) string {
	header := MenuHeaderStyle.Width(props.Width).Render("Session Log")

	availableHeight := props.Height - lipgloss.Height(header) - 4
	if availableHeight < 1 {
		availableHeight = 1
	}

	lines := s.ConsoleLogs
	totalLines := len(lines)

	scrollY := clampScroll(props.ScrollY, totalLines, availableHeight)
	end := scrollY + availableHeight
	if end > totalLines {
		end = totalLines
	}

	box := lipgloss.NewStyle().
		Width(props.Width-4).
		Height(availableHeight).
		Padding(0, 1).
		Render(strings.Join(lines[scrollY:end], "\n"))

	footerText := fmt.Sprintf("Scroll: %d/%d • Press 'b' to go back", scrollY, totalLines)
	if totalLines > availableHeight {
		footerText += " • Use ↑/↓ to scroll"
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		lipgloss.NewStyle().Padding(1, 2).Render(box),
		lipgloss.NewStyle().PaddingLeft(2).Foreground(lipgloss.Color("#555")).Render(footerText),
	)
}

func clampScroll(scrollY, total, visible int) int {
	if scrollY > total-visible {
		scrollY = total - visible
	}
	if scrollY < 0 {
		scrollY = 0
	}
	return scrollY
}
