package views

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"graphbridge/ui/tui/state"
	"graphbridge/ui/tui/styles"
)

type ChatView struct{}

func (v ChatView) Render(s state.AppState, props ViewProps) string {
	header := lipgloss.JoinHorizontal(lipgloss.Left,
		MenuHeaderStyle.Render("Ask the Graph"),
		styles.TitleStyle.Render(fmt.Sprintf("%d questions", len(s.Exchanges))),
	)

	var blocks []string
	for _, ex := range s.Exchanges {
		blocks = append(blocks, renderExchange(ex))
	}
	if s.Busy() {
		blocks = append(blocks, lipgloss.JoinVertical(lipgloss.Left,
			styles.QuestionStyle.Render("? "+s.Pending),
			styles.AnswerStyle.Render(props.SpinnerView+" thinking..."),
		))
	}
	if len(blocks) == 0 {
		blocks = append(blocks, CopyStyle.Render("Ask anything about the data in the graph, e.g. \"Which artists performed Sinnerman?\""))
	}

	conversation := lipgloss.JoinVertical(lipgloss.Left, blocks...)
	// Keep the latest exchanges visible.
	chartHeight := lipgloss.Height(props.ChartView)
	available := props.Height - lipgloss.Height(header) - chartHeight - 6
	if available < 3 {
		available = 3
	}
	lines := strings.Split(conversation, "\n")
	if len(lines) > available {
		lines = lines[len(lines)-available:]
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		lipgloss.NewStyle().Padding(1, 2).Render(strings.Join(lines, "\n")),
		lipgloss.NewStyle().PaddingLeft(2).Render(props.InputView),
		props.ChartView,
		lipgloss.NewStyle().PaddingLeft(2).Foreground(lipgloss.Color("#555")).Render("[Enter] Ask • [Esc] Back • [Ctrl+C] Quit"),
	)
}

func renderExchange(ex state.Exchange) string {
	parts := []string{styles.QuestionStyle.Render("? " + ex.Question)}
	if ex.Query != "" {
		parts = append(parts, styles.QueryStyle.Render(ex.Query))
	}
	if ex.Err != nil {
		parts = append(parts, styles.ErrorStyle.Render("error: "+ex.Err.Error()))
	} else {
		parts = append(parts, styles.AnswerStyle.Render(ex.Answer))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...) + "\n"
}
