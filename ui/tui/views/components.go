package views

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"graphbridge/internal/output"
	"graphbridge/ui/tui/styles"
)

func ColorForStatus(status string) lipgloss.Style {
	sStyle := styles.StatusStyle
	switch status {
	case output.StatusWarn:
		return sStyle.Foreground(lipgloss.Color("220")) // Gold
	case output.StatusCrit:
		return sStyle.Foreground(lipgloss.Color("196")) // Red
	}
	return sStyle.Foreground(lipgloss.Color("46")) // Green
}

// RenderCountBars draws one horizontal bar per item, scaled to the largest
// count.
func RenderCountBars(items []output.Item, barWidth int) string {
	if len(items) == 0 {
		return lipgloss.NewStyle().Foreground(styles.Subtle).Render("(empty)")
	}
	var top int64
	labelWidth := 0
	for _, it := range items {
		if it.Value > top {
			top = it.Value
		}
		if len(it.Label) > labelWidth {
			labelWidth = len(it.Label)
		}
	}

	lines := make([]string, 0, len(items))
	for _, it := range items {
		filled := 0
		if top > 0 {
			filled = int(float64(barWidth) * float64(it.Value) / float64(top))
		}
		bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
		lines = append(lines, fmt.Sprintf("%-*s [%s] %d",
			labelWidth, it.Label, lipgloss.NewStyle().Foreground(styles.Highlight).Render(bar), it.Value))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
