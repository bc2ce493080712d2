package components

import (
	"fmt"

	"github.com/NimbleMarkets/ntcharts/canvas"
	"github.com/NimbleMarkets/ntcharts/linechart"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"graphbridge/ui/tui/styles"
)

const historySize = 31

var (
	_ Component = (*LatencyWidget)(nil)
	_ Resizable = (*LatencyWidget)(nil)
)

// LatencyWidget charts how long recent answers took.
type LatencyWidget struct {
	Chart   linechart.Model
	History []float64
	MaxY    float64
	Width   int
	Height  int
}

func NewLatencyWidget(width, height int) *LatencyWidget {
	// width, height, minX, maxX, minY, maxY
	lc := linechart.New(width, height, 0, historySize-1, 0, 10)
	return &LatencyWidget{
		Chart:   lc,
		History: make([]float64, 0, historySize),
		MaxY:    10,
		Width:   width,
		Height:  height,
	}
}

func (c *LatencyWidget) Init() tea.Cmd {
	return nil
}

// Push appends a latency in seconds, widening the y range when needed.
func (c *LatencyWidget) Push(seconds float64) {
	c.History = append(c.History, seconds)
	if len(c.History) > historySize {
		c.History = c.History[1:]
	}
	if seconds > c.MaxY {
		c.MaxY = seconds * 1.2
		c.Chart = linechart.New(c.Width, c.Height, 0, historySize-1, 0, c.MaxY)
	}
}

func (c *LatencyWidget) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	return c, nil
}

func (c *LatencyWidget) Resize(w, h int) {
	c.Width = w
	c.Height = h
	c.Chart.Resize(w, h)
}

func (c *LatencyWidget) View() string {
	c.Chart.Clear()
	for i := 0; i < len(c.History)-1; i++ {
		c.Chart.DrawBrailleLine(
			canvas.Float64Point{X: float64(i), Y: c.History[i]},
			canvas.Float64Point{X: float64(i + 1), Y: c.History[i+1]},
		)
	}
	c.Chart.DrawXYAxisAndLabel()

	title := "Answer time (s)"
	if n := len(c.History); n > 0 {
		title = fmt.Sprintf("Answer time (s) · last %.1f", c.History[n-1])
	}
	return styles.CardStyle.Render(
		lipgloss.JoinVertical(lipgloss.Left,
			lipgloss.NewStyle().Bold(true).Render(title),
			c.Chart.View(),
		),
	)
}
