// Package tui is the interactive terminal front end of the question
// answering chain.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/harmonica"
	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"

	"graphbridge/internal/database/graph"
	"graphbridge/internal/database/rag"
	"graphbridge/ui/tui/components"
	"graphbridge/ui/tui/state"
	"graphbridge/ui/tui/views"
)

const maxConsoleLines = 500

// Asker answers questions over the graph.
type Asker interface {
	Run(ctx context.Context, question string) (rag.Result, error)
}

// SchemaRefresher is implemented by askers that cache the graph schema.
type SchemaRefresher interface {
	RefreshSchema(ctx context.Context) error
}

var _ SchemaRefresher = (*rag.Chain)(nil)

// GraphInspector reads the graph schema and element counts.
type GraphInspector interface {
	Schema(ctx context.Context) (graph.GraphSchema, error)
	Stats(ctx context.Context) (graph.GraphStats, error)
}

// MainModel is the Bubble Tea Model acting as the Controller
type MainModel struct {
	ctx            context.Context
	asker          Asker
	graph          GraphInspector
	state          state.AppState
	spinner        spinner.Model
	input          textinput.Model
	latency        *components.LatencyWidget
	menuCursor     int
	animCursor     float64
	velocity       float64
	spring         harmonica.Spring
	consoleScrollY int
	mouseX         int
	mouseY         int
	quitting       bool
	width          int
	height         int
}

// Messages
type TickMsg time.Time
type AnimateMsg time.Time
type AnsweredMsg struct {
	Exchange state.Exchange
}
type SchemaLoadedMsg struct {
	Schema graph.GraphSchema
	Err    error
}
type StatsLoadedMsg struct {
	Stats graph.GraphStats
	Err   error
}

func InitialModel(ctx context.Context, asker Asker, g GraphInspector) MainModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	ti := textinput.New()
	ti.Placeholder = "Ask a question about the graph"
	ti.Prompt = "› "
	ti.CharLimit = 500
	ti.Width = 80

	// Fast response without overshoot.
	spring := harmonica.NewSpring(harmonica.FPS(60), 12.0, 0.9)

	return MainModel{
		ctx:     ctx,
		asker:   asker,
		graph:   g,
		spinner: s,
		input:   ti,
		latency: components.NewLatencyWidget(30, 6),
		spring:  spring,
		state: state.AppState{
			LatencyHistory: make([]float64, 0, 31),
			CurrentPage:    state.PageMenu,
		},
	}
}

func (m *MainModel) Init() tea.Cmd {
	zone.NewGlobal()
	return tea.Batch(
		m.spinner.Tick,
		animateCmd(),
		loadStatsCmd(m.ctx, m.graph),
		loadSchemaCmd(m.ctx, m.graph),
		tickCmd(),
	)
}

// Commands
func tickCmd() tea.Cmd {
	return tea.Tick(10*time.Second, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func animateCmd() tea.Cmd {
	return tea.Tick(time.Millisecond*16, func(t time.Time) tea.Msg {
		return AnimateMsg(t)
	})
}

func loadStatsCmd(ctx context.Context, g GraphInspector) tea.Cmd {
	return func() tea.Msg {
		st, err := g.Stats(ctx)
		return StatsLoadedMsg{Stats: st, Err: err}
	}
}

func loadSchemaCmd(ctx context.Context, g GraphInspector) tea.Cmd {
	return func() tea.Msg {
		gs, err := g.Schema(ctx)
		return SchemaLoadedMsg{Schema: gs, Err: err}
	}
}

// reloadSchemaCmd refreshes the asker's cached schema before reading the
// schema shown on the page, so both reflect the same load.
func reloadSchemaCmd(ctx context.Context, a Asker, g GraphInspector) tea.Cmd {
	return func() tea.Msg {
		if r, ok := a.(SchemaRefresher); ok {
			if err := r.RefreshSchema(ctx); err != nil {
				return SchemaLoadedMsg{Err: err}
			}
		}
		return loadSchemaCmd(ctx, g)()
	}
}

func askCmd(ctx context.Context, a Asker, question string) tea.Cmd {
	return func() tea.Msg {
		start := time.Now()
		res, err := a.Run(ctx, question)
		return AnsweredMsg{Exchange: state.Exchange{
			Question: question,
			Query:    res.Query,
			Answer:   res.Answer,
			Rows:     len(res.Context),
			Err:      err,
			Took:     time.Since(start),
			At:       time.Now(),
		}}
	}
}

func (m *MainModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case AnimateMsg:
		return m.handleAnimateMsg(msg)

	case tea.WindowSizeMsg:
		return m.handleWindowSizeMsg(msg)

	case TickMsg:
		return m, tea.Batch(loadStatsCmd(m.ctx, m.graph), tickCmd())

	case AnsweredMsg:
		return m.handleAnsweredMsg(msg)

	case SchemaLoadedMsg:
		m.state.Schema, m.state.SchemaErr = msg.Schema, msg.Err
		return m, nil

	case StatsLoadedMsg:
		m.state.StatsErr = msg.Err
		if msg.Err == nil {
			m.state.Stats = msg.Stats
			m.state.LastUpdate = time.Now()
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.MouseMsg:
		return m.handleMouseMsg(msg)
	}

	if m.state.CurrentPage == state.PageChat {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *MainModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.quitting = true
		return m, tea.Quit
	}

	if m.state.CurrentPage == state.PageChat {
		return m.handleChatKey(msg)
	}

	switch msg.String() {
	case "q":
		m.quitting = true
		return m, tea.Quit
	case "b", "esc", "backspace":
		if m.state.CurrentPage != state.PageMenu {
			m.state.CurrentPage = state.PageMenu
			m.consoleScrollY = 0
			return m, nil
		}
	}

	switch m.state.CurrentPage {
	case state.PageMenu:
		switch msg.String() {
		case "up", "k":
			if m.menuCursor > 0 {
				m.menuCursor--
			}
		case "down", "j":
			if m.menuCursor < len(views.MenuOptions)-1 {
				m.menuCursor++
			}
		case "enter":
			return m, m.navigateTo(m.menuCursor)
		}

	case state.PageConsole:
		switch msg.String() {
		case "up", "k":
			if m.consoleScrollY > 0 {
				m.consoleScrollY--
			}
		case "down", "j":
			m.consoleScrollY++
		}

	case state.PageSchema:
		if msg.String() == "r" {
			return m, reloadSchemaCmd(m.ctx, m.asker, m.graph)
		}

	case state.PageStats:
		if msg.String() == "r" {
			return m, loadStatsCmd(m.ctx, m.graph)
		}
	}
	return m, nil
}

func (m *MainModel) handleChatKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.input.Blur()
		m.state.CurrentPage = state.PageMenu
		return m, nil
	case tea.KeyEnter:
		question := strings.TrimSpace(m.input.Value())
		if question == "" || m.state.Busy() {
			return m, nil
		}
		m.state.Pending = question
		m.input.Reset()
		m.logLine("asked: " + question)
		return m, askCmd(m.ctx, m.asker, question)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *MainModel) navigateTo(cursor int) tea.Cmd {
	switch cursor {
	case 0:
		m.state.CurrentPage = state.PageChat
		return m.input.Focus()
	case 1:
		m.state.CurrentPage = state.PageSchema
	case 2:
		m.state.CurrentPage = state.PageStats
		return loadStatsCmd(m.ctx, m.graph)
	case 3:
		m.state.CurrentPage = state.PageConsole
	}
	return nil
}

func (m *MainModel) handleAnimateMsg(msg AnimateMsg) (tea.Model, tea.Cmd) {
	m.animCursor, m.velocity = m.spring.Update(m.animCursor, m.velocity, float64(m.menuCursor))
	return m, animateCmd()
}

func (m *MainModel) handleWindowSizeMsg(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	if w := msg.Width - 12; w > 10 {
		m.latency.Resize(w, 6)
		m.input.Width = w
	}
	return m, nil
}

func (m *MainModel) handleAnsweredMsg(msg AnsweredMsg) (tea.Model, tea.Cmd) {
	ex := msg.Exchange
	m.state.Pending = ""
	m.state.Exchanges = append(m.state.Exchanges, ex)

	m.state.LatencyHistory = append(m.state.LatencyHistory, ex.Took.Seconds())
	if len(m.state.LatencyHistory) > 31 {
		m.state.LatencyHistory = m.state.LatencyHistory[1:]
	}
	m.latency.Push(ex.Took.Seconds())

	if ex.Err != nil {
		m.logLine(fmt.Sprintf("error after %s: %v", ex.Took.Round(time.Millisecond), ex.Err))
		return m, nil
	}
	if ex.Query != "" {
		m.logLine("cypher: " + ex.Query)
	} else {
		m.logLine("cypher: (generated query did not match the schema)")
	}
	m.logLine(fmt.Sprintf("answered in %s from %d rows", ex.Took.Round(time.Millisecond), ex.Rows))
	return m, nil
}

func (m *MainModel) logLine(line string) {
	m.state.ConsoleLogs = append(m.state.ConsoleLogs, fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), line))
	if len(m.state.ConsoleLogs) > maxConsoleLines {
		m.state.ConsoleLogs = m.state.ConsoleLogs[1:]
	}
}

func (m *MainModel) handleMouseMsg(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	m.mouseX = msg.X
	m.mouseY = msg.Y

	if msg.Action == tea.MouseActionRelease && m.state.CurrentPage == state.PageMenu {
		for i := range views.MenuOptions {
			if zone.Get(fmt.Sprintf("menu_%d", i)).InBounds(msg) {
				m.menuCursor = i
				return m, m.navigateTo(i)
			}
		}
	}
	return m, nil
}

func (m *MainModel) View() string {
	if m.quitting {
		return "Bye!\n"
	}

	switch m.state.CurrentPage {
	case state.PageMenu:
		return views.RenderMenu(m.state, m.width, m.height, m.menuCursor, m.animCursor, m.mouseX, m.mouseY)
	case state.PageChat:
		return views.RenderChat(m.state, m.width, m.height, m.spinner.View(), m.input.View(), m.latency.View())
	case state.PageSchema:
		return views.RenderSchema(m.state, m.width, m.height)
	case state.PageStats:
		return views.RenderStats(m.state, m.width, m.height, m.spinner.View())
	case state.PageConsole:
		return views.RenderRawConsole(m.state, m.width, m.height, m.consoleScrollY)
	default:
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
			lipgloss.NewStyle().Bold(true).Render("Unknown page\n\nPress 'b' to go back"),
		)
	}
}

// Start runs the terminal UI until the user quits or ctx is cancelled.
func Start(ctx context.Context, asker Asker, g GraphInspector) error {
	m := InitialModel(ctx, asker, g)
	p := tea.NewProgram(
		&m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)
	_, err := p.Run()
	return err
}
