package dashboard

import (
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/emiliopalmerini/devwatch/internal/engine"
	"github.com/emiliopalmerini/devwatch/internal/providers"
)

const refreshInterval = 2 * time.Second

// Screen identifies the current screen.
type Screen int

const (
	ScreenOverview Screen = iota
	ScreenSessions
	ScreenDetail
	ScreenUsage
)

// snapshot is one refresh cycle's worth of read-side data.
type snapshot struct {
	stats     engine.Stats
	summaries []engine.SessionSummary
	usage     []providers.UsageSummary
}

type tickMsg time.Time

// App is the live dashboard. It polls the aggregation engine on a fixed
// interval, so every screen renders from a consistent snapshot.
type App struct {
	engine  *engine.Engine
	manager *providers.Manager

	screen   Screen
	snap     snapshot
	detail   *engine.Session
	selected string
	cursor   int

	styles *Styles
	width  int
	height int
}

func NewApp(eng *engine.Engine, manager *providers.Manager) *App {
	return &App{
		engine:  eng,
		manager: manager,
		screen:  ScreenOverview,
		styles:  defaultStyles(),
	}
}

// Init implements tea.Model
func (a *App) Init() tea.Cmd {
	a.refresh()
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (a *App) refresh() {
	a.snap = snapshot{
		stats:     a.engine.Stats(),
		summaries: a.engine.Summaries(),
		usage:     a.manager.Summaries(7),
	}
	if a.cursor >= len(a.snap.summaries) {
		a.cursor = max(0, len(a.snap.summaries)-1)
	}
	if a.selected != "" {
		if session, err := a.engine.Session(a.selected); err == nil {
			a.detail = session
		}
	}
}

// Update implements tea.Model
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		a.refresh()
		return a, tick()

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)
	}
	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return a, tea.Quit
	case "1":
		a.screen = ScreenOverview
	case "2":
		a.screen = ScreenSessions
	case "3":
		a.screen = ScreenUsage
	case "r":
		a.refresh()
	case "j", "down":
		if a.screen == ScreenSessions && a.cursor < len(a.snap.summaries)-1 {
			a.cursor++
		}
	case "k", "up":
		if a.screen == ScreenSessions && a.cursor > 0 {
			a.cursor--
		}
	case "enter":
		if a.screen == ScreenSessions && len(a.snap.summaries) > 0 {
			a.selected = a.snap.summaries[a.cursor].SessionID
			if session, err := a.engine.Session(a.selected); err == nil {
				a.detail = session
				a.screen = ScreenDetail
			}
		}
	case "esc":
		if a.screen == ScreenDetail {
			a.screen = ScreenSessions
			a.selected = ""
			a.detail = nil
		}
	}
	return a, nil
}

// View implements tea.Model
func (a *App) View() string {
	header := a.renderHeader()
	nav := a.renderNav()
	sep := a.styles.Sep.Render(strings.Repeat("─", 64))

	var content string
	switch a.screen {
	case ScreenOverview:
		content = renderOverview(a.styles, a.snap, a.width)
	case ScreenSessions:
		content = renderSessions(a.styles, a.snap.summaries, a.cursor)
	case ScreenDetail:
		content = renderDetail(a.styles, a.detail)
	case ScreenUsage:
		content = renderUsage(a.styles, a.snap.usage)
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, nav, sep, "", content)
}

func (a *App) renderHeader() string {
	title := a.styles.Title.Render("DEVWATCH")
	tagline := a.styles.Muted.Render("AI Development Telemetry")
	return lipgloss.JoinHorizontal(lipgloss.Bottom, title, "  ", tagline)
}

func (a *App) renderNav() string {
	items := []struct {
		key    string
		label  string
		active bool
	}{
		{"1", "Overview", a.screen == ScreenOverview},
		{"2", "Sessions", a.screen == ScreenSessions || a.screen == ScreenDetail},
		{"3", "Usage", a.screen == ScreenUsage},
	}

	var parts []string
	for _, item := range items {
		label := "[" + item.key + "] " + item.label
		if item.active {
			parts = append(parts, a.styles.Active.Render(label))
		} else {
			parts = append(parts, a.styles.Inactive.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, joinWith(parts, "   ")...)
}

func joinWith(parts []string, sep string) []string {
	out := make([]string, 0, len(parts)*2)
	for i, part := range parts {
		if i > 0 {
			out = append(out, sep)
		}
		out = append(out, part)
	}
	return out
}

