package dashboard

import "github.com/charmbracelet/lipgloss"

var (
	colorAccent  = lipgloss.Color("#A855F7")
	colorWhite   = lipgloss.Color("#FFFFFF")
	colorMuted   = lipgloss.Color("#9CA3AF")
	colorDim     = lipgloss.Color("#6B7280")
	colorBorder  = lipgloss.Color("#374151")
	colorSuccess = lipgloss.Color("#22C55E")
	colorWarning = lipgloss.Color("#F59E0B")
	colorError   = lipgloss.Color("#EF4444")
)

// Styles holds the shared dashboard styles.
type Styles struct {
	Title    lipgloss.Style
	Muted    lipgloss.Style
	Bold     lipgloss.Style
	Value    lipgloss.Style
	Selected lipgloss.Style
	Active   lipgloss.Style
	Inactive lipgloss.Style
	Success  lipgloss.Style
	Error    lipgloss.Style
	Help     lipgloss.Style
	Card     lipgloss.Style
	Sep      lipgloss.Style
}

func defaultStyles() *Styles {
	return &Styles{
		Title:    lipgloss.NewStyle().Bold(true).Foreground(colorWhite),
		Muted:    lipgloss.NewStyle().Foreground(colorMuted),
		Bold:     lipgloss.NewStyle().Bold(true),
		Value:    lipgloss.NewStyle().Bold(true).Foreground(colorWhite),
		Selected: lipgloss.NewStyle().Bold(true).Foreground(colorAccent),
		Active:   lipgloss.NewStyle().Bold(true).Foreground(colorAccent),
		Inactive: lipgloss.NewStyle().Foreground(colorDim),
		Success:  lipgloss.NewStyle().Foreground(colorSuccess),
		Error:    lipgloss.NewStyle().Foreground(colorError),
		Help:     lipgloss.NewStyle().Foreground(colorDim),
		Card: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 2),
		Sep: lipgloss.NewStyle().Foreground(colorBorder),
	}
}
