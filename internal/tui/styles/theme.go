package styles

import "github.com/charmbracelet/lipgloss"

// Catppuccin Mocha colors used by the TUI and table output
var (
	Surface0 = lipgloss.Color("#313244")
	Surface1 = lipgloss.Color("#45475a")
	Overlay0 = lipgloss.Color("#6c7086")
	Subtext0 = lipgloss.Color("#a6adc8")
	Text     = lipgloss.Color("#cdd6f4")
	Green    = lipgloss.Color("#a6e3a1")
	Yellow   = lipgloss.Color("#f9e2af")
	Red      = lipgloss.Color("#f38ba8")
	Mauve    = lipgloss.Color("#cba6f7")
)

var (
	// Header styles
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Mauve).
			Background(Surface0).
			Padding(0, 1)

	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Text).
			Border(lipgloss.NormalBorder(), false, false, true, false).
			BorderForeground(Surface1)

	CellStyle = lipgloss.NewStyle().
			Foreground(Text).
			PaddingRight(2)

	// Mapping with no interface identity
	MissingStyle = lipgloss.NewStyle().
			Foreground(Overlay0)

	FoundStyle = lipgloss.NewStyle().
			Foreground(Green).
			Bold(true)

	NotFoundStyle = lipgloss.NewStyle().
			Foreground(Yellow).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Red)

	StatusStyle = lipgloss.NewStyle().
			Foreground(Subtext0)
)
