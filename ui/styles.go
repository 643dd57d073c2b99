package ui

import "github.com/charmbracelet/lipgloss"

var (
	// Colors (Dracula)
	colorRed     = lipgloss.Color("#FF5555")
	colorYellow  = lipgloss.Color("#F1FA8C")
	colorGreen   = lipgloss.Color("#50FA7B")
	colorCyan    = lipgloss.Color("#8BE9FD")
	colorMagenta = lipgloss.Color("#FF79C6")
	colorOrange  = lipgloss.Color("#FFB86C")
	colorWhite   = lipgloss.Color("#F8F8F2")
	colorGray    = lipgloss.Color("#6272A4")
	colorPanel   = lipgloss.Color("#44475A")

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorGray).
			Padding(0, 1)

	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	headerStyle   = lipgloss.NewStyle().Foreground(colorMagenta).Bold(true)
	labelStyle    = lipgloss.NewStyle().Foreground(colorGray)
	valueStyle    = lipgloss.NewStyle().Foreground(colorWhite)
	okStyle       = lipgloss.NewStyle().Foreground(colorGreen)
	warnStyle     = lipgloss.NewStyle().Foreground(colorYellow).Bold(true)
	critStyle     = lipgloss.NewStyle().Foreground(colorRed).Bold(true)
	newGenStyle   = lipgloss.NewStyle().Foreground(colorOrange).Bold(true)
	selectedStyle = lipgloss.NewStyle().Background(colorPanel).Foreground(colorWhite)
	helpStyle     = lipgloss.NewStyle().Foreground(colorGray)
)

// healthStyle colors a StatusFlags.Health label.
func healthStyle(label string) lipgloss.Style {
	switch label {
	case "OK":
		return okStyle
	case "WARN":
		return warnStyle
	default:
		return critStyle
	}
}
