package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorCyan  = lipgloss.Color("36")
	colorWhite = lipgloss.Color("255")
	colorGray  = lipgloss.Color("245")
	colorDim   = lipgloss.Color("240")
	colorAmber = lipgloss.Color("220")
)

var (
	styleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)

	styleTab = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(colorGray)

	styleActiveTab = styleTab.
			Bold(true).
			Foreground(colorWhite).
			Background(colorCyan)

	stylePane = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorDim).
			Padding(0, 1)

	styleHeading = lipgloss.NewStyle().Bold(true).Foreground(colorWhite)
	styleBody    = lipgloss.NewStyle().Foreground(colorGray)
	styleDim     = lipgloss.NewStyle().Foreground(colorDim)
	stylePaused  = lipgloss.NewStyle().Foreground(colorAmber)
)
