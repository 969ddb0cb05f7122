package cli

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorCyan  = lipgloss.Color("36")
	colorGreen = lipgloss.Color("35")
	colorAmber = lipgloss.Color("220")
	colorDim   = lipgloss.Color("240")
)

const (
	iconSuccess = "✓"
	iconArrow   = "→"
)

// styles renders for one output, so colors are dropped when the output is
// not a terminal.
type styles struct {
	title   lipgloss.Style
	dim     lipgloss.Style
	number  lipgloss.Style
	moved   lipgloss.Style
	held    lipgloss.Style
	success lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)

	return styles{
		title:   r.NewStyle().Bold(true).Foreground(colorCyan),
		dim:     r.NewStyle().Foreground(colorDim),
		number:  r.NewStyle().Foreground(colorCyan),
		moved:   r.NewStyle().Bold(true),
		held:    r.NewStyle().Foreground(colorAmber),
		success: r.NewStyle().Foreground(colorGreen),
	}
}
