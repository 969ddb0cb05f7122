package tui

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sarchlab/showcase/config"
	"github.com/sarchlab/showcase/showcase"
)

const (
	tabRow       = 2
	paneTop      = 4
	defaultWidth = 64
	tabGap       = 1
)

// zone is a horizontal span [start, end) on a single row.
type zone struct {
	start, end int
}

func (z zone) contains(x int) bool {
	return x >= z.start && x < z.end
}

// Model is the bubbletea model of the terminal showcase. The controller is
// only touched from Update.
type Model struct {
	ctrl      *showcase.Controller[config.Item]
	scheduler *Scheduler
	width     int
	hovering  bool
}

// NewModel creates a model for ctrl. The scheduler is the one ctrl was built
// with; it may be nil when ticks are delivered some other way.
func NewModel(
	ctrl *showcase.Controller[config.Item],
	scheduler *Scheduler,
) Model {
	return Model{
		ctrl:      ctrl,
		scheduler: scheduler,
		width:     defaultWidth,
	}
}

// Hovering reports whether the pointer is over the strip or the pane.
func (m Model) Hovering() bool {
	return m.hovering
}

func (m Model) Init() tea.Cmd {
	if m.scheduler == nil {
		return nil
	}

	return m.scheduler.Held()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case TimerMsg:
		if m.scheduler != nil {
			m.scheduler.Fire(msg)
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case tea.MouseMsg:
		m.handleMouse(msg)
	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m *Model) handleMouse(msg tea.MouseMsg) {
	over := m.inside(msg.X, msg.Y)

	switch {
	case over && !m.hovering:
		m.hovering = true
		m.ctrl.InteractionStart()
	case !over && m.hovering:
		m.hovering = false
		m.ctrl.InteractionEnd()
	}

	if msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft {
		if i := m.tabAt(msg.X, msg.Y); i >= 0 {
			_ = m.ctrl.Select(i)
		}
	}
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyLeft:
		m.selectRelative(-1)
		return m, nil
	case tea.KeyRight:
		m.selectRelative(1)
		return m, nil
	case tea.KeySpace:
		m.resume()
		return m, nil
	case tea.KeyCtrlC, tea.KeyEsc:
		m.ctrl.Dispose()
		return m, tea.Quit
	}

	switch s := msg.String(); s {
	case "q":
		m.ctrl.Dispose()
		return m, tea.Quit
	case " ":
		m.resume()
	case "h":
		m.selectRelative(-1)
	case "l":
		m.selectRelative(1)
	default:
		if d, err := strconv.Atoi(s); err == nil && d >= 1 && d <= m.ctrl.Len() {
			_ = m.ctrl.Select(d - 1)
		}
	}

	return m, nil
}

func (m *Model) selectRelative(delta int) {
	n := m.ctrl.Len()
	_ = m.ctrl.Select(((m.ctrl.ActiveIndex()+delta)%n + n) % n)
}

// resume ends the keyboard interaction. While the pointer is over the
// showcase the mouse owns the interaction.
func (m *Model) resume() {
	if m.hovering {
		return
	}

	m.ctrl.InteractionEnd()
}

func (m Model) paneWidth() int {
	if m.width <= 0 || m.width > defaultWidth {
		return defaultWidth
	}

	return m.width
}

func (m Model) tabZones() []zone {
	zones := make([]zone, m.ctrl.Len())
	x := 0

	for i := range zones {
		w := lipgloss.Width(styleTab.Render(m.ctrl.Item(i).Title))
		zones[i] = zone{start: x, end: x + w}
		x += w + tabGap
	}

	return zones
}

func (m Model) tabAt(x, y int) int {
	if y != tabRow {
		return -1
	}

	for i, z := range m.tabZones() {
		if z.contains(x) {
			return i
		}
	}

	return -1
}

func (m Model) inside(x, y int) bool {
	if y == tabRow {
		return m.tabAt(x, y) >= 0
	}

	paneBottom := paneTop + lipgloss.Height(m.renderPane()) - 1
	if y < paneTop || y > paneBottom {
		return false
	}

	return x >= 0 && x < lipgloss.Width(m.renderPane())
}

func (m Model) renderTabs() string {
	tabs := make([]string, m.ctrl.Len())
	for i := range tabs {
		style := styleTab
		if i == m.ctrl.ActiveIndex() {
			style = styleActiveTab
		}

		tabs[i] = style.Render(m.ctrl.Item(i).Title)
	}

	return strings.Join(tabs, strings.Repeat(" ", tabGap))
}

func (m Model) renderPane() string {
	item := m.ctrl.Active()
	inner := m.paneWidth() - stylePane.GetHorizontalFrameSize()

	body := styleBody.Width(inner).Render(item.Body)
	content := lipgloss.JoinVertical(lipgloss.Left,
		styleHeading.Render(item.Title), "", body)

	return stylePane.Width(inner + stylePane.GetHorizontalPadding()).
		Render(content)
}

func (m Model) renderStatus() string {
	state := "rotating"
	if m.ctrl.Paused() {
		state = stylePaused.Render("paused")
	}

	return fmt.Sprintf("%s  %s",
		state,
		styleDim.Render(fmt.Sprintf("[%d/%d] every %s",
			m.ctrl.ActiveIndex()+1, m.ctrl.Len(), m.ctrl.Interval())))
}

func (m Model) View() string {
	if m.ctrl.Disposed() {
		return ""
	}

	var b strings.Builder

	b.WriteString(styleTitle.Render("Showcase"))
	b.WriteString("\n\n")
	b.WriteString(m.renderTabs())
	b.WriteString("\n\n")
	b.WriteString(m.renderPane())
	b.WriteString("\n")
	b.WriteString(m.renderStatus())
	b.WriteString("\n")
	b.WriteString(styleDim.Render("←/→ or 1-9 select  space resume  q quit"))

	return b.String()
}
