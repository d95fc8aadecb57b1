// ABOUTME: Bubble Tea sub-model for one pipeline stage (Plan, Think or Output).
// ABOUTME: Renders a bordered panel in the stage's accent colour with status icon or spinner and the stage content.
package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/2389-research/modelselector/visualizer"
)

// inactiveBorder is the border colour of a stage that has not been reached.
const inactiveBorder = lipgloss.Color("238")

// StagePanelModel displays the state of a single stage.
type StagePanelModel struct {
	stage    visualizer.Stage
	state    visualizer.StageState
	status   StageStatus
	renderer ContentRenderer
	body     string // rendered content, refreshed by SetState and SetSize
	frame    int
	width    int
	height   int
}

// NewStagePanelModel creates an idle panel for stage. A nil renderer
// renders plain text.
func NewStagePanelModel(stage visualizer.Stage, renderer ContentRenderer) StagePanelModel {
	if renderer == nil {
		renderer = PlainRenderer{}
	}
	m := StagePanelModel{
		stage:    stage,
		state:    visualizer.StageState{Stage: stage},
		renderer: renderer,
	}
	m.rerender()
	return m
}

// SetState updates the panel from a stage snapshot.
func (m *StagePanelModel) SetState(st visualizer.StageState, phase visualizer.Phase) {
	changed := st.Content != m.state.Content || StatusOf(st, phase) != m.status
	m.state = st
	m.status = StatusOf(st, phase)
	if changed {
		m.rerender()
	}
}

// SetSize sets the available dimensions.
func (m *StagePanelModel) SetSize(w, h int) {
	if w == m.width && h == m.height {
		return
	}
	m.width = w
	m.height = h
	m.rerender()
}

// AdvanceSpinner moves the loading spinner one frame.
func (m *StagePanelModel) AdvanceSpinner() {
	m.frame = (m.frame + 1) % len(SpinnerFrames)
}

// Status returns the current display status.
func (m StagePanelModel) Status() StageStatus {
	return m.status
}

// Body returns the rendered content area without border or title.
func (m StagePanelModel) Body() string {
	return m.body
}

func (m StagePanelModel) innerWidth() int {
	// border (2) + padding (2)
	if w := m.width - 4; w > 0 {
		return w
	}
	return 40
}

func (m *StagePanelModel) rerender() {
	width := m.innerWidth()
	switch m.status {
	case StageRevealed:
		m.body = m.renderer.Render(m.state.Content, width)
	case StageFailed:
		m.body = FailedStyle.Width(width).Render(m.state.Content)
	case StageLoading, StageQueued:
		m.body = PlaceholderStyle.Render(visualizer.ProcessingText)
	default:
		m.body = PlaceholderStyle.Render(visualizer.WaitingText)
	}
}

// View renders the stage panel as a string.
func (m StagePanelModel) View() string {
	accent := StageAccent(m.stage)

	icon := m.status.Icon()
	if m.status == StageLoading || m.status == StageQueued {
		icon = "[" + SpinnerFrames[m.frame%len(SpinnerFrames)] + "]"
	}
	title := lipgloss.NewStyle().Bold(true).Foreground(accent).Render(m.stage.Label())
	header := StyleForStatus(m.status).Render(icon) + " " + title

	body := m.body
	if m.height > 0 {
		// title line plus top and bottom border
		body = clampLines(body, m.height-3)
	}

	border := inactiveBorder
	if m.state.Active {
		border = accent
	}
	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(0, 1)
	if m.width > 0 {
		style = style.Width(m.width - 2)
	}
	if m.height > 0 {
		style = style.Height(m.height - 2)
	}

	return style.Render(header + "\n" + body)
}

// clampLines keeps at most n lines of s, marking the cut with an ellipsis.
func clampLines(s string, n int) string {
	if n < 1 {
		return ""
	}
	lines := strings.Split(s, "\n")
	if len(lines) <= n {
		return s
	}
	lines = lines[:n]
	lines[n-1] = "…"
	return strings.Join(lines, "\n")
}
