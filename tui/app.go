// ABOUTME: Top-level Bubble Tea AppModel that orchestrates all TUI sub-panels into a unified layout.
// ABOUTME: Implements tea.Model (Init, Update, View) and routes keys and controller events to input, stage, log, and status bar panels.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/2389-research/modelselector/visualizer"
)

// tickInterval drives the spinner and the elapsed clock.
const tickInterval = 100 * time.Millisecond

// AppModel is the top-level Bubble Tea model that composes all TUI sub-panels
// and routes messages between them.
type AppModel struct {
	input     QueryInputModel
	stages    [visualizer.NumStages]StagePanelModel
	log       LogPanelModel
	statusBar StatusBarModel

	ctrl   *visualizer.Controller
	bridge *EventBridge
	ctx    context.Context // parent context for submissions

	state    visualizer.State // latest applied snapshot
	quitting bool
	width    int
	height   int
}

// NewAppModel creates an AppModel for ctrl. The controller must have been
// built with bridge.HandleEvent as its EventHandler.
func NewAppModel(ctx context.Context, ctrl *visualizer.Controller, bridge *EventBridge, renderer ContentRenderer) AppModel {
	m := AppModel{
		input:     NewQueryInputModel(),
		log:       NewLogPanelModel(200),
		statusBar: NewStatusBarModel(ctrl.SessionID()),
		ctrl:      ctrl,
		bridge:    bridge,
		ctx:       ctx,
	}
	for _, stage := range visualizer.Stages {
		m.stages[stage] = NewStagePanelModel(stage, renderer)
	}
	m.applyState(ctrl.Snapshot())
	return m
}

// State returns the snapshot the model is currently showing.
func (m AppModel) State() visualizer.State {
	return m.state
}

// Init implements tea.Model. Starts listening for controller events and
// begins the tick loop.
func (m AppModel) Init() tea.Cmd {
	return tea.Batch(
		WaitForEventCmd(m.bridge),
		TickCmd(tickInterval),
	)
}

// Update implements tea.Model. Routes incoming messages to the appropriate
// sub-panel and returns the updated model with any follow-up commands.
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleWindowSize(msg)

	case ControllerEventMsg:
		return m.handleControllerEvent(msg)

	case SubmitDoneMsg:
		// Progress arrives as events; nothing to do here.
		return m, nil

	case TickMsg:
		return m.handleTick(msg)

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	}

	// Cursor blink and other textinput messages.
	var cmd tea.Cmd
	m.input, cmd, _ = m.input.Update(msg)
	return m, cmd
}

// View implements tea.Model. Renders the full TUI layout with all panels.
func (m AppModel) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	// Minimum terminal size guard to prevent layout overflow
	if m.width < 60 || m.height < 20 {
		return fmt.Sprintf("Terminal too small (%dx%d). Minimum: 60x20.", m.width, m.height)
	}

	header := lipgloss.NewStyle().MaxWidth(m.width).Render(
		TitleStyle.Render(visualizer.Title) + "  " + TaglineStyle.Render(visualizer.Tagline))

	panels := make([]string, 0, visualizer.NumStages)
	for _, p := range m.stages {
		panels = append(panels, p.View())
	}
	stageRow := lipgloss.JoinHorizontal(lipgloss.Top, panels...)

	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(stageRow)
	b.WriteString("\n")
	b.WriteString(m.log.View())
	b.WriteString("\n")
	b.WriteString(m.statusBar.View())

	return b.String()
}

// handleWindowSize updates dimensions and lays out every panel.
func (m AppModel) handleWindowSize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.layout()
	return m, nil
}

// layout distributes the terminal between panels: header, input, stages,
// log and status bar from top to bottom.
func (m *AppModel) layout() {
	const headerHeight, inputHeight, statusBarHeight = 1, 3, 1

	rest := m.height - headerHeight - inputHeight - statusBarHeight
	stageHeight := rest * 60 / 100
	if stageHeight < 5 {
		stageHeight = 5
	}
	logHeight := rest - stageHeight
	if logHeight < 3 {
		logHeight = 3
	}

	stageWidth := m.width / visualizer.NumStages
	for i := range m.stages {
		w := stageWidth
		if i == len(m.stages)-1 {
			w = m.width - stageWidth*(visualizer.NumStages-1)
		}
		m.stages[i].SetSize(w, stageHeight)
	}

	m.input.SetWidth(m.width)
	m.log.SetSize(m.width, logHeight)
	m.statusBar.SetWidth(m.width)
}

// handleControllerEvent logs the event, applies its snapshot unless a newer
// one is already showing, and waits for the next event.
func (m AppModel) handleControllerEvent(msg ControllerEventMsg) (tea.Model, tea.Cmd) {
	evt := msg.Event
	m.log.Append(evt)

	if evt.State.Version >= m.state.Version {
		m.applyState(evt.State)
		switch evt.Type {
		case visualizer.EventExamplePicked, visualizer.EventSubmitted:
			m.input.SetValue(evt.State.Query)
		}
	}

	if m.quitting {
		return m, nil
	}
	return m, WaitForEventCmd(m.bridge)
}

// applyState pushes a snapshot into every panel.
func (m *AppModel) applyState(st visualizer.State) {
	m.state = st
	for _, stage := range visualizer.Stages {
		m.stages[stage].SetState(st.Stage(stage), st.Phase)
	}
	m.statusBar.Update(st)
	m.input.SetEnabled(!st.InFlight)
}

// handleTick advances the spinners and schedules the next tick.
func (m AppModel) handleTick(_ TickMsg) (tea.Model, tea.Cmd) {
	for i := range m.stages {
		m.stages[i].AdvanceSpinner()
	}
	if m.quitting {
		return m, nil
	}
	return m, TickCmd(tickInterval)
}

// handleKeyMsg processes keyboard input, routing app-level shortcuts first
// and everything else to the query field.
func (m AppModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		m.quitting = true
		m.ctrl.Close()
		m.bridge.Close()
		return m, tea.Quit

	case "enter":
		query := m.input.Value()
		if !m.state.CanSubmit(query) {
			return m, nil
		}
		return m, SubmitCmd(m.ctx, m.ctrl, query)

	case "ctrl+e":
		if m.state.InFlight {
			return m, nil
		}
		if q, ok := m.ctrl.PickExample(); ok {
			m.input.SetValue(q)
		}
		return m, nil

	case "pgup":
		m.log.ScrollUp()
		return m, nil

	case "pgdown":
		m.log.ScrollDown()
		return m, nil
	}

	var cmd tea.Cmd
	var changed bool
	m.input, cmd, changed = m.input.Update(msg)
	if changed {
		m.ctrl.SetQuery(m.input.Value())
	}
	return m, cmd
}
