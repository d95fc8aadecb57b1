// ABOUTME: Implements a single-line status bar for the bottom of the TUI showing submission progress.
// ABOUTME: Displays session id, phase, elapsed time of the current submission, and key hints.
package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/2389-research/modelselector/visualizer"
)

// StatusBarModel displays submission status in a single line.
type StatusBarModel struct {
	sessionID string
	phase     visualizer.Phase
	startTime time.Time
	stopTime  time.Time
	now       func() time.Time
	width     int
}

// NewStatusBarModel creates a StatusBarModel for the given session.
func NewStatusBarModel(sessionID string) StatusBarModel {
	return StatusBarModel{sessionID: sessionID, now: time.Now}
}

// Update refreshes the bar from a state snapshot. The clock runs from
// submission until the phase is terminal.
func (m *StatusBarModel) Update(st visualizer.State) {
	m.phase = st.Phase
	m.startTime = st.SubmittedAt
	m.stopTime = time.Time{}
	if st.Phase.Terminal() {
		m.stopTime = lastReveal(st)
	}
}

// SetWidth sets the bar width for rendering.
func (m *StatusBarModel) SetWidth(w int) {
	m.width = w
}

// Elapsed returns the duration of the current submission, or zero if
// nothing has been submitted.
func (m StatusBarModel) Elapsed() time.Duration {
	if m.startTime.IsZero() {
		return 0
	}
	end := m.stopTime
	if end.IsZero() {
		end = m.now()
	}
	if end.Before(m.startTime) {
		return 0
	}
	return end.Sub(m.startTime)
}

// lastReveal is the latest RevealedAt across stages.
func lastReveal(st visualizer.State) time.Time {
	var last time.Time
	for _, s := range st.Stages {
		if s.RevealedAt.After(last) {
			last = s.RevealedAt
		}
	}
	return last
}

// formatElapsed formats a duration as a human-readable string.
// Durations under a minute show as seconds (e.g. "12s").
// Durations of a minute or more show as minutes and seconds (e.g. "2m30s").
func formatElapsed(d time.Duration) string {
	d = d.Truncate(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) - minutes*60
	return fmt.Sprintf("%dm%ds", minutes, seconds)
}

// shortSessionID keeps the first eight characters of an identifier.
func shortSessionID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// View renders the status bar as a single styled line.
func (m StatusBarModel) View() string {
	content := fmt.Sprintf("Session: %s | Phase: %s | Elapsed: %s | enter submit  ctrl+e example  esc quit",
		shortSessionID(m.sessionID), m.phase, formatElapsed(m.Elapsed()))

	style := StatusBarStyle.Width(m.width)

	return lipgloss.PlaceHorizontal(m.width, lipgloss.Left, style.Render(content))
}
