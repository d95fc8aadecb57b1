// ABOUTME: Bubble Tea sub-model for the query text field, wrapping the bubbles textinput component.
// ABOUTME: The field is disabled (blurred and dimmed) while a submission is in flight.
package tui

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// maxQueryLen bounds how much a user can type into the field.
const maxQueryLen = 1000

// QueryInputModel is the query entry field.
type QueryInputModel struct {
	textInput textinput.Model
	enabled   bool
	width     int
}

// NewQueryInputModel creates an enabled, focused query field.
func NewQueryInputModel() QueryInputModel {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Describe a task... (ctrl+e for an example)"
	ti.CharLimit = maxQueryLen
	ti.Focus()

	return QueryInputModel{textInput: ti, enabled: true}
}

// Value returns the current text.
func (m QueryInputModel) Value() string {
	return m.textInput.Value()
}

// SetValue replaces the text and moves the cursor to the end.
func (m *QueryInputModel) SetValue(v string) {
	m.textInput.SetValue(v)
	m.textInput.CursorEnd()
}

// SetEnabled toggles whether the field accepts input.
func (m *QueryInputModel) SetEnabled(enabled bool) {
	if enabled == m.enabled {
		return
	}
	m.enabled = enabled
	if enabled {
		m.textInput.Focus()
	} else {
		m.textInput.Blur()
	}
}

// Enabled reports whether the field accepts input.
func (m QueryInputModel) Enabled() bool {
	return m.enabled
}

// SetWidth sets the rendered width including the border.
func (m *QueryInputModel) SetWidth(w int) {
	m.width = w
	// border (2) + padding (2) + prompt (2) + cursor (1)
	if inner := w - 7; inner > 0 {
		m.textInput.Width = inner
	}
}

// Update forwards msg to the textinput while enabled and reports whether
// the text changed.
func (m QueryInputModel) Update(msg tea.Msg) (QueryInputModel, tea.Cmd, bool) {
	if !m.enabled {
		return m, nil, false
	}
	before := m.textInput.Value()
	var cmd tea.Cmd
	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd, m.textInput.Value() != before
}

// View renders the field inside a border.
func (m QueryInputModel) View() string {
	style := InputStyle
	if !m.enabled {
		style = InputDisabledStyle
	}
	if m.width > 2 {
		style = style.Width(m.width - 2)
	}
	return style.Render(m.textInput.View())
}
