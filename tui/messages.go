// ABOUTME: Bubble Tea message types used in the TUI message loop.
// ABOUTME: Each type wraps controller activity for the tea.Msg interface (which is interface{}).
package tui

import (
	"time"

	"github.com/2389-research/modelselector/visualizer"
)

// ControllerEventMsg wraps a visualizer.Event for the Bubble Tea message loop.
type ControllerEventMsg struct {
	Event visualizer.Event
}

// SubmitDoneMsg signals that a Submit call has returned. Started is false
// when the controller refused the submission.
type SubmitDoneMsg struct {
	Query   string
	Started bool
}

// TickMsg is sent periodically to update timers and spinners.
type TickMsg struct {
	Time time.Time
}
