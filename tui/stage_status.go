// ABOUTME: Defines the StageStatus enum representing how a stage panel should be drawn.
// ABOUTME: Provides String/Icon methods, StatusOf, and spinner animation frames for TUI rendering.
package tui

import "github.com/2389-research/modelselector/visualizer"

// StageStatus is the display status of one stage panel.
type StageStatus int

const (
	StageIdle     StageStatus = iota // Nothing submitted, or stage not reached
	StageQueued                      // Loading but not yet active
	StageLoading                     // Active and waiting on content
	StageRevealed                    // Content shown
	StageFailed                      // Submission failed, error text shown
)

// StatusOf derives the display status of st within a submission in phase.
func StatusOf(st visualizer.StageState, phase visualizer.Phase) StageStatus {
	switch {
	case phase == visualizer.PhaseErrored && st.Active:
		return StageFailed
	case !st.Active && st.Loading:
		return StageQueued
	case !st.Active:
		return StageIdle
	case st.Loading:
		return StageLoading
	default:
		return StageRevealed
	}
}

// String returns the lowercase name of the status.
func (s StageStatus) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageQueued:
		return "queued"
	case StageLoading:
		return "loading"
	case StageRevealed:
		return "revealed"
	case StageFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Icon returns a bracket-style status marker for TUI display.
func (s StageStatus) Icon() string {
	switch s {
	case StageIdle:
		return "[ ]"
	case StageQueued:
		return "[.]"
	case StageLoading:
		return "[~]"
	case StageRevealed:
		return "[*]"
	case StageFailed:
		return "[!]"
	default:
		return "[?]"
	}
}

// SpinnerFrames contains the Braille-dot animation frames for indicating
// loading stages in the TUI.
var SpinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
