// ABOUTME: Defines lipgloss style constants for the TUI layout panels, stage accents, and log formatting.
// ABOUTME: Provides StyleForStatus and StageAccent to map stages and statuses to their display styles.
package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/2389-research/modelselector/visualizer"
)

var (
	// Panel borders
	BorderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62"))

	// Title styling
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170"))

	// Subtitle under the title
	TaglineStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Italic(true)

	// Status colors
	IdleStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	QueuedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	LoadingStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	RevealedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	FailedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)

	// Log event colors
	LogTimestampStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	LogEventStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("75"))
	LogErrorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	LogSuccessStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	LogExampleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))

	// Status bar
	StatusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("252")).
			Padding(0, 1)

	// Query input
	InputStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)

	InputDisabledStyle = InputStyle.BorderForeground(lipgloss.Color("238"))

	HintStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	PlaceholderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Italic(true)
)

// stageAccents maps each stage's colour name to a terminal colour.
var stageAccents = map[string]lipgloss.Color{
	"blue":   lipgloss.Color("33"),
	"purple": lipgloss.Color("135"),
	"green":  lipgloss.Color("42"),
}

// StageAccent returns the terminal accent colour for stage.
func StageAccent(stage visualizer.Stage) lipgloss.Color {
	if c, ok := stageAccents[stage.Color()]; ok {
		return c
	}
	return lipgloss.Color("241")
}

// StyleForStatus returns the appropriate lipgloss style for a StageStatus.
func StyleForStatus(status StageStatus) lipgloss.Style {
	switch status {
	case StageIdle:
		return IdleStyle
	case StageQueued:
		return QueuedStyle
	case StageLoading:
		return LoadingStyle
	case StageRevealed:
		return RevealedStyle
	case StageFailed:
		return FailedStyle
	default:
		return IdleStyle
	}
}
