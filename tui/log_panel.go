// ABOUTME: Scrollable run log for the TUI, built on the bubbles viewport.
// ABOUTME: One line per controller event, tagged with the short submission id and timing since submit.
package tui

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"

	"github.com/2389-research/modelselector/visualizer"
)

const (
	defaultLogEntries = 200
	shortIDLen        = 6
	maxLoggedQuery    = 48
)

// logEntry is one formatted line of the run log.
type logEntry struct {
	at    time.Time
	typ   visualizer.EventType
	subID string
	text  string
}

// LogPanelModel shows what happened to each submission, newest at the bottom.
type LogPanelModel struct {
	entries  []logEntry
	max      int
	runs     int
	failures int
	viewport viewport.Model
	width    int
	height   int
}

// NewLogPanelModel creates a log panel keeping at most maxEntries lines.
// If maxEntries is <= 0, it defaults to 200.
func NewLogPanelModel(maxEntries int) LogPanelModel {
	if maxEntries <= 0 {
		maxEntries = defaultLogEntries
	}
	return LogPanelModel{
		entries:  make([]logEntry, 0, maxEntries),
		max:      maxEntries,
		viewport: viewport.New(80, 10),
	}
}

// Append records evt, dropping the oldest line when full.
func (m *LogPanelModel) Append(evt visualizer.Event) {
	switch evt.Type {
	case visualizer.EventSubmitted:
		m.runs++
	case visualizer.EventFailed:
		m.failures++
	}
	if len(m.entries) >= m.max {
		m.entries = m.entries[1:]
	}
	m.entries = append(m.entries, newLogEntry(evt))
	m.syncViewport()
}

// Len returns the number of lines kept.
func (m LogPanelModel) Len() int {
	return len(m.entries)
}

// ScrollUp and ScrollDown move the viewport by one line.
func (m *LogPanelModel) ScrollUp()   { m.viewport.ScrollUp(1) }
func (m *LogPanelModel) ScrollDown() { m.viewport.ScrollDown(1) }

// SetSize sets the panel dimensions. Border takes two rows and columns and
// the title one row.
func (m *LogPanelModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.viewport.Width = max(w-2, 1)
	m.viewport.Height = max(h-3, 1)
	m.syncViewport()
}

// View renders the panel.
func (m LogPanelModel) View() string {
	content := "No submissions yet"
	if len(m.entries) > 0 {
		content = m.viewport.View()
	}
	return BorderStyle.
		Width(m.width - 2).
		Height(m.height - 2).
		Render(m.title() + "\n" + content)
}

func (m LogPanelModel) title() string {
	t := TitleStyle.Render("RUN LOG")
	if m.runs == 0 {
		return t
	}
	summary := fmt.Sprintf("%d submitted", m.runs)
	if m.failures > 0 {
		summary += ", " + LogErrorStyle.Render(fmt.Sprintf("%d failed", m.failures))
	}
	return t + "  " + LogTimestampStyle.Render(summary)
}

func (m *LogPanelModel) syncViewport() {
	lines := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		lines = append(lines, e.render())
	}
	m.viewport.SetContent(strings.Join(lines, "\n"))
	m.viewport.GotoBottom()
}

func newLogEntry(evt visualizer.Event) logEntry {
	e := logEntry{at: evt.Timestamp, typ: evt.Type, subID: shortID(evt.SubmissionID)}
	since := sinceSubmit(evt)

	switch evt.Type {
	case visualizer.EventSubmitted:
		e.text = fmt.Sprintf("submitted %q", clip(fmt.Sprint(evt.Data["query"]), maxLoggedQuery))
	case visualizer.EventStageRevealed:
		e.text = evt.Stage.Label() + " revealed"
		if since > 0 {
			e.text += " +" + formatSeconds(since)
		}
	case visualizer.EventCompleted:
		e.text = "complete"
		if since > 0 {
			e.text += " in " + formatSeconds(since)
		}
	case visualizer.EventFailed:
		e.text = fmt.Sprintf("%v error: %v", evt.Data["kind"], evt.Data["error"])
	case visualizer.EventExamplePicked:
		e.subID = ""
		e.text = fmt.Sprintf("example %q", clip(fmt.Sprint(evt.Data["query"]), maxLoggedQuery))
	case visualizer.EventClosed:
		e.subID = ""
		e.text = "session closed"
	default:
		e.text = string(evt.Type)
	}
	return e
}

func (e logEntry) render() string {
	parts := []string{LogTimestampStyle.Render(e.at.Format("15:04:05"))}
	if e.subID != "" {
		parts = append(parts, LogTimestampStyle.Render("#"+e.subID))
	}
	parts = append(parts, eventStyle(e.typ).Render(e.text))
	return strings.Join(parts, " ")
}

// sinceSubmit is the time between the submission and evt, or zero when the
// event carries no submission time.
func sinceSubmit(evt visualizer.Event) time.Duration {
	start := evt.State.SubmittedAt
	if start.IsZero() || evt.Timestamp.Before(start) {
		return 0
	}
	return evt.Timestamp.Sub(start)
}

func formatSeconds(d time.Duration) string {
	return fmt.Sprintf("%.1fs", d.Seconds())
}

// shortID keeps the random tail of a ULID; the leading characters only
// encode the timestamp and repeat between submissions.
func shortID(id string) string {
	if len(id) <= shortIDLen {
		return id
	}
	return id[len(id)-shortIDLen:]
}

func clip(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-1]) + "…"
}

func eventStyle(typ visualizer.EventType) lipgloss.Style {
	switch typ {
	case visualizer.EventCompleted:
		return LogSuccessStyle
	case visualizer.EventFailed:
		return LogErrorStyle
	case visualizer.EventExamplePicked:
		return LogExampleStyle
	default:
		return LogEventStyle
	}
}
