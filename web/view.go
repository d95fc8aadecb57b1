// ABOUTME: JSON and template view of a visualizer.State, with stage content rendered to HTML by goldmark.
// ABOUTME: Raw HTML in backend content is dropped by goldmark's default renderer.
package web

import (
	"bytes"
	"html/template"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/2389-research/modelselector/visualizer"
)

// StageView is one stage as the browser sees it.
type StageView struct {
	Stage   visualizer.Stage `json:"stage"`
	Label   string           `json:"label"`
	Color   string           `json:"color"`
	Status  string           `json:"status"` // idle, queued, loading, revealed, failed
	Active  bool             `json:"active"`
	Loading bool             `json:"loading"`
	Content string           `json:"content"`
	HTML    template.HTML    `json:"html"`
}

// StateView is the browser-facing state of one session.
type StateView struct {
	SessionID     string           `json:"session_id"`
	Query         string           `json:"query"`
	Submitted     string           `json:"submitted"`
	SubmissionID  string           `json:"submission_id,omitempty"`
	Phase         visualizer.Phase `json:"phase"`
	InFlight      bool             `json:"in_flight"`
	LastErrorKind string           `json:"last_error_kind,omitempty"`
	SubmittedAt   time.Time        `json:"submitted_at,omitzero"`
	Version       uint64           `json:"version"`
	Stages        []StageView      `json:"stages"`
}

// Markdown converts stage content to HTML.
type Markdown struct {
	md goldmark.Markdown
}

// NewMarkdown creates a converter with GitHub-flavoured extensions.
func NewMarkdown() *Markdown {
	return &Markdown{md: goldmark.New(goldmark.WithExtensions(extension.GFM))}
}

// Render converts input to HTML, falling back to escaped text.
func (m *Markdown) Render(input string) template.HTML {
	var buf bytes.Buffer
	if err := m.md.Convert([]byte(input), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(input))
	}
	return template.HTML(buf.String())
}

// NewStateView builds the view of st.
func NewStateView(st visualizer.State, md *Markdown) StateView {
	v := StateView{
		SessionID:     st.SessionID,
		Query:         st.Query,
		Submitted:     st.Submitted,
		SubmissionID:  st.SubmissionID,
		Phase:         st.Phase,
		InFlight:      st.InFlight,
		LastErrorKind: st.LastErrorKind,
		SubmittedAt:   st.SubmittedAt,
		Version:       st.Version,
		Stages:        make([]StageView, 0, visualizer.NumStages),
	}
	for _, stage := range visualizer.Stages {
		v.Stages = append(v.Stages, newStageView(stage, st.Stage(stage), st.Phase, md))
	}
	return v
}

func newStageView(stage visualizer.Stage, st visualizer.StageState, phase visualizer.Phase, md *Markdown) StageView {
	v := StageView{
		Stage:   stage,
		Label:   stage.Label(),
		Color:   stage.Color(),
		Status:  stageStatus(st, phase),
		Active:  st.Active,
		Loading: st.Loading,
		Content: st.Content,
	}
	switch v.Status {
	case "revealed":
		v.HTML = md.Render(st.Content)
	case "failed":
		v.HTML = template.HTML(`<p class="error">` + template.HTMLEscapeString(st.Content) + `</p>`)
	case "loading", "queued":
		v.HTML = template.HTML(`<p class="placeholder">` + template.HTMLEscapeString(visualizer.ProcessingText) + `</p>`)
	default:
		v.HTML = template.HTML(`<p class="placeholder">` + template.HTMLEscapeString(visualizer.WaitingText) + `</p>`)
	}
	return v
}

func stageStatus(st visualizer.StageState, phase visualizer.Phase) string {
	switch {
	case phase == visualizer.PhaseErrored && st.Active:
		return "failed"
	case !st.Active && st.Loading:
		return "queued"
	case !st.Active:
		return "idle"
	case st.Loading:
		return "loading"
	default:
		return "revealed"
	}
}
