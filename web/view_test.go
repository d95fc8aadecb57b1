// ABOUTME: Tests for the browser state view and its goldmark markdown rendering.
// ABOUTME: Checks per-stage status mapping and that raw HTML from the backend never reaches the page.
package web

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389-research/modelselector/visualizer"
)

func TestMarkdownRender(t *testing.T) {
	md := NewMarkdown()

	html := string(md.Render("## Model\n\n| tier | cost |\n|---|---|\n| small | low |"))
	assert.Contains(t, html, "<h2>Model</h2>")
	assert.Contains(t, html, "<table>")
}

func TestMarkdownDropsRawHTML(t *testing.T) {
	md := NewMarkdown()

	html := string(md.Render("hello <script>alert(1)</script>\n\n<div onclick=\"x()\">block</div>"))
	assert.NotContains(t, html, "<script>")
	assert.NotContains(t, html, "onclick")
	assert.Contains(t, html, "hello")
}

func TestNewStateViewIdle(t *testing.T) {
	v := NewStateView(visualizer.State{SessionID: "s"}, NewMarkdown())

	require.Len(t, v.Stages, visualizer.NumStages)
	for i, stage := range visualizer.Stages {
		sv := v.Stages[i]
		assert.Equal(t, stage, sv.Stage)
		assert.Equal(t, stage.Label(), sv.Label)
		assert.Equal(t, stage.Color(), sv.Color)
		assert.Equal(t, "idle", sv.Status)
		assert.Contains(t, string(sv.HTML), visualizer.WaitingText)
	}
}

func TestStageStatus(t *testing.T) {
	tests := []struct {
		name  string
		st    visualizer.StageState
		phase visualizer.Phase
		want  string
	}{
		{"idle", visualizer.StageState{}, visualizer.PhaseIdle, "idle"},
		{"queued", visualizer.StageState{Loading: true}, visualizer.PhaseSubmitting, "queued"},
		{"loading", visualizer.StageState{Active: true, Loading: true}, visualizer.PhaseSubmitting, "loading"},
		{"revealed", visualizer.StageState{Active: true, Content: "x"}, visualizer.PhasePlanRevealed, "revealed"},
		{"failed", visualizer.StageState{Active: true, Content: "Error"}, visualizer.PhaseErrored, "failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stageStatus(tt.st, tt.phase))
		})
	}
}

func TestQueuedStageShowsProcessing(t *testing.T) {
	st := visualizer.State{Phase: visualizer.PhasePlanRevealed, InFlight: true}
	st.Stages[visualizer.StagePlan] = visualizer.StageState{Stage: visualizer.StagePlan, Active: true, Content: "plan"}
	st.Stages[visualizer.StageThink] = visualizer.StageState{Stage: visualizer.StageThink, Loading: true}
	st.Stages[visualizer.StageOutput] = visualizer.StageState{Stage: visualizer.StageOutput, Loading: true}

	v := NewStateView(st, NewMarkdown())
	for _, sv := range v.Stages[1:] {
		assert.Equal(t, "queued", sv.Status)
		assert.Contains(t, string(sv.HTML), visualizer.ProcessingText)
		assert.NotContains(t, string(sv.HTML), visualizer.WaitingText)
	}
}

func TestFailedStageEscapesContent(t *testing.T) {
	st := visualizer.State{Phase: visualizer.PhaseErrored}
	st.Stages[visualizer.StagePlan] = visualizer.StageState{Stage: visualizer.StagePlan, Active: true, Content: "<b>bad</b>"}

	v := NewStateView(st, NewMarkdown())
	assert.Equal(t, `<p class="error">&lt;b&gt;bad&lt;/b&gt;</p>`, string(v.Stages[0].HTML))
}
