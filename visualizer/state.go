// ABOUTME: Explicit UI state record for the visualizer and the discrete transitions that mutate it.
// ABOUTME: Every transition bumps Version so hosts can discard out-of-order snapshots.
package visualizer

import (
	"time"

	"github.com/2389-research/modelselector/workflow"
)

// Heading shown by every host.
const (
	Title   = "Smart Model Selector"
	Tagline = "Automatically selects the optimal AI model for any task, balancing cost and capability."
)

// Placeholder texts for an active stage with no content yet.
const (
	ProcessingText = "Processing..."
	WaitingText    = "Waiting for input..."
)

// StageState is the visible state of one stage.
type StageState struct {
	Stage      Stage     `json:"stage"`
	Active     bool      `json:"active"`
	Loading    bool      `json:"loading"`
	Content    string    `json:"content"`
	RevealedAt time.Time `json:"revealed_at,omitzero"`
}

// DisplayText returns the content, or a placeholder when content is empty.
func (s StageState) DisplayText() string {
	if s.Content != "" {
		return s.Content
	}
	if s.Loading {
		return ProcessingText
	}
	return WaitingText
}

// State is the full visualizer state. It is a plain value: copying it
// yields an independent snapshot.
type State struct {
	SessionID     string                `json:"session_id"`
	Query         string                `json:"query"`
	Submitted     string                `json:"submitted"`
	SubmissionID  string                `json:"submission_id"`
	Phase         Phase                 `json:"phase"`
	Stages        [NumStages]StageState `json:"stages"`
	InFlight      bool                  `json:"in_flight"`
	SubmittedAt   time.Time             `json:"submitted_at,omitzero"`
	ReceivedAt    time.Time             `json:"received_at,omitzero"`
	LastErrorKind string                `json:"last_error_kind,omitempty"`
	Version       uint64                `json:"version"`
}

func newState(sessionID string) State {
	s := State{SessionID: sessionID}
	for _, stage := range Stages {
		s.Stages[stage].Stage = stage
	}
	return s
}

// Stage returns the state of the given stage.
func (s State) Stage(stage Stage) StageState {
	return s.Stages[stage]
}

// CanSubmit reports whether query would start a submission.
func (s State) CanSubmit(query string) bool {
	return !s.InFlight && normalizeQuery(query) != ""
}

func (s *State) setQuery(q string) {
	s.Query = q
	s.Version++
}

// begin moves to Submitting: all stages cleared and loading, Plan active.
func (s *State) begin(query, submissionID string, at time.Time) {
	s.Query = query
	s.Submitted = query
	s.SubmissionID = submissionID
	s.Phase = PhaseSubmitting
	s.InFlight = true
	s.SubmittedAt = at
	s.ReceivedAt = time.Time{}
	s.LastErrorKind = ""
	for _, stage := range Stages {
		s.Stages[stage] = StageState{Stage: stage, Loading: true}
	}
	s.Stages[StagePlan].Active = true
	s.Version++
}

// revealPlan applies the response and shows Plan. Think and Output keep
// loading until their delayed reveals.
func (s *State) revealPlan(result *workflow.Result, at time.Time) {
	s.ReceivedAt = at
	s.Phase = PhasePlanRevealed
	plan := &s.Stages[StagePlan]
	plan.Content = result.Plan
	plan.Loading = false
	plan.RevealedAt = at
	s.Version++
}

func (s *State) revealThink(content string, at time.Time) {
	s.Phase = PhaseThinkRevealed
	think := &s.Stages[StageThink]
	think.Content = content
	think.Active = true
	think.Loading = false
	think.RevealedAt = at
	s.Version++
}

func (s *State) revealOutput(content string, at time.Time) {
	s.Phase = PhaseComplete
	out := &s.Stages[StageOutput]
	out.Content = content
	out.Active = true
	out.Loading = false
	out.RevealedAt = at
	s.InFlight = false
	s.Version++
}

// fail shows every stage's error text at once and ends the submission.
func (s *State) fail(kind string, at time.Time) {
	s.Phase = PhaseErrored
	s.ReceivedAt = at
	s.LastErrorKind = kind
	for _, stage := range Stages {
		s.Stages[stage] = StageState{
			Stage:      stage,
			Active:     true,
			Content:    stage.ErrorText(),
			RevealedAt: at,
		}
	}
	s.InFlight = false
	s.Version++
}
