// ABOUTME: Defines the three fixed pipeline stages (Plan, Think, Output) and the Phase enum.
// ABOUTME: Provides display labels, per-stage error placeholders and text marshalling for JSON views.
package visualizer

import "fmt"

// Stage identifies one of the three ordered pipeline stages.
type Stage int

const (
	StagePlan   Stage = iota // planning output, revealed on response arrival
	StageThink               // reasoning output, revealed after ThinkDelay
	StageOutput              // final response, revealed after OutputDelay
)

// NumStages is the number of pipeline stages.
const NumStages = 3

// Stages lists every stage in reveal order.
var Stages = [NumStages]Stage{StagePlan, StageThink, StageOutput}

// Label returns the display label of the stage.
func (s Stage) Label() string {
	switch s {
	case StagePlan:
		return "Plan"
	case StageThink:
		return "Think"
	case StageOutput:
		return "Output"
	default:
		return "Unknown"
	}
}

// String returns the lowercase stage name.
func (s Stage) String() string {
	switch s {
	case StagePlan:
		return "plan"
	case StageThink:
		return "think"
	case StageOutput:
		return "output"
	default:
		return "unknown"
	}
}

// ErrorText is the fixed content shown in the stage when a submission fails.
func (s Stage) ErrorText() string {
	switch s {
	case StagePlan:
		return "Error: Could not fetch plan."
	case StageThink:
		return "Error: Could not fetch thought process."
	case StageOutput:
		return "Error: Could not fetch final response."
	default:
		return "Error: Could not fetch stage."
	}
}

// Color names the accent colour of the stage: blue, purple or green.
func (s Stage) Color() string {
	switch s {
	case StagePlan:
		return "blue"
	case StageThink:
		return "purple"
	case StageOutput:
		return "green"
	default:
		return "gray"
	}
}

// Valid reports whether s is one of the three stages.
func (s Stage) Valid() bool {
	return s >= StagePlan && s <= StageOutput
}

func (s Stage) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid stage %d", int(s))
	}
	return []byte(s.String()), nil
}

// Phase is the submission-level state of the visualizer.
type Phase int

const (
	PhaseIdle          Phase = iota // nothing submitted yet
	PhaseSubmitting                 // request in flight
	PhasePlanRevealed               // response arrived, Plan shown
	PhaseThinkRevealed              // Think shown, Output pending
	PhaseComplete                   // all three stages shown
	PhaseErrored                    // request failed, error text in every stage
)

// String returns the lowercase name of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseSubmitting:
		return "submitting"
	case PhasePlanRevealed:
		return "plan_revealed"
	case PhaseThinkRevealed:
		return "think_revealed"
	case PhaseComplete:
		return "complete"
	case PhaseErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// Terminal reports whether the phase ends a submission.
func (p Phase) Terminal() bool {
	return p == PhaseComplete || p == PhaseErrored
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}
