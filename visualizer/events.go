// ABOUTME: Event types emitted by the Controller on every state transition.
// ABOUTME: Each event carries a State snapshot so hosts can render without reading back.
package visualizer

import "time"

// EventType names a controller transition.
type EventType string

const (
	EventSubmitted     EventType = "submitted"
	EventStageRevealed EventType = "stage_revealed"
	EventCompleted     EventType = "completed"
	EventFailed        EventType = "failed"
	EventExamplePicked EventType = "example_picked"
	EventClosed        EventType = "closed"
)

// Event describes one transition. Stage is only meaningful for
// EventStageRevealed.
type Event struct {
	Type         EventType
	Stage        Stage
	SubmissionID string
	Timestamp    time.Time
	Data         map[string]any
	State        State
}

// EventHandler receives controller events. It is called without the
// controller lock held and may be invoked from timer goroutines.
type EventHandler func(Event)
