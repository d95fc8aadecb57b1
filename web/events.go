// ABOUTME: Server-sent event formatting and a per-session Hub fanning controller events out to browser streams.
// ABOUTME: Each SSE message carries the full state view, so a client that misses one catches up on the next.
package web

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/2389-research/modelselector/visualizer"
)

// subscriberBuffer is how many events a slow stream may lag before new ones
// are dropped for it.
const subscriberBuffer = 16

// SSEEvent represents a server-sent event ready for formatting and transmission.
type SSEEvent struct {
	Event string // event type (e.g. "submitted", "stage_revealed")
	Data  string // JSON-encoded event data
}

// Format renders the SSEEvent as a properly formatted SSE message string.
// The wire format is "event: <type>\ndata: <data>\n\n".
func (e SSEEvent) Format() string {
	return fmt.Sprintf("event: %s\ndata: %s\n\n", e.Event, e.Data)
}

// eventPayload is the data of every SSE message.
type eventPayload struct {
	Type         visualizer.EventType `json:"type"`
	Stage        *visualizer.Stage    `json:"stage,omitempty"`
	SubmissionID string               `json:"submission_id,omitempty"`
	Timestamp    string               `json:"timestamp"`
	Data         map[string]any       `json:"data,omitempty"`
	State        StateView            `json:"state"`
}

// controllerEventToSSE converts a visualizer.Event into an SSEEvent suitable
// for streaming to the browser.
func controllerEventToSSE(evt visualizer.Event, md *Markdown) SSEEvent {
	payload := eventPayload{
		Type:         evt.Type,
		SubmissionID: evt.SubmissionID,
		Timestamp:    evt.Timestamp.Format(time.RFC3339Nano),
		Data:         evt.Data,
		State:        NewStateView(evt.State, md),
	}
	if evt.Type == visualizer.EventStageRevealed {
		stage := evt.Stage
		payload.Stage = &stage
	}
	return newSSEEvent(string(evt.Type), payload)
}

// stateToSSE wraps a snapshot as a "state" event, sent when a stream opens.
func stateToSSE(st visualizer.State, md *Markdown) SSEEvent {
	return newSSEEvent("state", eventPayload{
		Type:      "state",
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		State:     NewStateView(st, md),
	})
}

func newSSEEvent(name string, payload eventPayload) SSEEvent {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		jsonData = []byte(`{"error":"failed to marshal event"}`)
	}
	return SSEEvent{Event: name, Data: string(jsonData)}
}

// Hub fans events out to every subscribed stream of one session.
type Hub struct {
	mu     sync.Mutex
	subs   map[chan SSEEvent]struct{}
	closed bool
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[chan SSEEvent]struct{})}
}

// Subscribe registers a stream. The channel is closed when the Hub closes
// or the returned cancel func is called.
func (h *Hub) Subscribe() (<-chan SSEEvent, func()) {
	ch := make(chan SSEEvent, subscriberBuffer)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	h.subs[ch] = struct{}{}

	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
		}
	}
}

// Publish delivers evt to every subscriber without blocking; a subscriber
// whose buffer is full misses it.
func (h *Hub) Publish(evt SSEEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- evt:
		default:
		}
	}
}

// Subscribers returns the number of open streams.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close ends every stream. Later subscriptions get a closed channel.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for ch := range h.subs {
		delete(h.subs, ch)
		close(ch)
	}
}
