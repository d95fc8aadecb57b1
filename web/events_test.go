// ABOUTME: Tests for SSE formatting, controller event conversion and the per-session Hub fanout.
// ABOUTME: Covers payload shape, subscribe/cancel, non-blocking publish and close semantics.
package web

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389-research/modelselector/visualizer"
)

func TestSSEEventFormat(t *testing.T) {
	evt := SSEEvent{Event: "submitted", Data: `{"type":"submitted"}`}
	assert.Equal(t, "event: submitted\ndata: {\"type\":\"submitted\"}\n\n", evt.Format())
}

func TestControllerEventToSSE(t *testing.T) {
	st := visualizer.State{SessionID: "s-1", Phase: visualizer.PhasePlanRevealed, Version: 3}
	st.Stages[visualizer.StagePlan] = visualizer.StageState{Stage: visualizer.StagePlan, Active: true, Content: "**go**"}

	evt := visualizer.Event{
		Type:         visualizer.EventStageRevealed,
		Stage:        visualizer.StagePlan,
		SubmissionID: "01J0000000000000000000000",
		Timestamp:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		State:        st,
	}
	sse := controllerEventToSSE(evt, NewMarkdown())
	assert.Equal(t, "stage_revealed", sse.Event)

	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(sse.Data), &payload))
	assert.Equal(t, "stage_revealed", payload["type"])
	assert.Equal(t, "plan", payload["stage"])
	assert.Equal(t, "01J0000000000000000000000", payload["submission_id"])
	assert.Equal(t, "2026-01-02T03:04:05Z", payload["timestamp"])

	state := payload["state"].(map[string]any)
	assert.Equal(t, "plan_revealed", state["phase"])
	assert.EqualValues(t, 3, state["version"])
	stages := state["stages"].([]any)
	require.Len(t, stages, visualizer.NumStages)
	plan := stages[0].(map[string]any)
	assert.Equal(t, "revealed", plan["status"])
	assert.Contains(t, plan["html"], "<strong>go</strong>")
}

func TestControllerEventToSSEOmitsStageForOtherEvents(t *testing.T) {
	sse := controllerEventToSSE(visualizer.Event{
		Type: visualizer.EventFailed,
		Data: map[string]any{"kind": "transport"},
	}, NewMarkdown())

	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(sse.Data), &payload))
	assert.NotContains(t, payload, "stage")
	assert.Equal(t, map[string]any{"kind": "transport"}, payload["data"])
}

func TestStateToSSE(t *testing.T) {
	sse := stateToSSE(visualizer.State{SessionID: "s-2"}, NewMarkdown())
	assert.Equal(t, "state", sse.Event)

	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(sse.Data), &payload))
	assert.Equal(t, "state", payload["type"])
	assert.Equal(t, "s-2", payload["state"].(map[string]any)["session_id"])
}

func TestHubFanout(t *testing.T) {
	hub := NewHub()
	a, cancelA := hub.Subscribe()
	b, cancelB := hub.Subscribe()
	defer cancelA()
	defer cancelB()
	assert.Equal(t, 2, hub.Subscribers())

	hub.Publish(SSEEvent{Event: "one"})
	assert.Equal(t, "one", (<-a).Event)
	assert.Equal(t, "one", (<-b).Event)
}

func TestHubCancelClosesChannel(t *testing.T) {
	hub := NewHub()
	ch, cancel := hub.Subscribe()
	cancel()
	cancel()

	_, ok := <-ch
	assert.False(t, ok)
	assert.Equal(t, 0, hub.Subscribers())
	hub.Publish(SSEEvent{Event: "after"})
}

func TestHubPublishDoesNotBlockOnSlowSubscriber(t *testing.T) {
	hub := NewHub()
	ch, cancel := hub.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		for range subscriberBuffer * 2 {
			hub.Publish(SSEEvent{Event: "flood"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
	assert.Len(t, ch, subscriberBuffer)
}

func TestHubClose(t *testing.T) {
	hub := NewHub()
	ch, cancel := hub.Subscribe()

	hub.Close()
	_, ok := <-ch
	assert.False(t, ok)

	// Cancel after close and a second close are no-ops.
	cancel()
	hub.Close()

	late, _ := hub.Subscribe()
	_, ok = <-late
	assert.False(t, ok)
}

func TestHubConcurrentUse(t *testing.T) {
	hub := NewHub()
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ch, cancel := hub.Subscribe()
			hub.Publish(SSEEvent{Event: "x"})
			<-ch
			cancel()
		}()
	}
	wg.Wait()
	hub.Close()
	assert.Equal(t, 0, hub.Subscribers())
}
