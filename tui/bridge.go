// ABOUTME: Bridge connecting the visualizer controller to the Bubble Tea message loop.
// ABOUTME: Provides EventBridge for ordered event delivery, and tea.Cmd factories for submissions, event waits, and ticks.
package tui

import (
	"context"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/2389-research/modelselector/visualizer"
)

// EventBridge queues controller events until the TUI loop asks for the next
// one. The controller may emit from inside Update (PickExample), so
// HandleEvent never blocks on the loop.
type EventBridge struct {
	mu     sync.Mutex
	queue  []visualizer.Event
	ready  chan struct{}
	done   chan struct{}
	closed sync.Once
}

// NewEventBridge creates an empty EventBridge.
func NewEventBridge() *EventBridge {
	return &EventBridge{
		ready: make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
}

// HandleEvent implements visualizer.EventHandler.
func (b *EventBridge) HandleEvent(evt visualizer.Event) {
	b.mu.Lock()
	b.queue = append(b.queue, evt)
	b.mu.Unlock()

	select {
	case b.ready <- struct{}{}:
	default:
	}
}

// Next blocks until an event is queued or the bridge is closed. Events come
// out in the order they were handled.
func (b *EventBridge) Next() (visualizer.Event, bool) {
	for {
		b.mu.Lock()
		if len(b.queue) > 0 {
			evt := b.queue[0]
			b.queue = b.queue[1:]
			b.mu.Unlock()
			return evt, true
		}
		b.mu.Unlock()

		select {
		case <-b.ready:
		case <-b.done:
			return visualizer.Event{}, false
		}
	}
}

// Close releases any goroutine blocked in Next.
func (b *EventBridge) Close() {
	b.closed.Do(func() { close(b.done) })
}

// WaitForEventCmd returns a tea.Cmd that blocks on the bridge and sends a
// ControllerEventMsg when an event arrives.
func WaitForEventCmd(b *EventBridge) tea.Cmd {
	return func() tea.Msg {
		evt, ok := b.Next()
		if !ok {
			return nil // bridge closed, no more events
		}
		return ControllerEventMsg{Event: evt}
	}
}

// SubmitCmd returns a tea.Cmd that runs one submission. The controller
// reports progress through events; the returned SubmitDoneMsg only says
// whether it started.
func SubmitCmd(ctx context.Context, ctrl *visualizer.Controller, query string) tea.Cmd {
	return func() tea.Msg {
		return SubmitDoneMsg{Query: query, Started: ctrl.Submit(ctx, query)}
	}
}

// TickCmd returns a tea.Cmd that sends a TickMsg after the given interval.
// Used for spinner animation and the elapsed clock.
func TickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return TickMsg{Time: t}
	})
}
