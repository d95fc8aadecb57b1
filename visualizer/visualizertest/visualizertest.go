// ABOUTME: Test doubles for the visualizer: a manual clock/scheduler and a scripted workflow submitter.
// ABOUTME: Lets tests drive the staged reveal deterministically without sleeping.
package visualizertest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/2389-research/modelselector/visualizer"
	"github.com/2389-research/modelselector/workflow"
)

// Epoch is the start time of every ManualScheduler.
var Epoch = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

// ManualScheduler is a visualizer.Scheduler whose clock only moves when
// Advance is called. Callbacks never run inside AfterFunc.
type ManualScheduler struct {
	mu     sync.Mutex
	now    time.Time
	timers []*manualTimer
	seq    int
}

type manualTimer struct {
	s       *ManualScheduler
	at      time.Time
	seq     int
	f       func()
	stopped bool
	fired   bool
}

// NewManualScheduler returns a scheduler whose clock starts at Epoch.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{now: Epoch}
}

func (s *ManualScheduler) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

func (s *ManualScheduler) AfterFunc(d time.Duration, f func()) visualizer.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &manualTimer{s: s, at: s.now.Add(d), seq: s.seq, f: f}
	s.seq++
	s.timers = append(s.timers, t)
	return t
}

func (t *manualTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Pending returns the number of timers that have neither fired nor been
// stopped.
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// Advance moves the clock forward by d, running due callbacks in deadline
// order with the clock set to each deadline.
func (s *ManualScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	target := s.now.Add(d)
	s.mu.Unlock()

	for {
		s.mu.Lock()
		due := s.dueLocked(target)
		if due == nil {
			s.now = target
			s.mu.Unlock()
			return
		}
		due.fired = true
		s.now = due.at
		s.mu.Unlock()

		due.f()
	}
}

func (s *ManualScheduler) dueLocked(target time.Time) *manualTimer {
	var live []*manualTimer
	for _, t := range s.timers {
		if !t.stopped && !t.fired && !t.at.After(target) {
			live = append(live, t)
		}
	}
	if len(live) == 0 {
		return nil
	}
	sort.Slice(live, func(i, j int) bool {
		if live[i].at.Equal(live[j].at) {
			return live[i].seq < live[j].seq
		}
		return live[i].at.Before(live[j].at)
	})
	return live[0]
}

// Call records one SubmitWorkflow invocation.
type Call struct {
	Query     string
	SessionID string
}

// Submitter is a scripted workflow.Submitter. When Gate is non-nil each
// call blocks until a value is sent on it or the context ends.
type Submitter struct {
	Result *workflow.Result
	Err    error
	Gate   chan struct{}

	mu      sync.Mutex
	calls   []Call
	started chan struct{}
}

// NewSubmitter returns a Submitter that answers with result or err.
func NewSubmitter(result *workflow.Result, err error) *Submitter {
	return &Submitter{Result: result, Err: err, started: make(chan struct{}, 16)}
}

// Blocking returns a Submitter whose calls wait on Gate.
func Blocking(result *workflow.Result, err error) *Submitter {
	s := NewSubmitter(result, err)
	s.Gate = make(chan struct{})
	return s
}

func (s *Submitter) SubmitWorkflow(ctx context.Context, query, sessionID string) (*workflow.Result, error) {
	s.mu.Lock()
	s.calls = append(s.calls, Call{Query: query, SessionID: sessionID})
	s.mu.Unlock()

	select {
	case s.started <- struct{}{}:
	default:
	}

	if s.Gate != nil {
		select {
		case <-s.Gate:
		case <-ctx.Done():
			return nil, &workflow.TransportError{ClientError: workflow.ClientError{Message: "executing request", Cause: ctx.Err()}}
		}
	}
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Result, nil
}

// Started is signalled once per call, after the call is recorded.
func (s *Submitter) Started() <-chan struct{} {
	return s.started
}

// Calls returns a copy of the recorded calls.
func (s *Submitter) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// Release lets one blocked call proceed.
func (s *Submitter) Release() {
	s.Gate <- struct{}{}
}
