// ABOUTME: Controller drives the staged reveal: one backend call per submission, then Plan, Think, Output.
// ABOUTME: Enforces single-flight, schedules cancellable reveal timers, and emits events on each transition.
package visualizer

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/2389-research/modelselector/workflow"
)

const (
	// DefaultThinkDelay is the pause between response arrival and the Think reveal.
	DefaultThinkDelay = 2 * time.Second
	// DefaultOutputDelay is the pause between response arrival and the Output reveal.
	DefaultOutputDelay = 4 * time.Second
)

// ErrInvalidDelays is returned by NewController when OutputDelay does not
// exceed ThinkDelay.
var ErrInvalidDelays = errors.New("output delay must be greater than think delay")

// Config configures a Controller. Only Client is required.
type Config struct {
	Client       workflow.Submitter
	SessionID    string // defaults to a random UUID
	ThinkDelay   time.Duration
	OutputDelay  time.Duration
	Catalog      Catalog // nil uses DefaultCatalog; an empty non-nil catalog disables examples
	Scheduler    Scheduler
	Intn         func(int) int // random source for PickExample
	Logger       *zap.Logger
	EventHandler EventHandler
}

// Controller owns the visualizer state for one session. All methods are
// safe for concurrent use.
type Controller struct {
	client      workflow.Submitter
	sessionID   string
	sched       Scheduler
	thinkDelay  time.Duration
	outputDelay time.Duration
	catalog     Catalog
	intn        func(int) int
	logger      *zap.Logger
	handler     EventHandler

	// ctx is cancelled by Close so in-flight requests are abandoned.
	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	state     State
	timers    map[uint64]Timer
	nextTimer uint64
	closed    bool
}

// NewController creates a Controller with a fresh session identifier.
func NewController(cfg Config) (*Controller, error) {
	if cfg.Client == nil {
		return nil, errors.New("visualizer: Client is required")
	}
	if cfg.ThinkDelay <= 0 {
		cfg.ThinkDelay = DefaultThinkDelay
	}
	if cfg.OutputDelay <= 0 {
		cfg.OutputDelay = DefaultOutputDelay
	}
	if cfg.OutputDelay <= cfg.ThinkDelay {
		return nil, ErrInvalidDelays
	}
	if cfg.SessionID == "" {
		cfg.SessionID = uuid.NewString()
	}
	if cfg.Catalog == nil {
		cfg.Catalog = DefaultCatalog
	}
	if cfg.Scheduler == nil {
		cfg.Scheduler = SystemScheduler{}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		client:      cfg.Client,
		sessionID:   cfg.SessionID,
		sched:       cfg.Scheduler,
		thinkDelay:  cfg.ThinkDelay,
		outputDelay: cfg.OutputDelay,
		catalog:     cfg.Catalog,
		intn:        cfg.Intn,
		logger:      cfg.Logger.With(zap.String("session_id", cfg.SessionID)),
		handler:     cfg.EventHandler,
		ctx:         ctx,
		cancel:      cancel,
		state:       newState(cfg.SessionID),
		timers:      make(map[uint64]Timer),
	}, nil
}

// SessionID returns the identifier sent with every submission.
func (c *Controller) SessionID() string {
	return c.sessionID
}

// Catalog returns the example catalog.
func (c *Controller) Catalog() Catalog {
	return c.catalog
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Pending returns the number of scheduled reveals that have not run.
func (c *Controller) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

// SetQuery updates the query field. It is ignored while a submission is in
// flight or after Close.
func (c *Controller) SetQuery(q string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.state.InFlight {
		return false
	}
	if c.state.Query != q {
		c.state.setQuery(q)
	}
	return true
}

// PickExample writes a random catalog entry into the query field. It
// reports false when a submission is in flight or the catalog is empty.
func (c *Controller) PickExample() (string, bool) {
	c.mu.Lock()
	if c.closed || c.state.InFlight {
		c.mu.Unlock()
		return "", false
	}
	q, ok := c.catalog.Pick(c.intn)
	if !ok {
		c.mu.Unlock()
		return "", false
	}
	c.state.setQuery(q)
	evt := c.eventLocked(EventExamplePicked, StagePlan, map[string]any{"query": q})
	c.mu.Unlock()

	c.emit(evt)
	return q, true
}

// Submit runs one submission for query and blocks until the backend
// answers. Think and Output are then revealed by timers. It returns false,
// without touching state or the network, when the trimmed query is empty,
// a submission is already in flight, or the controller is closed.
func (c *Controller) Submit(ctx context.Context, query string) bool {
	query = normalizeQuery(query)
	subID, ok := c.begin(query)
	if !ok {
		return false
	}
	c.run(ctx, query, subID)
	return true
}

// Start is Submit without the wait: the state moves to Submitting before it
// returns and the backend call runs in the background. The returned channel
// is closed once the outcome has been applied.
func (c *Controller) Start(ctx context.Context, query string) (<-chan struct{}, bool) {
	query = normalizeQuery(query)
	subID, ok := c.begin(query)
	if !ok {
		return nil, false
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.run(ctx, query, subID)
	}()
	return done, true
}

// begin applies the Submitting transition and returns the new submission id.
func (c *Controller) begin(query string) (string, bool) {
	c.mu.Lock()
	if c.closed || query == "" || c.state.InFlight {
		c.mu.Unlock()
		return "", false
	}
	c.stopTimersLocked()
	subID := ulid.Make().String()
	c.state.begin(query, subID, c.sched.Now())
	started := c.eventLocked(EventSubmitted, StagePlan, map[string]any{"query": query})
	c.mu.Unlock()

	c.logger.Info("submission started", zap.String("submission_id", subID), zap.String("query", query))
	c.emit(started)
	return subID, true
}

// run makes the backend call for subID and applies its outcome.
func (c *Controller) run(ctx context.Context, query, subID string) {
	reqCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(c.ctx, cancel)
	defer stop()

	result, err := c.client.SubmitWorkflow(reqCtx, query, c.sessionID)

	c.mu.Lock()
	if c.closed || c.state.SubmissionID != subID {
		c.mu.Unlock()
		return
	}
	at := c.sched.Now()

	if err != nil {
		kind := workflow.Kind(err)
		c.state.fail(kind, at)
		evt := c.eventLocked(EventFailed, StagePlan, map[string]any{"kind": kind, "error": err.Error()})
		c.mu.Unlock()

		c.logger.Warn("submission failed",
			zap.String("submission_id", subID),
			zap.String("kind", kind),
			zap.Error(err),
		)
		c.emit(evt)
		return
	}
	if result == nil {
		result = &workflow.Result{}
	}

	c.state.revealPlan(result, at)
	evt := c.eventLocked(EventStageRevealed, StagePlan, nil)
	think, output := result.Think, result.Response
	c.scheduleLocked(c.thinkDelay, func() { c.reveal(subID, StageThink, think, output) })
	c.scheduleLocked(c.outputDelay, func() { c.reveal(subID, StageOutput, think, output) })
	c.mu.Unlock()

	c.logger.Debug("plan revealed", zap.String("submission_id", subID))
	c.emit(evt)
}

// Close tears the controller down: pending reveals are cancelled, an
// in-flight request is abandoned and later calls become no-ops.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.stopTimersLocked()
	evt := c.eventLocked(EventClosed, StagePlan, nil)
	c.mu.Unlock()

	c.cancel()
	c.emit(evt)
}

// reveal runs from a timer. Output catches Think up first if its timer has
// not run yet, so Think always precedes Output.
func (c *Controller) reveal(subID string, stage Stage, think, output string) {
	c.mu.Lock()
	if c.closed || c.state.SubmissionID != subID {
		c.mu.Unlock()
		return
	}

	var events []Event
	at := c.sched.Now()
	switch stage {
	case StageThink:
		if c.state.Phase == PhasePlanRevealed {
			c.state.revealThink(think, at)
			events = append(events, c.eventLocked(EventStageRevealed, StageThink, nil))
		}
	case StageOutput:
		if c.state.Phase == PhasePlanRevealed {
			c.state.revealThink(think, at)
			events = append(events, c.eventLocked(EventStageRevealed, StageThink, nil))
		}
		if c.state.Phase == PhaseThinkRevealed {
			c.state.revealOutput(output, at)
			events = append(events,
				c.eventLocked(EventStageRevealed, StageOutput, nil),
				c.eventLocked(EventCompleted, StageOutput, nil),
			)
			c.stopTimersLocked()
		}
	}
	c.mu.Unlock()

	for _, evt := range events {
		if evt.Type == EventStageRevealed {
			c.logger.Debug("stage revealed", zap.String("submission_id", subID), zap.Stringer("stage", evt.Stage))
		}
		c.emit(evt)
	}
}

// scheduleLocked registers f to run after d. The timer removes itself from
// the pending set before f runs.
func (c *Controller) scheduleLocked(d time.Duration, f func()) {
	id := c.nextTimer
	c.nextTimer++
	c.timers[id] = c.sched.AfterFunc(d, func() {
		c.mu.Lock()
		_, live := c.timers[id]
		delete(c.timers, id)
		c.mu.Unlock()
		if live {
			f()
		}
	})
}

func (c *Controller) stopTimersLocked() {
	for id, t := range c.timers {
		t.Stop()
		delete(c.timers, id)
	}
}

func (c *Controller) eventLocked(typ EventType, stage Stage, data map[string]any) Event {
	return Event{
		Type:         typ,
		Stage:        stage,
		SubmissionID: c.state.SubmissionID,
		Timestamp:    c.sched.Now(),
		Data:         data,
		State:        c.state,
	}
}

func (c *Controller) emit(evt Event) {
	if c.handler != nil {
		c.handler(evt)
	}
}

func normalizeQuery(q string) string {
	return strings.TrimSpace(q)
}
