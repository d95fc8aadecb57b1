// ABOUTME: Scheduler abstraction for the delayed stage reveals, backed by time.AfterFunc.
// ABOUTME: Timers are stoppable so a torn-down controller never mutates state afterwards.
package visualizer

import "time"

// Timer is a scheduled callback that can be cancelled.
type Timer interface {
	// Stop cancels the callback. It reports false if the callback already
	// ran or was stopped.
	Stop() bool
}

// Scheduler provides the clock and delayed callbacks used by a Controller.
type Scheduler interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// SystemScheduler uses the wall clock and runtime timers.
type SystemScheduler struct{}

func (SystemScheduler) Now() time.Time { return time.Now() }

func (SystemScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
