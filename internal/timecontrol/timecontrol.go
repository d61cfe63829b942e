// Package timecontrol implements the cooperative soft/hard deadline used by
// every search engine, grounded on the teacher's
// internal/engine/timeman.go TimeManager (optimum/maximum time tracked
// against a monotonic start time, checked at iteration boundaries).
package timecontrol

import (
	"sync/atomic"
	"time"
)

// Controller is a single cooperative deadline shared between a search
// engine and its caller. It has no preemption: engines must poll Aborted
// at iteration boundaries and inside recursive descent.
type Controller struct {
	deadline atomic.Int64 // unix nano; 0 means no deadline
	aborted  atomic.Bool
	started  atomic.Int64 // unix nano search start, for PastOptimum-style checks
	optimum  atomic.Int64 // nanoseconds, soft target
}

// NewController returns a Controller with no deadline set.
func NewController() *Controller {
	return &Controller{}
}

// ScheduleCountDown starts a cooperative deadline ms milliseconds from now.
func (c *Controller) ScheduleCountDown(ms int) {
	now := time.Now()
	c.started.Store(now.UnixNano())
	c.aborted.Store(false)
	c.deadline.Store(now.Add(time.Duration(ms) * time.Millisecond).UnixNano())
	c.optimum.Store(int64(time.Duration(ms) * time.Millisecond))
}

// AbortComputation retargets the deadline to ms milliseconds from now,
// used on ponder-hit to convert ponder time into search time.
func (c *Controller) AbortComputation(ms int) {
	c.deadline.Store(time.Now().Add(time.Duration(ms) * time.Millisecond).UnixNano())
}

// CancelCountDown clears the deadline; Aborted will report false until a
// new ScheduleCountDown.
func (c *Controller) CancelCountDown() {
	c.deadline.Store(0)
	c.aborted.Store(false)
}

// Aborted reports whether the deadline has elapsed, or whether the engine
// was stopped explicitly via Stop.
func (c *Controller) Aborted() bool {
	if c.aborted.Load() {
		return true
	}
	d := c.deadline.Load()
	if d == 0 {
		return false
	}
	if time.Now().UnixNano() >= d {
		c.aborted.Store(true)
		return true
	}
	return false
}

// Stop forces Aborted to return true immediately, regardless of the
// deadline, used for explicit engine.abortComputation(0)-style stops.
func (c *Controller) Stop() {
	c.aborted.Store(true)
}

// PastOptimum reports whether the soft (optimum) portion of the allotted
// time has elapsed, used by iterative deepening to decide whether a
// stable best move justifies stopping early (adapted from the teacher's
// TimeManager.PastOptimum, internal/engine/timeman.go).
func (c *Controller) PastOptimum() bool {
	started := c.started.Load()
	if started == 0 {
		return false
	}
	elapsed := time.Now().UnixNano() - started
	return elapsed >= c.optimum.Load()
}

// Elapsed returns the time since ScheduleCountDown was last called.
func (c *Controller) Elapsed() time.Duration {
	started := c.started.Load()
	if started == 0 {
		return 0
	}
	return time.Duration(time.Now().UnixNano() - started)
}
