package timecontrol

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNoDeadlineNeverAborts(t *testing.T) {
	c := NewController()
	assert.False(t, c.Aborted())
}

func TestScheduleCountDownExpires(t *testing.T) {
	c := NewController()
	c.ScheduleCountDown(10)
	assert.False(t, c.Aborted())

	time.Sleep(25 * time.Millisecond)
	assert.True(t, c.Aborted())
}

func TestCancelCountDownClearsDeadline(t *testing.T) {
	c := NewController()
	c.ScheduleCountDown(1)
	time.Sleep(5 * time.Millisecond)
	assert.True(t, c.Aborted())

	c.CancelCountDown()
	assert.False(t, c.Aborted())
}

func TestStopForcesAbortRegardlessOfDeadline(t *testing.T) {
	c := NewController()
	c.ScheduleCountDown(10_000)
	assert.False(t, c.Aborted())

	c.Stop()
	assert.True(t, c.Aborted())
}

func TestAbortComputationRetargetsDeadline(t *testing.T) {
	c := NewController()
	c.ScheduleCountDown(10_000)
	c.AbortComputation(5)

	time.Sleep(20 * time.Millisecond)
	assert.True(t, c.Aborted())
}

func TestPastOptimumBeforeAndAfterSoftTarget(t *testing.T) {
	c := NewController()
	c.ScheduleCountDown(10)
	assert.False(t, c.PastOptimum())

	time.Sleep(20 * time.Millisecond)
	assert.True(t, c.PastOptimum())
}

func TestElapsedGrowsMonotonically(t *testing.T) {
	c := NewController()
	c.ScheduleCountDown(1_000)
	first := c.Elapsed()
	time.Sleep(5 * time.Millisecond)
	second := c.Elapsed()
	assert.Greater(t, second, first)
}
