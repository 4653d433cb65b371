package counters

import (
	"sync/atomic"
	"time"
)

// StandardObjectCounter counts objects without enforcing a capacity. It backs
// flushable schedulers, where an accurate count is needed but on-ramping must
// never block.
type StandardObjectCounter struct {
	count         int64
	sleepDuration time.Duration
}

// NewStandardObjectCounter instantiates a StandardObjectCounter.
// sleepDuration is the polling interval of WaitUntilEmpty.
func NewStandardObjectCounter(sleepDuration time.Duration) *StandardObjectCounter {
	if sleepDuration <= 0 {
		sleepDuration = time.Millisecond
	}
	return &StandardObjectCounter{sleepDuration: sleepDuration}
}

// OnRamp implements ObjectCounter. It never blocks.
func (c *StandardObjectCounter) OnRamp() {
	atomic.AddInt64(&c.count, 1)
}

// AttemptOnRamp implements ObjectCounter. It always succeeds.
func (c *StandardObjectCounter) AttemptOnRamp() bool {
	atomic.AddInt64(&c.count, 1)
	return true
}

// ForceOnRamp implements ObjectCounter.
func (c *StandardObjectCounter) ForceOnRamp() {
	atomic.AddInt64(&c.count, 1)
}

// OffRamp implements ObjectCounter.
func (c *StandardObjectCounter) OffRamp() {
	atomic.AddInt64(&c.count, -1)
}

// Count implements ObjectCounter.
func (c *StandardObjectCounter) Count() int64 {
	return atomic.LoadInt64(&c.count)
}

// WaitUntilEmpty implements ObjectCounter.
func (c *StandardObjectCounter) WaitUntilEmpty() {
	for atomic.LoadInt64(&c.count) > 0 {
		time.Sleep(c.sleepDuration)
	}
}
