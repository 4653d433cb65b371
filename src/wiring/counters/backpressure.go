package counters

import (
	"sync/atomic"
	"time"
)

// BackpressureObjectCounter enforces a capacity bound. OnRamp blocks, in
// increments of sleepDuration, while the domain is full; ForceOnRamp pushes
// the count past the capacity and is reserved for control signals.
type BackpressureObjectCounter struct {
	count         int64
	capacity      int64
	sleepDuration time.Duration
}

// NewBackpressureObjectCounter instantiates a counter with the given
// capacity. capacity must be positive.
func NewBackpressureObjectCounter(capacity int64, sleepDuration time.Duration) *BackpressureObjectCounter {
	if sleepDuration <= 0 {
		sleepDuration = time.Millisecond
	}
	return &BackpressureObjectCounter{
		capacity:      capacity,
		sleepDuration: sleepDuration,
	}
}

// OnRamp implements ObjectCounter. It blocks until capacity is available.
func (c *BackpressureObjectCounter) OnRamp() {
	for !c.AttemptOnRamp() {
		time.Sleep(c.sleepDuration)
	}
}

// AttemptOnRamp implements ObjectCounter.
func (c *BackpressureObjectCounter) AttemptOnRamp() bool {
	for {
		cur := atomic.LoadInt64(&c.count)
		if cur >= c.capacity {
			return false
		}
		if atomic.CompareAndSwapInt64(&c.count, cur, cur+1) {
			return true
		}
	}
}

// ForceOnRamp implements ObjectCounter. It ignores the capacity.
func (c *BackpressureObjectCounter) ForceOnRamp() {
	atomic.AddInt64(&c.count, 1)
}

// OffRamp implements ObjectCounter.
func (c *BackpressureObjectCounter) OffRamp() {
	atomic.AddInt64(&c.count, -1)
}

// Count implements ObjectCounter.
func (c *BackpressureObjectCounter) Count() int64 {
	return atomic.LoadInt64(&c.count)
}

// WaitUntilEmpty implements ObjectCounter.
func (c *BackpressureObjectCounter) WaitUntilEmpty() {
	for atomic.LoadInt64(&c.count) > 0 {
		time.Sleep(c.sleepDuration)
	}
}
