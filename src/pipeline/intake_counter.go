package pipeline

import "sync"

// intakeEventCounter counts events in flight inside the pipeline, per
// creator. Every submitted event is eventually matched by exactly one exit:
// drops at any stage report through the same counter, so a drained pipeline
// always returns to zero.
type intakeEventCounter struct {
	mu     sync.Mutex
	counts map[uint32]int64
	total  int64
}

func newIntakeEventCounter() *intakeEventCounter {
	return &intakeEventCounter{
		counts: make(map[uint32]int64),
	}
}

// EventEnteredIntakePipeline implements orphan.IntakeEventCounter.
func (c *intakeEventCounter) EventEnteredIntakePipeline(creatorID uint32) {
	c.mu.Lock()
	c.counts[creatorID]++
	c.total++
	c.mu.Unlock()
}

// EventExitedIntakePipeline implements orphan.IntakeEventCounter.
func (c *intakeEventCounter) EventExitedIntakePipeline(creatorID uint32) {
	c.mu.Lock()
	c.counts[creatorID]--
	c.total--
	c.mu.Unlock()
}

// Total returns the number of events currently in flight.
func (c *intakeEventCounter) Total() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total
}

// CountFor returns the number of in-flight events from one creator.
func (c *intakeEventCounter) CountFor(creatorID uint32) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[creatorID]
}
