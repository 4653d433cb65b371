package counters

// ObjectCounter tracks objects inside a backpressure domain.
type ObjectCounter interface {
	// OnRamp adds an object, blocking until capacity is available.
	OnRamp()

	// AttemptOnRamp adds an object if capacity is available. It never blocks;
	// the return value reports whether the object was added.
	AttemptOnRamp() bool

	// ForceOnRamp adds an object regardless of capacity. Reserved for control
	// signals whose loss would deadlock the pipeline.
	ForceOnRamp()

	// OffRamp removes an object.
	OffRamp()

	// Count returns the number of objects currently in the domain.
	Count() int64

	// WaitUntilEmpty blocks until the count reaches zero.
	WaitUntilEmpty()
}

// NoOpObjectCounter counts nothing. It is the counter of schedulers without
// capacity bounds, flushing, or metrics.
type NoOpObjectCounter struct{}

var noOp = &NoOpObjectCounter{}

// NewNoOpObjectCounter returns the shared no-op counter.
func NewNoOpObjectCounter() *NoOpObjectCounter {
	return noOp
}

// OnRamp implements ObjectCounter.
func (c *NoOpObjectCounter) OnRamp() {}

// AttemptOnRamp implements ObjectCounter.
func (c *NoOpObjectCounter) AttemptOnRamp() bool { return true }

// ForceOnRamp implements ObjectCounter.
func (c *NoOpObjectCounter) ForceOnRamp() {}

// OffRamp implements ObjectCounter.
func (c *NoOpObjectCounter) OffRamp() {}

// Count implements ObjectCounter.
func (c *NoOpObjectCounter) Count() int64 { return 0 }

// WaitUntilEmpty implements ObjectCounter.
func (c *NoOpObjectCounter) WaitUntilEmpty() {}
