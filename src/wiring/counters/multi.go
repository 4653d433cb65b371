package counters

// MultiObjectCounter combines counters into one domain. Only the first
// counter may block or refuse; the others are force on-ramped so that a
// blocking decision is made exactly once per object.
type MultiObjectCounter struct {
	counters []ObjectCounter
}

// NewMultiObjectCounter combines the given counters. At least one is
// required.
func NewMultiObjectCounter(counters ...ObjectCounter) *MultiObjectCounter {
	if len(counters) == 0 {
		panic("MultiObjectCounter requires at least one counter")
	}
	return &MultiObjectCounter{counters: counters}
}

// OnRamp implements ObjectCounter. Blocks on the first counter only.
func (c *MultiObjectCounter) OnRamp() {
	c.counters[0].OnRamp()
	for _, inner := range c.counters[1:] {
		inner.ForceOnRamp()
	}
}

// AttemptOnRamp implements ObjectCounter. Only the first counter may refuse.
func (c *MultiObjectCounter) AttemptOnRamp() bool {
	if !c.counters[0].AttemptOnRamp() {
		return false
	}
	for _, inner := range c.counters[1:] {
		inner.ForceOnRamp()
	}
	return true
}

// ForceOnRamp implements ObjectCounter.
func (c *MultiObjectCounter) ForceOnRamp() {
	for _, inner := range c.counters {
		inner.ForceOnRamp()
	}
}

// OffRamp implements ObjectCounter.
func (c *MultiObjectCounter) OffRamp() {
	for _, inner := range c.counters {
		inner.OffRamp()
	}
}

// Count implements ObjectCounter. Reports the first counter's count.
func (c *MultiObjectCounter) Count() int64 {
	return c.counters[0].Count()
}

// WaitUntilEmpty implements ObjectCounter. Waits on the first counter.
func (c *MultiObjectCounter) WaitUntilEmpty() {
	c.counters[0].WaitUntilEmpty()
}
