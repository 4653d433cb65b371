package wiring

import (
	"fmt"
	"time"

	"github.com/mosaicnetworks/eventflow/src/wiring/counters"
)

// UnlimitedCapacity disables the in-flight task bound of a scheduler.
const UnlimitedCapacity int64 = -1

// DefaultSleepDuration is the backoff interval used when blocking on
// backpressure, unless overridden on the builder.
const DefaultSleepDuration = time.Millisecond

// TaskSchedulerBuilder configures a task scheduler. Obtain one from
// WiringModel.NewTaskSchedulerBuilder, chain the With* options, then call
// BuildTaskScheduler exactly once.
type TaskSchedulerBuilder struct {
	model *WiringModel
	name  string
	stype TaskSchedulerType

	capacity      int64
	flushing      bool
	squelching    bool
	extOnRamp     counters.ObjectCounter
	extOffRamp    counters.ObjectCounter
	sleepDuration time.Duration
	poolSize      int
	panicHandler  PanicHandler

	built bool
}

// NewTaskSchedulerBuilder starts a builder for a scheduler with the given
// name. Names must be non-empty, limited to letters, digits and
// underscores, and unique within the model. The default configuration is a
// Sequential scheduler with unlimited capacity.
func (m *WiringModel) NewTaskSchedulerBuilder(name string) *TaskSchedulerBuilder {
	return &TaskSchedulerBuilder{
		model:         m,
		name:          name,
		stype:         Sequential,
		capacity:      UnlimitedCapacity,
		sleepDuration: DefaultSleepDuration,
	}
}

// WithType sets the execution policy.
func (b *TaskSchedulerBuilder) WithType(stype TaskSchedulerType) *TaskSchedulerBuilder {
	b.stype = stype
	return b
}

// WithUnhandledTaskCapacity bounds the number of in-flight tasks. Put blocks
// and Offer refuses while the bound is reached. UnlimitedCapacity removes
// the bound.
func (b *TaskSchedulerBuilder) WithUnhandledTaskCapacity(capacity int64) *TaskSchedulerBuilder {
	b.capacity = capacity
	return b
}

// WithFlushingEnabled makes Flush available on the built scheduler.
func (b *TaskSchedulerBuilder) WithFlushingEnabled(enabled bool) *TaskSchedulerBuilder {
	b.flushing = enabled
	return b
}

// WithSquelchingEnabled makes StartSquelching available on the built
// scheduler. Do not enable it for stages whose tasks own resources that
// need explicit cleanup.
func (b *TaskSchedulerBuilder) WithSquelchingEnabled(enabled bool) *TaskSchedulerBuilder {
	b.squelching = enabled
	return b
}

// WithOnRamp adds an external counter that is on-ramped whenever a task
// enters this scheduler. Pair it with another scheduler's WithOffRamp to
// form a joint backpressure domain.
func (b *TaskSchedulerBuilder) WithOnRamp(counter counters.ObjectCounter) *TaskSchedulerBuilder {
	b.extOnRamp = counter
	return b
}

// WithOffRamp adds an external counter that is off-ramped whenever a task
// completes in this scheduler.
func (b *TaskSchedulerBuilder) WithOffRamp(counter counters.ObjectCounter) *TaskSchedulerBuilder {
	b.extOffRamp = counter
	return b
}

// WithPoolSize gives a concurrent scheduler a private worker pool of the
// given size instead of the model's shared one.
func (b *TaskSchedulerBuilder) WithPoolSize(size int) *TaskSchedulerBuilder {
	b.poolSize = size
	return b
}

// WithSleepDuration sets the backoff interval used when blocking on
// backpressure or waiting for a flush.
func (b *TaskSchedulerBuilder) WithSleepDuration(d time.Duration) *TaskSchedulerBuilder {
	b.sleepDuration = d
	return b
}

// WithUncaughtPanicHandler overrides the handler invoked when a task
// panics. The default logs through the model's logger.
func (b *TaskSchedulerBuilder) WithUncaughtPanicHandler(handler PanicHandler) *TaskSchedulerBuilder {
	b.panicHandler = handler
	return b
}

func (b *TaskSchedulerBuilder) validate() error {
	if b.built {
		return fmt.Errorf("builder for scheduler %q was already used", b.name)
	}
	if b.name == "" {
		return fmt.Errorf("scheduler name must not be empty")
	}
	for _, r := range b.name {
		ok := r == '_' ||
			(r >= 'a' && r <= 'z') ||
			(r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9')
		if !ok {
			return fmt.Errorf("scheduler name %q contains illegal character %q", b.name, r)
		}
	}
	if b.capacity != UnlimitedCapacity && b.capacity <= 0 {
		return fmt.Errorf("scheduler %q: capacity must be positive or UnlimitedCapacity", b.name)
	}
	if b.sleepDuration <= 0 {
		return fmt.Errorf("scheduler %q: sleep duration must be positive", b.name)
	}
	if b.stype.isDirect() {
		if b.capacity != UnlimitedCapacity {
			return fmt.Errorf("scheduler %q: direct schedulers cannot bound capacity", b.name)
		}
		if b.flushing {
			return fmt.Errorf("scheduler %q: direct schedulers cannot flush", b.name)
		}
	}
	if b.poolSize < 0 {
		return fmt.Errorf("scheduler %q: pool size must not be negative", b.name)
	}
	if b.poolSize > 0 && b.stype != Concurrent {
		return fmt.Errorf("scheduler %q: only concurrent schedulers take a private pool", b.name)
	}
	return nil
}

// buildCounter picks the cheapest counter that supports the configuration:
// a backpressure counter when a bound must be enforced, a standard counter
// when flushing needs an accurate count, a no-op counter otherwise.
func (b *TaskSchedulerBuilder) buildCounter() counters.ObjectCounter {
	switch {
	case b.capacity != UnlimitedCapacity && !b.stype.isDirect():
		return counters.NewBackpressureObjectCounter(b.capacity, b.sleepDuration)
	case b.flushing:
		return counters.NewStandardObjectCounter(b.sleepDuration)
	default:
		return counters.NewNoOpObjectCounter()
	}
}

// BuildTaskScheduler builds the configured scheduler with output type O and
// registers it with the model. A package-level function because the output
// type is chosen per scheduler, not per builder.
func BuildTaskScheduler[O any](b *TaskSchedulerBuilder) (*TaskScheduler[O], error) {
	if err := b.validate(); err != nil {
		return nil, err
	}
	if err := b.model.registerScheduler(b.name, b.stype); err != nil {
		return nil, err
	}
	b.built = true

	counter := b.buildCounter()
	onRamp := counter
	if b.extOnRamp != nil {
		onRamp = counters.NewMultiObjectCounter(counter, b.extOnRamp)
	}

	handler := b.panicHandler
	if handler == nil {
		handler = defaultPanicHandler(b.model.logger)
	}

	s := &TaskScheduler[O]{
		model:          b.model,
		name:           b.name,
		stype:          b.stype,
		logger:         b.model.logger.WithField("scheduler", b.name),
		counter:        counter,
		onRamp:         onRamp,
		offRampExtra:   b.extOffRamp,
		flushEnabled:   b.flushing,
		squelchEnabled: b.squelching,
		panicHandler:   handler,
	}
	s.output = &OutputWire[O]{
		model:         b.model,
		schedulerName: b.name,
	}

	if b.stype.isSequential() {
		s.queue = newTaskQueue()
		b.model.registerSequential(s.queue, s.run)
	}
	if b.poolSize > 0 {
		s.pool = newWorkerPool(b.poolSize)
		b.model.registerPool(s.pool)
	}

	return s, nil
}
