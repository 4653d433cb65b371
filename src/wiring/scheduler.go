package wiring

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/mosaicnetworks/eventflow/src/wiring/counters"
	"github.com/sirupsen/logrus"
)

// PanicHandler is invoked with the scheduler name and the recovered value
// when a task panics. The scheduler keeps running afterwards.
type PanicHandler func(scheduler string, cause interface{})

// TaskScheduler is a named processing stage parameterized by its output
// type O. Input wires of arbitrary input types are attached with
// BuildInputWire; all of them feed the same execution policy and the same
// backpressure domain, and their handlers' results leave through the one
// output wire.
type TaskScheduler[O any] struct {
	model  *WiringModel
	name   string
	stype  TaskSchedulerType
	logger *logrus.Entry

	// counter tracks in-flight tasks. onRamp is the entry facade: the
	// counter itself, or a MultiObjectCounter adding an external on-ramp.
	counter      counters.ObjectCounter
	onRamp       counters.ObjectCounter
	offRampExtra counters.ObjectCounter

	flushEnabled   bool
	squelchEnabled bool
	squelching     int32
	panicHandler   PanicHandler

	output *OutputWire[O]

	queue *taskQueue
	pool  *workerPool
	mu    sync.Mutex
}

// Name returns the scheduler's unique name.
func (s *TaskScheduler[O]) Name() string {
	return s.name
}

// Type returns the scheduler's execution policy.
func (s *TaskScheduler[O]) Type() TaskSchedulerType {
	return s.stype
}

// Output returns the scheduler's output wire.
func (s *TaskScheduler[O]) Output() *OutputWire[O] {
	return s.output
}

// UnprocessedTaskCount returns the number of in-flight tasks. Always zero
// for schedulers built without a real counter.
func (s *TaskScheduler[O]) UnprocessedTaskCount() int64 {
	return s.counter.Count()
}

// Flush blocks until every task currently in the scheduler has been handled.
// The scheduler must have been built with flushing enabled.
func (s *TaskScheduler[O]) Flush() error {
	if !s.flushEnabled {
		return fmt.Errorf("scheduler %s was built without flushing", s.name)
	}
	s.counter.WaitUntilEmpty()
	return nil
}

// StartSquelching makes the scheduler silently discard pending and future
// tasks until StopSquelching. Counters are still balanced, so producers
// blocked on backpressure are released.
func (s *TaskScheduler[O]) StartSquelching() error {
	if !s.squelchEnabled {
		return fmt.Errorf("scheduler %s was built without squelching", s.name)
	}
	atomic.StoreInt32(&s.squelching, 1)
	return nil
}

// StopSquelching resumes normal task handling.
func (s *TaskScheduler[O]) StopSquelching() error {
	if !s.squelchEnabled {
		return fmt.Errorf("scheduler %s was built without squelching", s.name)
	}
	atomic.StoreInt32(&s.squelching, 0)
	return nil
}

func (s *TaskScheduler[O]) isSquelching() bool {
	return atomic.LoadInt32(&s.squelching) == 1
}

// execute hands a task to the execution policy. The task has already been
// on-ramped; it off-ramps itself on completion.
func (s *TaskScheduler[O]) execute(task func()) {
	switch s.stype {
	case Direct:
		task()
	case DirectThreadsafe:
		s.mu.Lock()
		task()
		s.mu.Unlock()
	case Sequential, SequentialThread:
		if !s.queue.push(task) {
			// The model has stopped. Balance the counters so flushes and
			// joint domains do not hang.
			s.taskDone()
		}
	case Concurrent:
		pool := s.pool
		if pool == nil {
			pool = s.model.pool
		}
		if !pool.submit(task) {
			s.taskDone()
		}
	}
}

func (s *TaskScheduler[O]) taskDone() {
	s.counter.OffRamp()
	if s.offRampExtra != nil {
		s.offRampExtra.OffRamp()
	}
}

// run is the loop of sequential schedulers, registered with the model at
// build time.
func (s *TaskScheduler[O]) run() {
	if s.stype == SequentialThread {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
	}
	for {
		task, ok := s.queue.pop()
		if !ok {
			return
		}
		task()
	}
}

func defaultPanicHandler(logger *logrus.Entry) PanicHandler {
	return func(scheduler string, cause interface{}) {
		logger.WithField("scheduler", scheduler).Errorf("uncaught panic in task: %v", cause)
	}
}
