package wiring

import (
	"fmt"
	"sync"
)

// WireInserter is the downstream end of a solder point: anything accepting
// objects of type T with the three insertion semantics.
type WireInserter[T any] interface {
	Name() string
	SchedulerName() string

	// Put inserts data, blocking under backpressure.
	Put(data T)

	// Offer inserts data if capacity is available; it never blocks and
	// reports whether the data was accepted.
	Offer(data T) bool

	// Inject inserts data regardless of capacity.
	Inject(data T)
}

// InputWire feeds data of type I into a scheduler whose output type is O.
// Bind a transforming handler or a consumer before inserting data.
type InputWire[I, O any] struct {
	scheduler *TaskScheduler[O]
	name      string
	handler   func(I) O
	consumer  func(I)
	forwards  bool
}

// BuildInputWire attaches a named input wire to a scheduler. This is a
// package-level function because the wire's input type is independent of the
// scheduler's output type.
func BuildInputWire[I, O any](scheduler *TaskScheduler[O], name string) *InputWire[I, O] {
	return &InputWire[I, O]{
		scheduler: scheduler,
		name:      name,
	}
}

// Name implements WireInserter.
func (w *InputWire[I, O]) Name() string {
	return w.name
}

// SchedulerName implements WireInserter.
func (w *InputWire[I, O]) SchedulerName() string {
	return w.scheduler.name
}

// Bind attaches a transforming handler. Each result is forwarded on the
// scheduler's output wire.
func (w *InputWire[I, O]) Bind(handler func(I) O) *InputWire[I, O] {
	w.handler = handler
	w.forwards = true
	return w
}

// BindConsumer attaches a terminal handler. Nothing is forwarded.
func (w *InputWire[I, O]) BindConsumer(consumer func(I)) *InputWire[I, O] {
	w.consumer = consumer
	w.forwards = false
	return w
}

// Put implements WireInserter. It blocks while the scheduler's backpressure
// domain is at capacity.
func (w *InputWire[I, O]) Put(data I) {
	s := w.scheduler
	if s.stype == NoOp {
		return
	}
	s.onRamp.OnRamp()
	s.execute(w.task(data))
}

// Offer implements WireInserter. It never blocks; the return value reports
// whether the data was accepted.
func (w *InputWire[I, O]) Offer(data I) bool {
	s := w.scheduler
	if s.stype == NoOp {
		return true
	}
	if !s.onRamp.AttemptOnRamp() {
		return false
	}
	s.execute(w.task(data))
	return true
}

// Inject implements WireInserter. It bypasses backpressure entirely and is
// reserved for control signals whose dropping would deadlock the pipeline.
func (w *InputWire[I, O]) Inject(data I) {
	s := w.scheduler
	if s.stype == NoOp {
		return
	}
	s.onRamp.ForceOnRamp()
	s.execute(w.task(data))
}

func (w *InputWire[I, O]) task(data I) func() {
	s := w.scheduler
	return func() {
		defer s.taskDone()
		if s.isSquelching() {
			return
		}
		defer func() {
			if r := recover(); r != nil {
				s.panicHandler(s.name, r)
			}
		}()
		switch {
		case w.forwards:
			s.output.forward(w.handler(data))
		case w.consumer != nil:
			w.consumer(data)
		default:
			panic(fmt.Sprintf("input wire %s is not bound", w.name))
		}
	}
}

// OutputWire carries a scheduler's results to the input wires soldered to
// it. Fan-out is in solder order.
type OutputWire[O any] struct {
	model         *WiringModel
	schedulerName string

	mu           sync.Mutex
	destinations []func(O)
}

// SolderTo binds a downstream input wire. The solder type selects the
// insertion semantics used on forward; with SolderOffer, data the
// destination refuses is dropped. Solder before the model starts.
func (w *OutputWire[O]) SolderTo(dest WireInserter[O], solder SolderType) {
	var insert func(O)
	switch solder {
	case SolderPut:
		insert = dest.Put
	case SolderOffer:
		insert = func(data O) { dest.Offer(data) }
	case SolderInject:
		insert = dest.Inject
	}

	w.mu.Lock()
	w.destinations = append(w.destinations, insert)
	w.mu.Unlock()

	w.model.registerEdge(w.schedulerName, dest.SchedulerName(), dest.Name(), solder)
}

func (w *OutputWire[O]) forward(data O) {
	w.mu.Lock()
	destinations := w.destinations
	w.mu.Unlock()

	for _, insert := range destinations {
		insert(data)
	}
}
