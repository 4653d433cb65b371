package orphan

import (
	"github.com/sirupsen/logrus"

	"github.com/mosaicnetworks/eventflow/src/event"
)

// orphanedEvent is a buffered event together with the parents it is still
// waiting for.
type orphanedEvent struct {
	event          *event.GossipEvent
	missingParents []event.EventDescriptor
}

func (o *orphanedEvent) removeMissingParent(parent event.EventDescriptor) {
	for i, p := range o.missingParents {
		if p.Hash == parent.Hash {
			o.missingParents = append(o.missingParents[:i], o.missingParents[i+1:]...)
			return
		}
	}
}

// waitingList is the set of orphans waiting on one particular missing parent.
type waitingList struct {
	parent  event.EventDescriptor
	orphans []*orphanedEvent
}

// OrphanBuffer holds events whose parents have not been emitted yet and
// releases them, parents strictly before children, as the missing parents
// arrive or become ancient.
//
// Not safe for concurrent use; the intake pipeline drives it from a single
// sequential scheduler.
type OrphanBuffer struct {
	window event.NonAncientEventWindow

	// parent hash -> orphans waiting on that parent
	missingParentMap map[string]*waitingList

	// hash -> descriptor of emitted, non-ancient events
	emittedEvents map[string]event.EventDescriptor

	currentOrphanCount int

	intakeCounter IntakeEventCounter
	logger        *logrus.Entry
}

// NewOrphanBuffer instantiates an OrphanBuffer. The intakeCounter is notified
// for every event that is dropped instead of emitted.
func NewOrphanBuffer(
	mode event.AncientMode,
	intakeCounter IntakeEventCounter,
	logger *logrus.Entry,
) *OrphanBuffer {

	if logger == nil {
		log := logrus.New()
		log.Level = logrus.DebugLevel
		logger = logrus.NewEntry(log)
	}

	if intakeCounter == nil {
		intakeCounter = NewNoOpIntakeCounter()
	}

	return &OrphanBuffer{
		window:           event.GenesisWindow(mode),
		missingParentMap: make(map[string]*waitingList),
		emittedEvents:    make(map[string]event.EventDescriptor),
		intakeCounter:    intakeCounter,
		logger:           logger,
	}
}

// HandleEvent registers an event. If all of its parents are satisfied it is
// returned immediately, together with any buffered descendants that the
// emission unblocks. Otherwise the event is buffered and an empty slice is
// returned. An event that is already ancient is dropped and reported to the
// intake counter.
func (ob *OrphanBuffer) HandleEvent(e *event.GossipEvent) []*event.GossipEvent {
	if ob.window.IsEventAncient(e) {
		ob.intakeCounter.EventExitedIntakePipeline(e.Body.CreatorID)
		return nil
	}

	ob.currentOrphanCount++

	missing := ob.missingParents(e)
	if len(missing) == 0 {
		return ob.emitNonOrphans(e)
	}

	o := &orphanedEvent{event: e, missingParents: missing}
	for _, p := range missing {
		wl, ok := ob.missingParentMap[p.Hash]
		if !ok {
			wl = &waitingList{parent: p}
			ob.missingParentMap[p.Hash] = wl
		}
		wl.orphans = append(wl.orphans, o)
	}

	return nil
}

// SetNonAncientEventWindow advances the window. Orphans whose missing parents
// are now ancient are released; buffered events that became ancient themselves
// are dropped and reported to the intake counter. Returns the events released
// by the advance.
func (ob *OrphanBuffer) SetNonAncientEventWindow(window event.NonAncientEventWindow) []*event.GossipEvent {
	ob.window = window

	for hash, d := range ob.emittedEvents {
		if window.IsAncient(d) {
			delete(ob.emittedEvents, hash)
		}
	}

	emitted := []*event.GossipEvent{}
	for hash, wl := range ob.missingParentMap {
		if !window.IsAncient(wl.parent) {
			continue
		}
		delete(ob.missingParentMap, hash)
		for _, o := range wl.orphans {
			o.removeMissingParent(wl.parent)
			if len(o.missingParents) == 0 {
				emitted = append(emitted, ob.emitNonOrphans(o.event)...)
			}
		}
	}

	return emitted
}

// CurrentOrphanCount returns the number of buffered events. Observability
// only.
func (ob *OrphanBuffer) CurrentOrphanCount() int {
	return ob.currentOrphanCount
}

// missingParents returns the descriptors of the event's parents that are
// neither ancient nor already emitted. Duplicate parent references are
// collapsed.
func (ob *OrphanBuffer) missingParents(e *event.GossipEvent) []event.EventDescriptor {
	missing := []event.EventDescriptor{}
	seen := map[string]bool{}

	it := e.Parents()
	for p, ok := it.Next(); ok; p, ok = it.Next() {
		if seen[p.Hash] {
			continue
		}
		seen[p.Hash] = true

		if ob.window.IsAncient(p) {
			continue
		}
		if _, emitted := ob.emittedEvents[p.Hash]; emitted {
			continue
		}
		missing = append(missing, p)
	}

	return missing
}

// emitNonOrphans emits the root event and, transitively, every buffered child
// it unblocks. Parents appear strictly before children in the returned slice.
// Events that turn out to be ancient are dropped instead of emitted.
func (ob *OrphanBuffer) emitNonOrphans(root *event.GossipEvent) []*event.GossipEvent {
	emitted := []*event.GossipEvent{}

	queue := []*event.GossipEvent{root}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]

		ob.currentOrphanCount--

		if ob.window.IsEventAncient(next) {
			// the event spent too long in the buffer
			ob.intakeCounter.EventExitedIntakePipeline(next.Body.CreatorID)
			continue
		}

		emitted = append(emitted, next)
		ob.emittedEvents[next.Hex()] = next.Descriptor()

		wl, ok := ob.missingParentMap[next.Hex()]
		if !ok {
			continue
		}
		delete(ob.missingParentMap, next.Hex())

		for _, o := range wl.orphans {
			o.removeMissingParent(wl.parent)
			if len(o.missingParents) == 0 {
				queue = append(queue, o.event)
			}
		}
	}

	return emitted
}
