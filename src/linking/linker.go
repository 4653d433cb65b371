package linking

import (
	"github.com/sirupsen/logrus"

	"github.com/mosaicnetworks/eventflow/src/event"
)

// InOrderLinker links events delivered in topological order. It keeps an
// index from event hash to linked event; entries below the ancient threshold
// are evicted when the window advances, but parent pointers on retained
// events are left alone. Use ConsensusLinker when retained events must not
// reference evicted ones.
type InOrderLinker struct {
	window event.NonAncientEventWindow
	index  map[string]*EventImpl
	logger *logrus.Entry
}

// NewInOrderLinker instantiates an InOrderLinker.
func NewInOrderLinker(mode event.AncientMode, logger *logrus.Entry) *InOrderLinker {
	if logger == nil {
		log := logrus.New()
		log.Level = logrus.DebugLevel
		logger = logrus.NewEntry(log)
	}

	return &InOrderLinker{
		window: event.GenesisWindow(mode),
		index:  make(map[string]*EventImpl),
		logger: logger,
	}
}

// LinkEvent resolves the event's parent descriptors and inserts the result
// into the index. Returns nil if the event is already ancient. Parents that
// are ancient or unknown are linked as nil.
func (l *InOrderLinker) LinkEvent(e *event.GossipEvent) *EventImpl {
	ei, ok := l.link(e)
	if !ok {
		return nil
	}
	l.index[e.Hex()] = ei
	return ei
}

// SetNonAncientEventWindow advances the window and evicts ancient index
// entries.
func (l *InOrderLinker) SetNonAncientEventWindow(window event.NonAncientEventWindow) {
	l.window = window
	for hash, ei := range l.index {
		if window.IsAncient(ei.Descriptor()) {
			delete(l.index, hash)
		}
	}
}

// NonAncientEventCount returns the number of indexed events. Observability
// only.
func (l *InOrderLinker) NonAncientEventCount() int {
	return len(l.index)
}

// link builds an EventImpl with resolved parent pointers. The second return
// value is false when the event is ancient and must be dropped.
func (l *InOrderLinker) link(e *event.GossipEvent) (*EventImpl, bool) {
	if l.window.IsEventAncient(e) {
		l.logger.WithField("event", e.Hex()).Debug("Ancient event not linked")
		return nil, false
	}

	ei := &EventImpl{
		GossipEvent:  e,
		SelfParent:   l.resolve(e.SelfParent()),
		OtherParents: make([]*EventImpl, len(e.OtherParents())),
	}
	for i, op := range e.OtherParents() {
		ei.OtherParents[i] = l.resolve(op)
	}

	return ei, true
}

// resolve looks up a parent descriptor in the index. Ancient, unknown, and
// nil descriptors resolve to nil.
func (l *InOrderLinker) resolve(d *event.EventDescriptor) *EventImpl {
	if d == nil || l.window.IsAncient(*d) {
		return nil
	}
	return l.index[d.Hash]
}
