package linking

import (
	"github.com/sirupsen/logrus"

	"github.com/mosaicnetworks/eventflow/src/event"
)

// ConsensusLinker is an InOrderLinker that additionally guarantees that no
// retained event holds a parent pointer to an evicted one. It maintains
// child back-links so that eviction can sever the pointers in O(children).
type ConsensusLinker struct {
	InOrderLinker

	// parent hash -> linked children holding a pointer to the parent
	children map[string][]*EventImpl
}

// NewConsensusLinker instantiates a ConsensusLinker.
func NewConsensusLinker(mode event.AncientMode, logger *logrus.Entry) *ConsensusLinker {
	inner := NewInOrderLinker(mode, logger)
	return &ConsensusLinker{
		InOrderLinker: *inner,
		children:      make(map[string][]*EventImpl),
	}
}

// LinkEvent resolves the event's parents and records child back-links for
// every resolved pointer.
func (l *ConsensusLinker) LinkEvent(e *event.GossipEvent) *EventImpl {
	ei, ok := l.link(e)
	if !ok {
		return nil
	}
	l.index[e.Hex()] = ei

	for _, parent := range ei.AllParents() {
		l.children[parent.Hex()] = append(l.children[parent.Hex()], ei)
	}

	return ei
}

// SetNonAncientEventWindow advances the window, evicts ancient index entries,
// and nulls out parent pointers on retained children of evicted events.
func (l *ConsensusLinker) SetNonAncientEventWindow(window event.NonAncientEventWindow) {
	l.window = window

	for hash, ei := range l.index {
		if !window.IsAncient(ei.Descriptor()) {
			continue
		}
		delete(l.index, hash)

		for _, child := range l.children[hash] {
			child.clearParent(ei)
		}
		delete(l.children, hash)
	}
}
