package linking

import (
	"github.com/mosaicnetworks/eventflow/src/event"
)

// EventImpl is a gossip event whose parent references have been resolved into
// pointers. A nil parent pointer means the parent is ancient or unavailable.
//
// Only the linker that produced it may mutate an EventImpl, and only to null
// out parent pointers when the parents become ancient.
type EventImpl struct {
	*event.GossipEvent

	SelfParent   *EventImpl
	OtherParents []*EventImpl
}

// AllParents returns the non-nil resolved parents: self-parent first, then
// other-parents in original order.
func (ei *EventImpl) AllParents() []*EventImpl {
	parents := make([]*EventImpl, 0, len(ei.OtherParents)+1)
	if ei.SelfParent != nil {
		parents = append(parents, ei.SelfParent)
	}
	for _, op := range ei.OtherParents {
		if op != nil {
			parents = append(parents, op)
		}
	}
	return parents
}

// clearParent nulls out every pointer to the given parent.
func (ei *EventImpl) clearParent(parent *EventImpl) {
	if ei.SelfParent == parent {
		ei.SelfParent = nil
	}
	for i, op := range ei.OtherParents {
		if op == parent {
			ei.OtherParents[i] = nil
		}
	}
}
