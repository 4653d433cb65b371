package shadowgraph

import (
	"github.com/mosaicnetworks/eventflow/src/event"
	"github.com/mosaicnetworks/eventflow/src/linking"
)

// ShadowEvent wraps a linked event with adjacency links for traversal. The
// links are owned by the graph; they are severed when the shadow expires.
type ShadowEvent struct {
	event *linking.EventImpl

	selfParent   *ShadowEvent
	otherParents []*ShadowEvent
	children     []*ShadowEvent
}

// Event returns the wrapped linked event.
func (s *ShadowEvent) Event() *linking.EventImpl {
	return s.event
}

// Hash returns the wrapped event's hash.
func (s *ShadowEvent) Hash() string {
	return s.event.Hex()
}

// Descriptor returns the wrapped event's descriptor.
func (s *ShadowEvent) Descriptor() event.EventDescriptor {
	return s.event.Descriptor()
}

// SelfParent returns the self-parent shadow, or nil.
func (s *ShadowEvent) SelfParent() *ShadowEvent {
	return s.selfParent
}

// Parents returns the non-nil parent shadows, self-parent first.
func (s *ShadowEvent) Parents() []*ShadowEvent {
	parents := make([]*ShadowEvent, 0, len(s.otherParents)+1)
	if s.selfParent != nil {
		parents = append(parents, s.selfParent)
	}
	for _, op := range s.otherParents {
		if op != nil {
			parents = append(parents, op)
		}
	}
	return parents
}

// Children returns the shadows holding this shadow as a parent.
func (s *ShadowEvent) Children() []*ShadowEvent {
	return s.children
}

// hasSelfChild reports whether any child is a self-child, ie. an event by the
// same creator. Used for tip tracking.
func (s *ShadowEvent) hasSelfChild() bool {
	for _, c := range s.children {
		if c.selfParent == s {
			return true
		}
	}
	return false
}

// disconnect severs every link between this shadow and its neighbours.
func (s *ShadowEvent) disconnect() {
	for _, c := range s.children {
		if c.selfParent == s {
			c.selfParent = nil
		}
		for i, op := range c.otherParents {
			if op == s {
				c.otherParents[i] = nil
			}
		}
	}
	for _, p := range s.Parents() {
		p.removeChild(s)
	}
	s.selfParent = nil
	s.otherParents = nil
	s.children = nil
}

func (s *ShadowEvent) removeChild(child *ShadowEvent) {
	for i, c := range s.children {
		if c == child {
			s.children = append(s.children[:i], s.children[i+1:]...)
			return
		}
	}
}
