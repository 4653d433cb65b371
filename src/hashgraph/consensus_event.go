package hashgraph

import (
	"time"

	"github.com/mosaicnetworks/eventflow/src/common"
	"github.com/mosaicnetworks/eventflow/src/linking"
)

// coordinate locates one event of one creator by generation. Generations are
// strictly increasing along a creator's self-parent chain, so they double as
// a per-creator sequence number.
type coordinate struct {
	hash       string
	generation int64
}

// consensusEvent is the engine's private wrapper around a linked event. The
// lastAncestors and firstDescendants maps are the classical hashgraph
// coordinates: for each creator, the latest event of that creator in this
// event's ancestry, and the earliest event of that creator in this event's
// descendancy. They make ancestry and strongly-see queries O(1) and
// O(numPeers) respectively.
type consensusEvent struct {
	ei   *linking.EventImpl
	hash string

	creator      uint32
	selfParent   *consensusEvent
	otherParents []*consensusEvent

	lastAncestors    map[uint32]coordinate
	firstDescendants map[uint32]coordinate

	round         int64
	witness       bool
	famous        common.Trilean
	roundReceived int64

	consensusTimestamp time.Time
}

func (ce *consensusEvent) generation() int64 {
	return ce.ei.Body.Generation
}

func (ce *consensusEvent) timeCreated() time.Time {
	return ce.ei.Body.TimeCreated
}

// parents returns the non-nil resolved parents, self-parent first.
func (ce *consensusEvent) parents() []*consensusEvent {
	parents := make([]*consensusEvent, 0, len(ce.otherParents)+1)
	if ce.selfParent != nil {
		parents = append(parents, ce.selfParent)
	}
	for _, op := range ce.otherParents {
		if op != nil {
			parents = append(parents, op)
		}
	}
	return parents
}
