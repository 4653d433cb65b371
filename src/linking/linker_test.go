package linking

import (
	"math/rand"
	"testing"
	"time"

	"github.com/mosaicnetworks/eventflow/src/event"
)

func testEvent(creator uint32, selfParent, otherParent *event.EventDescriptor, seq int) *event.GossipEvent {
	var otherParents []*event.EventDescriptor
	if otherParent != nil {
		otherParents = []*event.EventDescriptor{otherParent}
	}
	return event.NewGossipEvent(
		creator,
		selfParent,
		otherParents,
		event.FirstRound,
		time.Unix(int64(seq), 0).UTC(),
		nil,
	)
}

func descriptorPtr(e *event.GossipEvent) *event.EventDescriptor {
	d := e.Descriptor()
	return &d
}

func TestLinkEventResolvesParents(t *testing.T) {
	linker := NewInOrderLinker(event.GenerationThreshold, nil)

	a := testEvent(1, nil, nil, 0)
	b := testEvent(2, nil, nil, 1)
	c := testEvent(1, descriptorPtr(a), descriptorPtr(b), 2)

	la := linker.LinkEvent(a)
	lb := linker.LinkEvent(b)
	lc := linker.LinkEvent(c)

	if la == nil || lb == nil || lc == nil {
		t.Fatalf("all events should link")
	}

	if lc.SelfParent != la {
		t.Fatalf("self-parent should resolve to the linked parent")
	}
	if len(lc.OtherParents) != 1 || lc.OtherParents[0] != lb {
		t.Fatalf("other-parent should resolve to the linked parent")
	}
}

func TestLinkEventUnknownParent(t *testing.T) {
	linker := NewInOrderLinker(event.GenerationThreshold, nil)

	ghost := &event.EventDescriptor{Hash: "0XDEAD", CreatorID: 9, Generation: 0, BirthRound: 1}
	e := testEvent(1, nil, ghost, 0)

	le := linker.LinkEvent(e)
	if le == nil {
		t.Fatalf("event should link even with an unknown parent")
	}
	if le.OtherParents[0] != nil {
		t.Fatalf("unknown parent should link as nil")
	}
}

func TestLinkEventAncientDropped(t *testing.T) {
	linker := NewInOrderLinker(event.GenerationThreshold, nil)

	linker.SetNonAncientEventWindow(event.NonAncientEventWindow{
		LatestConsensusRound: 1,
		AncientThreshold:     5,
		ExpiredThreshold:     event.FirstGeneration,
		Mode:                 event.GenerationThreshold,
	})

	stale := testEvent(1, nil, nil, 0) // generation 0
	if linker.LinkEvent(stale) != nil {
		t.Fatalf("ancient event should not link")
	}
}

// After a window advance, no retained event may point at an ancient one.
func TestConsensusLinkerUnlinksAncientParents(t *testing.T) {
	const (
		eventCount = 1000
		nodeCount  = 10
	)

	r := rand.New(rand.NewSource(7))
	linker := NewConsensusLinker(event.GenerationThreshold, nil)

	events := make([]*event.GossipEvent, 0, eventCount)
	lastByCreator := map[uint32]*event.GossipEvent{}
	maxGeneration := int64(0)

	window := event.GenesisWindow(event.GenerationThreshold)

	checkNoAncientPointers := func() {
		for _, ei := range linker.index {
			for _, parent := range ei.AllParents() {
				if window.IsAncient(parent.Descriptor()) {
					t.Fatalf("retained event %s points at ancient parent %s",
						ei.Hex(), parent.Hex())
				}
			}
		}
	}

	for i := 0; i < eventCount; i++ {
		creator := uint32(r.Intn(nodeCount)) + 1

		var selfParent *event.EventDescriptor
		if last, ok := lastByCreator[creator]; ok {
			selfParent = descriptorPtr(last)
		}
		var otherParent *event.EventDescriptor
		if len(events) > 0 {
			otherParent = descriptorPtr(events[r.Intn(len(events))])
		}

		e := testEvent(creator, selfParent, otherParent, i)
		events = append(events, e)
		lastByCreator[creator] = e
		if g := e.Body.Generation; g > maxGeneration {
			maxGeneration = g
		}

		linker.LinkEvent(e)

		if (i+1)%100 == 0 {
			window.LatestConsensusRound++
			window.AncientThreshold += int64(r.Intn(5))
			linker.SetNonAncientEventWindow(window)
			checkNoAncientPointers()
		}
	}

	// sweep everything out
	window.LatestConsensusRound++
	window.AncientThreshold = maxGeneration + 1
	linker.SetNonAncientEventWindow(window)

	if n := linker.NonAncientEventCount(); n != 0 {
		t.Fatalf("index should be empty after sweeping, %d events remain", n)
	}
}
