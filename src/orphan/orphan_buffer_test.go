package orphan

import (
	"fmt"
	"math/rand"
	"sort"
	"testing"
	"time"

	"github.com/mosaicnetworks/eventflow/src/event"
)

type countingIntake struct {
	exited int
}

func (c *countingIntake) EventEnteredIntakePipeline(uint32) {}
func (c *countingIntake) EventExitedIntakePipeline(uint32)  { c.exited++ }

func newTestEvent(creator uint32, selfParent, otherParent *event.EventDescriptor, seq int) *event.GossipEvent {
	return event.NewGossipEvent(
		creator,
		selfParent,
		[]*event.EventDescriptor{otherParent},
		event.FirstRound,
		time.Unix(int64(seq), 0).UTC(),
		[][]byte{[]byte(fmt.Sprintf("tx%d", seq))},
	)
}

func descriptorPtr(e *event.GossipEvent) *event.EventDescriptor {
	d := e.Descriptor()
	return &d
}

// Three generations delivered child first. Nothing comes out until the
// grandparent arrives, then everything comes out in topological order.
func TestOrphanBufferTopologicalRelease(t *testing.T) {
	counter := &countingIntake{}
	ob := NewOrphanBuffer(event.GenerationThreshold, counter, nil)

	grandparent := newTestEvent(1, nil, nil, 0)
	parent := newTestEvent(1, descriptorPtr(grandparent), nil, 1)
	child := newTestEvent(1, descriptorPtr(parent), nil, 2)

	if out := ob.HandleEvent(child); len(out) != 0 {
		t.Fatalf("child should be buffered, got %d events", len(out))
	}
	if out := ob.HandleEvent(parent); len(out) != 0 {
		t.Fatalf("parent should be buffered, got %d events", len(out))
	}
	if c := ob.CurrentOrphanCount(); c != 2 {
		t.Fatalf("orphan count should be 2, not %d", c)
	}

	out := ob.HandleEvent(grandparent)
	if len(out) != 3 {
		t.Fatalf("grandparent arrival should release 3 events, got %d", len(out))
	}
	expected := []string{grandparent.Hex(), parent.Hex(), child.Hex()}
	for i, e := range out {
		if e.Hex() != expected[i] {
			t.Fatalf("event %d out of order", i)
		}
	}

	if c := ob.CurrentOrphanCount(); c != 0 {
		t.Fatalf("orphan count should be 0, not %d", c)
	}
	if counter.exited != 0 {
		t.Fatalf("no event should have exited the pipeline")
	}
}

// An orphan whose missing parent never arrives is released when the parent
// becomes ancient.
func TestOrphanBufferAncientParentSatisfies(t *testing.T) {
	counter := &countingIntake{}
	ob := NewOrphanBuffer(event.GenerationThreshold, counter, nil)

	missingParent := &event.EventDescriptor{Hash: "0XDEAD", CreatorID: 2, Generation: 0, BirthRound: 1}

	// give the child a high generation so it survives the window advance
	selfParent := &event.EventDescriptor{Hash: "0XBEEF", CreatorID: 1, Generation: 9, BirthRound: 1}
	child := event.NewGossipEvent(1, selfParent, []*event.EventDescriptor{missingParent}, event.FirstRound, time.Now(), nil)

	// the child waits on both of its parents
	if out := ob.HandleEvent(child); len(out) != 0 {
		t.Fatalf("child should be buffered")
	}

	// advance the window past both missing parents but not past the child
	window := event.NonAncientEventWindow{
		LatestConsensusRound: 1,
		AncientThreshold:     10,
		ExpiredThreshold:     event.FirstGeneration,
		Mode:                 event.GenerationThreshold,
	}
	out := ob.SetNonAncientEventWindow(window)
	if len(out) != 1 || out[0].Hex() != child.Hex() {
		t.Fatalf("child should be released once its missing parents are ancient")
	}
	if counter.exited != 0 {
		t.Fatalf("no event should have exited the pipeline")
	}
}

// An event that is ancient on arrival is dropped and counted.
func TestOrphanBufferAncientOnArrival(t *testing.T) {
	counter := &countingIntake{}
	ob := NewOrphanBuffer(event.GenerationThreshold, counter, nil)

	window := event.NonAncientEventWindow{
		LatestConsensusRound: 1,
		AncientThreshold:     5,
		ExpiredThreshold:     event.FirstGeneration,
		Mode:                 event.GenerationThreshold,
	}
	ob.SetNonAncientEventWindow(window)

	stale := newTestEvent(1, nil, nil, 0) // generation 0
	if out := ob.HandleEvent(stale); len(out) != 0 {
		t.Fatalf("ancient event should not be emitted")
	}
	if counter.exited != 1 {
		t.Fatalf("ancient event should be counted as exited, got %d", counter.exited)
	}
	if c := ob.CurrentOrphanCount(); c != 0 {
		t.Fatalf("ancient event should not be buffered")
	}
}

// Feed 10,000 events with random DAG structure, delivered out of order, while
// the ancient window advances pseudo-randomly. Every event must come out
// exactly once or be counted as exited, emission must be topological, and the
// buffer must be empty at the end.
func TestOrphanBufferRandomDag(t *testing.T) {
	const (
		eventCount    = 10000
		nodeCount     = 100
		parentWindow  = 100
		shuffleWindow = 50
		advanceEvery  = 100
		maxGenStep    = 10
	)

	r := rand.New(rand.NewSource(42))

	// build the DAG in topological order
	events := make([]*event.GossipEvent, 0, eventCount)
	lastByCreator := map[uint32]*event.GossipEvent{}
	maxGeneration := int64(0)

	for i := 0; i < eventCount; i++ {
		creator := uint32(r.Intn(nodeCount)) + 1

		var selfParent *event.EventDescriptor
		if last, ok := lastByCreator[creator]; ok {
			selfParent = descriptorPtr(last)
		}

		var otherParent *event.EventDescriptor
		if len(events) > 0 {
			low := len(events) - parentWindow
			if low < 0 {
				low = 0
			}
			otherParent = descriptorPtr(events[low+r.Intn(len(events)-low)])
		}

		e := newTestEvent(creator, selfParent, otherParent, i)
		events = append(events, e)
		lastByCreator[creator] = e

		if g := e.Body.Generation; g > maxGeneration {
			maxGeneration = g
		}
	}

	// deliver out of order within a bounded shuffle window
	type delivery struct {
		e    *event.GossipEvent
		slot int
	}
	deliveries := make([]delivery, eventCount)
	for i, e := range events {
		deliveries[i] = delivery{e: e, slot: i + r.Intn(shuffleWindow)}
	}
	sort.SliceStable(deliveries, func(i, j int) bool {
		return deliveries[i].slot < deliveries[j].slot
	})

	counter := &countingIntake{}
	ob := NewOrphanBuffer(event.GenerationThreshold, counter, nil)

	window := event.GenesisWindow(event.GenerationThreshold)
	emitted := map[string]bool{}

	checkBatch := func(batch []*event.GossipEvent) {
		for _, e := range batch {
			if emitted[e.Hex()] {
				t.Fatalf("event emitted twice")
			}
			it := e.Parents()
			for p, ok := it.Next(); ok; p, ok = it.Next() {
				if !window.IsAncient(p) && !emitted[p.Hash] {
					t.Fatalf("event emitted before parent")
				}
			}
			emitted[e.Hex()] = true
		}
	}

	for i, d := range deliveries {
		checkBatch(ob.HandleEvent(d.e))

		if (i+1)%advanceEvery == 0 {
			window.LatestConsensusRound++
			window.AncientThreshold += int64(r.Intn(maxGenStep))
			checkBatch(ob.SetNonAncientEventWindow(window))
		}
	}

	// flush: make everything ancient
	window.LatestConsensusRound++
	window.AncientThreshold = maxGeneration + 1
	checkBatch(ob.SetNonAncientEventWindow(window))

	if c := ob.CurrentOrphanCount(); c != 0 {
		t.Fatalf("orphan count should be 0 at the end, not %d", c)
	}

	if got := counter.exited + len(emitted); got != eventCount {
		t.Fatalf("exited (%d) + emitted (%d) should equal %d", counter.exited, len(emitted), eventCount)
	}
}
