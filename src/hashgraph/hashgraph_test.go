package hashgraph

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/mosaicnetworks/eventflow/src/common"
	"github.com/mosaicnetworks/eventflow/src/event"
	"github.com/mosaicnetworks/eventflow/src/linking"
	"github.com/mosaicnetworks/eventflow/src/peers"
)

func testPeerSet(n int) *peers.PeerSet {
	ps := []*peers.Peer{}
	for i := 0; i < n; i++ {
		pub := fmt.Sprintf("0X%064X", i+1)
		ps = append(ps, peers.NewPeer(pub, fmt.Sprintf("node%d", i)))
	}
	return peers.NewPeerSet(ps)
}

func testParams() Params {
	return Params{
		CoinRoundFreq:    4,
		AncientRoundSpan: 5,
		ExpiredRoundSpan: 5,
	}
}

// buildGossipDag simulates random gossip between n creators: each step one
// creator makes an event on top of its own last event and another creator's
// last event. The result is in topological order.
func buildGossipDag(n, count int, seed int64) []*event.GossipEvent {
	r := rand.New(rand.NewSource(seed))
	ps := testPeerSet(n)

	creators := make([]uint32, 0, n)
	for _, p := range ps.Peers {
		creators = append(creators, p.ID())
	}

	events := make([]*event.GossipEvent, 0, count)
	last := map[uint32]*event.GossipEvent{}

	descriptor := func(e *event.GossipEvent) *event.EventDescriptor {
		if e == nil {
			return nil
		}
		d := e.Descriptor()
		return &d
	}

	for i := 0; i < count; i++ {
		receiver := creators[r.Intn(n)]
		sender := creators[r.Intn(n)]
		for sender == receiver {
			sender = creators[r.Intn(n)]
		}

		var otherParents []*event.EventDescriptor
		if op := descriptor(last[sender]); op != nil {
			otherParents = []*event.EventDescriptor{op}
		}

		e := event.NewGossipEvent(
			receiver,
			descriptor(last[receiver]),
			otherParents,
			event.FirstRound,
			time.Unix(int64(i), 0).UTC(),
			[][]byte{[]byte(fmt.Sprintf("tx%d", i))},
		)
		events = append(events, e)
		last[receiver] = e
	}

	return events
}

// topologicalShuffle reorders events randomly while keeping every event after
// its parents.
func topologicalShuffle(events []*event.GossipEvent, seed int64) []*event.GossipEvent {
	r := rand.New(rand.NewSource(seed))

	slots := make(map[string]int, len(events))
	order := make([]*event.GossipEvent, len(events))
	copy(order, events)
	// keep the shuffle distance small relative to the ancient window so no
	// event becomes ancient in one order but not the other
	for i, e := range order {
		slots[e.Hex()] = i + r.Intn(10)
	}

	placed := map[string]bool{}
	out := make([]*event.GossipEvent, 0, len(events))
	pending := order

	for len(pending) > 0 {
		// pick the ready event with the smallest slot
		best := -1
		for i, e := range pending {
			ready := true
			it := e.Parents()
			for p, ok := it.Next(); ok; p, ok = it.Next() {
				if !placed[p.Hash] {
					ready = false
					break
				}
			}
			if !ready {
				continue
			}
			if best == -1 || slots[e.Hex()] < slots[pending[best].Hex()] {
				best = i
			}
		}

		e := pending[best]
		out = append(out, e)
		placed[e.Hex()] = true
		pending = append(pending[:best], pending[best+1:]...)
	}

	return out
}

// runEngine links and inserts events into a fresh engine, returning every
// emitted round.
func runEngine(t *testing.T, ps *peers.PeerSet, events []*event.GossipEvent) []*ConsensusRound {
	t.Helper()

	linker := linking.NewInOrderLinker(event.GenerationThreshold, common.NewTestEntry(t))
	h := NewHashgraph(ps, NewInmemRoundStore(100), event.GenerationThreshold, testParams(), common.NewTestEntry(t))

	out := []*ConsensusRound{}
	for _, e := range events {
		ei := linker.LinkEvent(e)
		if ei == nil {
			continue
		}
		rounds, err := h.AddEvent(ei)
		if err != nil {
			t.Fatalf("AddEvent: %v", err)
		}
		out = append(out, rounds...)
	}
	return out
}

func TestHashgraphRoundProgression(t *testing.T) {
	ps := testPeerSet(4)
	events := buildGossipDag(4, 500, 11)

	rounds := runEngine(t, ps, events)

	if len(rounds) == 0 {
		t.Fatalf("consensus should have been reached")
	}

	expected := event.FirstRound
	total := 0
	for _, cr := range rounds {
		if cr.Round != expected {
			t.Fatalf("rounds should be emitted in order; want %d got %d", expected, cr.Round)
		}
		expected++

		if len(cr.JudgeHashes) == 0 {
			t.Fatalf("round %d has no judges", cr.Round)
		}

		for i, ce := range cr.Events {
			if ce.Order != i {
				t.Fatalf("round %d event %d has order %d", cr.Round, i, ce.Order)
			}
			if ce.RoundReceived != cr.Round {
				t.Fatalf("round %d contains event received in round %d", cr.Round, ce.RoundReceived)
			}
			if i > 0 && ce.ConsensusTimestamp.Before(cr.Events[i-1].ConsensusTimestamp) {
				t.Fatalf("round %d events not sorted by consensus timestamp", cr.Round)
			}
		}
		total += len(cr.Events)
	}

	if total == 0 {
		t.Fatalf("no event reached consensus")
	}
}

// The ancient threshold never decreases.
func TestHashgraphWindowMonotonicity(t *testing.T) {
	ps := testPeerSet(4)
	events := buildGossipDag(4, 800, 23)

	rounds := runEngine(t, ps, events)

	prev := event.GenesisWindow(event.GenerationThreshold)
	advanced := false
	for _, cr := range rounds {
		if cr.Window.AncientThreshold < prev.AncientThreshold {
			t.Fatalf("ancient threshold decreased: %d -> %d", prev.AncientThreshold, cr.Window.AncientThreshold)
		}
		if cr.Window.ExpiredThreshold > cr.Window.AncientThreshold {
			t.Fatalf("expired threshold above ancient threshold")
		}
		if cr.Window.AncientThreshold > prev.AncientThreshold {
			advanced = true
		}
		prev = cr.Window
	}
	if !advanced {
		t.Fatalf("ancient threshold never advanced over %d rounds", len(rounds))
	}
}

// Two engines fed the same events in different topological orders must emit
// identical consensus rounds.
func TestHashgraphDeterminism(t *testing.T) {
	ps := testPeerSet(4)
	events := buildGossipDag(4, 600, 31)

	roundsA := runEngine(t, ps, events)
	roundsB := runEngine(t, ps, topologicalShuffle(events, 77))

	// the engines may have progressed unevenly at the tail end
	n := len(roundsA)
	if len(roundsB) < n {
		n = len(roundsB)
	}
	if n == 0 {
		t.Fatalf("no common rounds to compare")
	}

	for i := 0; i < n; i++ {
		if roundsA[i].Hex() != roundsB[i].Hex() {
			t.Fatalf("round %d differs between insertion orders", roundsA[i].Round)
		}
	}
}

// No event may appear in more than one consensus round.
func TestHashgraphFinality(t *testing.T) {
	ps := testPeerSet(4)
	events := buildGossipDag(4, 500, 47)

	rounds := runEngine(t, ps, events)

	seen := map[string]int64{}
	for _, cr := range rounds {
		for _, ce := range cr.Events {
			if r, ok := seen[ce.Hash]; ok {
				t.Fatalf("event committed in rounds %d and %d", r, cr.Round)
			}
			seen[ce.Hash] = cr.Round
		}
	}
}

func TestHashgraphFirstEventsAreWitnesses(t *testing.T) {
	ps := testPeerSet(3)
	linker := linking.NewInOrderLinker(event.GenerationThreshold, nil)
	h := NewHashgraph(ps, nil, event.GenerationThreshold, testParams(), common.NewTestEntry(t))

	e := event.NewGossipEvent(ps.Peers[0].ID(), nil, nil, event.FirstRound, time.Now(), nil)
	if _, err := h.AddEvent(linker.LinkEvent(e)); err != nil {
		t.Fatal(err)
	}

	ce := h.events[e.Hex()]
	if ce == nil {
		t.Fatalf("event should be inserted")
	}
	if ce.round != event.FirstRound {
		t.Fatalf("first event should be in round %d, not %d", event.FirstRound, ce.round)
	}
	if !ce.witness {
		t.Fatalf("first event of a creator should be a witness")
	}
}

func TestHashgraphDuplicateEvent(t *testing.T) {
	ps := testPeerSet(3)
	linker := linking.NewInOrderLinker(event.GenerationThreshold, nil)
	h := NewHashgraph(ps, nil, event.GenerationThreshold, testParams(), common.NewTestEntry(t))

	e := event.NewGossipEvent(ps.Peers[0].ID(), nil, nil, event.FirstRound, time.Now(), nil)
	ei := linker.LinkEvent(e)

	if _, err := h.AddEvent(ei); err != nil {
		t.Fatal(err)
	}
	_, err := h.AddEvent(ei)
	if err == nil {
		t.Fatalf("duplicate insertion should fail")
	}
	if !common.Is(err, common.KeyAlreadyExists) {
		t.Fatalf("error should be KeyAlreadyExists, got %v", err)
	}
}
