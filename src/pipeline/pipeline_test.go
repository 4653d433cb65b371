package pipeline

import (
	"crypto/ecdsa"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mosaicnetworks/eventflow/src/config"
	"github.com/mosaicnetworks/eventflow/src/crypto/keys"
	"github.com/mosaicnetworks/eventflow/src/event"
	"github.com/mosaicnetworks/eventflow/src/hashgraph"
	"github.com/mosaicnetworks/eventflow/src/peers"
	"github.com/mosaicnetworks/eventflow/src/signing"
)

func testPeersAndKeys(t *testing.T, n int) (*peers.PeerSet, map[uint32]*ecdsa.PrivateKey) {
	t.Helper()

	ps := []*peers.Peer{}
	byID := map[uint32]*ecdsa.PrivateKey{}
	for i := 0; i < n; i++ {
		key, err := keys.GenerateECDSAKey()
		if err != nil {
			t.Fatal(err)
		}
		peer := peers.NewPeer(keys.PublicKeyHex(&key.PublicKey), fmt.Sprintf("node%d", i))
		ps = append(ps, peer)
		byID[peer.ID()] = key
	}
	return peers.NewPeerSet(ps), byID
}

// buildSignedDag simulates random gossip between the peers: each step one
// creator makes a signed event on top of its own last event and another
// creator's last event. The result is in topological order.
func buildSignedDag(
	t *testing.T,
	ps *peers.PeerSet,
	byID map[uint32]*ecdsa.PrivateKey,
	count int,
	seed int64,
) []*event.GossipEvent {
	t.Helper()

	r := rand.New(rand.NewSource(seed))

	creators := make([]uint32, 0, ps.Len())
	for _, p := range ps.Peers {
		creators = append(creators, p.ID())
	}
	n := len(creators)

	descriptor := func(e *event.GossipEvent) *event.EventDescriptor {
		if e == nil {
			return nil
		}
		d := e.Descriptor()
		return &d
	}

	events := make([]*event.GossipEvent, 0, count)
	last := map[uint32]*event.GossipEvent{}

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
		if err := e.Sign(byID[receiver]); err != nil {
			t.Fatal(err)
		}
		events = append(events, e)
		last[receiver] = e
	}

	return events
}

// jitter swaps random adjacent pairs so some children arrive before their
// parents and the orphan buffer has work to do.
func jitter(events []*event.GossipEvent, seed int64) []*event.GossipEvent {
	r := rand.New(rand.NewSource(seed))
	out := make([]*event.GossipEvent, len(events))
	copy(out, events)
	for i := 0; i+1 < len(out); i += 2 {
		if r.Intn(2) == 0 {
			out[i], out[i+1] = out[i+1], out[i]
		}
	}
	return out
}

func TestPipelineEndToEnd(t *testing.T) {
	peerSet, byID := testPeersAndKeys(t, 4)
	conf := config.NewTestConfig(t)
	conf.IntakeCapacity = 64
	for _, key := range byID {
		conf.Key = key
		break
	}

	var mu sync.Mutex
	var rounds []*hashgraph.ConsensusRound
	var sigs []*signing.StateSignatureTransaction

	p, err := NewPipeline(conf, peerSet,
		func(r *hashgraph.ConsensusRound) {
			mu.Lock()
			rounds = append(rounds, r)
			mu.Unlock()
		},
		func(tx *signing.StateSignatureTransaction) {
			mu.Lock()
			sigs = append(sigs, tx)
			mu.Unlock()
		})
	if err != nil {
		t.Fatal(err)
	}
	p.Start()

	events := buildSignedDag(t, peerSet, byID, 600, 42)
	for _, e := range jitter(events, 43) {
		if err := p.SubmitEvent(e); err != nil {
			t.Fatal(err)
		}
	}

	if err := p.Flush(); err != nil {
		t.Fatal(err)
	}

	// Every submitted event has either reached the engine or been dropped.
	if got := p.InFlightEventCount(); got != 0 {
		t.Fatalf("in-flight events after flush: %d", got)
	}

	lastRound := p.Store().LastRound()

	if err := p.Shutdown(); err != nil {
		t.Fatal(err)
	}

	mu.Lock()
	defer mu.Unlock()

	if len(rounds) == 0 {
		t.Fatal("no rounds reached consensus")
	}
	for i, r := range rounds {
		if r.Round != rounds[0].Round+int64(i) {
			t.Fatalf("round %d out of sequence: got %d", i, r.Round)
		}
		if len(r.Events) == 0 {
			t.Fatalf("round %d has no events", r.Round)
		}
		for j, ce := range r.Events {
			if ce.Order != j {
				t.Fatalf("round %d event %d has order %d", r.Round, j, ce.Order)
			}
		}
	}

	if len(sigs) != len(rounds) {
		t.Fatalf("%d signatures for %d rounds", len(sigs), len(rounds))
	}
	signerPub := keys.PublicKeyHex(&conf.Key.PublicKey)
	for _, tx := range sigs {
		valid, err := tx.Verify(signerPub)
		if err != nil {
			t.Fatal(err)
		}
		if !valid {
			t.Fatalf("invalid state signature for round %d", tx.Round)
		}
	}

	if lastRound != rounds[len(rounds)-1].Round {
		t.Fatalf("store last round %d, consumer saw %d", lastRound, rounds[len(rounds)-1].Round)
	}
}

func TestPipelineRejectsInvalidEvents(t *testing.T) {
	peerSet, byID := testPeersAndKeys(t, 4)
	conf := config.NewTestConfig(t)

	p, err := NewPipeline(conf, peerSet,
		func(r *hashgraph.ConsensusRound) {
			t.Errorf("unexpected consensus round %d", r.Round)
		}, nil)
	if err != nil {
		t.Fatal(err)
	}
	p.Start()
	defer p.Shutdown()

	var creator uint32
	var wrongKey *ecdsa.PrivateKey
	for id, key := range byID {
		if creator == 0 {
			creator = id
		} else if wrongKey == nil {
			wrongKey = key
		}
	}

	// Signed by another peer's key.
	forged := event.NewGossipEvent(creator, nil, nil, event.FirstRound,
		time.Unix(0, 0).UTC(), nil)
	if err := forged.Sign(wrongKey); err != nil {
		t.Fatal(err)
	}

	// Valid signature, but the creator is not in the peer set.
	strangerKey, err := keys.GenerateECDSAKey()
	if err != nil {
		t.Fatal(err)
	}
	strangerID := keys.PublicKeyID(keys.FromPublicKey(&strangerKey.PublicKey))
	stranger := event.NewGossipEvent(strangerID, nil, nil, event.FirstRound,
		time.Unix(0, 0).UTC(), nil)
	if err := stranger.Sign(strangerKey); err != nil {
		t.Fatal(err)
	}

	for _, e := range []*event.GossipEvent{forged, stranger} {
		if err := p.SubmitEvent(e); err != nil {
			t.Fatal(err)
		}
	}
	if err := p.Flush(); err != nil {
		t.Fatal(err)
	}

	if got := p.InFlightEventCount(); got != 0 {
		t.Fatalf("in-flight events after flush: %d", got)
	}
}

func TestPipelineWiringDiagram(t *testing.T) {
	peerSet, _ := testPeersAndKeys(t, 4)
	conf := config.NewTestConfig(t)

	p, err := NewPipeline(conf, peerSet, func(*hashgraph.ConsensusRound) {}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Shutdown()

	diagram := p.GenerateWiringDiagram()
	for _, want := range []string{
		"event_intake",
		"orphan_buffer",
		"event_linker",
		"consensus_engine",
		"window_manager",
		"round_consumer",
		"state_signer",
		"INJECT",
	} {
		if !strings.Contains(diagram, want) {
			t.Fatalf("diagram missing %q:\n%s", want, diagram)
		}
	}
}

func TestPipelineValidation(t *testing.T) {
	peerSet, _ := testPeersAndKeys(t, 4)
	conf := config.NewTestConfig(t)

	if _, err := NewPipeline(nil, peerSet, func(*hashgraph.ConsensusRound) {}, nil); err == nil {
		t.Fatal("nil config was accepted")
	}
	if _, err := NewPipeline(conf, nil, func(*hashgraph.ConsensusRound) {}, nil); err == nil {
		t.Fatal("nil peer set was accepted")
	}
	if _, err := NewPipeline(conf, peerSet, nil, nil); err == nil {
		t.Fatal("nil round consumer was accepted")
	}
}
