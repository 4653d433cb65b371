package peers

import (
	"testing"

	"github.com/mosaicnetworks/eventflow/src/crypto/keys"
)

func newTestPeers(t *testing.T, weights []int64) []*Peer {
	peers := []*Peer{}
	for i, w := range weights {
		key, err := keys.GenerateECDSAKey()
		if err != nil {
			t.Fatal(err)
		}
		peers = append(peers, NewWeightedPeer(
			keys.PublicKeyHex(&key.PublicKey),
			string(rune('A'+i)),
			w,
		))
	}
	return peers
}

func TestPeerSetWeights(t *testing.T) {
	peerSet := NewPeerSet(newTestPeers(t, []int64{1, 1, 1, 1}))

	if tw := peerSet.TotalWeight(); tw != 4 {
		t.Fatalf("TotalWeight should be 4, not %d", tw)
	}

	if sm := peerSet.SuperMajority(); sm != 3 {
		t.Fatalf("SuperMajority should be 3, not %d", sm)
	}

	weighted := NewPeerSet(newTestPeers(t, []int64{10, 1, 1}))

	if tw := weighted.TotalWeight(); tw != 12 {
		t.Fatalf("TotalWeight should be 12, not %d", tw)
	}

	if sm := weighted.SuperMajority(); sm != 9 {
		t.Fatalf("SuperMajority should be 9, not %d", sm)
	}
}

func TestPeerSetHashDeterminism(t *testing.T) {
	peers := newTestPeers(t, []int64{1, 1, 1})

	a := NewPeerSet(peers)

	// same peers, different order
	shuffled := []*Peer{peers[2], peers[0], peers[1]}
	b := NewPeerSet(shuffled)

	if a.Hex() != b.Hex() {
		t.Fatalf("PeerSet hash should not depend on input order")
	}
}

func TestPeerSetMembership(t *testing.T) {
	peers := newTestPeers(t, []int64{1, 1, 1})
	peerSet := NewPeerSet(peers[:2])

	if peerSet.Len() != 2 {
		t.Fatalf("Len should be 2, not %d", peerSet.Len())
	}

	augmented := peerSet.WithNewPeer(peers[2])
	if augmented.Len() != 3 {
		t.Fatalf("augmented Len should be 3, not %d", augmented.Len())
	}

	// adding an existing peer is a no-op
	same := augmented.WithNewPeer(peers[0])
	if same.Len() != 3 {
		t.Fatalf("re-adding a peer should not grow the set")
	}

	reduced := augmented.WithRemovedPeer(peers[1])
	if reduced.Len() != 2 {
		t.Fatalf("reduced Len should be 2, not %d", reduced.Len())
	}
	if _, ok := reduced.ByPubKey[peers[1].PubKeyHex]; ok {
		t.Fatalf("removed peer should not be in the set")
	}
}

func TestPeerSetMarshal(t *testing.T) {
	peerSet := NewPeerSet(newTestPeers(t, []int64{1, 2, 3}))

	raw, err := peerSet.Marshal()
	if err != nil {
		t.Fatal(err)
	}

	decoded, err := NewPeerSetFromPeerSliceBytes(raw)
	if err != nil {
		t.Fatal(err)
	}

	if decoded.Hex() != peerSet.Hex() {
		t.Fatalf("decoded PeerSet hash does not match")
	}

	if decoded.TotalWeight() != peerSet.TotalWeight() {
		t.Fatalf("decoded PeerSet weight does not match")
	}
}
