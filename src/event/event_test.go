package event

import (
	"testing"
	"time"

	"github.com/mosaicnetworks/eventflow/src/crypto/keys"
)

func testDescriptor(hash string, creator uint32, generation int64) *EventDescriptor {
	return &EventDescriptor{
		Hash:       hash,
		CreatorID:  creator,
		Generation: generation,
		BirthRound: FirstRound,
	}
}

func TestEventHashDeterminism(t *testing.T) {
	timeCreated := time.Unix(1000, 0).UTC()

	sp := testDescriptor("0XAA", 1, 3)
	op := testDescriptor("0XBB", 2, 5)

	a := NewGossipEvent(1, sp, []*EventDescriptor{op}, FirstRound, timeCreated, [][]byte{[]byte("tx1")})
	b := NewGossipEvent(1, sp, []*EventDescriptor{op}, FirstRound, timeCreated, [][]byte{[]byte("tx1")})

	if a.Hex() != b.Hex() {
		t.Fatalf("identical bodies should hash identically")
	}

	c := NewGossipEvent(1, sp, []*EventDescriptor{op}, FirstRound, timeCreated, [][]byte{[]byte("tx2")})
	if a.Hex() == c.Hex() {
		t.Fatalf("different payloads should hash differently")
	}
}

func TestEventGeneration(t *testing.T) {
	timeCreated := time.Now()

	first := NewGossipEvent(1, nil, nil, FirstRound, timeCreated, nil)
	if g := first.Body.Generation; g != FirstGeneration {
		t.Fatalf("first event generation should be %d, not %d", FirstGeneration, g)
	}

	sp := testDescriptor("0XAA", 1, 3)
	op := testDescriptor("0XBB", 2, 7)

	child := NewGossipEvent(1, sp, []*EventDescriptor{op}, FirstRound, timeCreated, nil)
	if g := child.Body.Generation; g != 8 {
		t.Fatalf("generation should be max parent generation + 1 = 8, not %d", g)
	}
}

func TestEventDescriptor(t *testing.T) {
	e := NewGossipEvent(42, testDescriptor("0XAA", 42, 1), nil, 9, time.Now(), nil)

	d := e.Descriptor()

	if d.Hash != e.Hex() {
		t.Fatalf("descriptor hash should match event hash")
	}
	if d.CreatorID != 42 {
		t.Fatalf("descriptor creator should be 42, not %d", d.CreatorID)
	}
	if d.Generation != 2 {
		t.Fatalf("descriptor generation should be 2, not %d", d.Generation)
	}
	if d.BirthRound != 9 {
		t.Fatalf("descriptor birth round should be 9, not %d", d.BirthRound)
	}
}

// Parent iteration order: self-parent first when present, then other-parents
// in original order; nil entries are never produced.
func TestParentIterator(t *testing.T) {
	sp := testDescriptor("0XAA", 1, 1)
	op1 := testDescriptor("0XBB", 2, 1)
	op2 := testDescriptor("0XCC", 3, 1)

	e := NewGossipEvent(1, sp, []*EventDescriptor{op1, nil, op2}, FirstRound, time.Now(), nil)

	expected := []string{"0XAA", "0XBB", "0XCC"}

	it := e.Parents()
	for i, exp := range expected {
		d, ok := it.Next()
		if !ok {
			t.Fatalf("iterator exhausted at position %d", i)
		}
		if d.Hash != exp {
			t.Fatalf("parent %d should be %s, not %s", i, exp, d.Hash)
		}
	}
	if _, ok := it.Next(); ok {
		t.Fatalf("iterator should be exhausted")
	}

	// no self-parent: other-parents only
	orphanish := NewGossipEvent(1, nil, []*EventDescriptor{op1}, FirstRound, time.Now(), nil)
	it = orphanish.Parents()
	d, ok := it.Next()
	if !ok || d.Hash != "0XBB" {
		t.Fatalf("expected single parent 0XBB")
	}
	if _, ok := it.Next(); ok {
		t.Fatalf("iterator should be exhausted")
	}
}

func TestEventSignVerify(t *testing.T) {
	key, err := keys.GenerateECDSAKey()
	if err != nil {
		t.Fatal(err)
	}

	e := NewGossipEvent(1, nil, nil, FirstRound, time.Now(), [][]byte{[]byte("tx")})

	if err := e.Sign(key); err != nil {
		t.Fatal(err)
	}

	ok, err := e.Verify(keys.PublicKeyHex(&key.PublicKey))
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatalf("signature should verify")
	}

	otherKey, err := keys.GenerateECDSAKey()
	if err != nil {
		t.Fatal(err)
	}

	ok, err = e.Verify(keys.PublicKeyHex(&otherKey.PublicKey))
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatalf("signature should not verify with another key")
	}
}
