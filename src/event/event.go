package event

import (
	"crypto/ecdsa"
	"fmt"
	"time"

	"github.com/mosaicnetworks/eventflow/src/common"
	"github.com/mosaicnetworks/eventflow/src/crypto"
	"github.com/mosaicnetworks/eventflow/src/crypto/keys"
)

// HashedData is the part of a gossip event that is covered by the event hash
// and hence by the creator's signature.
type HashedData struct {
	CreatorID    uint32             `json:"creatorId"`
	SelfParent   *EventDescriptor   `json:"selfParent"`
	OtherParents []*EventDescriptor `json:"otherParents"`
	Generation   int64              `json:"generation"`
	BirthRound   int64              `json:"birthRound"`
	TimeCreated  time.Time          `json:"timeCreated"`
	Transactions [][]byte           `json:"transactions"`
}

// UnhashedData is the part of a gossip event excluded from the hash; it can
// only be produced after the hash is known.
type UnhashedData struct {
	Signature string `json:"signature"`
}

// GossipEvent is an event as delivered by the gossip layer. It is immutable
// once hashed; the hash and descriptor are computed lazily and cached.
type GossipEvent struct {
	Body      HashedData
	Signature string

	hash       []byte
	hex        string
	descriptor *EventDescriptor
}

// NewGossipEvent creates an event from its hashed data. Generation is derived
// from the parents: max parent generation + 1, or FirstGeneration when there
// are no parents.
func NewGossipEvent(
	creatorID uint32,
	selfParent *EventDescriptor,
	otherParents []*EventDescriptor,
	birthRound int64,
	timeCreated time.Time,
	transactions [][]byte,
) *GossipEvent {

	generation := FirstGeneration
	if selfParent != nil && selfParent.Generation+1 > generation {
		generation = selfParent.Generation + 1
	}
	for _, op := range otherParents {
		if op != nil && op.Generation+1 > generation {
			generation = op.Generation + 1
		}
	}

	return &GossipEvent{
		Body: HashedData{
			CreatorID:    creatorID,
			SelfParent:   selfParent,
			OtherParents: otherParents,
			Generation:   generation,
			BirthRound:   birthRound,
			TimeCreated:  timeCreated,
			Transactions: transactions,
		},
	}
}

// Hash returns the SHA256 hash of the canonical JSON encoding of the event's
// hashed data.
func (e *GossipEvent) Hash() ([]byte, error) {
	if len(e.hash) == 0 {
		hash, err := crypto.HashStruct(e.Body)
		if err != nil {
			return nil, err
		}
		e.hash = hash
	}
	return e.hash, nil
}

// Hex returns the hexadecimal string representation of the event's hash.
func (e *GossipEvent) Hex() string {
	if e.hex == "" {
		hash, _ := e.Hash()
		e.hex = common.EncodeToString(hash)
	}
	return e.hex
}

// Descriptor returns the event's own descriptor.
func (e *GossipEvent) Descriptor() EventDescriptor {
	if e.descriptor == nil {
		e.descriptor = &EventDescriptor{
			Hash:       e.Hex(),
			CreatorID:  e.Body.CreatorID,
			Generation: e.Body.Generation,
			BirthRound: e.Body.BirthRound,
		}
	}
	return *e.descriptor
}

// AncientIndicator returns the event's generation or birth round depending on
// the mode.
func (e *GossipEvent) AncientIndicator(mode AncientMode) int64 {
	return mode.SelectIndicator(e.Body.Generation, e.Body.BirthRound)
}

// SelfParent returns the event's self-parent descriptor, or nil for a first
// event.
func (e *GossipEvent) SelfParent() *EventDescriptor {
	return e.Body.SelfParent
}

// OtherParents returns the event's other-parent descriptors; entries may be
// nil.
func (e *GossipEvent) OtherParents() []*EventDescriptor {
	return e.Body.OtherParents
}

// Sign signs the event's hash with the creator's private key and stores the
// encoded signature on the event.
func (e *GossipEvent) Sign(privKey *ecdsa.PrivateKey) error {
	hash, err := e.Hash()
	if err != nil {
		return err
	}

	r, s, err := keys.Sign(privKey, hash)
	if err != nil {
		return err
	}

	e.Signature = keys.EncodeSignature(r, s)

	return nil
}

// Parents returns an iterator over the event's non-nil parents: the
// self-parent first (when present), then each other-parent in original order.
// Nil entries are not produced. The iterator is finite and non-restartable.
func (e *GossipEvent) Parents() *ParentIterator {
	return newParentIterator(e.Body.SelfParent, e.Body.OtherParents)
}

// Verify checks the event's signature against the creator's public key, given
// in the hexadecimal format used by peers.Peer.
func (e *GossipEvent) Verify(pubKeyHex string) (bool, error) {
	pubBytes, err := common.DecodeFromString(pubKeyHex)
	if err != nil {
		return false, err
	}
	pubKey := keys.ToPublicKey(pubBytes)
	if pubKey == nil || pubKey.X == nil {
		return false, fmt.Errorf("invalid public key")
	}

	hash, err := e.Hash()
	if err != nil {
		return false, err
	}

	r, s, err := keys.DecodeSignature(e.Signature)
	if err != nil {
		return false, err
	}

	return keys.Verify(pubKey, hash, r, s), nil
}
