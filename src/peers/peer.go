package peers

import (
	"github.com/mosaicnetworks/eventflow/src/common"
)

// Peer is a participant in the consensus network. The ID is computed from the
// public key and cached.
type Peer struct {
	PubKeyHex string `json:"pubKeyHex"`
	Moniker   string `json:"moniker"`
	Weight    int64  `json:"weight"`

	id uint32
}

// NewPeer instantiates a new Peer from a public key and a moniker. The weight
// defaults to 1.
func NewPeer(pubKeyHex, moniker string) *Peer {
	return NewWeightedPeer(pubKeyHex, moniker, 1)
}

// NewWeightedPeer instantiates a new Peer with an explicit consensus weight.
func NewWeightedPeer(pubKeyHex, moniker string, weight int64) *Peer {
	peer := &Peer{
		PubKeyHex: pubKeyHex,
		Moniker:   moniker,
		Weight:    weight,
	}

	return peer
}

// ID returns a 32 bit identifier derived from the peer's public key. The value
// is computed on first use and cached.
func (p *Peer) ID() uint32 {
	if p.id == 0 {
		pubKeyBytes, _ := p.PubKeyBytes()
		p.id = common.Hash32(pubKeyBytes)
	}
	return p.id
}

// PubKeyBytes returns the peer's public key as a byte slice.
func (p *Peer) PubKeyBytes() ([]byte, error) {
	return common.DecodeFromString(p.PubKeyHex)
}
