package hashgraph

import (
	"time"

	"github.com/mosaicnetworks/eventflow/src/common"
	"github.com/mosaicnetworks/eventflow/src/crypto"
	"github.com/mosaicnetworks/eventflow/src/event"
)

// CommittedEvent is one event with its final consensus position.
type CommittedEvent struct {
	Hash               string    `json:"hash"`
	CreatorID          uint32    `json:"creatorId"`
	Order              int       `json:"order"`
	RoundReceived      int64     `json:"roundReceived"`
	ConsensusTimestamp time.Time `json:"consensusTimestamp"`
	TimeCreated        time.Time `json:"timeCreated"`
	Transactions       [][]byte  `json:"transactions"`
	Signature          string    `json:"signature"`
}

// ConsensusRound is the engine's output for one decided round: the events
// that reached consensus in that round, in final order, plus the judges that
// decided them and the event window in force after the round.
type ConsensusRound struct {
	Round       int64                       `json:"round"`
	Events      []*CommittedEvent           `json:"events"`
	JudgeHashes []string                    `json:"judgeHashes"`
	Timestamp   time.Time                   `json:"timestamp"`
	Window      event.NonAncientEventWindow `json:"window"`

	hash []byte
	hex  string
}

// Marshal produces the canonical JSON encoding of the round.
func (cr *ConsensusRound) Marshal() ([]byte, error) {
	return crypto.CanonicalMarshal(cr)
}

// Unmarshal decodes a round from its canonical JSON encoding.
func (cr *ConsensusRound) Unmarshal(data []byte) error {
	return crypto.CanonicalUnmarshal(data, cr)
}

// Hash returns the SHA256 hash of the canonical encoding of the round.
func (cr *ConsensusRound) Hash() ([]byte, error) {
	if len(cr.hash) == 0 {
		hash, err := crypto.HashStruct(cr)
		if err != nil {
			return nil, err
		}
		cr.hash = hash
	}
	return cr.hash, nil
}

// Hex returns the hexadecimal string representation of the round's hash.
func (cr *ConsensusRound) Hex() string {
	if cr.hex == "" {
		hash, _ := cr.Hash()
		cr.hex = common.EncodeToString(hash)
	}
	return cr.hex
}

// Snapshot reduces the round to the immutable summary that gets signed and
// archived.
func (cr *ConsensusRound) Snapshot() (*ConsensusSnapshot, error) {
	hash, err := cr.Hash()
	if err != nil {
		return nil, err
	}

	return &ConsensusSnapshot{
		Round:              cr.Round,
		Hash:               common.EncodeToString(hash),
		JudgeHashes:        cr.JudgeHashes,
		ConsensusTimestamp: cr.Timestamp,
		EventCount:         len(cr.Events),
	}, nil
}

// ConsensusSnapshot summarizes a consensus round for signing and archival.
type ConsensusSnapshot struct {
	Round              int64     `json:"round"`
	Hash               string    `json:"hash"`
	JudgeHashes        []string  `json:"judgeHashes"`
	ConsensusTimestamp time.Time `json:"consensusTimestamp"`
	EventCount         int       `json:"eventCount"`
}

// Marshal produces the canonical JSON encoding of the snapshot.
func (cs *ConsensusSnapshot) Marshal() ([]byte, error) {
	return crypto.CanonicalMarshal(cs)
}

// Unmarshal decodes a snapshot from its canonical JSON encoding.
func (cs *ConsensusSnapshot) Unmarshal(data []byte) error {
	return crypto.CanonicalUnmarshal(data, cs)
}
