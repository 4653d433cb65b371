package signing

import (
	"crypto/ecdsa"

	"github.com/sirupsen/logrus"

	"github.com/mosaicnetworks/eventflow/src/common"
	"github.com/mosaicnetworks/eventflow/src/crypto"
	"github.com/mosaicnetworks/eventflow/src/crypto/keys"
	"github.com/mosaicnetworks/eventflow/src/hashgraph"
)

// StateSignatureTransaction carries one validator's signature over the state
// reached at the end of a consensus round.
type StateSignatureTransaction struct {
	Round     int64  `json:"round"`
	Signature string `json:"signature"`
	StateHash string `json:"stateHash"`
	EpochHash string `json:"epochHash"`
}

// Marshal produces the canonical JSON encoding of the transaction.
func (tx *StateSignatureTransaction) Marshal() ([]byte, error) {
	return crypto.CanonicalMarshal(tx)
}

// Unmarshal decodes a transaction from its canonical JSON encoding.
func (tx *StateSignatureTransaction) Unmarshal(data []byte) error {
	return crypto.CanonicalUnmarshal(data, tx)
}

// StateSigner signs consensus round snapshots with the validator's key.
type StateSigner struct {
	key       *ecdsa.PrivateKey
	epochHash string
	store     hashgraph.RoundStore
	logger    *logrus.Entry
}

// NewStateSigner instantiates a StateSigner. The epochHash identifies the
// network era the signatures belong to. Signed transactions are archived in
// the store when one is provided.
func NewStateSigner(
	key *ecdsa.PrivateKey,
	epochHash string,
	store hashgraph.RoundStore,
	logger *logrus.Entry,
) *StateSigner {

	if logger == nil {
		log := logrus.New()
		log.Level = logrus.DebugLevel
		logger = logrus.NewEntry(log)
	}

	return &StateSigner{
		key:       key,
		epochHash: epochHash,
		store:     store,
		logger:    logger,
	}
}

// SignRound hashes the round's snapshot and signs it.
func (ss *StateSigner) SignRound(round *hashgraph.ConsensusRound) (*StateSignatureTransaction, error) {
	snapshot, err := round.Snapshot()
	if err != nil {
		return nil, err
	}

	data, err := snapshot.Marshal()
	if err != nil {
		return nil, err
	}
	stateHash := crypto.SHA256(data)

	r, s, err := keys.Sign(ss.key, stateHash)
	if err != nil {
		return nil, err
	}

	tx := &StateSignatureTransaction{
		Round:     round.Round,
		Signature: keys.EncodeSignature(r, s),
		StateHash: common.EncodeToString(stateHash),
		EpochHash: ss.epochHash,
	}

	if ss.store != nil {
		raw, err := tx.Marshal()
		if err != nil {
			return nil, err
		}
		if err := ss.store.SetRoundSignature(round.Round, raw); err != nil {
			ss.logger.WithError(err).WithField("round", round.Round).
				Error("Failed to archive state signature")
		}
	}

	return tx, nil
}

// Verify checks a state signature transaction against a validator's public
// key.
func (tx *StateSignatureTransaction) Verify(pubKeyHex string) (bool, error) {
	pubBytes, err := common.DecodeFromString(pubKeyHex)
	if err != nil {
		return false, err
	}
	pubKey := keys.ToPublicKey(pubBytes)

	stateHash, err := common.DecodeFromString(tx.StateHash)
	if err != nil {
		return false, err
	}

	r, s, err := keys.DecodeSignature(tx.Signature)
	if err != nil {
		return false, err
	}

	return keys.Verify(pubKey, stateHash, r, s), nil
}
