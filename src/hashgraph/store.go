package hashgraph

// RoundStore archives consensus rounds and the state signatures collected for
// them. Implementations return common.StoreErr with code KeyNotFound for
// absent entries and TooLate for entries that have been evicted.
type RoundStore interface {
	// SetRound archives a consensus round.
	SetRound(round *ConsensusRound) error

	// GetRound retrieves an archived round.
	GetRound(r int64) (*ConsensusRound, error)

	// LastRound returns the number of the most recently archived round, or
	// FirstRound - 1 when the store is empty.
	LastRound() int64

	// SetRoundSignature archives signature material for a round.
	SetRoundSignature(r int64, sig []byte) error

	// GetRoundSignature retrieves signature material for a round.
	GetRoundSignature(r int64) ([]byte, error)

	// Close releases underlying resources.
	Close() error
}
