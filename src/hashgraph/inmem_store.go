package hashgraph

import (
	"strconv"

	"github.com/mosaicnetworks/eventflow/src/common"
	"github.com/mosaicnetworks/eventflow/src/event"
)

// InmemRoundStore is a rolling in-memory archive. Old rounds fall out of the
// underlying LRU cache; reading an evicted round returns a TooLate error so
// that callers can distinguish eviction from a round that never existed.
type InmemRoundStore struct {
	cacheSize int
	rounds    *common.LRU
	sigs      *common.LRU
	lastRound int64
}

// NewInmemRoundStore instantiates an InmemRoundStore holding at most
// cacheSize rounds.
func NewInmemRoundStore(cacheSize int) *InmemRoundStore {
	return &InmemRoundStore{
		cacheSize: cacheSize,
		rounds:    common.NewLRU(cacheSize, nil),
		sigs:      common.NewLRU(cacheSize, nil),
		lastRound: event.FirstRound - 1,
	}
}

// SetRound implements RoundStore.
func (s *InmemRoundStore) SetRound(round *ConsensusRound) error {
	if _, ok := s.rounds.Get(round.Round); ok {
		return common.NewStoreErr("Rounds", common.KeyAlreadyExists, roundKey(round.Round))
	}

	s.rounds.Add(round.Round, round)
	if round.Round > s.lastRound {
		s.lastRound = round.Round
	}
	return nil
}

// GetRound implements RoundStore.
func (s *InmemRoundStore) GetRound(r int64) (*ConsensusRound, error) {
	cached, ok := s.rounds.Get(r)
	if !ok {
		if r <= s.lastRound {
			return nil, common.NewStoreErr("Rounds", common.TooLate, roundKey(r))
		}
		return nil, common.NewStoreErr("Rounds", common.KeyNotFound, roundKey(r))
	}
	return cached.(*ConsensusRound), nil
}

// LastRound implements RoundStore.
func (s *InmemRoundStore) LastRound() int64 {
	return s.lastRound
}

// SetRoundSignature implements RoundStore.
func (s *InmemRoundStore) SetRoundSignature(r int64, sig []byte) error {
	s.sigs.Add(r, sig)
	return nil
}

// GetRoundSignature implements RoundStore.
func (s *InmemRoundStore) GetRoundSignature(r int64) ([]byte, error) {
	cached, ok := s.sigs.Get(r)
	if !ok {
		return nil, common.NewStoreErr("RoundSignatures", common.KeyNotFound, roundKey(r))
	}
	return cached.([]byte), nil
}

// Close implements RoundStore.
func (s *InmemRoundStore) Close() error {
	return nil
}

func roundKey(r int64) string {
	return strconv.FormatInt(r, 10)
}
