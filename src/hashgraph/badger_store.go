package hashgraph

import (
	"fmt"

	"github.com/dgraph-io/badger"

	"github.com/mosaicnetworks/eventflow/src/common"
	"github.com/mosaicnetworks/eventflow/src/event"
)

const (
	roundPrefix = "round"
	sigPrefix   = "rsig"
	lastKey     = "last_round"
)

// BadgerRoundStore archives consensus rounds in a badger database, with a
// rolling InmemRoundStore in front of it for hot reads. Unlike the in-memory
// store it survives restarts; Bootstrap recovers the last archived round.
type BadgerRoundStore struct {
	inmem *InmemRoundStore
	db    *badger.DB
	path  string
}

// NewBadgerRoundStore opens (or creates) a badger database at path.
func NewBadgerRoundStore(cacheSize int, path string) (*BadgerRoundStore, error) {
	opts := badger.DefaultOptions(path)
	opts.SyncWrites = false
	opts.Logger = nil

	handle, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	store := &BadgerRoundStore{
		inmem: NewInmemRoundStore(cacheSize),
		db:    handle,
		path:  path,
	}

	if err := store.bootstrap(); err != nil {
		store.db.Close()
		return nil, err
	}

	return store, nil
}

// bootstrap recovers the last-round marker from the database.
func (s *BadgerRoundStore) bootstrap() error {
	return s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(lastKey))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		raw, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}

		var last int64
		if _, err := fmt.Sscanf(string(raw), "%d", &last); err != nil {
			return err
		}
		s.inmem.lastRound = last
		return nil
	})
}

// SetRound implements RoundStore.
func (s *BadgerRoundStore) SetRound(round *ConsensusRound) error {
	if err := s.inmem.SetRound(round); err != nil {
		return err
	}

	data, err := round.Marshal()
	if err != nil {
		return err
	}

	tx := s.db.NewTransaction(true)
	defer tx.Discard()

	if err := tx.Set(dbRoundKey(round.Round), data); err != nil {
		return err
	}
	if err := tx.Set([]byte(lastKey), []byte(fmt.Sprintf("%d", s.inmem.lastRound))); err != nil {
		return err
	}

	return tx.Commit()
}

// GetRound implements RoundStore. Rounds evicted from the in-memory cache are
// read back from disk.
func (s *BadgerRoundStore) GetRound(r int64) (*ConsensusRound, error) {
	round, err := s.inmem.GetRound(r)
	if err == nil {
		return round, nil
	}
	if !common.Is(err, common.TooLate) {
		return nil, err
	}
	return s.dbGetRound(r)
}

func (s *BadgerRoundStore) dbGetRound(r int64) (*ConsensusRound, error) {
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(dbRoundKey(r))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err == badger.ErrKeyNotFound {
		return nil, common.NewStoreErr("Rounds", common.KeyNotFound, roundKey(r))
	}
	if err != nil {
		return nil, err
	}

	round := new(ConsensusRound)
	if err := round.Unmarshal(data); err != nil {
		return nil, err
	}
	return round, nil
}

// LastRound implements RoundStore.
func (s *BadgerRoundStore) LastRound() int64 {
	return s.inmem.LastRound()
}

// SetRoundSignature implements RoundStore.
func (s *BadgerRoundStore) SetRoundSignature(r int64, sig []byte) error {
	if err := s.inmem.SetRoundSignature(r, sig); err != nil {
		return err
	}

	tx := s.db.NewTransaction(true)
	defer tx.Discard()

	if err := tx.Set(dbSigKey(r), sig); err != nil {
		return err
	}
	return tx.Commit()
}

// GetRoundSignature implements RoundStore.
func (s *BadgerRoundStore) GetRoundSignature(r int64) ([]byte, error) {
	if sig, err := s.inmem.GetRoundSignature(r); err == nil {
		return sig, nil
	}

	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(dbSigKey(r))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err == badger.ErrKeyNotFound {
		return nil, common.NewStoreErr("RoundSignatures", common.KeyNotFound, roundKey(r))
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Close implements RoundStore.
func (s *BadgerRoundStore) Close() error {
	return s.db.Close()
}

// StorePath returns the database directory.
func (s *BadgerRoundStore) StorePath() string {
	return s.path
}

// NeedBootstrap reports whether the database already holds archived rounds.
func (s *BadgerRoundStore) NeedBootstrap() bool {
	return s.inmem.lastRound >= event.FirstRound
}

func dbRoundKey(r int64) []byte {
	return []byte(fmt.Sprintf("%s_%09d", roundPrefix, r))
}

func dbSigKey(r int64) []byte {
	return []byte(fmt.Sprintf("%s_%09d", sigPrefix, r))
}
