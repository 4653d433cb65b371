package hashgraph

import (
	"math/big"
	"sort"

	"github.com/mosaicnetworks/eventflow/src/common"
	"github.com/mosaicnetworks/eventflow/src/crypto/keys"
)

// sortConsensusEvents puts events in their final consensus order:
// received round, then consensus timestamp, then a whitened tie-break. The
// whitening XORs each event's signature with a pseudo-random number derived
// from the round's judges, so that no creator can bias the order of
// simultaneous events by grinding on its own data.
func sortConsensusEvents(events []*consensusEvent, judgeHashes []string) {
	prn := roundPseudoRandomNumber(judgeHashes)

	keyCache := make(map[string]*big.Int, len(events))
	whitened := func(ce *consensusEvent) *big.Int {
		if k, ok := keyCache[ce.hash]; ok {
			return k
		}
		k := new(big.Int).Xor(eventNumber(ce), prn)
		keyCache[ce.hash] = k
		return k
	}

	sort.Slice(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if a.roundReceived != b.roundReceived {
			return a.roundReceived < b.roundReceived
		}
		if !a.consensusTimestamp.Equal(b.consensusTimestamp) {
			return a.consensusTimestamp.Before(b.consensusTimestamp)
		}
		if c := whitened(a).Cmp(whitened(b)); c != 0 {
			return c < 0
		}
		return a.hash < b.hash
	})
}

// roundPseudoRandomNumber XORs the judge hashes together. All correct nodes
// agree on the judges, hence on this number; no single creator controls it.
func roundPseudoRandomNumber(judgeHashes []string) *big.Int {
	prn := new(big.Int)
	for _, jh := range judgeHashes {
		raw, err := common.DecodeFromString(jh)
		if err != nil {
			continue
		}
		prn.Xor(prn, new(big.Int).SetBytes(raw))
	}
	return prn
}

// eventNumber maps an event to the integer fed into the whitening: the S
// value of its signature, or its hash for unsigned events.
func eventNumber(ce *consensusEvent) *big.Int {
	if ce.ei.Signature != "" {
		if _, s, err := keys.DecodeSignature(ce.ei.Signature); err == nil {
			return s
		}
	}
	raw, err := common.DecodeFromString(ce.hash)
	if err != nil {
		return new(big.Int)
	}
	return new(big.Int).SetBytes(raw)
}
