package hashgraph

// RoundInfo tracks the events created in one round and its witnesses. Fame is
// recorded on the events themselves; a round is decided once the fame of all
// of its witnesses is.
type RoundInfo struct {
	Round         int64
	CreatedEvents []string
	Witnesses     []string

	decided bool
}

func newRoundInfo(round int64) *RoundInfo {
	return &RoundInfo{Round: round}
}

func (ri *RoundInfo) addEvent(hash string, witness bool) {
	ri.CreatedEvents = append(ri.CreatedEvents, hash)
	if witness {
		ri.Witnesses = append(ri.Witnesses, hash)
	}
}
