package event

// AncientMode determines which indicator is compared against the window
// thresholds to classify an event as ancient.
type AncientMode int

const (
	// GenerationThreshold classifies events by generation.
	GenerationThreshold AncientMode = iota
	// BirthRoundThreshold classifies events by birth round.
	BirthRoundThreshold
)

const (
	// FirstGeneration is the generation of events with no parents.
	FirstGeneration int64 = 0
	// FirstRound is the round number of the first consensus round.
	FirstRound int64 = 1
)

func (m AncientMode) String() string {
	switch m {
	case GenerationThreshold:
		return "generation"
	case BirthRoundThreshold:
		return "birth-round"
	}
	return "unknown"
}

// SelectIndicator picks the generation or the birth round depending on the
// mode.
func (m AncientMode) SelectIndicator(generation, birthRound int64) int64 {
	if m == BirthRoundThreshold {
		return birthRound
	}
	return generation
}

// GenesisIndicator returns the lowest legal threshold value for the mode. A
// window carrying this threshold considers no event ancient.
func (m AncientMode) GenesisIndicator() int64 {
	if m == BirthRoundThreshold {
		return FirstRound
	}
	return FirstGeneration
}
