package event

// EventDescriptor identifies an event in the DAG without requiring the full
// event body. It is an immutable value type; two descriptors designate the
// same event iff their hashes are equal.
type EventDescriptor struct {
	Hash       string `json:"hash"`
	CreatorID  uint32 `json:"creatorId"`
	Generation int64  `json:"generation"`
	BirthRound int64  `json:"birthRound"`
}

// AncientIndicator returns the value compared against window thresholds for
// the given mode.
func (d EventDescriptor) AncientIndicator(mode AncientMode) int64 {
	return mode.SelectIndicator(d.Generation, d.BirthRound)
}

// Equals reports whether two descriptors designate the same event.
func (d EventDescriptor) Equals(other EventDescriptor) bool {
	return d.Hash == other.Hash
}
