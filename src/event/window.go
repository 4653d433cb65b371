package event

import "fmt"

// NonAncientEventWindow defines the live portion of the event DAG. It is
// recomputed once per consensus round and pushed to every pipeline stage.
//
// The ancient threshold is non-decreasing over the life of a pipeline; the
// consensus engine enforces this when it produces new windows.
type NonAncientEventWindow struct {
	LatestConsensusRound int64       `json:"latestConsensusRound"`
	AncientThreshold     int64       `json:"ancientThreshold"`
	ExpiredThreshold     int64       `json:"expiredThreshold"`
	Mode                 AncientMode `json:"mode"`
}

// GenesisWindow returns the window in force before any consensus round is
// reached. It classifies no event as ancient.
func GenesisWindow(mode AncientMode) NonAncientEventWindow {
	return NonAncientEventWindow{
		LatestConsensusRound: FirstRound - 1,
		AncientThreshold:     mode.GenesisIndicator(),
		ExpiredThreshold:     mode.GenesisIndicator(),
		Mode:                 mode,
	}
}

// IsAncient reports whether the descriptor falls below the ancient threshold.
func (w NonAncientEventWindow) IsAncient(d EventDescriptor) bool {
	return d.AncientIndicator(w.Mode) < w.AncientThreshold
}

// IsEventAncient reports whether the event falls below the ancient threshold.
func (w NonAncientEventWindow) IsEventAncient(e *GossipEvent) bool {
	return e.AncientIndicator(w.Mode) < w.AncientThreshold
}

// IsExpired reports whether the indicator falls below the expired threshold.
// Expired events may not even be referenced anymore; the shadow graph removes
// them entirely.
func (w NonAncientEventWindow) IsExpired(indicator int64) bool {
	return indicator < w.ExpiredThreshold
}

func (w NonAncientEventWindow) String() string {
	return fmt.Sprintf("Window{round: %d, ancient: %d, expired: %d, mode: %s}",
		w.LatestConsensusRound, w.AncientThreshold, w.ExpiredThreshold, w.Mode)
}
