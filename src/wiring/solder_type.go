package wiring

// SolderType selects the insertion semantics used when an output wire
// forwards data to a soldered input wire.
type SolderType int

const (
	// SolderPut forwards with Put, blocking under backpressure.
	SolderPut SolderType = iota

	// SolderOffer forwards with Offer, dropping the object if the
	// destination is over capacity.
	SolderOffer

	// SolderInject forwards with Inject, bypassing backpressure. Reserved
	// for control signals such as event-window advancement, where dropping
	// or blocking would deadlock the pipeline.
	SolderInject
)

func (t SolderType) String() string {
	switch t {
	case SolderPut:
		return "PUT"
	case SolderOffer:
		return "OFFER"
	case SolderInject:
		return "INJECT"
	}
	return "UNKNOWN"
}
