package shadowgraph

import "fmt"

// InsertionErrType codes the reasons an event can be refused by the graph.
type InsertionErrType int

const (
	// Duplicate means an event with the same hash is already in the graph.
	Duplicate InsertionErrType = iota
	// MissingSelfParent means the claimed self-parent is neither in the graph
	// nor ancient.
	MissingSelfParent
	// MissingOtherParent means a claimed other-parent is neither in the graph
	// nor ancient.
	MissingOtherParent
)

func (t InsertionErrType) String() string {
	switch t {
	case Duplicate:
		return "duplicate event"
	case MissingSelfParent:
		return "missing self-parent"
	case MissingOtherParent:
		return "missing other-parent"
	}
	return "unknown"
}

// InsertionErr is returned by AddEvent for events that violate the graph's
// integrity. It signals a data problem with one event, not a broken graph;
// callers log it and drop the event.
type InsertionErr struct {
	Type InsertionErrType
	Hash string
}

func (e InsertionErr) Error() string {
	return fmt.Sprintf("shadowgraph: %s: %s", e.Type, e.Hash)
}

// IsInsertionErr reports whether err is an InsertionErr of the given type.
func IsInsertionErr(err error, t InsertionErrType) bool {
	ie, ok := err.(InsertionErr)
	return ok && ie.Type == t
}
