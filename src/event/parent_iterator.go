package event

// ParentIterator walks an event's parent descriptors: self-parent first, then
// other-parents in original order. Nil parents are skipped, so every
// descriptor produced designates a real event. The iterator cannot be
// restarted.
type ParentIterator struct {
	parents []EventDescriptor
	next    int
}

func newParentIterator(selfParent *EventDescriptor, otherParents []*EventDescriptor) *ParentIterator {
	parents := make([]EventDescriptor, 0, len(otherParents)+1)

	if selfParent != nil {
		parents = append(parents, *selfParent)
	}
	for _, op := range otherParents {
		if op != nil {
			parents = append(parents, *op)
		}
	}

	return &ParentIterator{parents: parents}
}

// Next returns the next parent descriptor. The second return value is false
// when the iterator is exhausted.
func (it *ParentIterator) Next() (EventDescriptor, bool) {
	if it.next >= len(it.parents) {
		return EventDescriptor{}, false
	}
	d := it.parents[it.next]
	it.next++
	return d, true
}
