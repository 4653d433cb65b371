package shadowgraph

import (
	"github.com/sirupsen/logrus"

	"github.com/mosaicnetworks/eventflow/src/event"
	"github.com/mosaicnetworks/eventflow/src/linking"
)

// ShadowGraph is the canonical DAG index over linked events.
//
// Not safe for concurrent use; only the sequential consensus pipeline mutates
// it. Diagnostic readers must synchronize externally.
type ShadowGraph struct {
	window event.NonAncientEventWindow

	shadows map[string]*ShadowEvent

	// tips are shadows without a self-child
	tips map[string]*ShadowEvent

	logger *logrus.Entry
}

// NewShadowGraph instantiates an empty ShadowGraph.
func NewShadowGraph(mode event.AncientMode, logger *logrus.Entry) *ShadowGraph {
	if logger == nil {
		log := logrus.New()
		log.Level = logrus.DebugLevel
		logger = logrus.NewEntry(log)
	}

	return &ShadowGraph{
		window:  event.GenesisWindow(mode),
		shadows: make(map[string]*ShadowEvent),
		tips:    make(map[string]*ShadowEvent),
		logger:  logger,
	}
}

// AddEvent inserts a linked event into the graph. Ancient events are ignored.
// An InsertionErr is returned when the event duplicates an existing hash or
// claims a parent that is neither present nor ancient; the caller is expected
// to log and drop, not crash.
func (sg *ShadowGraph) AddEvent(ei *linking.EventImpl) error {
	if sg.window.IsEventAncient(ei.GossipEvent) {
		sg.logger.WithField("event", ei.Hex()).Debug("Ancient event not inserted")
		return nil
	}

	hash := ei.Hex()
	if _, ok := sg.shadows[hash]; ok {
		return InsertionErr{Type: Duplicate, Hash: hash}
	}

	if err := sg.checkParent(ei.GossipEvent.SelfParent(), MissingSelfParent, hash); err != nil {
		return err
	}
	for _, op := range ei.GossipEvent.OtherParents() {
		if err := sg.checkParent(op, MissingOtherParent, hash); err != nil {
			return err
		}
	}

	s := &ShadowEvent{
		event:        ei,
		otherParents: make([]*ShadowEvent, len(ei.GossipEvent.OtherParents())),
	}

	if sp := ei.GossipEvent.SelfParent(); sp != nil {
		if parent, ok := sg.shadows[sp.Hash]; ok {
			s.selfParent = parent
			parent.children = append(parent.children, s)
			if parent.hasSelfChild() {
				delete(sg.tips, parent.Hash())
			}
		}
	}
	for i, op := range ei.GossipEvent.OtherParents() {
		if op == nil {
			continue
		}
		if parent, ok := sg.shadows[op.Hash]; ok {
			s.otherParents[i] = parent
			parent.children = append(parent.children, s)
		}
	}

	sg.shadows[hash] = s
	sg.tips[hash] = s

	return nil
}

// checkParent verifies that a claimed parent is either in the graph or
// ancient.
func (sg *ShadowGraph) checkParent(d *event.EventDescriptor, errType InsertionErrType, childHash string) error {
	if d == nil || sg.window.IsAncient(*d) {
		return nil
	}
	if _, ok := sg.shadows[d.Hash]; !ok {
		return InsertionErr{Type: errType, Hash: childHash}
	}
	return nil
}

// UpdateEventWindow advances the window and removes every shadow below the
// expired threshold. Must be called once per consensus round with a
// monotonically advancing window.
func (sg *ShadowGraph) UpdateEventWindow(window event.NonAncientEventWindow) {
	sg.window = window

	for hash, s := range sg.shadows {
		if !window.IsExpired(s.Descriptor().AncientIndicator(window.Mode)) {
			continue
		}
		s.disconnect()
		delete(sg.shadows, hash)
		delete(sg.tips, hash)
	}
}

// Shadow returns the shadow with the given hash, or nil.
func (sg *ShadowGraph) Shadow(hash string) *ShadowEvent {
	return sg.shadows[hash]
}

// Tips returns the shadows without a self-child. The set of tips is what a
// gossip layer offers to other nodes as sync starting points.
func (sg *ShadowGraph) Tips() []*ShadowEvent {
	tips := make([]*ShadowEvent, 0, len(sg.tips))
	for _, s := range sg.tips {
		tips = append(tips, s)
	}
	return tips
}

// EventCount returns the number of shadows in the graph.
func (sg *ShadowGraph) EventCount() int {
	return len(sg.shadows)
}

// IsAncestor reports whether ancestor is reachable from descendant through
// parent links. An event is considered its own ancestor.
func (sg *ShadowGraph) IsAncestor(ancestor, descendant *ShadowEvent) bool {
	if ancestor == nil || descendant == nil {
		return false
	}

	found := false
	sg.WalkAncestors(descendant, func(s *ShadowEvent) bool {
		if s == ancestor {
			found = true
			return false
		}
		return true
	})
	return found
}

// WalkAncestors performs a breadth-first walk over the ancestry of start,
// start included, invoking visit for each shadow exactly once. The walk stops
// early when visit returns false.
func (sg *ShadowGraph) WalkAncestors(start *ShadowEvent, visit func(*ShadowEvent) bool) {
	if start == nil {
		return
	}

	seen := map[*ShadowEvent]bool{start: true}
	queue := []*ShadowEvent{start}

	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]

		if !visit(next) {
			return
		}

		for _, p := range next.Parents() {
			if !seen[p] {
				seen[p] = true
				queue = append(queue, p)
			}
		}
	}
}
