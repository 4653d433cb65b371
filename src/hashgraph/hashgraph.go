package hashgraph

import (
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mosaicnetworks/eventflow/src/common"
	"github.com/mosaicnetworks/eventflow/src/event"
	"github.com/mosaicnetworks/eventflow/src/linking"
	"github.com/mosaicnetworks/eventflow/src/peers"
	"github.com/mosaicnetworks/eventflow/src/shadowgraph"
)

// Params are the consensus tuning knobs. They must be identical on all nodes
// of a network.
type Params struct {
	// CoinRoundFreq is the period of coin rounds during fame voting.
	CoinRoundFreq int64

	// AncientRoundSpan is the number of trailing rounds kept non-ancient.
	AncientRoundSpan int64

	// ExpiredRoundSpan is the number of rounds an ancient event survives
	// before the shadow graph may drop it entirely.
	ExpiredRoundSpan int64
}

// DefaultParams returns the production parameters.
func DefaultParams() Params {
	return Params{
		CoinRoundFreq:    4,
		AncientRoundSpan: 26,
		ExpiredRoundSpan: 26,
	}
}

// Hashgraph computes consensus order over a DAG of events by virtual voting.
//
// Not safe for concurrent use; the pipeline drives it from a single
// sequential scheduler.
type Hashgraph struct {
	peerSet *peers.PeerSet
	params  Params
	mode    event.AncientMode
	store   RoundStore
	graph   *shadowgraph.ShadowGraph

	window event.NonAncientEventWindow

	events map[string]*consensusEvent
	rounds map[int64]*RoundInfo

	// rounds created but not yet emitted, ascending
	pendingRounds []int64

	// events without a received round, in insertion order
	undeterminedEvents []string

	// events that received a round but whose round was not emitted yet
	receivedEvents map[int64][]*consensusEvent

	// candidate hash -> voter hash -> vote
	votes map[string]map[string]bool

	// min judge indicator per decided round, for window computation
	roundThresholds map[int64]int64

	lastCreatedRound   int64
	lastConsensusRound int64

	logger *logrus.Entry
}

// NewHashgraph instantiates a Hashgraph over the given peer set. Emitted
// rounds are archived in the store.
func NewHashgraph(
	peerSet *peers.PeerSet,
	store RoundStore,
	mode event.AncientMode,
	params Params,
	logger *logrus.Entry,
) *Hashgraph {

	if logger == nil {
		log := logrus.New()
		log.Level = logrus.DebugLevel
		logger = logrus.NewEntry(log)
	}

	return &Hashgraph{
		peerSet:            peerSet,
		params:             params,
		mode:               mode,
		store:              store,
		graph:              shadowgraph.NewShadowGraph(mode, logger),
		window:             event.GenesisWindow(mode),
		events:             make(map[string]*consensusEvent),
		rounds:             make(map[int64]*RoundInfo),
		receivedEvents:     make(map[int64][]*consensusEvent),
		votes:              make(map[string]map[string]bool),
		roundThresholds:    make(map[int64]int64),
		lastCreatedRound:   event.FirstRound - 1,
		lastConsensusRound: event.FirstRound - 1,
		logger:             logger,
	}
}

// Window returns the event window currently in force.
func (h *Hashgraph) Window() event.NonAncientEventWindow {
	return h.window
}

// LastConsensusRound returns the number of the last emitted round.
func (h *Hashgraph) LastConsensusRound() int64 {
	return h.lastConsensusRound
}

// PendingEventCount returns the number of inserted events that have not
// reached consensus yet. Observability only.
func (h *Hashgraph) PendingEventCount() int {
	return len(h.undeterminedEvents)
}

// ShadowGraph exposes the engine's DAG index for diagnostics. Readers must
// not outlive the pipeline's synchronization.
func (h *Hashgraph) ShadowGraph() *shadowgraph.ShadowGraph {
	return h.graph
}

// AddEvent inserts a linked event and runs the consensus methods. Returns
// the rounds that reached consensus as a result, oldest first. Integrity
// errors (duplicates, inconsistent parents) are returned for logging; the
// engine itself remains usable.
func (h *Hashgraph) AddEvent(ei *linking.EventImpl) ([]*ConsensusRound, error) {
	if ei == nil {
		return nil, fmt.Errorf("nil event")
	}

	if h.window.IsEventAncient(ei.GossipEvent) {
		h.logger.WithField("event", ei.Hex()).Debug("Ancient event not inserted")
		return nil, nil
	}

	hash := ei.Hex()
	if _, ok := h.events[hash]; ok {
		return nil, common.NewStoreErr("ConsensusEvents", common.KeyAlreadyExists, hash)
	}

	if err := h.graph.AddEvent(ei); err != nil {
		return nil, err
	}

	h.insertEvent(ei)
	h.decideFame()
	h.decideRoundReceived()

	return h.processDecidedRounds()
}

/* Consensus methods, in the order AddEvent runs them */

// insertEvent wraps the linked event, computes its coordinates, and assigns
// its created round and witness flag.
func (h *Hashgraph) insertEvent(ei *linking.EventImpl) {
	ce := &consensusEvent{
		ei:           ei,
		hash:         ei.Hex(),
		creator:      ei.Body.CreatorID,
		otherParents: make([]*consensusEvent, len(ei.OtherParents)),
	}
	if ei.SelfParent != nil {
		ce.selfParent = h.events[ei.SelfParent.Hex()]
	}
	for i, op := range ei.OtherParents {
		if op != nil {
			ce.otherParents[i] = h.events[op.Hex()]
		}
	}

	h.computeCoordinates(ce)
	h.computeRound(ce)

	h.events[ce.hash] = ce
	h.undeterminedEvents = append(h.undeterminedEvents, ce.hash)

	ri, ok := h.rounds[ce.round]
	if !ok {
		ri = newRoundInfo(ce.round)
		h.rounds[ce.round] = ri
		h.insertPendingRound(ce.round)
	}
	ri.addEvent(ce.hash, ce.witness)

	if ce.round > h.lastCreatedRound {
		h.lastCreatedRound = ce.round
	}
}

func (h *Hashgraph) computeCoordinates(ce *consensusEvent) {
	la := make(map[uint32]coordinate)
	for _, p := range ce.parents() {
		for creator, coord := range p.lastAncestors {
			if cur, ok := la[creator]; !ok || coord.generation > cur.generation {
				la[creator] = coord
			}
		}
	}
	la[ce.creator] = coordinate{hash: ce.hash, generation: ce.generation()}
	ce.lastAncestors = la

	ce.firstDescendants = map[uint32]coordinate{
		ce.creator: {hash: ce.hash, generation: ce.generation()},
	}

	// propagate: ce is the first descendant by its creator for every ancestor
	// that does not have one yet. Ancestors that already have one are pruned
	// together with their whole ancestry, which keeps the walk short.
	queue := ce.parents()
	for len(queue) > 0 {
		anc := queue[0]
		queue = queue[1:]

		if _, ok := anc.firstDescendants[ce.creator]; ok {
			continue
		}
		anc.firstDescendants[ce.creator] = coordinate{hash: ce.hash, generation: ce.generation()}
		queue = append(queue, anc.parents()...)
	}
}

// computeRound assigns the created round: the max parent round, plus one if
// the event strongly sees a supermajority of that round's witnesses.
func (h *Hashgraph) computeRound(ce *consensusEvent) {
	parents := ce.parents()

	if len(parents) == 0 {
		// first event, or an event whose parents were all unlinked as
		// ancient; the creator-claimed birth round is the deterministic floor
		ce.round = ce.ei.Body.BirthRound
		if ce.round < event.FirstRound {
			ce.round = event.FirstRound
		}
		ce.witness = true
		return
	}

	parentRound := int64(0)
	for _, p := range parents {
		if p.round > parentRound {
			parentRound = p.round
		}
	}

	var seenWeight int64
	if ri, ok := h.rounds[parentRound]; ok {
		for _, wh := range ri.Witnesses {
			w := h.events[wh]
			if w != nil && h.stronglySee(ce, w) {
				if peer, ok := h.peerSet.ByID[w.creator]; ok {
					seenWeight += peer.Weight
				}
			}
		}
	}

	ce.round = parentRound
	if seenWeight >= h.peerSet.SuperMajority() {
		ce.round = parentRound + 1
	}

	ce.witness = ce.selfParent == nil || ce.round > ce.selfParent.round
}

// see reports whether x has y in its ancestry (an event sees itself).
func (h *Hashgraph) see(x, y *consensusEvent) bool {
	la, ok := x.lastAncestors[y.creator]
	return ok && la.generation >= y.generation()
}

// stronglySee reports whether x sees events by a supermajority of peers that
// each see y.
func (h *Hashgraph) stronglySee(x, y *consensusEvent) bool {
	var weight int64
	for id, peer := range h.peerSet.ByID {
		xla, ok1 := x.lastAncestors[id]
		yfd, ok2 := y.firstDescendants[id]
		if ok1 && ok2 && xla.generation >= yfd.generation {
			weight += peer.Weight
		}
	}
	return weight >= h.peerSet.SuperMajority()
}

// decideFame runs virtual voting on the witnesses of undecided rounds.
func (h *Hashgraph) decideFame() {
	for _, i := range h.pendingRounds {
		ri := h.rounds[i]
		if ri.decided {
			continue
		}

		for _, xh := range ri.Witnesses {
			x := h.events[xh]
			if x == nil || x.famous != common.Undefined {
				continue
			}
			h.voteOnWitness(x)
		}

		h.updateDecided(ri)
	}
}

// voteOnWitness walks the witnesses of later rounds, collecting their votes
// on x's fame until a supermajority settles it.
func (h *Hashgraph) voteOnWitness(x *consensusEvent) {
	for j := x.round + 1; j <= h.lastCreatedRound; j++ {
		rj, ok := h.rounds[j]
		if !ok {
			continue
		}

		for _, yh := range rj.Witnesses {
			y := h.events[yh]
			if y == nil {
				continue
			}

			if j == x.round+1 {
				// direct voting round
				h.setVote(x, y, h.see(y, x))
				continue
			}

			yays, nays := h.collectVotes(x, y, j-1)
			vote := yays >= nays
			tally := yays
			if nays > tally {
				tally = nays
			}

			if j%h.params.CoinRoundFreq != 0 {
				if tally >= h.peerSet.SuperMajority() {
					h.decideWitness(x, vote)
					return
				}
				h.setVote(x, y, vote)
			} else {
				// coin round
				if tally >= h.peerSet.SuperMajority() {
					h.setVote(x, y, vote)
				} else {
					h.setVote(x, y, middleBit(y.hash))
				}
			}
		}
	}
}

// collectVotes tallies the votes on x among the round-r witnesses strongly
// seen by y. Weighted by voter stake.
func (h *Hashgraph) collectVotes(x, y *consensusEvent, r int64) (yays, nays int64) {
	ri, ok := h.rounds[r]
	if !ok {
		return 0, 0
	}

	for _, wh := range ri.Witnesses {
		w := h.events[wh]
		if w == nil || !h.stronglySee(y, w) {
			continue
		}

		peer, ok := h.peerSet.ByID[w.creator]
		if !ok {
			continue
		}

		if h.vote(x, w) {
			yays += peer.Weight
		} else {
			nays += peer.Weight
		}
	}
	return yays, nays
}

func (h *Hashgraph) setVote(candidate, voter *consensusEvent, vote bool) {
	m, ok := h.votes[candidate.hash]
	if !ok {
		m = make(map[string]bool)
		h.votes[candidate.hash] = m
	}
	m[voter.hash] = vote
}

func (h *Hashgraph) vote(candidate, voter *consensusEvent) bool {
	return h.votes[candidate.hash][voter.hash]
}

func (h *Hashgraph) decideWitness(x *consensusEvent, famous bool) {
	if famous {
		x.famous = common.True
	} else {
		x.famous = common.False
	}
	delete(h.votes, x.hash)
}

func (h *Hashgraph) updateDecided(ri *RoundInfo) {
	for _, wh := range ri.Witnesses {
		w := h.events[wh]
		if w == nil || w.famous == common.Undefined {
			return
		}
	}
	ri.decided = true
}

// decideRoundReceived assigns received rounds and consensus timestamps to
// events seen by all judges of a decided round.
func (h *Hashgraph) decideRoundReceived() {
	remaining := h.undeterminedEvents[:0]

	for _, xh := range h.undeterminedEvents {
		x := h.events[xh]
		if x == nil {
			// expired while waiting
			continue
		}

		if !h.assignRoundReceived(x) {
			remaining = append(remaining, xh)
		}
	}

	h.undeterminedEvents = remaining
}

func (h *Hashgraph) assignRoundReceived(x *consensusEvent) bool {
	for i := x.round + 1; i <= h.lastCreatedRound; i++ {
		ri, ok := h.rounds[i]
		if !ok {
			continue
		}
		if !ri.decided {
			// rounds decide in order; nothing further can receive x yet
			return false
		}

		judges := h.judges(ri)
		if len(judges) == 0 {
			continue
		}

		seenByAll := true
		for _, j := range judges {
			if !h.see(j, x) {
				seenByAll = false
				break
			}
		}
		if !seenByAll {
			continue
		}

		x.roundReceived = i
		x.consensusTimestamp = h.consensusTimestamp(x, judges)
		h.receivedEvents[i] = append(h.receivedEvents[i], x)
		return true
	}
	return false
}

func (h *Hashgraph) judges(ri *RoundInfo) []*consensusEvent {
	judges := []*consensusEvent{}
	for _, wh := range ri.Witnesses {
		w := h.events[wh]
		if w != nil && w.famous == common.True {
			judges = append(judges, w)
		}
	}
	return judges
}

// consensusTimestamp is the median, over the judges, of the timestamp of each
// judge's oldest self-ancestor that still sees x.
func (h *Hashgraph) consensusTimestamp(x *consensusEvent, judges []*consensusEvent) time.Time {
	timestamps := make([]time.Time, 0, len(judges))
	for _, j := range judges {
		a := j
		for a.selfParent != nil && h.see(a.selfParent, x) {
			a = a.selfParent
		}
		timestamps = append(timestamps, a.timeCreated())
	}
	return common.MedianTimestamp(timestamps)
}

// processDecidedRounds emits consensus rounds, in order, for as long as the
// oldest pending round is decided.
func (h *Hashgraph) processDecidedRounds() ([]*ConsensusRound, error) {
	out := []*ConsensusRound{}

	for len(h.pendingRounds) > 0 {
		r := h.pendingRounds[0]
		ri := h.rounds[r]
		if ri == nil || !ri.decided {
			break
		}

		cr, err := h.emitRound(ri)
		if err != nil {
			return out, err
		}

		h.pendingRounds = h.pendingRounds[1:]
		out = append(out, cr)
	}

	return out, nil
}

func (h *Hashgraph) emitRound(ri *RoundInfo) (*ConsensusRound, error) {
	judges := h.judges(ri)

	judgeHashes := make([]string, len(judges))
	for i, j := range judges {
		judgeHashes[i] = j.hash
	}
	sort.Strings(judgeHashes)

	events := h.receivedEvents[ri.Round]
	delete(h.receivedEvents, ri.Round)
	sortConsensusEvents(events, judgeHashes)

	cr := &ConsensusRound{
		Round:       ri.Round,
		Events:      make([]*CommittedEvent, len(events)),
		JudgeHashes: judgeHashes,
	}
	for i, ce := range events {
		cr.Events[i] = &CommittedEvent{
			Hash:               ce.hash,
			CreatorID:          ce.creator,
			Order:              i,
			RoundReceived:      ce.roundReceived,
			ConsensusTimestamp: ce.consensusTimestamp,
			TimeCreated:        ce.timeCreated(),
			Transactions:       ce.ei.Body.Transactions,
			Signature:          ce.ei.Signature,
		}
		cr.Timestamp = ce.consensusTimestamp
	}

	h.lastConsensusRound = ri.Round

	window := h.advanceWindow(ri.Round, judges)
	cr.Window = window

	h.window = window
	h.graph.UpdateEventWindow(window)
	h.expire(window)

	if h.store != nil {
		if err := h.store.SetRound(cr); err != nil {
			return cr, err
		}
	}

	return cr, nil
}

// advanceWindow computes the event window in force after emitting round r.
// Thresholds only move forward.
func (h *Hashgraph) advanceWindow(r int64, judges []*consensusEvent) event.NonAncientEventWindow {
	minIndicator := int64(-1)
	for _, j := range judges {
		ind := h.mode.SelectIndicator(j.generation(), j.ei.Body.BirthRound)
		if minIndicator < 0 || ind < minIndicator {
			minIndicator = ind
		}
	}
	if minIndicator >= 0 {
		h.roundThresholds[r] = minIndicator
	}

	ancient := h.window.AncientThreshold
	ancientRound := r - h.params.AncientRoundSpan + 1
	if th, ok := h.roundThresholds[ancientRound]; ok && th > ancient {
		ancient = th
	}

	expired := h.window.ExpiredThreshold
	expiredRound := ancientRound - h.params.ExpiredRoundSpan
	if th, ok := h.roundThresholds[expiredRound]; ok && th > expired {
		expired = th
	}
	delete(h.roundThresholds, expiredRound)

	return event.NonAncientEventWindow{
		LatestConsensusRound: r,
		AncientThreshold:     ancient,
		ExpiredThreshold:     expired,
		Mode:                 h.mode,
	}
}

// expire drops internal state for events below the expired threshold.
func (h *Hashgraph) expire(window event.NonAncientEventWindow) {
	for hash, ce := range h.events {
		ind := h.mode.SelectIndicator(ce.generation(), ce.ei.Body.BirthRound)
		if !window.IsExpired(ind) {
			continue
		}
		delete(h.events, hash)
		delete(h.votes, hash)
	}

	for r, ri := range h.rounds {
		if r >= h.lastConsensusRound-h.params.AncientRoundSpan-h.params.ExpiredRoundSpan {
			continue
		}
		retained := false
		for _, hash := range ri.CreatedEvents {
			if _, ok := h.events[hash]; ok {
				retained = true
				break
			}
		}
		if !retained {
			delete(h.rounds, r)
		}
	}
}

func (h *Hashgraph) insertPendingRound(r int64) {
	i := sort.Search(len(h.pendingRounds), func(i int) bool {
		return h.pendingRounds[i] >= r
	})
	h.pendingRounds = append(h.pendingRounds, 0)
	copy(h.pendingRounds[i+1:], h.pendingRounds[i:])
	h.pendingRounds[i] = r
}

// middleBit extracts the middle bit of a hash, the coin flip used when a coin
// round fails to reach a supermajority.
func middleBit(hexHash string) bool {
	raw, err := common.DecodeFromString(hexHash)
	if err != nil || len(raw) == 0 {
		return false
	}
	return raw[len(raw)/2]&1 != 0
}
