package pipeline

import (
	"fmt"
	"sync"

	"github.com/mosaicnetworks/eventflow/src/config"
	"github.com/mosaicnetworks/eventflow/src/event"
	"github.com/mosaicnetworks/eventflow/src/hashgraph"
	"github.com/mosaicnetworks/eventflow/src/linking"
	"github.com/mosaicnetworks/eventflow/src/orphan"
	"github.com/mosaicnetworks/eventflow/src/peers"
	"github.com/mosaicnetworks/eventflow/src/signing"
	"github.com/mosaicnetworks/eventflow/src/wiring"
	"github.com/sirupsen/logrus"
)

type flushable interface {
	Flush() error
	UnprocessedTaskCount() int64
}

// RoundConsumer receives decided consensus rounds, oldest first.
type RoundConsumer func(*hashgraph.ConsensusRound)

// SignatureConsumer receives the state-signature transactions produced for
// decided rounds. The owner is expected to feed them back into the network
// as system transactions.
type SignatureConsumer func(*signing.StateSignatureTransaction)

// Pipeline wires the intake stages together: signature verification, orphan
// buffering, linking, consensus, and the downstream consumers.
type Pipeline struct {
	conf    *config.Config
	peerSet *peers.PeerSet
	logger  *logrus.Entry

	model *wiring.WiringModel

	orphanBuffer *orphan.OrphanBuffer
	linker       *linking.ConsensusLinker
	graph        *hashgraph.Hashgraph
	signer       *signing.StateSigner
	store        hashgraph.RoundStore

	intakeCounter *intakeEventCounter

	intake      *wiring.InputWire[*event.GossipEvent, []*event.GossipEvent]
	windowInput *wiring.InputWire[event.NonAncientEventWindow, event.NonAncientEventWindow]

	flushables []flushable

	windowMu   sync.Mutex
	lastWindow event.NonAncientEventWindow
}

// NewPipeline builds the full intake pipeline. The round consumer is
// required; the signature consumer may be nil, in which case signed state
// transactions are only archived. The validator key and storage options come
// from the config.
func NewPipeline(
	conf *config.Config,
	peerSet *peers.PeerSet,
	roundConsumer RoundConsumer,
	sigConsumer SignatureConsumer,
) (*Pipeline, error) {

	if conf == nil {
		return nil, fmt.Errorf("nil config")
	}
	if peerSet == nil || peerSet.Len() == 0 {
		return nil, fmt.Errorf("empty peer set")
	}
	if roundConsumer == nil {
		return nil, fmt.Errorf("nil round consumer")
	}

	logger := conf.Logger()
	mode := conf.AncientMode()

	var store hashgraph.RoundStore
	var err error
	if conf.Store {
		store, err = hashgraph.NewBadgerRoundStore(conf.CacheSize, conf.DatabaseDir)
		if err != nil {
			return nil, err
		}
	} else {
		store = hashgraph.NewInmemRoundStore(conf.CacheSize)
	}

	p := &Pipeline{
		conf:          conf,
		peerSet:       peerSet,
		logger:        logger,
		model:         wiring.NewWiringModel(logger, conf.PoolSize),
		store:         store,
		intakeCounter: newIntakeEventCounter(),
		lastWindow:    event.GenesisWindow(mode),
	}

	p.orphanBuffer = orphan.NewOrphanBuffer(mode, p.intakeCounter, logger)
	p.linker = linking.NewConsensusLinker(mode, logger)
	p.graph = hashgraph.NewHashgraph(
		peerSet,
		store,
		mode,
		hashgraph.Params{
			CoinRoundFreq:    conf.CoinRoundFreq,
			AncientRoundSpan: conf.AncientRoundSpan,
			ExpiredRoundSpan: conf.ExpiredRoundSpan,
		},
		logger,
	)
	if conf.Key != nil {
		p.signer = signing.NewStateSigner(conf.Key, "", store, logger)
	}

	if err := p.wire(roundConsumer, sigConsumer); err != nil {
		store.Close()
		return nil, err
	}

	return p, nil
}

// wire builds the schedulers and solders them together. Stage handlers
// produce slices so that one input can fan into zero or many outputs; an
// empty slice is a drop.
func (p *Pipeline) wire(roundConsumer RoundConsumer, sigConsumer SignatureConsumer) error {
	conf := p.conf

	intakeScheduler, err := wiring.BuildTaskScheduler[[]*event.GossipEvent](
		p.model.NewTaskSchedulerBuilder("event_intake").
			WithType(wiring.Sequential).
			WithUnhandledTaskCapacity(conf.IntakeCapacity).
			WithFlushingEnabled(true).
			WithSleepDuration(conf.SleepDuration))
	if err != nil {
		return err
	}
	orphanScheduler, err := wiring.BuildTaskScheduler[[]*event.GossipEvent](
		p.model.NewTaskSchedulerBuilder("orphan_buffer").
			WithType(wiring.Sequential).
			WithFlushingEnabled(true).
			WithSleepDuration(conf.SleepDuration))
	if err != nil {
		return err
	}
	linkerScheduler, err := wiring.BuildTaskScheduler[[]*linking.EventImpl](
		p.model.NewTaskSchedulerBuilder("event_linker").
			WithType(wiring.Sequential).
			WithFlushingEnabled(true).
			WithSleepDuration(conf.SleepDuration))
	if err != nil {
		return err
	}
	engineScheduler, err := wiring.BuildTaskScheduler[[]*hashgraph.ConsensusRound](
		p.model.NewTaskSchedulerBuilder("consensus_engine").
			WithType(wiring.SequentialThread).
			WithFlushingEnabled(true).
			WithSleepDuration(conf.SleepDuration))
	if err != nil {
		return err
	}
	windowScheduler, err := wiring.BuildTaskScheduler[event.NonAncientEventWindow](
		p.model.NewTaskSchedulerBuilder("window_manager").
			WithType(wiring.Direct))
	if err != nil {
		return err
	}
	consumerScheduler, err := wiring.BuildTaskScheduler[[]*hashgraph.ConsensusRound](
		p.model.NewTaskSchedulerBuilder("round_consumer").
			WithType(wiring.Sequential).
			WithFlushingEnabled(true).
			WithSleepDuration(conf.SleepDuration))
	if err != nil {
		return err
	}
	signerScheduler, err := wiring.BuildTaskScheduler[[]*hashgraph.ConsensusRound](
		p.model.NewTaskSchedulerBuilder("state_signer").
			WithType(wiring.Sequential).
			WithFlushingEnabled(true).
			WithSleepDuration(conf.SleepDuration))
	if err != nil {
		return err
	}

	// Intake verifies creator signatures; forgeries and unknown creators
	// leave the pipeline here.
	p.intake = wiring.BuildInputWire[*event.GossipEvent](intakeScheduler, "unordered_events").
		Bind(func(e *event.GossipEvent) []*event.GossipEvent {
			if e == nil {
				return nil
			}
			peer, ok := p.peerSet.ByID[e.Body.CreatorID]
			if !ok {
				p.logger.WithField("creator", e.Body.CreatorID).
					Debug("event from unknown creator")
				p.intakeCounter.EventExitedIntakePipeline(e.Body.CreatorID)
				return nil
			}
			valid, err := e.Verify(peer.PubKeyHex)
			if err != nil || !valid {
				p.logger.WithFields(logrus.Fields{
					"event": e.Hex(),
					"error": err,
				}).Debug("invalid event signature")
				p.intakeCounter.EventExitedIntakePipeline(e.Body.CreatorID)
				return nil
			}
			return []*event.GossipEvent{e}
		})

	toDeorphan := wiring.BuildInputWire[[]*event.GossipEvent](orphanScheduler, "events_to_deorphan").
		Bind(func(batch []*event.GossipEvent) []*event.GossipEvent {
			var out []*event.GossipEvent
			for _, e := range batch {
				out = append(out, p.orphanBuffer.HandleEvent(e)...)
			}
			return out
		})

	// A window advance can release buffered orphans; they continue down the
	// same output wire as ordinary events.
	orphanWindow := wiring.BuildInputWire[event.NonAncientEventWindow](orphanScheduler, "event_window").
		Bind(func(w event.NonAncientEventWindow) []*event.GossipEvent {
			return p.orphanBuffer.SetNonAncientEventWindow(w)
		})

	toLink := wiring.BuildInputWire[[]*event.GossipEvent](linkerScheduler, "unlinked_events").
		Bind(func(batch []*event.GossipEvent) []*linking.EventImpl {
			var out []*linking.EventImpl
			for _, e := range batch {
				if linked := p.linker.LinkEvent(e); linked != nil {
					out = append(out, linked)
				} else {
					p.intakeCounter.EventExitedIntakePipeline(e.Body.CreatorID)
				}
			}
			return out
		})

	linkerWindow := wiring.BuildInputWire[event.NonAncientEventWindow](linkerScheduler, "event_window").
		BindConsumer(func(w event.NonAncientEventWindow) {
			p.linker.SetNonAncientEventWindow(w)
		})

	p.windowInput = wiring.BuildInputWire[event.NonAncientEventWindow](windowScheduler, "event_window").
		Bind(func(w event.NonAncientEventWindow) event.NonAncientEventWindow {
			p.windowMu.Lock()
			p.lastWindow = w
			p.windowMu.Unlock()
			return w
		})

	toConsensus := wiring.BuildInputWire[[]*linking.EventImpl](engineScheduler, "linked_events").
		Bind(func(batch []*linking.EventImpl) []*hashgraph.ConsensusRound {
			var rounds []*hashgraph.ConsensusRound
			for _, ei := range batch {
				decided, err := p.graph.AddEvent(ei)
				if err != nil {
					p.logger.WithFields(logrus.Fields{
						"event": ei.Hex(),
						"error": err,
					}).Debug("consensus engine rejected event")
				}
				rounds = append(rounds, decided...)
				p.intakeCounter.EventExitedIntakePipeline(ei.Body.CreatorID)
			}
			if len(rounds) > 0 {
				p.windowInput.Put(p.graph.Window())
			}
			return rounds
		})

	roundsToConsume := wiring.BuildInputWire[[]*hashgraph.ConsensusRound](consumerScheduler, "consensus_rounds").
		BindConsumer(func(rounds []*hashgraph.ConsensusRound) {
			for _, r := range rounds {
				roundConsumer(r)
			}
		})

	roundsToSign := wiring.BuildInputWire[[]*hashgraph.ConsensusRound](signerScheduler, "consensus_rounds").
		BindConsumer(func(rounds []*hashgraph.ConsensusRound) {
			if p.signer == nil {
				return
			}
			for _, r := range rounds {
				tx, err := p.signer.SignRound(r)
				if err != nil {
					p.logger.WithFields(logrus.Fields{
						"round": r.Round,
						"error": err,
					}).Error("failed to sign round")
					continue
				}
				if sigConsumer != nil {
					sigConsumer(tx)
				}
			}
		})

	intakeScheduler.Output().SolderTo(toDeorphan, wiring.SolderPut)
	orphanScheduler.Output().SolderTo(toLink, wiring.SolderPut)
	linkerScheduler.Output().SolderTo(toConsensus, wiring.SolderPut)
	engineScheduler.Output().SolderTo(roundsToConsume, wiring.SolderPut)
	engineScheduler.Output().SolderTo(roundsToSign, wiring.SolderPut)

	// Window updates bypass backpressure: blocking them behind a full event
	// queue would deadlock the very mechanism that drains it.
	windowScheduler.Output().SolderTo(orphanWindow, wiring.SolderInject)
	windowScheduler.Output().SolderTo(linkerWindow, wiring.SolderInject)

	p.flushables = []flushable{
		intakeScheduler,
		orphanScheduler,
		linkerScheduler,
		engineScheduler,
		consumerScheduler,
		signerScheduler,
	}

	return nil
}

// Start launches the pipeline's goroutines.
func (p *Pipeline) Start() {
	p.model.Start()
}

// SubmitEvent feeds a gossip event into the intake stage. It blocks while
// the intake stage is at capacity.
func (p *Pipeline) SubmitEvent(e *event.GossipEvent) error {
	if e == nil {
		return fmt.Errorf("nil event")
	}
	p.intakeCounter.EventEnteredIntakePipeline(e.Body.CreatorID)
	p.intake.Put(e)
	return nil
}

// Flush drains every stage, upstream first. A window advance inside a pass
// can release buffered orphans back into upstream stages, so passes repeat
// until one starts with every stage already idle. When Flush returns, all
// previously submitted events have either reached the consensus engine or
// left the pipeline.
func (p *Pipeline) Flush() error {
	for {
		busy := false
		for _, f := range p.flushables {
			if f.UnprocessedTaskCount() > 0 {
				busy = true
			}
			if err := f.Flush(); err != nil {
				return err
			}
		}
		if !busy {
			return nil
		}
	}
}

// Shutdown flushes the pipeline, stops the wiring model and closes the round
// store.
func (p *Pipeline) Shutdown() error {
	flushErr := p.Flush()
	p.model.Stop()
	if err := p.store.Close(); err != nil {
		return err
	}
	return flushErr
}

// Window returns the latest event window published by the consensus engine.
func (p *Pipeline) Window() event.NonAncientEventWindow {
	p.windowMu.Lock()
	defer p.windowMu.Unlock()
	return p.lastWindow
}

// InFlightEventCount returns the number of submitted events that have not
// yet completed or left the pipeline.
func (p *Pipeline) InFlightEventCount() int64 {
	return p.intakeCounter.Total()
}

// Store exposes the round archive.
func (p *Pipeline) Store() hashgraph.RoundStore {
	return p.store
}

// GenerateWiringDiagram renders the pipeline's schedulers and wires as a
// mermaid flowchart.
func (p *Pipeline) GenerateWiringDiagram() string {
	return p.model.GenerateWiringDiagram()
}
