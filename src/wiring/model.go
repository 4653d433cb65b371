package wiring

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// WiringModel owns the schedulers of one pipeline: it registers their names,
// records solder points for diagram generation, runs the shared worker pool
// used by concurrent schedulers, and drives startup and shutdown.
type WiringModel struct {
	logger *logrus.Entry

	mu         sync.Mutex
	schedulers map[string]TaskSchedulerType
	edges      []diagramEdge
	starters   []func()
	queues     []*taskQueue
	started    bool
	stopped    bool

	pool *workerPool
	wg   sync.WaitGroup
}

type diagramEdge struct {
	from   string
	to     string
	label  string
	solder SolderType
}

// NewWiringModel instantiates a model with a worker pool of poolSize
// goroutines. A nil logger defaults to a new logger with debug level.
func NewWiringModel(logger *logrus.Entry, poolSize int) *WiringModel {
	if logger == nil {
		log := logrus.New()
		log.Level = logrus.DebugLevel
		logger = logrus.NewEntry(log)
	}
	return &WiringModel{
		logger:     logger,
		schedulers: map[string]TaskSchedulerType{},
		pool:       newWorkerPool(poolSize),
	}
}

// Start launches the worker pool and the dedicated goroutines of sequential
// schedulers. Tasks submitted before Start wait in their queues.
func (m *WiringModel) Start() {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return
	}
	m.started = true
	starters := m.starters
	m.mu.Unlock()

	m.pool.start(&m.wg)
	for _, start := range starters {
		start()
	}

	m.logger.WithField("schedulers", len(m.schedulers)).Debug("wiring model started")
}

// Stop closes every scheduler queue and waits for in-flight tasks to finish.
// Tasks already enqueued are still executed; new submissions to sequential
// and concurrent schedulers are dropped.
func (m *WiringModel) Stop() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.stopped = true
	queues := m.queues
	m.mu.Unlock()

	for _, q := range queues {
		q.close()
	}
	m.pool.stop()
	m.wg.Wait()

	m.logger.Debug("wiring model stopped")
}

// GenerateWiringDiagram renders the registered schedulers and solder points
// as a mermaid flowchart.
func (m *WiringModel) GenerateWiringDiagram() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	names := make([]string, 0, len(m.schedulers))
	for name := range m.schedulers {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("flowchart TD\n")
	for _, name := range names {
		fmt.Fprintf(&b, "    %s[\"%s<br/>%s\"]\n", name, name, m.schedulers[name])
	}
	for _, e := range m.edges {
		fmt.Fprintf(&b, "    %s -- \"%s (%s)\" --> %s\n", e.from, e.label, e.solder, e.to)
	}
	return b.String()
}

func (m *WiringModel) registerScheduler(name string, stype TaskSchedulerType) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.schedulers[name]; ok {
		return fmt.Errorf("duplicate scheduler name %q", name)
	}
	m.schedulers[name] = stype
	return nil
}

func (m *WiringModel) registerEdge(from, to, label string, solder SolderType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.edges = append(m.edges, diagramEdge{from: from, to: to, label: label, solder: solder})
}

// registerPool hands a scheduler's private worker pool to the model so Start
// and Stop can manage its goroutines.
func (m *WiringModel) registerPool(pool *workerPool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queues = append(m.queues, pool.queue)
	m.starters = append(m.starters, func() {
		pool.start(&m.wg)
	})
}

// registerSequential hands a scheduler's queue and run loop to the model so
// Start and Stop can manage its goroutine.
func (m *WiringModel) registerSequential(queue *taskQueue, run func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queues = append(m.queues, queue)
	m.starters = append(m.starters, func() {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			run()
		}()
	})
}
