// Package engine implements the orchestrator: it builds instances and
// nodes from a loaded configuration, drives the cycle clock, steps
// every node in declared order each cycle, and assembles the per-cycle
// snapshot. Construct once, run a bounded or unbounded loop, surface
// the first hard failure rather than limping on with partial state.
package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/flowlace/cyclesim/internal/clock"
	"github.com/flowlace/cyclesim/internal/config"
	"github.com/flowlace/cyclesim/internal/node"
	"github.com/flowlace/cyclesim/internal/registry"
	"github.com/flowlace/cyclesim/internal/simerr"
	"github.com/flowlace/cyclesim/internal/store"
	"github.com/flowlace/cyclesim/pkg/logger"
)

// ReservedKeys are the snapshot fields the engine adds to every cycle
// alongside the program's own store keys.
const (
	KeyCycleCount = "cycle_count"
	KeySimTime    = "sim_time"
	KeyNeedSample = "need_sample"
	KeyTimeStr    = "time_str"
)

// Snapshot is one cycle's complete observable state: the reserved clock
// fields plus every persisted store key.
type Snapshot struct {
	CycleCount int
	SimTime    float64
	NeedSample bool
	TimeStr    string
	Values     map[string]float64
}

// Engine owns the constructed instance map, the ordered node list, the
// variable store, and the cycle clock for one loaded program. Construct
// with New; a zero Engine is not usable.
type Engine struct {
	runID     string
	cfg       *config.Config
	instances map[string]registry.Algorithm
	nodes     []node.Node
	store     *store.Store
	clock     *clock.Clock
	log       *logger.Logger
	metrics   *Metrics
}

// New constructs an Engine from a loaded configuration: it instantiates
// every algorithm item via its registered factory, builds a node per
// program item in declared order, and sizes the store's per-key history
// from cfg.Capacities. reg must be the same registry cfg was loaded
// against. log may be nil (no logging). metrics may be nil (no
// Prometheus collectors registered).
func New(cfg *config.Config, reg *registry.Registry, log *logger.Logger, metrics *Metrics) (*Engine, error) {
	instances := make(map[string]registry.Algorithm, len(cfg.Items))
	for _, item := range cfg.Items {
		if item.IsVariable {
			continue
		}
		entry, ok := reg.Algorithm(item.Type)
		if !ok {
			return nil, simerr.NewConfigurationError(item.Name, fmt.Sprintf("unregistered algorithm type %q", item.Type), nil)
		}
		inst, err := entry.Factory(cfg.CycleTime, item.InitArgs)
		if err != nil {
			return nil, simerr.NewConfigurationError(item.Name, "construction failed", err)
		}
		instances[item.Name] = inst
	}

	st := store.New()
	for key, capacity := range cfg.Capacities {
		st.ConfigureLag(key, capacity)
	}

	nodes := make([]node.Node, 0, len(cfg.Items))
	for _, item := range cfg.Items {
		if item.IsVariable {
			n, err := node.NewExpressionNode(item.Name, item.Expression, instances, reg)
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, n)
			continue
		}
		n, err := node.NewAlgorithmNode(item.Name, instances[item.Name], instances[item.Name].StoredAttributes(), item.Expression, instances, reg)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}

	mode := clock.Generator
	if cfg.Mode == config.ModeRealtime {
		mode = clock.Realtime
	}

	return &Engine{
		runID:     uuid.NewString(),
		cfg:       cfg,
		instances: instances,
		nodes:     nodes,
		store:     st,
		clock:     clock.New(cfg.CycleTime, mode, cfg.SampleInterval, cfg.TimeFormat, cfg.StartTime, log),
		log:       log,
		metrics:   metrics,
	}, nil
}

// RunID is the per-run correlation identifier, generated once at
// construction, attached to every log line Step emits. The clock's
// budget warnings are logged through the plain logger and do not carry it.
func (e *Engine) RunID() string { return e.runID }

// Step advances the program by exactly one cycle: it ticks the clock,
// steps every node in declared order (so later nodes observe earlier
// nodes' writes of the same cycle as current), and assembles the
// resulting snapshot. A node failure aborts the cycle immediately and
// is returned wrapped as a *simerr.NodeError; no later node in the same
// cycle runs.
func (e *Engine) Step() (Snapshot, error) {
	cycleCount, simTime, needSample, timeStr := e.clock.Tick()

	timer := e.metrics.startCycleTimer()
	for _, n := range e.nodes {
		if err := n.Step(e.store); err != nil {
			e.metrics.observeNodeError(n.Name())
			timer.observe()
			if e.log != nil {
				e.log.ForRun(e.runID).WithFields(map[string]interface{}{
					"cycle_count": cycleCount,
					"node":        n.Name(),
				}).Error("node step failed")
			}
			return Snapshot{}, simerr.NewNodeError(n.Name(), cycleCount, err)
		}
	}
	elapsed := timer.observe()
	if elapsed > e.cfg.CycleTime {
		e.metrics.observeOverrun()
		if e.log != nil {
			e.log.ForRun(e.runID).WithFields(map[string]interface{}{
				"cycle_count": cycleCount,
				"elapsed_s":   elapsed,
				"cycle_time":  e.cfg.CycleTime,
			}).Warn("cycle exceeded cycle_time budget")
		}
	}

	values := make(map[string]float64, len(e.store.Keys()))
	for _, key := range e.store.Keys() {
		values[key] = e.store.Get(key, 0)
	}

	return Snapshot{
		CycleCount: cycleCount,
		SimTime:    simTime,
		NeedSample: needSample,
		TimeStr:    timeStr,
		Values:     values,
	}, nil
}

// RunGenerator executes exactly n cycles back to back with no pacing
// (Generator mode never sleeps) and returns every snapshot in cycle
// order. It stops and returns the error from Step on the first node
// failure, along with the snapshots collected so far.
func (e *Engine) RunGenerator(n int) ([]Snapshot, error) {
	snapshots := make([]Snapshot, 0, n)
	for i := 0; i < n; i++ {
		snap, err := e.Step()
		if err != nil {
			return snapshots, err
		}
		snapshots = append(snapshots, snap)
	}
	return snapshots, nil
}

// RunRealtime executes an unbounded stream of cycles paced to wall
// clock time, delivering each snapshot to emit. Cancellation via ctx is
// cooperative and checked only at cycle boundaries: a cycle already in
// progress always runs to completion before ctx is consulted again, and
// is never interrupted mid-cycle. It returns nil if ctx is canceled
// cleanly, or the wrapped node error on a step failure.
func (e *Engine) RunRealtime(ctx context.Context, emit func(Snapshot)) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		snap, err := e.Step()
		if err != nil {
			return err
		}
		emit(snap)
		e.clock.SleepRemaining()
	}
}
