package engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the engine's Prometheus collectors. A nil *Metrics is
// valid everywhere below and simply does nothing: callers that don't
// want metrics just pass nil rather than threading an enabled/disabled
// flag through every call site.
type Metrics struct {
	cycleDuration prometheus.Histogram
	cycleOverrun  prometheus.Counter
	nodeErrors    *prometheus.CounterVec
}

// NewMetrics constructs collectors and registers them against reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cyclesim_engine_cycle_duration_seconds",
			Help:    "Wall-clock time spent stepping all nodes in one cycle.",
			Buckets: prometheus.DefBuckets,
		}),
		cycleOverrun: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cyclesim_engine_cycle_overrun_total",
			Help: "Cycles whose node-stepping work exceeded cycle_time.",
		}),
		nodeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cyclesim_engine_node_errors_total",
			Help: "Node step failures by node name.",
		}, []string{"node"}),
	}
	reg.MustRegister(m.cycleDuration, m.cycleOverrun, m.nodeErrors)
	return m
}

func (m *Metrics) observeOverrun() {
	if m == nil {
		return
	}
	m.cycleOverrun.Inc()
}

func (m *Metrics) observeNodeError(nodeName string) {
	if m == nil {
		return
	}
	m.nodeErrors.WithLabelValues(nodeName).Inc()
}

type cycleTimer struct {
	metrics *Metrics
	start   time.Time
	done    bool
	elapsed float64
}

func (m *Metrics) startCycleTimer() *cycleTimer {
	return &cycleTimer{metrics: m, start: time.Now()}
}

// observe records the elapsed time exactly once and returns it in
// seconds; later calls return the same value without recording again.
func (t *cycleTimer) observe() float64 {
	if t.done {
		return t.elapsed
	}
	t.elapsed = time.Since(t.start).Seconds()
	t.done = true
	if t.metrics != nil {
		t.metrics.cycleDuration.Observe(t.elapsed)
	}
	return t.elapsed
}
