// Package clock implements the engine's cycle clock: the single source
// of cycle numbering, simulated time, and realtime pacing. Pacing is
// computed by direct elapsed-time comparison against a sleep budget
// rather than a time.Ticker, since the engine must detect and log
// overrun instead of silently coalescing missed ticks the way a ticker
// would.
package clock

import (
	"time"

	"github.com/flowlace/cyclesim/pkg/logger"
)

// Mode selects whether the clock paces itself against wall-clock time.
type Mode int

const (
	// Generator runs cycles back-to-back with no pacing; used for
	// deterministic, seed-reproducible batch runs.
	Generator Mode = iota
	// Realtime paces one cycle per cycle_time of wall-clock time.
	Realtime
)

func (m Mode) String() string {
	if m == Realtime {
		return "REALTIME"
	}
	return "GENERATOR"
}

// ExecutionTimeWarningThreshold is the fraction of cycle_time after
// which SleepRemaining logs a warning that a cycle is eating into its
// pacing budget.
const ExecutionTimeWarningThreshold = 0.6

// Clock tracks cycle_count, simulated time, and (in Realtime mode) the
// wall-clock anchor needed to pace ticks. The zero value is not usable;
// construct with New.
type Clock struct {
	CycleTime      float64
	Mode           Mode
	SampleInterval float64 // 0 means absent: every cycle needs a sample
	TimeFormat     string  // empty means ISO-8601
	StartTime      time.Time

	cycleCount int
	cycleStart time.Time

	log *logger.Logger
}

// New constructs a Clock. sampleInterval of 0 means "absent" (every
// cycle samples); timeFormat of "" means ISO-8601.
func New(cycleTime float64, mode Mode, sampleInterval float64, timeFormat string, startTime time.Time, log *logger.Logger) *Clock {
	return &Clock{
		CycleTime:      cycleTime,
		Mode:           mode,
		SampleInterval: sampleInterval,
		TimeFormat:     timeFormat,
		StartTime:      startTime,
		log:            log,
	}
}

// CycleCount is the clock's current cycle number.
func (c *Clock) CycleCount() int { return c.cycleCount }

// Tick advances cycle_count by one, anchors the wall-clock start of this
// cycle (consumed later by SleepRemaining in Realtime mode), and
// computes the simulated time and sampling decision for the new cycle.
func (c *Clock) Tick() (cycleCount int, simTime float64, needSample bool, timeStr string) {
	c.cycleCount++
	c.cycleStart = time.Now()

	simTime = float64(c.cycleCount) * c.CycleTime
	needSample = c.needSample(simTime)

	ts := c.StartTime.Add(time.Duration(simTime * float64(time.Second)))
	if c.TimeFormat != "" {
		timeStr = ts.Format(c.TimeFormat)
	} else {
		timeStr = ts.UTC().Format(time.RFC3339Nano)
	}
	return c.cycleCount, simTime, needSample, timeStr
}

func (c *Clock) needSample(simTime float64) bool {
	if c.SampleInterval <= 0 {
		return true
	}
	m := mod(simTime, c.SampleInterval)
	return m < c.CycleTime/2
}

func mod(a, b float64) float64 {
	r := a - b*float64(int(a/b))
	if r < 0 {
		r += b
	}
	return r
}

// SleepRemaining paces Realtime mode: it sleeps whatever remains of
// cycle_time after the current cycle's work, logging a warning if the
// cycle ate into the 60% budget or exceeded the cycle entirely. It is a
// no-op in Generator mode: a generator run never sleeps.
func (c *Clock) SleepRemaining() {
	if c.Mode != Realtime {
		return
	}
	elapsed := time.Since(c.cycleStart).Seconds()
	budget := c.CycleTime

	if elapsed > ExecutionTimeWarningThreshold*budget {
		if c.log != nil {
			c.log.WithFields(map[string]interface{}{
				"cycle_count": c.cycleCount,
				"elapsed_s":   elapsed,
				"cycle_time":  budget,
			}).Warn("execution exceeded 60% of cycle")
		}
	}
	if elapsed >= budget {
		if c.log != nil {
			c.log.WithFields(map[string]interface{}{
				"cycle_count": c.cycleCount,
				"elapsed_s":   elapsed,
				"cycle_time":  budget,
			}).Warn("no remaining budget in cycle, not sleeping")
		}
		return
	}
	time.Sleep(time.Duration((budget - elapsed) * float64(time.Second)))
}

// Reset returns the clock to cycle 0, as if newly constructed.
func (c *Clock) Reset() {
	c.cycleCount = 0
	c.cycleStart = time.Time{}
}
