package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/flowlace/cyclesim/internal/algorithm"
	"github.com/flowlace/cyclesim/internal/config"
	"github.com/flowlace/cyclesim/internal/registry"
	"github.com/flowlace/cyclesim/internal/simerr"
)

func newReg() *registry.Registry {
	reg := registry.New()
	algorithm.RegisterAll(reg)
	return reg
}

const sineValveDoc = `
clock:
  cycle_time: 0.25
  mode: GENERATOR

program:
  - name: s
    type: SINE_WAVE
    init_args: {amplitude: 1, period: 4}
    expression: s.execute()
  - name: v
    type: VALVE
    init_args: {max_opening: 100, full_travel_time: 10}
    expression: v.execute(target_opening=s.out * 100)
`

func buildEngine(t *testing.T, doc string) *Engine {
	t.Helper()
	reg := newReg()
	cfg, err := config.Load([]byte(doc), reg)
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	e, err := New(cfg, reg, nil, nil)
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	return e
}

func TestRunGeneratorProducesRequestedCycleCount(t *testing.T) {
	e := buildEngine(t, sineValveDoc)
	snaps, err := e.RunGenerator(5)
	if err != nil {
		t.Fatal(err)
	}
	if len(snaps) != 5 {
		t.Fatalf("len(snaps) = %d, want 5", len(snaps))
	}
	for i, s := range snaps {
		if s.CycleCount != i+1 {
			t.Fatalf("snap %d: CycleCount = %d, want %d", i, s.CycleCount, i+1)
		}
	}
}

func TestRunGeneratorOrdersWritesSoValveSeesSameCycleSineOutput(t *testing.T) {
	e := buildEngine(t, sineValveDoc)
	snaps, err := e.RunGenerator(1)
	if err != nil {
		t.Fatal(err)
	}
	snap := snaps[0]
	sineOut, ok := snap.Values["s.out"]
	if !ok {
		t.Fatal("snapshot missing s.out")
	}
	opening, ok := snap.Values["v.current_opening"]
	if !ok {
		t.Fatal("snapshot missing v.current_opening")
	}
	// The valve's target is s.out*100, but it is slew-rate limited, so it
	// only needs to have moved some nonzero amount toward that target
	// within the same cycle it was computed in.
	if sineOut == 0 && opening != 0 {
		t.Fatalf("opening moved with no sine output: sineOut=%v opening=%v", sineOut, opening)
	}
	if sineOut != 0 && opening == 0 {
		t.Fatalf("opening did not move toward the same-cycle sine target: sineOut=%v opening=%v", sineOut, opening)
	}
}

func TestRunGeneratorStopsAndWrapsNodeErrorOnFailure(t *testing.T) {
	// A variable referencing an undefined name fails at evaluation time,
	// which must surface as a NodeError, not panic or silently skip the
	// failing node.
	doc := `
program:
  - name: bad
    type: Variable
    expression: bad = undefined_name + 1
`
	e := buildEngine(t, doc)
	snaps, err := e.RunGenerator(3)
	if err == nil {
		t.Fatal("expected an error for an undefined name reference")
	}
	if len(snaps) != 0 {
		t.Fatalf("RunGenerator returned %d snapshots, want 0 (cycle 1 fails)", len(snaps))
	}
	var nodeErr *simerr.NodeError
	if !errors.As(err, &nodeErr) || nodeErr.NodeName != "bad" || nodeErr.Cycle != 1 {
		t.Fatalf("expected a NodeError for node bad at cycle 1, got %v", err)
	}
}

func TestRunRealtimeStopsOnContextCancellation(t *testing.T) {
	e := buildEngine(t, `
clock:
  cycle_time: 0.01
  mode: REALTIME
program:
  - name: s
    type: SINE_WAVE
    expression: s.execute()
`)
	ctx, cancel := context.WithTimeout(context.Background(), 35*time.Millisecond)
	defer cancel()
	var count int
	err := e.RunRealtime(ctx, func(Snapshot) { count++ })
	if err != nil {
		t.Fatal(err)
	}
	if count == 0 {
		t.Fatal("expected at least one cycle to run before cancellation")
	}
}

func TestRunIDIsStableAcrossCyclesAndNonEmpty(t *testing.T) {
	e := buildEngine(t, sineValveDoc)
	id := e.RunID()
	if id == "" {
		t.Fatal("RunID() is empty")
	}
	e.RunGenerator(1)
	if e.RunID() != id {
		t.Fatal("RunID changed across cycles")
	}
}
