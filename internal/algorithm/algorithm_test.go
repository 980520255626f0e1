package algorithm

import (
	"math"
	"testing"

	"github.com/flowlace/cyclesim/internal/registry"
)

func newReg(t *testing.T) *registry.Registry {
	t.Helper()
	reg := registry.New()
	RegisterAll(reg)
	return reg
}

func attr(t *testing.T, inst registry.Algorithm, name string) float64 {
	t.Helper()
	v, ok := inst.Attr(name)
	if !ok {
		t.Fatalf("attribute %q not found", name)
	}
	return v
}

func TestSineWaveMatchesSpecScenarioS2(t *testing.T) {
	reg := newReg(t)
	entry, _ := reg.Algorithm("SINE_WAVE")
	inst, err := entry.Factory(1, map[string]float64{"amplitude": 1, "period": 4, "phase": 0})
	if err != nil {
		t.Fatal(err)
	}
	if err := inst.Execute(nil); err != nil {
		t.Fatal(err)
	}
	got := attr(t, inst, "out")
	want := math.Sin(2 * math.Pi * 1 * 1 / 4)
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("s.out = %v, want %v", got, want)
	}
}

func TestSquareWaveSign(t *testing.T) {
	reg := newReg(t)
	entry, _ := reg.Algorithm("SQUARE_WAVE")
	inst, _ := entry.Factory(1, map[string]float64{"amplitude": 5, "period": 4, "phase": 0})
	inst.Execute(nil) // cycle 1, frac=0.25 -> +amplitude
	if got := attr(t, inst, "out"); got != 5 {
		t.Fatalf("cycle1 out=%v want 5", got)
	}
	inst.Execute(nil) // cycle 2, frac=0.5 -> -amplitude
	inst.Execute(nil) // cycle 3, frac=0.75 -> -amplitude
	if got := attr(t, inst, "out"); got != -5 {
		t.Fatalf("cycle3 out=%v want -5", got)
	}
}

func TestListWaveCyclesAndHoldsDuration(t *testing.T) {
	reg := newReg(t)
	entry, _ := reg.Algorithm("LIST_WAVE")
	inst, err := entry.Factory(1, map[string]float64{
		"n": 2, "v0": 10, "d0": 2, "v1": 20, "d1": 1,
	})
	if err != nil {
		t.Fatal(err)
	}
	wantSeq := []float64{10, 10, 20, 10, 10, 20}
	for i, want := range wantSeq {
		inst.Execute(nil)
		if got := attr(t, inst, "out"); got != want {
			t.Fatalf("cycle %d: out=%v want %v", i+1, got, want)
		}
	}
}

func TestRandomWalkConstantWithZeroStep(t *testing.T) {
	reg := newReg(t)
	entry, _ := reg.Algorithm("RANDOM")
	inst, _ := entry.Factory(1, map[string]float64{"L": 0, "H": 100, "max_step": 0})
	for i := 0; i < 5; i++ {
		inst.Execute(nil)
		if got := attr(t, inst, "out"); got != 50 {
			t.Fatalf("cycle %d: out=%v want 50 (constant)", i, got)
		}
	}
}

func TestRandomWalkStaysWithinBounds(t *testing.T) {
	reg := newReg(t)
	entry, _ := reg.Algorithm("RANDOM")
	inst, _ := entry.Factory(1, map[string]float64{"L": 10, "H": 20, "max_step": 50, "seed": 42})
	for i := 0; i < 200; i++ {
		inst.Execute(nil)
		v := attr(t, inst, "out")
		if v < 10 || v > 20 {
			t.Fatalf("cycle %d: out=%v out of bounds [10,20]", i, v)
		}
	}
}

func TestRandomWalkDeterministicGivenSeed(t *testing.T) {
	reg := newReg(t)
	entry, _ := reg.Algorithm("RANDOM")
	run := func() []float64 {
		inst, _ := entry.Factory(1, map[string]float64{"L": 0, "H": 100, "max_step": 5, "seed": 7})
		var out []float64
		for i := 0; i < 10; i++ {
			inst.Execute(nil)
			out = append(out, attr(t, inst, "out"))
		}
		return out
	}
	a, b := run(), run()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("run diverged at step %d: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestPIDDeterministicAndBounded(t *testing.T) {
	reg := newReg(t)
	entry, _ := reg.Algorithm("PID")
	inst, _ := entry.Factory(1, map[string]float64{"pb": 100, "ti": 10, "td": 0})
	inst.Execute(map[string]float64{"SV": 100, "PV": 0})
	mv := attr(t, inst, "MV")
	if mv < 0 || mv > 100 {
		t.Fatalf("MV out of bounds: %v", mv)
	}
	if got := attr(t, inst, "error"); got != 100 {
		t.Fatalf("error = %v, want 100", got)
	}
}

func TestCylindricalTankIntegratesFlow(t *testing.T) {
	reg := newReg(t)
	entry, _ := reg.Algorithm("CYLINDRICAL_TANK")
	inst, _ := entry.Factory(1, map[string]float64{"height": 10, "radius": 1})
	inst.Execute(map[string]float64{"flow_in": 10, "flow_out": 0})
	level1 := attr(t, inst, "level")
	if level1 <= 0 {
		t.Fatalf("level should have risen, got %v", level1)
	}
	for i := 0; i < 1000; i++ {
		inst.Execute(map[string]float64{"flow_in": 100, "flow_out": 0})
	}
	if got := attr(t, inst, "level"); got > 10 {
		t.Fatalf("level should be clipped to height, got %v", got)
	}
}

func TestValveSlewsTowardTargetWithinBudget(t *testing.T) {
	reg := newReg(t)
	entry, _ := reg.Algorithm("VALVE")
	inst, _ := entry.Factory(1, map[string]float64{
		"min_opening": 0, "max_opening": 100, "step": 1, "full_travel_time": 10,
	})
	inst.Execute(map[string]float64{"target_opening": 100})
	opening := attr(t, inst, "current_opening")
	if opening > 10+1e-9 {
		t.Fatalf("opening advanced by more than max_opening*cycle_time/full_travel_time=10: got %v", opening)
	}
	if opening <= 0 {
		t.Fatalf("opening should have advanced, got %v", opening)
	}
}

func TestFlowSourceNoiseBounded(t *testing.T) {
	reg := newReg(t)
	entry, _ := reg.Algorithm("FLOW_SOURCE")
	inst, _ := entry.Factory(1, map[string]float64{"base_flow": 10, "noise_amplitude": 2, "seed": 3})
	for i := 0; i < 50; i++ {
		inst.Execute(nil)
		v := attr(t, inst, "out")
		if v < 8 || v > 12 {
			t.Fatalf("out=%v out of expected noise band [8,12]", v)
		}
	}
}
