package algorithm

import (
	"math"

	"github.com/flowlace/cyclesim/internal/registry"
)

// waveBase tracks the discrete cycle counter shared by the three periodic
// wave algorithms. Each Execute call advances the counter by one before
// computing the waveform, so the first Execute (the engine's cycle 1)
// evaluates the waveform at cycle_count=1, matching the clock's own
// 1-based cycle numbering.
type waveBase struct {
	amplitude float64
	period    float64
	phase     float64
	cycleTime float64
	cycles    float64
	out       float64
}

func (w *waveBase) tick() float64 {
	w.cycles++
	return w.cycles * w.cycleTime / w.period
}

func (w *waveBase) Attr(name string) (float64, bool) {
	if name == "out" {
		return w.out, true
	}
	return 0, false
}

func (w *waveBase) StoredAttributes() []string { return []string{"out"} }

// sineWave implements SINE_WAVE.
type sineWave struct{ waveBase }

func newSineWave(cycleTime float64, initArgs map[string]float64) (registry.Algorithm, error) {
	p := resolveParams(map[string]float64{"amplitude": 1, "period": 1, "phase": 0}, initArgs)
	return &sineWave{waveBase{amplitude: p["amplitude"], period: p["period"], phase: p["phase"], cycleTime: cycleTime}}, nil
}

func (s *sineWave) Execute(kwargs map[string]float64) error {
	phaseFraction := s.tick()
	s.out = s.amplitude * math.Sin(2*math.Pi*phaseFraction+s.phase)
	return nil
}

func registerSineWave(reg *registry.Registry) {
	reg.RegisterAlgorithm(registry.AlgorithmEntry{
		Type:    "SINE_WAVE",
		Factory: newSineWave,
		Doc: registry.Doc{
			EnglishName:         "Sine Wave",
			ChineseName:         "正弦波",
			DocMarkdown:         "Emits `amplitude * sin(2*pi*cycle_count*cycle_time/period + phase)` on `out` each cycle.",
			ParamsTableMarkdown: "| param | default | meaning |\n|---|---|---|\n| amplitude | 1 | peak value |\n| period | 1 | seconds per full cycle |\n| phase | 0 | radians |",
		},
	})
}

// squareWave implements SQUARE_WAVE: +amplitude for the first half-period,
// -amplitude for the second half, sampled at integer multiples of
// cycle_time.
type squareWave struct{ waveBase }

func newSquareWave(cycleTime float64, initArgs map[string]float64) (registry.Algorithm, error) {
	p := resolveParams(map[string]float64{"amplitude": 1, "period": 1, "phase": 0}, initArgs)
	return &squareWave{waveBase{amplitude: p["amplitude"], period: p["period"], phase: p["phase"], cycleTime: cycleTime}}, nil
}

func (s *squareWave) Execute(kwargs map[string]float64) error {
	phaseFraction := s.tick()
	frac := math.Mod(phaseFraction+s.phase/(2*math.Pi), 1)
	if frac < 0 {
		frac += 1
	}
	if frac < 0.5 {
		s.out = s.amplitude
	} else {
		s.out = -s.amplitude
	}
	return nil
}

func registerSquareWave(reg *registry.Registry) {
	reg.RegisterAlgorithm(registry.AlgorithmEntry{
		Type:    "SQUARE_WAVE",
		Factory: newSquareWave,
		Doc: registry.Doc{
			EnglishName:         "Square Wave",
			ChineseName:         "方波",
			DocMarkdown:         "Emits `+amplitude` for the first half of each period and `-amplitude` for the second half, on `out`.",
			ParamsTableMarkdown: "| param | default | meaning |\n|---|---|---|\n| amplitude | 1 | peak value |\n| period | 1 | seconds per full cycle |\n| phase | 0 | radians |",
		},
	})
}

// triangleWave implements TRIANGLE_WAVE: a linear ramp from -amplitude to
// +amplitude and back each period.
type triangleWave struct{ waveBase }

func newTriangleWave(cycleTime float64, initArgs map[string]float64) (registry.Algorithm, error) {
	p := resolveParams(map[string]float64{"amplitude": 1, "period": 1, "phase": 0}, initArgs)
	return &triangleWave{waveBase{amplitude: p["amplitude"], period: p["period"], phase: p["phase"], cycleTime: cycleTime}}, nil
}

func (s *triangleWave) Execute(kwargs map[string]float64) error {
	phaseFraction := s.tick()
	frac := math.Mod(phaseFraction+s.phase/(2*math.Pi), 1)
	if frac < 0 {
		frac += 1
	}
	// Ramp up over [0, 0.5), down over [0.5, 1).
	if frac < 0.5 {
		s.out = s.amplitude * (4*frac - 1)
	} else {
		s.out = s.amplitude * (3 - 4*frac)
	}
	return nil
}

func registerTriangleWave(reg *registry.Registry) {
	reg.RegisterAlgorithm(registry.AlgorithmEntry{
		Type:    "TRIANGLE_WAVE",
		Factory: newTriangleWave,
		Doc: registry.Doc{
			EnglishName:         "Triangle Wave",
			ChineseName:         "三角波",
			DocMarkdown:         "Emits a linear ramp between -amplitude and +amplitude each period, on `out`.",
			ParamsTableMarkdown: "| param | default | meaning |\n|---|---|---|\n| amplitude | 1 | peak value |\n| period | 1 | seconds per full cycle |\n| phase | 0 | radians |",
		},
	})
}
