package algorithm

import (
	"math"

	"github.com/flowlace/cyclesim/internal/registry"
)

// valve implements VALVE: slews current_opening toward target_opening at
// most max_opening*cycle_time/full_travel_time per cycle, quantized to
// step and clipped to [min_opening, max_opening].
type valve struct {
	minOpening, maxOpening, step, fullTravelTime float64
	cycleTime                                    float64

	CurrentOpening, TargetOpening float64
}

func newValve(cycleTime float64, initArgs map[string]float64) (registry.Algorithm, error) {
	p := resolveParams(map[string]float64{
		"min_opening":      0,
		"max_opening":      100,
		"step":             1,
		"full_travel_time": 10,
		"initial_opening":  0,
	}, initArgs)
	return &valve{
		minOpening:      p["min_opening"],
		maxOpening:      p["max_opening"],
		step:            p["step"],
		fullTravelTime:  p["full_travel_time"],
		cycleTime:       cycleTime,
		CurrentOpening:  p["initial_opening"],
		TargetOpening:   p["initial_opening"],
	}, nil
}

func (v *valve) Execute(kwargs map[string]float64) error {
	if target, ok := kwargs["target_opening"]; ok {
		v.TargetOpening = target
	}
	if v.TargetOpening < v.minOpening {
		v.TargetOpening = v.minOpening
	}
	if v.TargetOpening > v.maxOpening {
		v.TargetOpening = v.maxOpening
	}

	maxDelta := v.maxOpening * v.cycleTime / v.fullTravelTime
	delta := v.TargetOpening - v.CurrentOpening
	if delta > maxDelta {
		delta = maxDelta
	} else if delta < -maxDelta {
		delta = -maxDelta
	}
	next := v.CurrentOpening + delta

	if v.step > 0 {
		next = math.Round(next/v.step) * v.step
	}
	if next < v.minOpening {
		next = v.minOpening
	}
	if next > v.maxOpening {
		next = v.maxOpening
	}
	v.CurrentOpening = next
	return nil
}

func (v *valve) Attr(name string) (float64, bool) {
	switch name {
	case "current_opening":
		return v.CurrentOpening, true
	case "target_opening":
		return v.TargetOpening, true
	}
	return 0, false
}

func (v *valve) StoredAttributes() []string { return []string{"current_opening", "target_opening"} }

func registerValve(reg *registry.Registry) {
	reg.RegisterAlgorithm(registry.AlgorithmEntry{
		Type:    "VALVE",
		Factory: newValve,
		Doc: registry.Doc{
			EnglishName:         "Valve",
			ChineseName:         "阀门",
			DocMarkdown:         "Slews `current_opening` toward `target_opening`, bounded by `max_opening*cycle_time/full_travel_time` per cycle, quantized to `step` and clipped to `[min_opening, max_opening]`.",
			ParamsTableMarkdown: "| param | default | meaning |\n|---|---|---|\n| min_opening | 0 | lower clip |\n| max_opening | 100 | upper clip |\n| step | 1 | quantization step |\n| full_travel_time | 10 | seconds for a full 0-100% stroke |\n| initial_opening | 0 | starting opening |",
		},
	})
}
