package algorithm

import (
	"math/rand"

	"github.com/flowlace/cyclesim/internal/registry"
)

// random implements RANDOM: a bounded random walk clamped to [L, H], with
// each step drawn uniformly from [-max_step, max_step]. The walk is seeded
// from init_args.seed (default 1) so that two runs with equal
// configuration and seed produce identical snapshot sequences in
// Generator mode.
type random struct {
	low, high, maxStep float64
	rng                *rand.Rand
	out                float64
}

func newRandom(cycleTime float64, initArgs map[string]float64) (registry.Algorithm, error) {
	p := resolveParams(map[string]float64{"L": 0, "H": 100, "max_step": 1, "seed": 1}, initArgs)
	start, explicit := initArgs["start"]
	if !explicit {
		start = (p["L"] + p["H"]) / 2
	}
	return &random{
		low:     p["L"],
		high:    p["H"],
		maxStep: p["max_step"],
		rng:     rand.New(rand.NewSource(int64(p["seed"]))),
		out:     start,
	}, nil
}

func (r *random) Execute(kwargs map[string]float64) error {
	if r.maxStep > 0 {
		step := (r.rng.Float64()*2 - 1) * r.maxStep
		r.out += step
	}
	if r.out < r.low {
		r.out = r.low
	}
	if r.out > r.high {
		r.out = r.high
	}
	return nil
}

func (r *random) Attr(name string) (float64, bool) {
	if name == "out" {
		return r.out, true
	}
	return 0, false
}

func (r *random) StoredAttributes() []string { return []string{"out"} }

func registerRandom(reg *registry.Registry) {
	reg.RegisterAlgorithm(registry.AlgorithmEntry{
		Type:    "RANDOM",
		Factory: newRandom,
		Doc: registry.Doc{
			EnglishName:         "Random Walk",
			ChineseName:         "随机游走",
			DocMarkdown:         "Bounded random walk on `out`, clamped to `[L, H]`, stepping uniformly within `[-max_step, max_step]` each cycle.",
			ParamsTableMarkdown: "| param | default | meaning |\n|---|---|---|\n| L | 0 | lower bound |\n| H | 100 | upper bound |\n| max_step | 1 | max absolute step per cycle |\n| seed | 1 | PRNG seed |\n| start | midpoint | initial value |",
		},
	})
}
