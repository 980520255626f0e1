package algorithm

import (
	"math/rand"

	"github.com/flowlace/cyclesim/internal/registry"
)

// flowSource implements FLOW_SOURCE, a supplemented algorithm (see
// SPEC_FULL.md) providing a noisy constant flow rate to drive
// CYLINDRICAL_TANK in example configurations: out = base_flow + noise,
// noise drawn uniformly from [-noise_amplitude, noise_amplitude].
type flowSource struct {
	base, noise float64
	rng         *rand.Rand
	out         float64
}

func newFlowSource(cycleTime float64, initArgs map[string]float64) (registry.Algorithm, error) {
	p := resolveParams(map[string]float64{"base_flow": 0, "noise_amplitude": 0, "seed": 1}, initArgs)
	return &flowSource{base: p["base_flow"], noise: p["noise_amplitude"], rng: rand.New(rand.NewSource(int64(p["seed"])))}, nil
}

func (f *flowSource) Execute(kwargs map[string]float64) error {
	f.out = f.base
	if f.noise > 0 {
		f.out += (f.rng.Float64()*2 - 1) * f.noise
	}
	return nil
}

func (f *flowSource) Attr(name string) (float64, bool) {
	if name == "out" {
		return f.out, true
	}
	return 0, false
}

func (f *flowSource) StoredAttributes() []string { return []string{"out"} }

func registerFlowSource(reg *registry.Registry) {
	reg.RegisterAlgorithm(registry.AlgorithmEntry{
		Type:    "FLOW_SOURCE",
		Factory: newFlowSource,
		Doc: registry.Doc{
			EnglishName:         "Flow Source",
			ChineseName:         "流量源",
			DocMarkdown:         "Emits `base_flow` plus uniform noise in `[-noise_amplitude, noise_amplitude]` on `out`, each cycle.",
			ParamsTableMarkdown: "| param | default | meaning |\n|---|---|---|\n| base_flow | 0 | constant flow rate |\n| noise_amplitude | 0 | peak noise magnitude |\n| seed | 1 | PRNG seed |",
		},
	})
}
