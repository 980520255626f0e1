package algorithm

import (
	"fmt"

	"github.com/flowlace/cyclesim/internal/registry"
)

// listWave implements LIST_WAVE: a sequence of held values, each value
// output for a configured duration before advancing to the next and
// wrapping around. Its configuration is naturally a list of
// (value, duration_seconds) pairs, but init_args only holds
// {key: scalar} entries (see DESIGN.md), so this implementation
// flattens the list into scalar keys: an integer `n` gives the entry
// count, and `v0..v{n-1}` / `d0..d{n-1}` give each entry's value and
// duration in seconds.
type listWave struct {
	cycleTime float64
	values    []float64
	cycles    []int // duration in cycles, int(duration/cycle_time) truncated, minimum 1
	index     int
	remaining int
	out       float64
}

func newListWave(cycleTime float64, initArgs map[string]float64) (registry.Algorithm, error) {
	n := int(initArgs["n"])
	if n <= 0 {
		return nil, fmt.Errorf("LIST_WAVE requires init_args.n >= 1")
	}
	lw := &listWave{cycleTime: cycleTime, values: make([]float64, n), cycles: make([]int, n)}
	for i := 0; i < n; i++ {
		v, ok := initArgs[fmt.Sprintf("v%d", i)]
		if !ok {
			return nil, fmt.Errorf("LIST_WAVE missing init_args.v%d", i)
		}
		d, ok := initArgs[fmt.Sprintf("d%d", i)]
		if !ok {
			return nil, fmt.Errorf("LIST_WAVE missing init_args.d%d", i)
		}
		lw.values[i] = v
		c := int(d / cycleTime)
		if c < 1 {
			c = 1
		}
		lw.cycles[i] = c
	}
	lw.out = lw.values[0]
	lw.remaining = lw.cycles[0]
	return lw, nil
}

func (lw *listWave) Execute(kwargs map[string]float64) error {
	lw.out = lw.values[lw.index]
	lw.remaining--
	if lw.remaining <= 0 {
		lw.index = (lw.index + 1) % len(lw.values)
		lw.remaining = lw.cycles[lw.index]
	}
	return nil
}

func (lw *listWave) Attr(name string) (float64, bool) {
	if name == "out" {
		return lw.out, true
	}
	return 0, false
}

func (lw *listWave) StoredAttributes() []string { return []string{"out"} }

func registerListWave(reg *registry.Registry) {
	reg.RegisterAlgorithm(registry.AlgorithmEntry{
		Type:    "LIST_WAVE",
		Factory: newListWave,
		Doc: registry.Doc{
			EnglishName:         "List Wave",
			ChineseName:         "列表波形",
			DocMarkdown:         "Emits `v{i}` for `d{i}/cycle_time` cycles, cycling through `0..n-1` indefinitely, on `out`.",
			ParamsTableMarkdown: "| param | meaning |\n|---|---|\n| n | number of entries |\n| v0..v{n-1} | entry values |\n| d0..d{n-1} | entry durations in seconds |",
		},
	})
}
