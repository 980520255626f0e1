package algorithm

import (
	"math"

	"github.com/flowlace/cyclesim/internal/registry"
)

// cylindricalTank implements CYLINDRICAL_TANK: integrates flow_in minus
// flow_out over cycle_time into a liquid level, reporting the level and
// the current volume. height and radius bound the tank's capacity; level
// is clamped to [0, height].
type cylindricalTank struct {
	height, radius float64
	area           float64
	cycleTime      float64

	Level, Volume float64
}

func newCylindricalTank(cycleTime float64, initArgs map[string]float64) (registry.Algorithm, error) {
	p := resolveParams(map[string]float64{"height": 10, "radius": 1, "initial_level": 0}, initArgs)
	t := &cylindricalTank{
		height:    p["height"],
		radius:    p["radius"],
		area:      math.Pi * p["radius"] * p["radius"],
		cycleTime: cycleTime,
		Level:     p["initial_level"],
	}
	t.Volume = t.Level * t.area
	return t, nil
}

func (t *cylindricalTank) Execute(kwargs map[string]float64) error {
	flowIn := kwargs["flow_in"]
	flowOut := kwargs["flow_out"]
	netVolume := (flowIn - flowOut) * t.cycleTime
	t.Volume += netVolume
	if t.Volume < 0 {
		t.Volume = 0
	}
	maxVolume := t.height * t.area
	if t.Volume > maxVolume {
		t.Volume = maxVolume
	}
	t.Level = t.Volume / t.area
	return nil
}

func (t *cylindricalTank) Attr(name string) (float64, bool) {
	switch name {
	case "level":
		return t.Level, true
	case "volume":
		return t.Volume, true
	}
	return 0, false
}

func (t *cylindricalTank) StoredAttributes() []string { return []string{"level", "volume"} }

func registerCylindricalTank(reg *registry.Registry) {
	reg.RegisterAlgorithm(registry.AlgorithmEntry{
		Type:    "CYLINDRICAL_TANK",
		Factory: newCylindricalTank,
		Doc: registry.Doc{
			EnglishName:         "Cylindrical Tank",
			ChineseName:         "圆柱形储罐",
			DocMarkdown:         "Integrates `flow_in` minus `flow_out` over `cycle_time` into `level` and `volume`, clamped to the tank's physical extent.",
			ParamsTableMarkdown: "| param | default | meaning |\n|---|---|---|\n| height | 10 | tank height |\n| radius | 1 | tank radius |\n| initial_level | 0 | starting liquid level |",
		},
	})
}
