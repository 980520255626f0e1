package algorithm

import "github.com/flowlace/cyclesim/internal/registry"

// pid implements PID: a proportional-band controller with integral and
// derivative terms, deterministic given its inputs and prior state.
//
// pb is the proportional band (the span of PV, as a fraction of SV's
// engineering range, over which the output moves from 0 to 100%); ti and
// td are the integral and derivative times in seconds. MV is clamped to
// [0, 100].
type pid struct {
	pb, ti, td float64
	cycleTime  float64

	integral float64
	prevErr  float64
	hasPrev  bool

	MV, PV, SV, Error float64
}

func newPID(cycleTime float64, initArgs map[string]float64) (registry.Algorithm, error) {
	p := resolveParams(map[string]float64{"pb": 100, "ti": 0, "td": 0}, initArgs)
	return &pid{pb: p["pb"], ti: p["ti"], td: p["td"], cycleTime: cycleTime}, nil
}

func (c *pid) Execute(kwargs map[string]float64) error {
	sv, hasSV := kwargs["SV"]
	if hasSV {
		c.SV = sv
	}
	if pv, ok := kwargs["PV"]; ok {
		c.PV = pv
	}

	err := c.SV - c.PV
	c.Error = err

	gain := 100.0 / c.pb

	c.integral += err * c.cycleTime
	var derivative float64
	if c.hasPrev {
		derivative = (err - c.prevErr) / c.cycleTime
	}
	c.prevErr = err
	c.hasPrev = true

	mv := gain * err
	if c.ti > 0 {
		mv += gain * c.integral / c.ti
	}
	if c.td > 0 {
		mv += gain * c.td * derivative
	}

	switch {
	case mv < 0:
		mv = 0
	case mv > 100:
		mv = 100
	}
	c.MV = mv
	return nil
}

func (c *pid) Attr(name string) (float64, bool) {
	switch name {
	case "MV":
		return c.MV, true
	case "PV":
		return c.PV, true
	case "SV":
		return c.SV, true
	case "error":
		return c.Error, true
	}
	return 0, false
}

func (c *pid) StoredAttributes() []string { return []string{"MV", "PV", "SV", "error"} }

func registerPID(reg *registry.Registry) {
	reg.RegisterAlgorithm(registry.AlgorithmEntry{
		Type:    "PID",
		Factory: newPID,
		Doc: registry.Doc{
			EnglishName:         "PID Controller",
			ChineseName:         "PID 控制器",
			DocMarkdown:         "Proportional-band PID controller. Each cycle resolves `SV` and `PV` from keyword arguments, updates `MV`, and persists `MV, PV, SV, error`.",
			ParamsTableMarkdown: "| param | default | meaning |\n|---|---|---|\n| pb | 100 | proportional band |\n| ti | 0 | integral time (s), 0 disables |\n| td | 0 | derivative time (s), 0 disables |",
		},
	})
}
