// Package algorithm implements the concrete stateful algorithm classes
// of the canonical suite: SINE_WAVE, SQUARE_WAVE, TRIANGLE_WAVE,
// LIST_WAVE, RANDOM, PID, CYLINDRICAL_TANK, VALVE, and the supplemented
// FLOW_SOURCE driver.
//
// Every algorithm type follows the same construction rule: effective
// parameters are default_params overlaid with the configuration's
// init_args, and the engine's cycle_time is injected at construction so an
// algorithm can compute discrete step sizes (periods in samples,
// slew-per-cycle) correctly.
package algorithm

import "github.com/flowlace/cyclesim/internal/registry"

// resolveParams overlays initArgs onto defaults, returning a fresh map so
// callers can mutate it without aliasing the caller-supplied initArgs.
func resolveParams(defaults map[string]float64, initArgs map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(defaults))
	for k, v := range defaults {
		out[k] = v
	}
	for k, v := range initArgs {
		out[k] = v
	}
	return out
}

// RegisterAll registers every concrete algorithm class in this package with
// reg. Registration is explicit and threaded through construction rather
// than performed via package-level init(), so registry contents are
// deterministic and test-local registries never see algorithms they did
// not ask for.
func RegisterAll(reg *registry.Registry) {
	registerSineWave(reg)
	registerSquareWave(reg)
	registerTriangleWave(reg)
	registerListWave(reg)
	registerRandom(reg)
	registerPID(reg)
	registerCylindricalTank(reg)
	registerValve(reg)
	registerFlowSource(reg)
}
