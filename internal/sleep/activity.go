package sleep

import "time"

// IntegratorConfig holds the leaky-integrator tuning constants.
type IntegratorConfig struct {
	// MovementThreshold is the minimum acceleration-magnitude delta that
	// counts as a movement spike.
	MovementThreshold float64
	// SpikeFraction is how far the level moves toward 1 on a spike.
	SpikeFraction float64
	// DecayConstant is the exponential decay time constant.
	DecayConstant time.Duration
	// DecayDelay is how long after the last spike decay begins.
	DecayDelay time.Duration
	// LowerBound snaps the level to exactly 0 once crossed.
	LowerBound float64
}

// Integrator turns per-tick acceleration deltas into a smoothed, decaying
// activity level. Pure numeric transform, no error paths.
type Integrator struct {
	cfg IntegratorConfig
}

// NewIntegrator creates an integrator with the given constants.
func NewIntegrator(cfg IntegratorConfig) Integrator {
	return Integrator{cfg: cfg}
}

// Step advances the activity state by one sample. diff is the acceleration
// magnitude delta since the previous sample and dt the elapsed time.
func (g Integrator) Step(s ActivityState, diff float64, dt time.Duration, now time.Time) ActivityState {
	if diff > g.cfg.MovementThreshold {
		s.Level += (1.0 - s.Level) * g.cfg.SpikeFraction
		s.LastSpike = now
	}

	// LastSpike zero value reads as the distant past, so decay applies
	// immediately for a level inherited without any observed spike.
	if now.Sub(s.LastSpike) > g.cfg.DecayDelay && s.Level > g.cfg.LowerBound {
		s.Level += -s.Level * (float64(dt) / float64(g.cfg.DecayConstant))
	}

	if s.Level < g.cfg.LowerBound {
		s.Level = 0.0
	}
	return s
}
