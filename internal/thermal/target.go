package thermal

import (
	"github.com/mfuentes/smartbed/internal/sleep"
)

// Band is an inclusive temperature range in °C.
type Band struct {
	Min float64
	Max float64
}

// Mid returns the band midpoint.
func (b Band) Mid() float64 {
	return (b.Min + b.Max) / 2
}

// TargetConfig holds the setpoint computation constants.
type TargetConfig struct {
	// ComfortZones maps each sleep stage to its comfort band.
	ComfortZones [sleep.NumStages]Band

	// StageOffsets reflect the natural nocturnal thermal descent per stage.
	StageOffsets [sleep.NumStages]float64

	// AmbientLow/AmbientHigh bound the comfortable ambient middle band;
	// outside it the target shifts by AmbientAdjust.
	AmbientLow    float64 // default 15
	AmbientHigh   float64 // default 25
	AmbientAdjust float64 // default 1.0

	// Body-temperature correction thresholds, °C.
	BodyBasal       float64 // reference basal temperature (default 36.8)
	BodyFever       float64 // default 38.0
	BodyElevated    float64 // default 37.5
	BodyHypothermia float64 // default 35.5

	// Anticipatory adjustments on detected stage transitions.
	AnticipateDeep float64 // default -0.3
	AnticipateWake float64 // default +0.4

	SafeMin float64 // global safe bed range
	SafeMax float64

	// MaxDeltaPerTick rate-limits the setpoint between consecutive ticks.
	MaxDeltaPerTick float64
}

// TargetCalculator derives the bed setpoint from sleep stage, ambient and
// body temperature, and recent stage history, with rate-limited smoothing
// against the previous tick's output.
type TargetCalculator struct {
	cfg    TargetConfig
	last   float64
	warmed bool
}

// NewTargetCalculator creates a calculator with no smoothing memory.
func NewTargetCalculator(cfg TargetConfig) *TargetCalculator {
	return &TargetCalculator{cfg: cfg}
}

// Compute returns the setpoint for this tick. recentStages is the tail of
// the stage history (the anticipation rule needs the last 10 samples and is
// skipped with fewer).
func (c *TargetCalculator) Compute(stage sleep.Stage, ambient, body float64, recentStages []sleep.Stage) float64 {
	comfort := c.cfg.ComfortZones[stage]
	target := comfort.Mid() + c.cfg.StageOffsets[stage]

	adjust := 0.0
	if ambient > c.cfg.AmbientHigh {
		adjust -= c.cfg.AmbientAdjust
	} else if ambient < c.cfg.AmbientLow {
		adjust += c.cfg.AmbientAdjust
	}

	adjust += c.bodyCorrection(body)
	adjust += c.anticipation(recentStages)

	target += adjust

	// Clamp to the stage band, then to the global safe range.
	target = clamp(target, comfort.Min, comfort.Max)
	target = clamp(target, c.cfg.SafeMin, c.cfg.SafeMax)

	// Rate-limit against the previous tick once warmed up; noisy inputs
	// must not translate into oscillatory valve cycling.
	if c.warmed {
		delta := target - c.last
		if delta > c.cfg.MaxDeltaPerTick {
			target = c.last + c.cfg.MaxDeltaPerTick
		} else if delta < -c.cfg.MaxDeltaPerTick {
			target = c.last - c.cfg.MaxDeltaPerTick
		}
	}
	c.last = target
	c.warmed = true
	return target
}

// bodyCorrection compensates for body-temperature deviations from basal:
// progressive cooling for fever, milder cooling when merely elevated,
// progressive warming for hypothermia, mild warming for sub-normal drift.
func (c *TargetCalculator) bodyCorrection(body float64) float64 {
	dev := body - c.cfg.BodyBasal
	switch {
	case body >= c.cfg.BodyFever:
		return -(3.0 + (body-c.cfg.BodyFever)*0.5)
	case body >= c.cfg.BodyElevated:
		return -(1.5 + dev*0.3)
	case body <= c.cfg.BodyHypothermia:
		return 2.0 + abs(dev)*0.4
	case dev < -0.5:
		return abs(dev) * 0.6
	default:
		return 0
	}
}

// anticipation pre-cools when the sleeper is settling into deep sleep and
// pre-warms on an emerging wake, comparing the newest sample against the
// one five samples back over a 10-sample tail.
func (c *TargetCalculator) anticipation(recent []sleep.Stage) float64 {
	if len(recent) < 10 {
		return 0
	}
	tail := recent[len(recent)-10:]
	newest := tail[len(tail)-1]
	prior := tail[len(tail)-5]
	if newest == prior {
		return 0
	}
	if newest == sleep.Deep {
		return c.cfg.AnticipateDeep
	}
	if newest == sleep.Wake {
		return c.cfg.AnticipateWake
	}
	return 0
}

// Last returns the previous setpoint. ok is false before the first Compute.
func (c *TargetCalculator) Last() (target float64, ok bool) {
	return c.last, c.warmed
}

// StageTolerance scales the base tolerance for the current stage: widened
// in deep sleep, narrowed in REM where thermoregulation is vigilance-like.
func StageTolerance(base float64, stage sleep.Stage) float64 {
	switch stage {
	case sleep.Deep:
		return base * 1.5
	case sleep.REM:
		return base * 0.8
	default:
		return base
	}
}

// ApplyAdvisory folds a trend advisory into the effective target and
// tolerance before arbitration: preventive advisories shift the target by
// the preventive step, stabilization halves the tolerance.
func ApplyAdvisory(target, tolerance float64, adv Advisory) (float64, float64) {
	const preventiveStep = 0.5
	switch adv {
	case AdvisoryPreventiveCooling:
		return target - preventiveStep, tolerance
	case AdvisoryPreventiveHeating:
		return target + preventiveStep, tolerance
	case AdvisoryStabilization:
		return target, tolerance * 0.5
	default:
		return target, tolerance
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
