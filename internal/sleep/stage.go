package sleep

// StageThresholds holds the classification cut points for both regimes.
type StageThresholds struct {
	// Activity regime, increasing bands: below ActivityREM the subject is
	// in the REM micro-movement band, below ActivityDeep otherwise deep,
	// below ActivityWake light, else wake. The REM band is checked first:
	// it sits inside the deep band and would be unreachable otherwise.
	ActivityREM  float64 // default 0.008
	ActivityDeep float64 // default 0.01
	ActivityWake float64 // default 0.7

	// Heart-rate regime (BPM).
	HRDeep int // below this: deep (default 55)
	HRWake int // at or above this: wake (default 75)

	// HRREM is the minimum heart rate for resolving the REM band to REM.
	HRREM int // default 70
	// HRLightCeiling resolves the REM band to light sleep below it.
	HRLightCeiling int // default 65
}

type activityRegime int

const (
	regimeREMOrLight activityRegime = iota
	regimeDeep
	regimeLight
	regimeWake
)

type hrRegime int

const (
	hrDeep hrRegime = iota
	hrLight
	hrWake
)

// ClassifyStage maps an activity level and heart rate to a sleep stage.
// Pure function: identical inputs always yield the identical stage.
//
// REM is defined by the co-occurrence of autonomic activation (elevated
// heart rate) and muscle atonia (very low but non-zero micro-movement
// activity); neither signal alone separates REM from light sleep, hence
// the asymmetric tie-break below. The rule ordering is deliberate:
// reordering changes outcomes for borderline inputs.
func ClassifyStage(activity float64, heartRate int, t StageThresholds) Stage {
	var act activityRegime
	switch {
	case activity < t.ActivityREM:
		act = regimeREMOrLight
	case activity < t.ActivityDeep:
		act = regimeDeep
	case activity < t.ActivityWake:
		act = regimeLight
	default:
		act = regimeWake
	}

	var hr hrRegime
	switch {
	case heartRate < t.HRDeep:
		hr = hrDeep
	case heartRate < t.HRWake:
		hr = hrLight
	default:
		hr = hrWake
	}

	switch act {
	case regimeDeep:
		// Both regimes agreeing confirms deep sleep; with a disagreeing
		// heart rate the activity regime is still returned as-is.
		return Deep

	case regimeREMOrLight:
		if heartRate >= t.HRREM && activity < t.ActivityREM {
			return REM // elevated HR + micro-movements
		}
		if heartRate < t.HRLightCeiling {
			return Light
		}
		return Wake // awake but motionless

	case regimeLight:
		if hr == hrWake {
			return Wake // moderate movement + elevated rate
		}
		return Light

	default:
		return Wake
	}
}
