// Package sleep contains the pure decision engine for occupancy and sleep
// staging. This package has no hardware, MQTT, or OS dependencies; time is
// always injectable via time.Time parameters.
package sleep

import "time"

// Stage is the sleep classification for a single sampling tick.
type Stage int

const (
	Wake Stage = iota
	Light
	REM
	Deep
)

// NumStages is the number of distinct sleep stages.
const NumStages = 4

func (s Stage) String() string {
	switch s {
	case Wake:
		return "WAKE"
	case Light:
		return "LIGHT"
	case REM:
		return "REM"
	case Deep:
		return "DEEP"
	default:
		return "UNKNOWN"
	}
}

// Asleep reports whether the stage counts as sleep rather than wakefulness.
func (s Stage) Asleep() bool {
	return s != Wake
}

// ActivityState carries the leaky-integrator state between ticks.
type ActivityState struct {
	// Level is the smoothed activity scalar, 0 when fully at rest.
	Level float64
	// LastSpike is the time of the most recent movement spike.
	// The zero value means no spike has been observed yet.
	LastSpike time.Time
}
