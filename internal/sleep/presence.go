package sleep

import (
	"time"

	"github.com/mfuentes/smartbed/internal/history"
)

// PresenceConfig holds the occupancy detector thresholds.
type PresenceConfig struct {
	EnterConfidence float64 // occupy at or above this score (default 60)
	ExitConfidence  float64 // release at or below this score (default 20)

	ThermalThreshold  float64 // bed elevation over baseline, °C (default 1.5)
	ActivityThreshold float64 // minimum activity for the movement indicator
	HRMin             int     // plausible heart-rate range (default 40)
	HRMax             int     // (default 150)

	HistorySize        int     // confidence history length (default 30)
	ConfirmationWindow int     // consecutive low samples to confirm exit (default 15)
	LowCeiling         float64 // per-sample ceiling inside the window (default 30)

	BaselineAlpha float64 // low-pass factor for baseline tracking (default 0.05)
}

// PresenceInput is the per-tick sensor view the detector consumes.
type PresenceInput struct {
	BedTemperature float64
	Activity       float64
	HeartRate      int
	HRValid        bool
	FingerPresent  bool
}

// Indicators reports which of the five weighted signals fired this tick.
type Indicators struct {
	Thermal   bool
	Movement  bool
	HeartRate bool
	Contact   bool
	Temporal  bool
}

// PresenceResult is the outcome of one detection tick.
type PresenceResult struct {
	Occupied      bool
	Confidence    float64
	Changed       bool // occupancy flipped this tick
	TempElevation float64
	Indicators    Indicators
}

// PresenceDetector fuses thermal elevation, motion, heart-rate validity,
// skin contact, and temporal consistency into an occupancy decision with
// asymmetric enter/exit hysteresis.
type PresenceDetector struct {
	cfg PresenceConfig

	occupied   bool
	confidence float64
	baseline   float64
	baselined  bool
	enteredAt  time.Time

	// scores holds the raw indicator sums (before the temporal bonus);
	// the exit confirmation window reads from here.
	scores *history.Ring[float64]
}

// NewPresenceDetector creates a detector in the Absent state.
func NewPresenceDetector(cfg PresenceConfig) *PresenceDetector {
	if cfg.HistorySize < 1 {
		cfg.HistorySize = 30
	}
	return &PresenceDetector{
		cfg:    cfg,
		scores: history.NewRing[float64](cfg.HistorySize),
	}
}

// Detect scores the current tick and applies the hysteresis rules.
func (d *PresenceDetector) Detect(in PresenceInput, now time.Time) PresenceResult {
	if !d.baselined {
		d.baseline = in.BedTemperature
		d.baselined = true
	}

	var ind Indicators
	score := 0.0

	// Thermal elevation above the rolling baseline.
	elevation := in.BedTemperature - d.baseline
	if elevation > d.cfg.ThermalThreshold {
		ind.Thermal = true
		score += 30
		if elevation > d.cfg.ThermalThreshold*2 {
			score += 10
		}
	}

	// Movement, scaled linearly up to a cap.
	if in.Activity > d.cfg.ActivityThreshold {
		ind.Movement = true
		pts := in.Activity * 250
		if pts > 25 {
			pts = 25
		}
		score += pts
	}

	// Valid heart rate inside the plausible range.
	if in.HRValid && in.HeartRate >= d.cfg.HRMin && in.HeartRate <= d.cfg.HRMax {
		ind.HeartRate = true
		score += 35
		if in.HeartRate >= 50 && in.HeartRate <= 80 {
			score += 5
		}
	}

	// Skin contact on the oximetry sensor.
	if in.FingerPresent {
		ind.Contact = true
		score += 20
	}

	// Temporal consistency: mean of the last 5 raw scores, including this
	// tick's. The history stores the pre-bonus sum.
	d.scores.Push(score)
	if d.scores.Len() >= 5 {
		recent := d.scores.Last(5)
		sum := 0.0
		for _, s := range recent {
			sum += s
		}
		if sum/5 > 50 {
			ind.Temporal = true
			score += 10
		}
	}

	if score > 100 {
		score = 100
	}
	d.confidence = score

	changed := d.updateState(now)

	return PresenceResult{
		Occupied:      d.occupied,
		Confidence:    d.confidence,
		Changed:       changed,
		TempElevation: elevation,
		Indicators:    ind,
	}
}

// updateState applies the asymmetric hysteresis. Entering is an
// instantaneous edge; leaving requires the whole confirmation window of
// raw scores at or below the low ceiling.
func (d *PresenceDetector) updateState(now time.Time) bool {
	if !d.occupied && d.confidence >= d.cfg.EnterConfidence {
		d.occupied = true
		d.enteredAt = now
		return true
	}

	if d.occupied && d.confidence <= d.cfg.ExitConfidence {
		if d.scores.Len() >= d.cfg.ConfirmationWindow {
			for _, s := range d.scores.Last(d.cfg.ConfirmationWindow) {
				if s > d.cfg.LowCeiling {
					return false
				}
			}
			d.occupied = false
			d.enteredAt = time.Time{}
			return true
		}
	}
	return false
}

// UpdateBaseline low-pass tracks the empty-bed temperature. Only applied
// while Absent so body heat never corrupts the baseline.
func (d *PresenceDetector) UpdateBaseline(bedTemp float64) {
	if d.occupied {
		return
	}
	if !d.baselined {
		d.baseline = bedTemp
		d.baselined = true
		return
	}
	a := d.cfg.BaselineAlpha
	d.baseline = (1-a)*d.baseline + a*bedTemp
}

// Occupied reports the current hysteresis state.
func (d *PresenceDetector) Occupied() bool {
	return d.occupied
}

// Confidence returns the last computed 0-100 score.
func (d *PresenceDetector) Confidence() float64 {
	return d.confidence
}

// Baseline returns the empty-bed temperature estimate.
// ok is false until the first reading has been observed.
func (d *PresenceDetector) Baseline() (temp float64, ok bool) {
	return d.baseline, d.baselined
}

// TimeOccupied returns how long the bed has been continuously occupied.
func (d *PresenceDetector) TimeOccupied(now time.Time) time.Duration {
	if !d.occupied || d.enteredAt.IsZero() {
		return 0
	}
	return now.Sub(d.enteredAt)
}
