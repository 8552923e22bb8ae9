// Package analysis derives heart-rate variability, stress and sleep quality
// metrics from the histories accumulated by the control loop. All functions
// are pure; callers pass slices and get values back.
package analysis

import "math"

// Stress normalization bounds. Heart rate and both HRV metrics are mapped
// onto [0,1] before weighting; values past a ceiling saturate at 1.
const (
	stressHRFloor      = 45.0
	stressHRCeiling    = 110.0
	stressRMSSDFloor   = 5.0
	stressRMSSDCeiling = 50.0
	stressSDNNCeiling  = 50.0

	stressHRWeight    = 0.4
	stressRMSSDWeight = 0.3
	stressSDNNWeight  = 0.3
)

// IntervalsFromHR converts instantaneous heart rates to inter-beat intervals
// in milliseconds. Non-positive rates are skipped.
func IntervalsFromHR(rates []int) []float64 {
	ibi := make([]float64, 0, len(rates))
	for _, hr := range rates {
		if hr <= 0 {
			continue
		}
		ibi = append(ibi, 60000.0/float64(hr))
	}
	return ibi
}

// RMSSD is the root mean square of successive inter-beat differences.
// Returns false with fewer than two intervals.
func RMSSD(ibi []float64) (float64, bool) {
	if len(ibi) < 2 {
		return 0, false
	}
	var sum float64
	for i := 1; i < len(ibi); i++ {
		d := ibi[i] - ibi[i-1]
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(ibi)-1)), true
}

// SDNN is the population standard deviation of the inter-beat intervals.
// Returns false with fewer than two intervals.
func SDNN(ibi []float64) (float64, bool) {
	if len(ibi) < 2 {
		return 0, false
	}
	var mean float64
	for _, v := range ibi {
		mean += v
	}
	mean /= float64(len(ibi))
	var sum float64
	for _, v := range ibi {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(ibi))), true
}

// StressScore combines heart rate and HRV into a 0-100 physiological stress
// estimate. High heart rate raises the score; high RMSSD and SDNN (a relaxed
// autonomic state) lower it.
func StressScore(heartRate float64, rmssd, sdnn float64) float64 {
	normHR := math.Min((heartRate-stressHRFloor)/(stressHRCeiling-stressHRFloor), 1)
	normRMSSD := math.Min((rmssd-stressRMSSDFloor)/(stressRMSSDCeiling-stressRMSSDFloor), 1)
	normSDNN := math.Min(sdnn/stressSDNNCeiling, 1)

	score := (normHR*stressHRWeight +
		(1-normRMSSD)*stressRMSSDWeight +
		(1-normSDNN)*stressSDNNWeight) * 100
	return score
}
