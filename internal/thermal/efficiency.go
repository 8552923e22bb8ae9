package thermal

// EfficiencyScore grades how closely the bed tracks its target, 0-100.
// Buckets widen from the control tolerance out to the natural variance
// band and beyond.
func EfficiencyScore(target, current, tolerance, varianceTolerance float64) int {
	err := abs(target - current)
	switch {
	case err <= tolerance:
		return 100
	case err <= 1.0:
		return 85
	case err <= varianceTolerance:
		return 70
	case err <= 3.0:
		return 50
	default:
		return 25
	}
}
