package thermal

import (
	"testing"
	"time"
)

func testTrendConfig() TrendConfig {
	return TrendConfig{
		WindowSize:        30,
		MinRateSamples:    5,
		AnomalyRate:       0.5,
		ProjectionHorizon: 5 * time.Minute,
		VarianceWindow:    10,
		VarianceTolerance: 2.0,
		StableVariance:    0.1,
		SafeMin:           15.0,
		SafeMax:           30.0,
	}
}

func feed(a *TrendAnalyzer, start time.Time, step time.Duration, temps []float64) TrendResult {
	var res TrendResult
	for i, temp := range temps {
		res = a.Observe(start.Add(time.Duration(i)*step), temp)
	}
	return res
}

func TestNoRateBeforeMinSamples(t *testing.T) {
	a := NewTrendAnalyzer(testTrendConfig())
	start := time.Date(2026, 3, 1, 23, 0, 0, 0, time.UTC)

	res := feed(a, start, 2*time.Second, []float64{22, 22.1, 22.0, 22.1})
	if res.Rate != 0 {
		t.Errorf("expected no rate with 4 samples, got %g", res.Rate)
	}
	if res.Advisory != AdvisoryNormal {
		t.Errorf("expected normal advisory, got %s", res.Advisory)
	}
}

func TestRateOfChange(t *testing.T) {
	a := NewTrendAnalyzer(testTrendConfig())
	start := time.Date(2026, 3, 1, 23, 0, 0, 0, time.UTC)

	// 5 samples over 4 minutes, +1.2 degrees: 0.3 °C/min.
	res := feed(a, start, time.Minute, []float64{22.0, 22.3, 22.6, 22.9, 23.2})
	if diff := res.Rate - 0.3; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("expected rate 0.3, got %g", res.Rate)
	}
	if res.Anomaly {
		t.Error("0.3 °C/min should not flag an anomaly")
	}
}

func TestAnomalousHeating(t *testing.T) {
	a := NewTrendAnalyzer(testTrendConfig())
	start := time.Date(2026, 3, 1, 23, 0, 0, 0, time.UTC)

	// +0.6 °C/min over 4 minutes.
	res := feed(a, start, time.Minute, []float64{20.0, 20.6, 21.2, 21.8, 22.4})
	if !res.Anomaly {
		t.Errorf("expected anomaly at rate %g", res.Rate)
	}
}

func TestPreventiveCooling(t *testing.T) {
	a := NewTrendAnalyzer(testTrendConfig())
	start := time.Date(2026, 3, 1, 23, 0, 0, 0, time.UTC)

	// Rising at 0.4 °C/min from 27.0: projected 28.6+2.0 exceeds 30.
	res := feed(a, start, time.Minute, []float64{27.0, 27.4, 27.8, 28.2, 28.6})
	if res.Advisory != AdvisoryPreventiveCooling {
		t.Errorf("expected preventive cooling, got %s (predicted %g)", res.Advisory, res.Predicted)
	}
}

func TestPreventiveHeating(t *testing.T) {
	a := NewTrendAnalyzer(testTrendConfig())
	start := time.Date(2026, 3, 1, 23, 0, 0, 0, time.UTC)

	res := feed(a, start, time.Minute, []float64{18.0, 17.6, 17.2, 16.8, 16.4})
	if res.Advisory != AdvisoryPreventiveHeating {
		t.Errorf("expected preventive heating, got %s (predicted %g)", res.Advisory, res.Predicted)
	}
}

func TestStabilizationNeeded(t *testing.T) {
	a := NewTrendAnalyzer(testTrendConfig())
	start := time.Date(2026, 3, 1, 23, 0, 0, 0, time.UTC)

	// Oscillating hard around 22 with zero net first-to-last change, so
	// the rate stays benign but the variance exceeds the 2.0 tolerance.
	temps := []float64{22, 24, 20, 24, 20, 24, 20, 24, 20, 24, 22}
	res := feed(a, start, 2*time.Second, temps)
	if res.Advisory != AdvisoryStabilization {
		t.Errorf("expected stabilization, got %s (variance %g)", res.Advisory, res.Variance)
	}
}

func TestStableAdvisory(t *testing.T) {
	a := NewTrendAnalyzer(testTrendConfig())
	start := time.Date(2026, 3, 1, 23, 0, 0, 0, time.UTC)

	temps := make([]float64, 10)
	for i := range temps {
		temps[i] = 22.0
	}
	res := feed(a, start, 2*time.Second, temps)
	if res.Advisory != AdvisoryStable {
		t.Errorf("expected stable, got %s (variance %g)", res.Advisory, res.Variance)
	}
}

func TestPreventiveBeatsStabilization(t *testing.T) {
	a := NewTrendAnalyzer(testTrendConfig())
	start := time.Date(2026, 3, 1, 23, 0, 0, 0, time.UTC)

	// High variance AND a runaway heating trend: preventive wins.
	temps := []float64{20, 25, 21, 26, 22, 27, 23, 28, 24, 29}
	res := feed(a, start, time.Minute, temps)
	if res.Advisory != AdvisoryPreventiveCooling {
		t.Errorf("expected preventive cooling priority, got %s", res.Advisory)
	}
}

func TestWindowBounded(t *testing.T) {
	cfg := testTrendConfig()
	a := NewTrendAnalyzer(cfg)
	start := time.Date(2026, 3, 1, 23, 0, 0, 0, time.UTC)

	// Feed far more than the window; the rate must reflect only the
	// retained span (flat tail), not the early ramp.
	temps := make([]float64, 60)
	for i := range temps {
		if i < 20 {
			temps[i] = 18.0 + float64(i)*0.2
		} else {
			temps[i] = 22.0
		}
	}
	res := feed(a, start, 2*time.Second, temps)
	if res.Rate != 0 {
		t.Errorf("expected zero rate over flat retained window, got %g", res.Rate)
	}
}
