// Package thermal implements the predictive temperature control chain:
// trend analysis over a rolling window, target-temperature computation,
// and safety-constrained valve arbitration.
package thermal

import (
	"time"

	"github.com/mfuentes/smartbed/internal/history"
)

// Advisory is a non-binding signal from trend analysis that biases the
// target temperature or the tolerance used downstream.
type Advisory int

const (
	AdvisoryNormal Advisory = iota
	AdvisoryStable
	AdvisoryStabilization
	AdvisoryPreventiveCooling
	AdvisoryPreventiveHeating
)

func (a Advisory) String() string {
	switch a {
	case AdvisoryStable:
		return "stable"
	case AdvisoryStabilization:
		return "stabilization_needed"
	case AdvisoryPreventiveCooling:
		return "preventive_cooling"
	case AdvisoryPreventiveHeating:
		return "preventive_heating"
	default:
		return "normal"
	}
}

// TrendConfig holds the trend-analysis tuning constants.
type TrendConfig struct {
	WindowSize        int           // rolling sample capacity (default 30)
	MinRateSamples    int           // samples before a rate is computed (default 5)
	AnomalyRate       float64       // °C/min considered anomalous (default 0.5)
	ProjectionHorizon time.Duration // look-ahead for prevention (default 5m)
	VarianceWindow    int           // samples for the variance check (default 10)
	VarianceTolerance float64       // above: stabilization needed (default 2.0)
	StableVariance    float64       // below: stable (default 0.1)
	SafeMin           float64       // safe bed band, °C
	SafeMax           float64
}

// TrendResult is the outcome of observing one temperature sample.
type TrendResult struct {
	Advisory  Advisory
	Rate      float64 // °C/min over the window span
	Anomaly   bool    // |Rate| exceeded the anomaly threshold
	Predicted float64 // projected temperature at the horizon
	Variance  float64 // over the most recent variance window
}

type tempSample struct {
	at   time.Time
	temp float64
}

// TrendAnalyzer maintains the bounded bed-temperature history and derives
// rate of change, anomaly flags, and near-future projections from it.
type TrendAnalyzer struct {
	cfg     TrendConfig
	samples *history.Ring[tempSample]
	rate    float64
}

// NewTrendAnalyzer creates an analyzer with an empty window.
func NewTrendAnalyzer(cfg TrendConfig) *TrendAnalyzer {
	if cfg.WindowSize < 1 {
		cfg.WindowSize = 30
	}
	return &TrendAnalyzer{
		cfg:     cfg,
		samples: history.NewRing[tempSample](cfg.WindowSize),
	}
}

// Observe records one bed-temperature sample and returns at most one
// advisory, in priority order: preventive > stabilization > stable/normal.
func (a *TrendAnalyzer) Observe(now time.Time, temp float64) TrendResult {
	a.samples.Push(tempSample{at: now, temp: temp})
	res := TrendResult{Advisory: AdvisoryNormal, Predicted: temp}

	if a.samples.Len() >= a.cfg.MinRateSamples {
		first := a.samples.At(0)
		last := a.samples.At(a.samples.Len() - 1)
		minutes := last.at.Sub(first.at).Minutes()
		if minutes > 0 {
			a.rate = (last.temp - first.temp) / minutes
			res.Rate = a.rate
			if a.rate > a.cfg.AnomalyRate || a.rate < -a.cfg.AnomalyRate {
				res.Anomaly = true
			}

			res.Predicted = temp + a.rate*a.cfg.ProjectionHorizon.Minutes()
			if res.Predicted > a.cfg.SafeMax {
				res.Advisory = AdvisoryPreventiveCooling
				return res
			}
			if res.Predicted < a.cfg.SafeMin {
				res.Advisory = AdvisoryPreventiveHeating
				return res
			}
		}
	}

	if a.samples.Len() >= a.cfg.VarianceWindow {
		res.Variance = variance(a.samples.Last(a.cfg.VarianceWindow))
		if res.Variance > a.cfg.VarianceTolerance {
			res.Advisory = AdvisoryStabilization
		} else if res.Variance < a.cfg.StableVariance {
			res.Advisory = AdvisoryStable
		}
	}

	return res
}

// Rate returns the last computed rate of change in °C/min.
func (a *TrendAnalyzer) Rate() float64 {
	return a.rate
}

// variance is the population variance of the sample temperatures.
func variance(samples []tempSample) float64 {
	if len(samples) == 0 {
		return 0
	}
	mean := 0.0
	for _, s := range samples {
		mean += s.temp
	}
	mean /= float64(len(samples))

	v := 0.0
	for _, s := range samples {
		d := s.temp - mean
		v += d * d
	}
	return v / float64(len(samples))
}
