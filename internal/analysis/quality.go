package analysis

import (
	"math"
	"time"

	"github.com/mfuentes/smartbed/internal/sleep"
)

// Target stage distribution for a healthy night. Deep and REM scores ramp
// linearly up to their optimum and saturate there; light sleep peaks at 50%
// of the night and falls off on both sides; any wake fraction above 5%
// zeroes the wake component.
const (
	optimalDeepRatio  = 0.20
	optimalREMRatio   = 0.25
	optimalLightRatio = 0.50
	maxWakeRatio      = 0.05

	deepWeight  = 0.3
	remWeight   = 0.3
	lightWeight = 0.3
	wakeWeight  = 0.1

	distributionWeight = 0.5
	hrSteadinessWeight = 0.25
	stillnessWeight    = 0.25

	// MinQualitySamples is the shortest stage history a quality score is
	// computed from.
	MinQualitySamples = 30
)

// StageCounts tallies how many samples fall in each stage.
func StageCounts(stages []sleep.Stage) [sleep.NumStages]int {
	var counts [sleep.NumStages]int
	for _, s := range stages {
		if s >= 0 && int(s) < sleep.NumStages {
			counts[s]++
		}
	}
	return counts
}

// QualityScore rates a sleep session 0-100 from its stage history, the
// heart rates sampled alongside it, and the activity levels. The hr and
// activity slices are index-aligned with stages; either may be nil, in
// which case that component falls back to a neutral 50.
func QualityScore(stages []sleep.Stage, heartRates []int, activity []float64) (float64, bool) {
	if len(stages) < MinQualitySamples {
		return 0, false
	}

	counts := StageCounts(stages)
	total := float64(len(stages))
	wakeRatio := float64(counts[sleep.Wake]) / total
	lightRatio := float64(counts[sleep.Light]) / total
	remRatio := float64(counts[sleep.REM]) / total
	deepRatio := float64(counts[sleep.Deep]) / total

	deepScore := math.Min(deepRatio/optimalDeepRatio, 1) * 100
	remScore := math.Min(remRatio/optimalREMRatio, 1) * 100
	lightScore := math.Max(0, 1-math.Abs(lightRatio-optimalLightRatio)*2) * 100
	wakeScore := math.Max(0, 1-wakeRatio/maxWakeRatio) * 100

	distribution := deepScore*deepWeight + remScore*remWeight +
		lightScore*lightWeight + wakeScore*wakeWeight

	// Heart-rate steadiness while asleep. A flat rate scores 100, each
	// bpm of standard deviation costs two points.
	hrScore := 50.0
	if sleepHR := asleepHeartRates(stages, heartRates); len(sleepHR) > 0 {
		hrScore = math.Max(0, 100-stddev(sleepHR)*2)
	}

	// Stillness while asleep.
	actScore := 50.0
	if sleepAct := asleepActivity(stages, activity); len(sleepAct) > 0 {
		actScore = math.Max(0, 100-mean(sleepAct)*200)
	}

	score := distribution*distributionWeight + hrScore*hrSteadinessWeight + actScore*stillnessWeight
	return math.Min(100, math.Max(0, score)), true
}

// Transitions counts stage changes between consecutive samples.
func Transitions(stages []sleep.Stage) int {
	n := 0
	for i := 1; i < len(stages); i++ {
		if stages[i] != stages[i-1] {
			n++
		}
	}
	return n
}

// FragmentationIndex is the number of stage transitions per hour of
// monitoring at the given sampling interval. Returns false with fewer
// than two samples or a non-positive interval.
func FragmentationIndex(stages []sleep.Stage, interval time.Duration) (float64, bool) {
	if len(stages) < 2 || interval <= 0 {
		return 0, false
	}
	hours := (time.Duration(len(stages)) * interval).Hours()
	return float64(Transitions(stages)) / hours, true
}

// OnsetWindow is the number of consecutive samples examined when looking
// for sleep onset; at least 80% of them must be asleep.
const OnsetWindow = 10

// DetectOnset finds the first sustained run of sleep and returns its start
// index. Returns false when the history is shorter than the window or no
// qualifying run exists.
func DetectOnset(stages []sleep.Stage) (int, bool) {
	if len(stages) < OnsetWindow {
		return 0, false
	}
	need := int(math.Ceil(float64(OnsetWindow) * 0.8))
	for i := 0; i+OnsetWindow <= len(stages); i++ {
		asleep := 0
		for _, s := range stages[i : i+OnsetWindow] {
			if s.Asleep() {
				asleep++
			}
		}
		if asleep >= need {
			return i, true
		}
	}
	return 0, false
}

// WakePeriod is a contiguous run of wake samples inside a session.
type WakePeriod struct {
	Start  int // index of the first wake sample
	Length int // run length in samples
}

// WakePeriods returns every contiguous wake run of at least minRun samples,
// in order of occurrence.
func WakePeriods(stages []sleep.Stage, minRun int) []WakePeriod {
	var periods []WakePeriod
	for i := 0; i < len(stages); {
		if stages[i] != sleep.Wake {
			i++
			continue
		}
		start := i
		for i < len(stages) && stages[i] == sleep.Wake {
			i++
		}
		if run := i - start; run >= minRun {
			periods = append(periods, WakePeriod{Start: start, Length: run})
		}
	}
	return periods
}

// asleepHeartRates filters heart rates down to samples where the aligned
// stage is asleep. Alignment stops at the shorter slice.
func asleepHeartRates(stages []sleep.Stage, heartRates []int) []float64 {
	n := len(stages)
	if len(heartRates) < n {
		n = len(heartRates)
	}
	out := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		if stages[i].Asleep() {
			out = append(out, float64(heartRates[i]))
		}
	}
	return out
}

func asleepActivity(stages []sleep.Stage, activity []float64) []float64 {
	n := len(stages)
	if len(activity) < n {
		n = len(activity)
	}
	out := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		if stages[i].Asleep() {
			out = append(out, activity[i])
		}
	}
	return out
}

func mean(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	var sum float64
	for _, x := range v {
		sum += x
	}
	return sum / float64(len(v))
}

func stddev(v []float64) float64 {
	if len(v) < 2 {
		return 0
	}
	m := mean(v)
	var sum float64
	for _, x := range v {
		d := x - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(v)))
}
