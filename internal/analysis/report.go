package analysis

import (
	"time"

	"github.com/mfuentes/smartbed/internal/sleep"
)

// MinReportSamples is the shortest session a report is generated for.
const MinReportSamples = 10

// reportWakeMinRun is the minimum run length, in samples, for a wake
// episode to count as a nocturnal awakening in the final report.
const reportWakeMinRun = 5

// Report summarizes a completed monitoring session.
type Report struct {
	SessionID   string        `json:"session_id"`
	GeneratedAt time.Time     `json:"generated_at"`
	Samples     int           `json:"samples"`
	Monitored   time.Duration `json:"monitored"`

	// Share of the session spent in each stage, indexed by sleep.Stage,
	// as fractions summing to 1. StageMinutes carries the same split as
	// wall-clock minutes.
	Distribution [sleep.NumStages]float64 `json:"distribution"`
	StageMinutes [sleep.NumStages]float64 `json:"stage_minutes"`

	Quality       float64 `json:"quality"`
	QualityValid  bool    `json:"quality_valid"`
	QualityRating string  `json:"quality_rating,omitempty"`

	Transitions         int     `json:"transitions"`
	Fragmentation       float64 `json:"fragmentation"`
	FragmentationValid  bool    `json:"fragmentation_valid"`
	FragmentationRating string  `json:"fragmentation_rating,omitempty"`

	OnsetDetected bool          `json:"onset_detected"`
	OnsetLatency  time.Duration `json:"onset_latency"`
	LatencyRating string        `json:"latency_rating,omitempty"`

	WakeCount   int     `json:"wake_count"`
	WakeMinutes float64 `json:"wake_minutes"`
	WakeRating  string  `json:"wake_rating,omitempty"`

	Recommendations []string `json:"recommendations,omitempty"`
}

// BuildReport assembles the end-of-session report from the aligned stage,
// heart-rate and activity histories. The interval is the sampling period
// the histories were collected at. Returns false when the session is too
// short to say anything useful about.
func BuildReport(sessionID string, generatedAt time.Time, stages []sleep.Stage, heartRates []int, activity []float64, interval time.Duration) (Report, bool) {
	if len(stages) < MinReportSamples {
		return Report{}, false
	}

	r := Report{
		SessionID:   sessionID,
		GeneratedAt: generatedAt,
		Samples:     len(stages),
		Monitored:   time.Duration(len(stages)) * interval,
	}

	counts := StageCounts(stages)
	total := float64(len(stages))
	for s := 0; s < sleep.NumStages; s++ {
		r.Distribution[s] = float64(counts[s]) / total
		r.StageMinutes[s] = float64(counts[s]) * interval.Minutes()
	}

	if q, ok := QualityScore(stages, heartRates, activity); ok {
		r.Quality = q
		r.QualityValid = true
		r.QualityRating = rateQuality(q)
	}

	r.Transitions = Transitions(stages)
	if f, ok := FragmentationIndex(stages, interval); ok {
		r.Fragmentation = f
		r.FragmentationValid = true
		r.FragmentationRating = rateFragmentation(f)
	}

	if idx, ok := DetectOnset(stages); ok {
		r.OnsetDetected = true
		r.OnsetLatency = time.Duration(idx) * interval
		r.LatencyRating = rateLatency(r.OnsetLatency)
	}

	periods := WakePeriods(stages, reportWakeMinRun)
	r.WakeCount = len(periods)
	for _, p := range periods {
		r.WakeMinutes += float64(p.Length) * interval.Minutes()
	}
	if r.WakeCount > 0 {
		r.WakeRating = rateAwakenings(r.WakeCount, r.WakeMinutes)
	}

	r.Recommendations = recommendations(r)
	return r, true
}

func rateQuality(q float64) string {
	switch {
	case q >= 80:
		return "excellent"
	case q >= 60:
		return "good"
	case q >= 40:
		return "fair"
	default:
		return "poor"
	}
}

func rateFragmentation(f float64) string {
	switch {
	case f < 10:
		return "very consolidated"
	case f < 15:
		return "consolidated"
	case f < 25:
		return "slightly fragmented"
	default:
		return "highly fragmented"
	}
}

func rateLatency(d time.Duration) string {
	switch {
	case d <= 15*time.Minute:
		return "normal"
	case d <= 30*time.Minute:
		return "elevated"
	default:
		return "very elevated"
	}
}

func rateAwakenings(count int, minutes float64) string {
	switch {
	case count <= 2 && minutes <= 30:
		return "minimal"
	case count <= 4 && minutes <= 60:
		return "moderate"
	default:
		return "excessive"
	}
}

func recommendations(r Report) []string {
	var recs []string
	if r.QualityValid && r.Quality < 60 {
		recs = append(recs,
			"consider improving the sleep environment",
			"review bedtime schedule")
	}
	if r.FragmentationValid && r.Fragmentation > 20 {
		recs = append(recs,
			"check for external interruptions",
			"consult a sleep specialist")
	}
	if r.WakeCount > 3 {
		recs = append(recs,
			"review ambient and body temperature",
			"evaluate stress levels before bed")
	}
	return recs
}
