// Package control implements the closed-loop thermal controller. One
// sampling tick reads the sensors, fuses them into occupancy and sleep
// stage, derives a target temperature and drives the valve relays. All
// mutable state is owned by the Controller and mutated only from Step.
package control

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/mfuentes/smartbed/internal/analysis"
	"github.com/mfuentes/smartbed/internal/history"
	"github.com/mfuentes/smartbed/internal/logger"
	"github.com/mfuentes/smartbed/internal/mqtt"
	"github.com/mfuentes/smartbed/internal/relay"
	"github.com/mfuentes/smartbed/internal/sensors"
	"github.com/mfuentes/smartbed/internal/sleep"
	"github.com/mfuentes/smartbed/internal/status"
	"github.com/mfuentes/smartbed/internal/thermal"
)

// Fallbacks for absent or rejected sensor channels.
const (
	defaultBodyC    = 36.5
	defaultAmbientC = 22.0
	defaultRestHR   = 60
)

// Plausibility bounds. Readings outside these are rejected and the
// previous valid value retained.
const (
	minBedC     = 5.0
	maxBedC     = 45.0
	minBodyC    = 30.0
	maxBodyC    = 43.0
	minAmbientC = 0.0
	maxAmbientC = 50.0
	minHR       = 25
	maxHR       = 250
	minSpO2     = 50
	maxSpO2     = 100
)

// Session history capacities.
const (
	sessionHistorySize = 1800
	hrWindowSize       = 100
	hrvSampleCount     = 10
	minHRVSamples      = 5
	recentStageWindow  = 10
)

// Heart-rate variability is used as a motion proxy when no accelerometer
// sample is available.
const (
	hrFallbackSamples = 3
	hrFallbackScale   = 10.0
)

// Config aggregates the tuning constants the controller consumes.
type Config struct {
	SampleInterval    time.Duration
	HeartbeatInterval time.Duration
	AnalysisInterval  time.Duration

	Tolerance float64
	SpO2Alert int

	Integrator sleep.IntegratorConfig
	Stages     sleep.StageThresholds
	Presence   sleep.PresenceConfig
	Trend      thermal.TrendConfig
	Target     thermal.TargetConfig
	Safety     thermal.SafetyLimits
}

// Overlay merges externally sourced channels (the wristband feed) into a
// sensor snapshot before the tick consumes it.
type Overlay interface {
	Overlay(r *sensors.Readings, now time.Time)
}

// Deps are the controller's collaborators. Overlay and MQTTStatus may be
// nil.
type Deps struct {
	Sensors    sensors.Reader
	Overlay    Overlay
	Relay      relay.Driver
	Publisher  mqtt.Publisher
	MQTTStatus mqtt.ConnectionStatus
	Tracker    *status.Tracker
	Log        *logger.Logger
}

// Controller holds the per-session control state.
type Controller struct {
	cfg  Config
	deps Deps

	sessionID string

	integrator sleep.Integrator
	activity   sleep.ActivityState
	presence   *sleep.PresenceDetector
	trend      *thermal.TrendAnalyzer
	target     *thermal.TargetCalculator
	arbiter    thermal.Arbiter

	// Aligned per-tick session history plus the shorter window feeding
	// heart-rate variability.
	stages       *history.Ring[sleep.Stage]
	heartRates   *history.Ring[int]
	activityHist *history.Ring[float64]
	hrWindow     *history.Ring[int]

	// Last-known-good values for degraded sensor channels.
	lastBed     float64
	lastBody    float64
	lastAmbient float64
	lastHR      int

	prevAccel [3]float64
	accelSeen bool
	recentHR  [hrFallbackSamples]float64
	hrSeen    int

	occupied   bool
	prevStage  sleep.Stage
	stageSeen  bool
	prevAction thermal.Action
	actionSeen bool

	quality float64
	stress  float64

	// Edge trackers so alerts fire once per excursion.
	spo2Low        bool
	anomalyActive  bool
	overrideActive bool

	safetyOn bool

	lastTick      time.Time
	lastAnalysis  time.Time
	lastHeartbeat time.Time
	sessionStart  time.Time
}

// NewController creates a controller for one daemon run. The session ID
// identifies the first monitoring session; each later occupancy starts a
// fresh one.
func NewController(cfg Config, deps Deps, sessionID string, startTime time.Time) *Controller {
	return &Controller{
		cfg:       cfg,
		deps:      deps,
		sessionID: sessionID,

		integrator: sleep.NewIntegrator(cfg.Integrator),
		presence:   sleep.NewPresenceDetector(cfg.Presence),
		trend:      thermal.NewTrendAnalyzer(cfg.Trend),
		target:     thermal.NewTargetCalculator(cfg.Target),
		arbiter:    thermal.NewArbiter(cfg.Safety),

		stages:       history.NewRing[sleep.Stage](sessionHistorySize),
		heartRates:   history.NewRing[int](sessionHistorySize),
		activityHist: history.NewRing[float64](sessionHistorySize),
		hrWindow:     history.NewRing[int](hrWindowSize),

		lastBed:     defaultAmbientC,
		lastBody:    defaultBodyC,
		lastAmbient: defaultAmbientC,
		lastHR:      defaultRestHR,

		safetyOn:      true,
		lastAnalysis:  startTime,
		lastHeartbeat: startTime,
		sessionStart:  startTime,
	}
}

// SessionID returns the identifier of the current monitoring session.
func (c *Controller) SessionID() string {
	return c.sessionID
}

// Step runs one control tick against a single sensor snapshot. Every
// sensor failure degrades within the tick; Step never fails.
func (c *Controller) Step(r sensors.Readings, now time.Time) {
	dt := c.cfg.SampleInterval
	if !c.lastTick.IsZero() {
		dt = now.Sub(c.lastTick)
	}
	c.lastTick = now

	bed, body, ambient := c.sanitizeTemperatures(r)
	hr, hrValid := c.sanitizeHR(r)
	spo2, spo2Valid := sanitizeSpO2(r)

	c.stepActivity(r, hr, hrValid, dt, now)

	res := c.presence.Detect(sleep.PresenceInput{
		BedTemperature: bed,
		Activity:       c.activity.Level,
		HeartRate:      hr,
		HRValid:        hrValid,
		FingerPresent:  r.FingerPresent,
	}, now)
	if !res.Occupied {
		c.presence.UpdateBaseline(bed)
	}
	if res.Changed {
		c.handlePresenceChange(res.Occupied, now)
	}
	c.occupied = res.Occupied

	stage := sleep.Wake
	stageChanged := false
	if res.Occupied {
		stage = sleep.ClassifyStage(c.activity.Level, hr, c.cfg.Stages)
		c.stages.Push(stage)
		c.activityHist.Push(c.activity.Level)
		c.heartRates.Push(hr)
		if hrValid {
			c.hrWindow.Push(hr)
		}
		stageChanged = c.stageSeen && stage != c.prevStage
		c.prevStage, c.stageSeen = stage, true
	} else {
		c.stageSeen = false
	}

	trendRes := c.trend.Observe(now, bed)
	if trendRes.Anomaly && !c.anomalyActive {
		c.publishAlert("thermal_anomaly",
			fmt.Sprintf("bed temperature changing at %.2f C/min", trendRes.Rate),
			trendRes.Rate, now)
	}
	c.anomalyActive = trendRes.Anomaly

	// Thermal control runs only while the bed is occupied; an empty bed
	// idles with both valves closed.
	vitals := thermal.Vitals{HeartRate: hr, HRValid: hrValid, BodyTemperature: body}
	var target float64
	efficiency := 0
	dec := thermal.Decision{Action: thermal.ActionIdle}
	if res.Occupied {
		target = c.target.Compute(stage, ambient, body, c.stages.Last(recentStageWindow))
		efficiency = thermal.EfficiencyScore(target, bed, c.cfg.Tolerance, c.cfg.Trend.VarianceTolerance)
		tol := thermal.StageTolerance(c.cfg.Tolerance, stage)
		target, tol = thermal.ApplyAdvisory(target, tol, trendRes.Advisory)
		dec = c.arbiter.Decide(target, bed, tol, vitals)
	}

	if err := c.deps.Relay.SetValves(dec.HotOpen, dec.ColdOpen); err != nil {
		c.deps.Log.Errorw("relay command failed", "action", dec.Action, "error", err)
	}
	c.safetyAlerts(dec, vitals, now)

	actionChanged := !c.actionSeen || dec.Action != c.prevAction
	c.prevAction, c.actionSeen = dec.Action, true

	if res.Changed {
		c.publishEvent("presence_change", stage, res.Occupied, res.Confidence, bed, target, dec.Action, now)
		c.deps.Tracker.CountPresenceChange()
	}
	if stageChanged {
		c.publishEvent("stage_change", stage, res.Occupied, res.Confidence, bed, target, dec.Action, now)
		c.deps.Tracker.CountStageChange()
	}
	if actionChanged {
		c.publishEvent("valve_action", stage, res.Occupied, res.Confidence, bed, target, dec.Action, now)
		c.deps.Tracker.CountValveAction()
	}

	if spo2Valid {
		low := spo2 < c.cfg.SpO2Alert
		if low && !c.spo2Low {
			c.publishAlert("low_spo2",
				fmt.Sprintf("blood oxygen at %d%%", spo2), float64(spo2), now)
		}
		c.spo2Low = low
	}

	c.runAnalytics(hr, now)

	c.deps.Tracker.Update(status.TickState{
		Occupied:        res.Occupied,
		Confidence:      res.Confidence,
		Stage:           stage.String(),
		BedTemperature:  bed,
		Target:          target,
		Action:          string(dec.Action),
		SafetyEnergized: c.safetyOn,
		Efficiency:      efficiency,
	})
	if c.deps.MQTTStatus != nil {
		c.deps.Tracker.SetMQTTConnected(c.deps.MQTTStatus.IsConnected())
	}

	c.heartbeat(now)
}

// sanitizeTemperatures rejects out-of-range readings, retaining the last
// valid value. A zero body or ambient temperature means the channel is
// absent this tick and falls back silently.
func (c *Controller) sanitizeTemperatures(r sensors.Readings) (bed, body, ambient float64) {
	if r.BedValid {
		if r.BedTemperature >= minBedC && r.BedTemperature <= maxBedC {
			c.lastBed = r.BedTemperature
		} else {
			c.deps.Log.Warnw("bed temperature rejected",
				"value", r.BedTemperature, "retained", c.lastBed)
		}
	}
	if r.BodyTemperature != 0 {
		if r.BodyTemperature >= minBodyC && r.BodyTemperature <= maxBodyC {
			c.lastBody = r.BodyTemperature
		} else {
			c.deps.Log.Warnw("body temperature rejected",
				"value", r.BodyTemperature, "retained", c.lastBody)
		}
	}
	if r.AmbientTemperature != 0 {
		if r.AmbientTemperature >= minAmbientC && r.AmbientTemperature <= maxAmbientC {
			c.lastAmbient = r.AmbientTemperature
		} else {
			c.deps.Log.Warnw("ambient temperature rejected",
				"value", r.AmbientTemperature, "retained", c.lastAmbient)
		}
	}
	return c.lastBed, c.lastBody, c.lastAmbient
}

// sanitizeHR returns the heart rate for this tick. Invalid or implausible
// readings retain the last valid value but report hrValid false, so the
// staging and safety logic know the sample is stale.
func (c *Controller) sanitizeHR(r sensors.Readings) (int, bool) {
	if r.HRValid {
		if r.HeartRate >= minHR && r.HeartRate <= maxHR {
			c.lastHR = r.HeartRate
			return r.HeartRate, true
		}
		c.deps.Log.Warnw("heart rate rejected",
			"value", r.HeartRate, "retained", c.lastHR)
	}
	return c.lastHR, false
}

func sanitizeSpO2(r sensors.Readings) (int, bool) {
	if r.SpO2Valid && r.SpO2 >= minSpO2 && r.SpO2 <= maxSpO2 {
		return r.SpO2, true
	}
	return 0, false
}

// stepActivity advances the activity level. With an accelerometer sample
// the leaky integrator consumes the mean absolute per-axis delta; without
// one, short-term heart-rate variability stands in as a motion proxy.
func (c *Controller) stepActivity(r sensors.Readings, hr int, hrValid bool, dt time.Duration, now time.Time) {
	if hrValid {
		copy(c.recentHR[:], c.recentHR[1:])
		c.recentHR[hrFallbackSamples-1] = float64(hr)
		if c.hrSeen < hrFallbackSamples {
			c.hrSeen++
		}
	}

	switch {
	case r.AccValid:
		diff := 0.0
		if c.accelSeen {
			for i := range r.Acceleration {
				diff += math.Abs(r.Acceleration[i] - c.prevAccel[i])
			}
			diff /= 3
		}
		c.prevAccel, c.accelSeen = r.Acceleration, true
		c.activity = c.integrator.Step(c.activity, diff, dt, now)
	case hrValid && c.hrSeen == hrFallbackSamples:
		c.activity.Level = math.Min(popStddev(c.recentHR[:])/hrFallbackScale, 1.0)
	default:
		c.activity = c.integrator.Step(c.activity, 0, dt, now)
	}
}

// handlePresenceChange starts a fresh session on occupancy and closes out
// the running one on departure.
func (c *Controller) handlePresenceChange(occupied bool, now time.Time) {
	if occupied {
		c.sessionID = uuid.NewString()
		c.sessionStart = now
		c.stages.Clear()
		c.heartRates.Clear()
		c.activityHist.Clear()
		c.hrWindow.Clear()
		c.stageSeen = false
		c.quality, c.stress = 0, 0
		c.deps.Tracker.SetSessionID(c.sessionID)
		c.deps.Log.Infow("bed occupied, monitoring session started", "session", c.sessionID)
		return
	}

	c.deps.Log.Infow("bed vacated, closing monitoring session",
		"session", c.sessionID,
		"duration", now.Sub(c.sessionStart).Round(time.Second))
	c.publishSessionReport(now)
	c.stages.Clear()
	c.heartRates.Clear()
	c.activityHist.Clear()
	c.hrWindow.Clear()
}

// safetyAlerts publishes one alert per safety-override excursion, naming
// the vital that tripped it. Cause checks mirror the arbiter's priority.
func (c *Controller) safetyAlerts(dec thermal.Decision, v thermal.Vitals, now time.Time) {
	forced := dec.Action.Emergency() || dec.Action == thermal.ActionSafetyBlock
	if !forced {
		c.overrideActive = false
		return
	}
	if c.overrideActive {
		return
	}
	c.overrideActive = true

	limits := c.cfg.Safety
	switch {
	case dec.Action == thermal.ActionSafetyBlock:
		c.publishAlert("safety_block", "conflicting safety overrides, all valves closed", 0, now)
	case v.HRValid && v.HeartRate > limits.MaxHeartRate:
		c.publishAlert("high_heart_rate",
			fmt.Sprintf("heart rate %d bpm, forcing cooling", v.HeartRate),
			float64(v.HeartRate), now)
	case v.HRValid && v.HeartRate < limits.MinHeartRate:
		c.publishAlert("low_heart_rate",
			fmt.Sprintf("heart rate %d bpm, forcing heating", v.HeartRate),
			float64(v.HeartRate), now)
	case v.BodyTemperature >= limits.FeverC:
		c.publishAlert("fever",
			fmt.Sprintf("body temperature %.1f C, forcing cooling", v.BodyTemperature),
			v.BodyTemperature, now)
	default:
		c.publishAlert("low_body_temperature",
			fmt.Sprintf("body temperature %.1f C, forcing heating", v.BodyTemperature),
			v.BodyTemperature, now)
	}
}

// runAnalytics recomputes stress and sleep quality on the analysis cadence
// while the bed is occupied. Stress combines the tick's heart rate with HRV
// over the recent window. Scores carry over between passes that lack enough
// history.
func (c *Controller) runAnalytics(hr int, now time.Time) {
	if !c.occupied || c.cfg.AnalysisInterval <= 0 {
		return
	}
	if now.Sub(c.lastAnalysis) < c.cfg.AnalysisInterval {
		return
	}
	c.lastAnalysis = now

	ibi := analysis.IntervalsFromHR(c.hrWindow.Last(hrvSampleCount))
	if len(ibi) >= minHRVSamples {
		if rmssd, ok := analysis.RMSSD(ibi); ok {
			if sdnn, ok := analysis.SDNN(ibi); ok {
				c.stress = analysis.StressScore(float64(hr), rmssd, sdnn)
			}
		}
	}
	if q, ok := analysis.QualityScore(c.stages.Values(), c.heartRates.Values(), c.activityHist.Values()); ok {
		c.quality = q
	}
	c.deps.Tracker.SetAnalytics(c.quality, c.stress)
}

// heartbeat publishes the periodic status snapshot.
func (c *Controller) heartbeat(now time.Time) {
	if c.cfg.HeartbeatInterval <= 0 {
		return
	}
	if now.Sub(c.lastHeartbeat) < c.cfg.HeartbeatInterval {
		return
	}
	c.lastHeartbeat = now

	snap := c.deps.Tracker.Snapshot()
	event := mqtt.SystemEvent{
		Timestamp:  now,
		Event:      "HEARTBEAT",
		RawPayload: status.FormatStatusEvent(snap, "HEARTBEAT", ""),
	}
	if err := c.deps.Publisher.PublishSystem(event); err != nil {
		c.deps.Log.Warnw("heartbeat publish failed", "error", err)
	}
}

// publishSessionReport builds and publishes the session report when enough
// history accumulated.
func (c *Controller) publishSessionReport(now time.Time) {
	rep, ok := analysis.BuildReport(c.sessionID, now,
		c.stages.Values(), c.heartRates.Values(), c.activityHist.Values(),
		c.cfg.SampleInterval)
	if !ok {
		c.deps.Log.Infow("session too short for a report",
			"session", c.sessionID, "samples", c.stages.Len())
		return
	}
	if err := c.deps.Publisher.PublishReport(rep); err != nil {
		c.deps.Log.Warnw("report publish failed", "session", c.sessionID, "error", err)
		return
	}
	c.deps.Log.Infow("session report published",
		"session", c.sessionID, "quality", rep.Quality, "samples", rep.Samples)
}

// Shutdown closes out the daemon: the final report for any session in
// progress, a retained SHUTDOWN status event, then the relays forced to a
// safe state with the safety relay deactivated.
func (c *Controller) Shutdown(reason string, now time.Time) {
	c.publishSessionReport(now)

	if c.deps.MQTTStatus != nil {
		c.deps.Tracker.SetMQTTConnected(c.deps.MQTTStatus.IsConnected())
	}
	snap := c.deps.Tracker.Snapshot()
	event := mqtt.SystemEvent{
		Timestamp:  now,
		Event:      "SHUTDOWN",
		Reason:     reason,
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "SHUTDOWN", reason),
	}
	if err := c.deps.Publisher.PublishSystem(event); err != nil {
		c.deps.Log.Warnw("shutdown publish failed", "error", err)
	}

	if err := c.deps.Relay.EmergencyStop(); err != nil {
		c.deps.Log.Errorw("emergency stop failed", "error", err)
	}
	c.safetyOn = false
}

func (c *Controller) publishEvent(eventType string, stage sleep.Stage, occupied bool, confidence, bed, target float64, action thermal.Action, now time.Time) {
	event := mqtt.Event{
		Timestamp:      now,
		Type:           eventType,
		Stage:          stage.String(),
		Occupied:       occupied,
		Confidence:     confidence,
		BedTemperature: bed,
		Target:         target,
		Action:         string(action),
	}
	if err := c.deps.Publisher.PublishEvent(event); err != nil {
		c.deps.Log.Warnw("event publish failed", "type", eventType, "error", err)
	}
}

func (c *Controller) publishAlert(alertType, message string, value float64, now time.Time) {
	c.deps.Tracker.CountAlert()
	alert := mqtt.Alert{
		Timestamp: now,
		Type:      alertType,
		Message:   message,
		Value:     value,
	}
	if err := c.deps.Publisher.PublishAlert(alert); err != nil {
		c.deps.Log.Warnw("alert publish failed", "type", alertType, "error", err)
	}
	c.deps.Log.Warnw("alert", "type", alertType, "message", message, "value", value)
}

func popStddev(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	var sum float64
	for _, x := range v {
		sum += x
	}
	m := sum / float64(len(v))
	var sq float64
	for _, x := range v {
		sq += (x - m) * (x - m)
	}
	return math.Sqrt(sq / float64(len(v)))
}
