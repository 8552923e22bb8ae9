// Package status provides a thread-safe status tracker for the smartbed
// daemon. The snapshot feeds the MQTT heartbeat and shutdown events.
package status

import (
	"sync"
	"time"
)

// Config contains daemon configuration for display.
type Config struct {
	SampleMs    int64
	HeartbeatMs int64
	Broker      string
}

// Counts tallies notable events since startup.
type Counts struct {
	StageChanges    int
	PresenceChanges int
	ValveActions    int
	Alerts          int
}

// TickState is the per-tick controller state pushed into the tracker.
type TickState struct {
	Occupied        bool
	Confidence      float64
	Stage           string
	BedTemperature  float64
	Target          float64
	Action          string
	SafetyEnergized bool
	Efficiency      int
}

// Snapshot is a point-in-time view of daemon state. It is a value type,
// so it stays usable after the lock is released.
type Snapshot struct {
	SessionID string
	Tick      TickState

	// Quality and Stress hold the latest periodic analysis results;
	// zero until enough history accumulates.
	Quality float64
	Stress  float64

	Counts        Counts
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker for one monitoring session.
func NewTracker(startTime time.Time, sessionID string, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			SessionID: sessionID,
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update sets the per-tick state. Called from the control loop on every tick.
func (t *Tracker) Update(tick TickState) {
	t.mu.Lock()
	t.snap.Tick = tick
	t.mu.Unlock()
}

// SetSessionID switches the tracker to a new monitoring session.
// Called when the bed becomes occupied and a fresh session begins.
func (t *Tracker) SetSessionID(id string) {
	t.mu.Lock()
	t.snap.SessionID = id
	t.mu.Unlock()
}

// SetAnalytics sets the latest quality and stress scores.
func (t *Tracker) SetAnalytics(quality, stress float64) {
	t.mu.Lock()
	t.snap.Quality = quality
	t.snap.Stress = stress
	t.mu.Unlock()
}

// CountStageChange increments the stage change counter.
func (t *Tracker) CountStageChange() {
	t.mu.Lock()
	t.snap.Counts.StageChanges++
	t.mu.Unlock()
}

// CountPresenceChange increments the presence change counter.
func (t *Tracker) CountPresenceChange() {
	t.mu.Lock()
	t.snap.Counts.PresenceChanges++
	t.mu.Unlock()
}

// CountValveAction increments the valve action counter.
func (t *Tracker) CountValveAction() {
	t.mu.Lock()
	t.snap.Counts.ValveActions++
	t.mu.Unlock()
}

// CountAlert increments the alert counter.
func (t *Tracker) CountAlert() {
	t.mu.Lock()
	t.snap.Counts.Alerts++
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
