package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event           string     `json:"event,omitempty"`
	Reason          string     `json:"reason,omitempty"`
	SessionID       string     `json:"session_id"`
	Occupied        bool       `json:"occupied"`
	Confidence      float64    `json:"confidence"`
	Stage           string     `json:"stage"`
	BedTemperature  float64    `json:"bed_temperature"`
	Target          float64    `json:"target"`
	Action          string     `json:"action,omitempty"`
	SafetyEnergized bool       `json:"safety_energized"`
	Efficiency      int        `json:"efficiency"`
	Quality         float64    `json:"quality"`
	Stress          float64    `json:"stress"`
	UptimeSeconds   int64      `json:"uptime_seconds"`
	StartTime       string     `json:"start_time"`
	Timestamp       string     `json:"timestamp"`
	MQTT            MQTTStatus `json:"mqtt"`
	Counts          CountsJSON `json:"event_counts"`
	Config          ConfigJSON `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	StageChanges    int `json:"stage_changes"`
	PresenceChanges int `json:"presence_changes"`
	ValveActions    int `json:"valve_actions"`
	Alerts          int `json:"alerts"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	SampleMs    int64  `json:"sample_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Broker      string `json:"broker"`
}

func buildInner(snap Snapshot) StatusInner {
	stage := snap.Tick.Stage
	if stage == "" {
		stage = "unknown"
	}

	return StatusInner{
		SessionID:       snap.SessionID,
		Occupied:        snap.Tick.Occupied,
		Confidence:      snap.Tick.Confidence,
		Stage:           stage,
		BedTemperature:  snap.Tick.BedTemperature,
		Target:          snap.Tick.Target,
		Action:          snap.Tick.Action,
		SafetyEnergized: snap.Tick.SafetyEnergized,
		Efficiency:      snap.Tick.Efficiency,
		Quality:         snap.Quality,
		Stress:          snap.Stress,
		UptimeSeconds:   int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:       snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:       snap.Now.UTC().Format(time.RFC3339),
		MQTT:            MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			StageChanges:    snap.Counts.StageChanges,
			PresenceChanges: snap.Counts.PresenceChanges,
			ValveActions:    snap.Counts.ValveActions,
			Alerts:          snap.Counts.Alerts,
		},
		Config: ConfigJSON{
			SampleMs:    snap.Config.SampleMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Broker:      snap.Config.Broker,
		},
	}
}

// FormatJSON returns the indented JSON status, useful for logs and debugging.
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
