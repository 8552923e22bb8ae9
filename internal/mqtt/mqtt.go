// Package mqtt provides MQTT publishing and the wristband feed, with
// abstraction for testing. Outbound traffic carries bed events, alerts,
// system lifecycle messages and the end-of-session report; inbound traffic
// is the ESP32 wristband's sensor stream.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/mfuentes/smartbed/internal/analysis"
)

// Outbound topics.
const (
	TopicEvents = "bed/events"
	TopicSystem = "bed/system"
	TopicAlerts = "bed/alerts"
	TopicReport = "bed/report"
)

// Publisher publishes bed telemetry to MQTT.
type Publisher interface {
	// PublishEvent sends a bed state event to the broker.
	// Returns error if publishing fails (should not crash the process).
	PublishEvent(event Event) error

	// PublishAlert sends a health or thermal alert.
	PublishAlert(alert Alert) error

	// PublishSystem sends a system lifecycle event.
	PublishSystem(event SystemEvent) error

	// PublishReport sends the end-of-session sleep report, retained so
	// late subscribers still see the last night.
	PublishReport(report analysis.Report) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// Event represents one bed state change: a sleep stage transition, a
// presence change or a valve action.
type Event struct {
	Timestamp      time.Time
	Type           string // e.g., "stage_change", "presence_change", "valve_action"
	Stage          string
	Occupied       bool
	Confidence     float64
	BedTemperature float64
	Target         float64
	Action         string
}

// Alert represents a health or thermal anomaly worth waking someone for.
type Alert struct {
	Timestamp time.Time
	Type      string // e.g., "high_heart_rate", "low_spo2", "thermal_anomaly"
	Message   string
	Value     float64
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure for bed events.
type Payload struct {
	Bed BedPayload `json:"bed"`
}

// BedPayload contains the bed event details.
type BedPayload struct {
	Timestamp      string  `json:"timestamp"`
	Event          string  `json:"event"`
	Stage          string  `json:"stage"`
	Occupied       bool    `json:"occupied"`
	Confidence     float64 `json:"confidence"`
	BedTemperature float64 `json:"bed_temperature"`
	Target         float64 `json:"target"`
	Action         string  `json:"action,omitempty"`
}

// FormatEventPayload creates the JSON payload for a bed event.
func FormatEventPayload(event Event) ([]byte, error) {
	payload := Payload{
		Bed: BedPayload{
			Timestamp:      event.Timestamp.UTC().Format(time.RFC3339),
			Event:          event.Type,
			Stage:          event.Stage,
			Occupied:       event.Occupied,
			Confidence:     event.Confidence,
			BedTemperature: event.BedTemperature,
			Target:         event.Target,
			Action:         event.Action,
		},
	}
	return json.Marshal(payload)
}

// AlertPayload represents the MQTT message payload for alerts.
type AlertPayload struct {
	Alert AlertPayloadInner `json:"alert"`
}

// AlertPayloadInner contains the alert details.
type AlertPayloadInner struct {
	Timestamp string  `json:"timestamp"`
	Type      string  `json:"type"`
	Message   string  `json:"message"`
	Value     float64 `json:"value"`
}

// FormatAlertPayload creates the JSON payload for an alert.
func FormatAlertPayload(alert Alert) ([]byte, error) {
	payload := AlertPayload{
		Alert: AlertPayloadInner{
			Timestamp: alert.Timestamp.UTC().Format(time.RFC3339),
			Type:      alert.Type,
			Message:   alert.Message,
			Value:     alert.Value,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}

// ReportPayload wraps the session report for the wire.
type ReportPayload struct {
	Report analysis.Report `json:"report"`
}

// FormatReportPayload creates the JSON payload for a session report.
func FormatReportPayload(report analysis.Report) ([]byte, error) {
	return json.Marshal(ReportPayload{Report: report})
}
