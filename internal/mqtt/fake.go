package mqtt

import "github.com/mfuentes/smartbed/internal/analysis"

// FakePublisher records published messages for test assertions.
type FakePublisher struct {
	// Events contains all bed events that were published.
	Events []Event

	// Alerts contains all alerts that were published.
	Alerts []Alert

	// SystemEvents contains all system events that were published.
	SystemEvents []SystemEvent

	// Reports contains all session reports that were published.
	Reports []analysis.Report

	// Payloads contains the JSON payloads for bed events.
	Payloads [][]byte

	// PublishError, if set, will be returned by every publish method.
	PublishError error

	// Closed tracks if Close was called.
	Closed bool

	// Connected controls the return value of IsConnected.
	Connected bool
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

// PublishEvent records the bed event.
func (f *FakePublisher) PublishEvent(event Event) error {
	if f.PublishError != nil {
		return f.PublishError
	}

	f.Events = append(f.Events, event)

	payload, err := FormatEventPayload(event)
	if err != nil {
		return err
	}
	f.Payloads = append(f.Payloads, payload)
	return nil
}

// PublishAlert records the alert.
func (f *FakePublisher) PublishAlert(alert Alert) error {
	if f.PublishError != nil {
		return f.PublishError
	}
	f.Alerts = append(f.Alerts, alert)
	return nil
}

// PublishSystem records the system event.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	if f.PublishError != nil {
		return f.PublishError
	}
	f.SystemEvents = append(f.SystemEvents, event)
	return nil
}

// PublishReport records the session report.
func (f *FakePublisher) PublishReport(report analysis.Report) error {
	if f.PublishError != nil {
		return f.PublishError
	}
	f.Reports = append(f.Reports, report)
	return nil
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.Closed = true
	return nil
}

// IsConnected reports whether the fake publisher is "connected".
func (f *FakePublisher) IsConnected() bool {
	return f.Connected
}

// Reset clears recorded messages.
func (f *FakePublisher) Reset() {
	f.Events = nil
	f.Alerts = nil
	f.SystemEvents = nil
	f.Reports = nil
	f.Payloads = nil
	f.Closed = false
	f.PublishError = nil
	f.Connected = false
}
