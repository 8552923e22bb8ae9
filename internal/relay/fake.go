package relay

import (
	"errors"
	"sync"
)

// FakeDriver records valve commands for tests.
type FakeDriver struct {
	mu sync.Mutex

	// HotOpen and ColdOpen mirror the last commanded valve states.
	HotOpen  bool
	ColdOpen bool

	// SafetyEnergized mirrors the safety relay, true until an
	// emergency stop.
	SafetyEnergized bool

	// Commands logs every SetValves call as a [hot, cold] pair.
	Commands [][2]bool

	// Stopped counts EmergencyStop calls.
	Stopped int

	// Closed tracks whether Close was called.
	Closed bool

	// SetError, if set, is returned by SetValves.
	SetError error
}

// NewFakeDriver creates a FakeDriver with the safety relay energized.
func NewFakeDriver() *FakeDriver {
	return &FakeDriver{SafetyEnergized: true}
}

// SetValves records the command. Like the real driver it refuses a
// double-open.
func (f *FakeDriver) SetValves(hotOpen, coldOpen bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.SetError != nil {
		return f.SetError
	}
	if hotOpen && coldOpen {
		return errors.New("relay: refusing to open both valves")
	}
	f.HotOpen = hotOpen
	f.ColdOpen = coldOpen
	f.Commands = append(f.Commands, [2]bool{hotOpen, coldOpen})
	return nil
}

// EmergencyStop closes both valves and drops the safety relay.
func (f *FakeDriver) EmergencyStop() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.HotOpen = false
	f.ColdOpen = false
	f.SafetyEnergized = false
	f.Stopped++
	return nil
}

// Close marks the driver as closed.
func (f *FakeDriver) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.HotOpen = false
	f.ColdOpen = false
	f.Closed = true
	return nil
}

// State returns the current valve states under the lock.
func (f *FakeDriver) State() (hotOpen, coldOpen, safety bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.HotOpen, f.ColdOpen, f.SafetyEnergized
}
