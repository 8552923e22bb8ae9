// Package relay drives the hot and cold water valve relays plus the master
// safety cut-off relay. The real implementation uses the Linux GPIO
// character device; the fake implementation allows testing without
// hardware.
package relay

// Driver commands the valve relays.
type Driver interface {
	// SetValves opens or closes the two water valves. Implementations
	// refuse to open both at once.
	SetValves(hotOpen, coldOpen bool) error

	// EmergencyStop closes both valves and drops the safety relay,
	// cutting power to the valve circuit.
	EmergencyStop() error

	// Close releases hardware resources, closing both valves first.
	Close() error
}

// Pin definitions (BCM numbering). The safety relay is energized at
// startup and held high for the life of the process; the 220V valve
// circuit is dead without it.
const (
	PinHotValve  = 18
	PinColdValve = 19
	PinSafety    = 20
)
