//go:build !linux

package relay

import "errors"

// RealDriver is not available on non-Linux platforms.
type RealDriver struct{}

// NewRealDriver returns an error on non-Linux platforms.
func NewRealDriver(pinHot, pinCold, pinSafety int) (*RealDriver, error) {
	return nil, errors.New("relay: not supported on this platform (requires Linux)")
}

// SetValves is not implemented on non-Linux platforms.
func (d *RealDriver) SetValves(hotOpen, coldOpen bool) error {
	return errors.New("relay: not supported")
}

// EmergencyStop is not implemented on non-Linux platforms.
func (d *RealDriver) EmergencyStop() error {
	return errors.New("relay: not supported")
}

// Close is not implemented on non-Linux platforms.
func (d *RealDriver) Close() error {
	return nil
}
