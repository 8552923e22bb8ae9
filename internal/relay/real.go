//go:build linux

package relay

import (
	"errors"
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealDriver drives the valve relays on actual hardware.
type RealDriver struct {
	chip   *gpiocdev.Chip
	hot    *gpiocdev.Line
	cold   *gpiocdev.Line
	safety *gpiocdev.Line
}

// NewRealDriver opens the relay lines as outputs. Both valves start
// closed and the safety relay starts energized.
func NewRealDriver(pinHot, pinCold, pinSafety int) (*RealDriver, error) {
	chip, err := gpiocdev.NewChip("gpiochip0")
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	hot, err := chip.RequestLine(pinHot, gpiocdev.AsOutput(0))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request hot valve pin %d: %w", pinHot, err)
	}

	cold, err := chip.RequestLine(pinCold, gpiocdev.AsOutput(0))
	if err != nil {
		hot.Close()
		chip.Close()
		return nil, fmt.Errorf("request cold valve pin %d: %w", pinCold, err)
	}

	// Safety relay high = valve circuit powered.
	safety, err := chip.RequestLine(pinSafety, gpiocdev.AsOutput(1))
	if err != nil {
		cold.Close()
		hot.Close()
		chip.Close()
		return nil, fmt.Errorf("request safety pin %d: %w", pinSafety, err)
	}

	return &RealDriver{chip: chip, hot: hot, cold: cold, safety: safety}, nil
}

// SetValves drives the two valve relays. Opening both at once is refused
// without touching the hardware.
func (d *RealDriver) SetValves(hotOpen, coldOpen bool) error {
	if hotOpen && coldOpen {
		return errors.New("relay: refusing to open both valves")
	}
	if err := d.hot.SetValue(level(hotOpen)); err != nil {
		return fmt.Errorf("set hot valve: %w", err)
	}
	if err := d.cold.SetValue(level(coldOpen)); err != nil {
		return fmt.Errorf("set cold valve: %w", err)
	}
	return nil
}

// EmergencyStop closes both valves and de-energizes the safety relay.
func (d *RealDriver) EmergencyStop() error {
	var errs []error
	if err := d.hot.SetValue(0); err != nil {
		errs = append(errs, fmt.Errorf("close hot valve: %w", err))
	}
	if err := d.cold.SetValue(0); err != nil {
		errs = append(errs, fmt.Errorf("close cold valve: %w", err))
	}
	if err := d.safety.SetValue(0); err != nil {
		errs = append(errs, fmt.Errorf("drop safety relay: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("emergency stop: %v", errs)
	}
	return nil
}

// Close shuts everything down and releases the GPIO lines. Lines are
// reconfigured to input with pull-down so the relays stay off across a
// reboot.
func (d *RealDriver) Close() error {
	var errs []error

	for _, line := range []*gpiocdev.Line{d.hot, d.cold, d.safety} {
		if line == nil {
			continue
		}
		if err := line.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("clear line: %w", err))
		}
		if err := line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure line: %w", err))
		}
		if err := line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close line: %w", err))
		}
	}
	if d.chip != nil {
		if err := d.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

func level(on bool) int {
	if on {
		return 1
	}
	return 0
}
