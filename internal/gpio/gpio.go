// Package gpio provides pin and relay access with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import "fmt"

// Pin is a single requested GPIO line. *gpiocdev.Line satisfies it.
type Pin interface {
	// Value returns the current level (0 or 1).
	Value() (int, error)

	// SetValue drives an output line to 0 or 1.
	SetValue(v int) error

	// Close releases the line.
	Close() error
}

// Relay drives the fill actuator.
type Relay interface {
	// Set energizes (true) or de-energizes (false) the relay.
	Set(on bool) error

	// Close de-energizes the relay and releases it.
	Close() error
}

// Default line offsets (BCM numbering) for the reference wiring.
const (
	DefaultChip     = "gpiochip0"
	DefaultPinRelay = 17
)

// LineRelay is a Relay on a single output pin.
type LineRelay struct {
	pin       Pin
	activeLow bool
	on        bool
}

// NewLineRelay wraps pin as a relay. With activeLow the line is driven low to
// energize the relay.
func NewLineRelay(pin Pin, activeLow bool) *LineRelay {
	return &LineRelay{pin: pin, activeLow: activeLow}
}

// Set drives the relay line.
func (r *LineRelay) Set(on bool) error {
	v := 0
	if on != r.activeLow {
		v = 1
	}
	if err := r.pin.SetValue(v); err != nil {
		return fmt.Errorf("set relay %v: %w", on, err)
	}
	r.on = on
	return nil
}

// On returns the last state successfully written.
func (r *LineRelay) On() bool {
	return r.on
}

// Close drives the relay off before releasing the line.
func (r *LineRelay) Close() error {
	var errs []error
	if err := r.Set(false); err != nil {
		errs = append(errs, err)
	}
	if err := r.pin.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close relay pin: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
