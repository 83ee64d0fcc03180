// Package keypad reads the raw analog level of a resistor-ladder keypad.
// A Raspberry Pi has no ADC, so the level comes either from an MCP3008 on
// SPI or from a small USB microcontroller acting as a serial bridge.
package keypad

import "fmt"

// MaxValue is the largest raw sample (10-bit ADC).
const MaxValue = 1023

// Source returns one raw keypad sample per call.
type Source interface {
	// Read returns a sample in [0, MaxValue].
	Read() (int, error)

	// Close releases the source.
	Close() error
}

func checkRange(v int) (int, error) {
	if v < 0 || v > MaxValue {
		return 0, fmt.Errorf("keypad sample %d out of range", v)
	}
	return v, nil
}
