// Package lcd drives a character LCD with hardware abstraction.
// The real implementation bit-bangs an HD44780 controller in 4-bit mode.
// The fake implementation keeps a character grid for tests.
package lcd

// Display is a fixed-size character display with programmable glyphs.
type Display interface {
	// Clear blanks the display and homes the cursor.
	Clear() error

	// SetCursor moves the write position to (col, row).
	SetCursor(col, row int) error

	// Print writes s at the cursor. Bytes 0-7 select programmable glyphs.
	Print(s string) error

	// CreateChar loads a 5x8 bitmap into glyph slot 0-7.
	CreateChar(slot int, rows [8]byte) error

	// Close releases the display.
	Close() error
}

// Geometry of the supported display.
const (
	Cols  = 16
	Rows  = 2
	Slots = 8
)
