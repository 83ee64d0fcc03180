package lcd

import (
	"errors"
	"fmt"
)

// Fake is an in-memory Display for tests.
type Fake struct {
	grid   [Rows][Cols]byte
	col    int
	row    int
	Glyphs [Slots][8]byte
	Loaded [Slots]bool

	// Clears counts calls to Clear.
	Clears int

	// PrintError, if set, will be returned by Print.
	PrintError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFake returns a blank display.
func NewFake() *Fake {
	f := &Fake{}
	f.blank()
	return f
}

func (f *Fake) blank() {
	for r := range f.grid {
		for c := range f.grid[r] {
			f.grid[r][c] = ' '
		}
	}
	f.col, f.row = 0, 0
}

// Clear blanks the grid.
func (f *Fake) Clear() error {
	f.Clears++
	f.blank()
	return nil
}

// SetCursor moves the write position.
func (f *Fake) SetCursor(col, row int) error {
	if col < 0 || col >= Cols || row < 0 || row >= Rows {
		return fmt.Errorf("cursor (%d,%d) out of range", col, row)
	}
	f.col, f.row = col, row
	return nil
}

// Print writes s at the cursor. Characters past the last column are dropped.
func (f *Fake) Print(s string) error {
	if f.PrintError != nil {
		return f.PrintError
	}
	for i := 0; i < len(s); i++ {
		if f.col < Cols {
			f.grid[f.row][f.col] = s[i]
		}
		f.col++
	}
	return nil
}

// CreateChar records the glyph bitmap.
func (f *Fake) CreateChar(slot int, rows [8]byte) error {
	if slot < 0 || slot >= Slots {
		return errors.New("glyph slot out of range")
	}
	f.Glyphs[slot] = rows
	f.Loaded[slot] = true
	return nil
}

// Close marks the display as closed.
func (f *Fake) Close() error {
	f.Closed = true
	return nil
}

// Row returns the raw bytes of row r, glyph codes included.
func (f *Fake) Row(r int) string {
	return string(f.grid[r][:])
}

// At returns the byte at (col, row).
func (f *Fake) At(col, row int) byte {
	return f.grid[row][col]
}
