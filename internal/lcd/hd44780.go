package lcd

import (
	"fmt"
	"time"

	"github.com/sweeney/fill-controller/internal/gpio"
)

// HD44780 instruction set (subset).
const (
	cmdClear       = 0x01
	cmdEntryMode   = 0x04
	cmdDisplayCtl  = 0x08
	cmdFunctionSet = 0x20
	cmdSetCGRAM    = 0x40
	cmdSetDDRAM    = 0x80

	entryIncrement = 0x02
	displayOn      = 0x04
	twoLines       = 0x08
)

var rowOffsets = [Rows]byte{0x00, 0x40}

// Pins are the six lines of a 4-bit HD44780 bus. RW is assumed tied low.
type Pins struct {
	RS, E          gpio.Pin
	D4, D5, D6, D7 gpio.Pin
}

// HD44780 is a 16x2 character LCD on a 4-bit parallel bus.
type HD44780 struct {
	rs, e gpio.Pin
	data  [4]gpio.Pin
	sleep func(time.Duration)
}

// NewHD44780 initializes the controller: 4-bit, two lines, 5x8 font,
// display on, cursor off, left-to-right entry.
func NewHD44780(p Pins) (*HD44780, error) {
	return newHD44780(p, time.Sleep)
}

func newHD44780(p Pins, sleep func(time.Duration)) (*HD44780, error) {
	d := &HD44780{
		rs:    p.RS,
		e:     p.E,
		data:  [4]gpio.Pin{p.D4, p.D5, p.D6, p.D7},
		sleep: sleep,
	}
	if err := d.init(); err != nil {
		return nil, fmt.Errorf("init hd44780: %w", err)
	}
	return d, nil
}

func (d *HD44780) init() error {
	d.sleep(50 * time.Millisecond)
	if err := d.rs.SetValue(0); err != nil {
		return err
	}
	if err := d.e.SetValue(0); err != nil {
		return err
	}

	// Force 8-bit mode three times, then switch to 4-bit.
	for _, wait := range []time.Duration{4500 * time.Microsecond, 4500 * time.Microsecond, 150 * time.Microsecond} {
		if err := d.write4(0x03); err != nil {
			return err
		}
		d.sleep(wait)
	}
	if err := d.write4(0x02); err != nil {
		return err
	}

	for _, c := range []byte{
		cmdFunctionSet | twoLines,
		cmdDisplayCtl | displayOn,
	} {
		if err := d.command(c); err != nil {
			return err
		}
	}
	if err := d.Clear(); err != nil {
		return err
	}
	return d.command(cmdEntryMode | entryIncrement)
}

// Clear blanks the display.
func (d *HD44780) Clear() error {
	if err := d.command(cmdClear); err != nil {
		return fmt.Errorf("clear: %w", err)
	}
	d.sleep(2 * time.Millisecond)
	return nil
}

// SetCursor moves the DDRAM address to (col, row).
func (d *HD44780) SetCursor(col, row int) error {
	if col < 0 || col >= Cols || row < 0 || row >= Rows {
		return fmt.Errorf("cursor (%d,%d) out of range", col, row)
	}
	if err := d.command(cmdSetDDRAM | (byte(col) + rowOffsets[row])); err != nil {
		return fmt.Errorf("set cursor: %w", err)
	}
	return nil
}

// Print writes the bytes of s as character codes.
func (d *HD44780) Print(s string) error {
	for i := 0; i < len(s); i++ {
		if err := d.send(s[i], 1); err != nil {
			return fmt.Errorf("print: %w", err)
		}
	}
	return nil
}

// CreateChar loads a glyph into CGRAM. The cursor must be repositioned
// afterwards; all screen renders start with Clear or SetCursor.
func (d *HD44780) CreateChar(slot int, rows [8]byte) error {
	if slot < 0 || slot >= Slots {
		return fmt.Errorf("glyph slot %d out of range", slot)
	}
	if err := d.command(cmdSetCGRAM | byte(slot)<<3); err != nil {
		return fmt.Errorf("create char %d: %w", slot, err)
	}
	for _, r := range rows {
		if err := d.send(r&0x1f, 1); err != nil {
			return fmt.Errorf("create char %d: %w", slot, err)
		}
	}
	return nil
}

// Close blanks the display and releases the bus lines.
func (d *HD44780) Close() error {
	var errs []error
	if err := d.Clear(); err != nil {
		errs = append(errs, err)
	}
	for _, p := range append([]gpio.Pin{d.rs, d.e}, d.data[:]...) {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

func (d *HD44780) command(c byte) error {
	return d.send(c, 0)
}

// send writes one byte as two nibbles, high nibble first.
func (d *HD44780) send(b byte, rs int) error {
	if err := d.rs.SetValue(rs); err != nil {
		return err
	}
	if err := d.write4(b >> 4); err != nil {
		return err
	}
	return d.write4(b & 0x0f)
}

func (d *HD44780) write4(nibble byte) error {
	for i, p := range d.data {
		if err := p.SetValue(int(nibble>>i) & 1); err != nil {
			return err
		}
	}
	return d.pulse()
}

func (d *HD44780) pulse() error {
	if err := d.e.SetValue(1); err != nil {
		return err
	}
	d.sleep(time.Microsecond)
	if err := d.e.SetValue(0); err != nil {
		return err
	}
	// Most instructions need 37us to settle.
	d.sleep(50 * time.Microsecond)
	return nil
}
