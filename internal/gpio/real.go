//go:build linux

package gpio

import (
	"errors"
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// Chip hands out lines from a Linux GPIO character device.
type Chip struct {
	chip  *gpiocdev.Chip
	lines []*gpiocdev.Line
}

// OpenChip opens the named chip, e.g. "gpiochip0".
func OpenChip(name string) (*Chip, error) {
	chip, err := gpiocdev.NewChip(name)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}
	return &Chip{chip: chip}, nil
}

// Input requests offset as an input. With pullUp the internal pull-up is
// enabled, otherwise the pull-down.
func (c *Chip) Input(offset int, pullUp bool) (Pin, error) {
	bias := gpiocdev.WithPullDown
	if pullUp {
		bias = gpiocdev.WithPullUp
	}
	l, err := c.chip.RequestLine(offset, gpiocdev.AsInput, bias)
	if err != nil {
		return nil, fmt.Errorf("request input pin %d: %w", offset, err)
	}
	c.lines = append(c.lines, l)
	return l, nil
}

// Output requests offset as an output driven to initial.
func (c *Chip) Output(offset int, initial int) (Pin, error) {
	l, err := c.chip.RequestLine(offset, gpiocdev.AsOutput(initial))
	if err != nil {
		return nil, fmt.Errorf("request output pin %d: %w", offset, err)
	}
	c.lines = append(c.lines, l)
	return l, nil
}

// Close releases all lines and the chip.
// Lines are reconfigured to input with pull-down (matching Pi boot defaults)
// before closing so outputs such as the relay do not stay driven.
// Lines already closed by their owner are skipped.
func (c *Chip) Close() error {
	var errs []error

	for _, l := range c.lines {
		err := l.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown)
		if errors.Is(err, gpiocdev.ErrClosed) {
			continue
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("reconfigure pin %d: %w", l.Offset(), err))
		}
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pin %d: %w", l.Offset(), err))
		}
	}
	c.lines = nil

	if c.chip != nil {
		if err := c.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
