package keypad

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"go.bug.st/serial"
)

// Serial bridge defaults.
const (
	DefaultBaudRate    = 9600
	DefaultReadTimeout = 100 * time.Millisecond
)

// bridgeRequest asks the bridge firmware for one analogRead of the keypad pin.
// It replies with the decimal value and a newline.
const bridgeRequest = "?\n"

// SerialBridge polls a microcontroller that samples the keypad ladder.
type SerialBridge struct {
	rw io.ReadWriteCloser
	r  *bufio.Reader
}

// OpenSerialBridge opens the serial port name at baud.
func OpenSerialBridge(name string, baud int) (*SerialBridge, error) {
	if baud == 0 {
		baud = DefaultBaudRate
	}
	port, err := serial.Open(name, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", name, err)
	}
	if err := port.SetReadTimeout(DefaultReadTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("set read timeout: %w", err)
	}
	return newSerialBridge(port), nil
}

func newSerialBridge(rw io.ReadWriteCloser) *SerialBridge {
	return &SerialBridge{rw: rw, r: bufio.NewReader(rw)}
}

// Read sends a request and parses the reply line.
func (b *SerialBridge) Read() (int, error) {
	if p, ok := b.rw.(interface{ ResetInputBuffer() error }); ok {
		if err := p.ResetInputBuffer(); err != nil {
			return 0, fmt.Errorf("reset input: %w", err)
		}
		b.r.Reset(b.rw)
	}
	if _, err := io.WriteString(b.rw, bridgeRequest); err != nil {
		return 0, fmt.Errorf("bridge request: %w", err)
	}
	line, err := b.r.ReadString('\n')
	if err != nil {
		return 0, fmt.Errorf("bridge reply: %w", err)
	}
	v, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil {
		return 0, fmt.Errorf("bridge reply %q: %w", strings.TrimSpace(line), err)
	}
	return checkRange(v)
}

// Close closes the serial port.
func (b *SerialBridge) Close() error {
	return b.rw.Close()
}
