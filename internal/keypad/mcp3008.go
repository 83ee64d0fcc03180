package keypad

import (
	"fmt"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// DefaultSPIFreq is well inside the MCP3008's 1.35MHz limit at 3.3V.
const DefaultSPIFreq = 1 * physic.MegaHertz

// transferer is the part of spi.Conn the reader uses.
type transferer interface {
	Tx(w, r []byte) error
}

// MCP3008 reads one single-ended channel of an MCP3008 ADC.
type MCP3008 struct {
	conn    transferer
	port    spi.PortCloser
	channel int
}

// OpenMCP3008 opens the SPI port dev ("" for the first one) and reads
// channel (0-7).
func OpenMCP3008(dev string, channel int) (*MCP3008, error) {
	if channel < 0 || channel > 7 {
		return nil, fmt.Errorf("mcp3008: channel %d out of range", channel)
	}
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init periph host: %w", err)
	}
	port, err := spireg.Open(dev)
	if err != nil {
		return nil, fmt.Errorf("open spi %q: %w", dev, err)
	}
	conn, err := port.Connect(DefaultSPIFreq, spi.Mode0, 8)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("connect spi: %w", err)
	}
	return &MCP3008{conn: conn, port: port, channel: channel}, nil
}

// Read performs one single-ended conversion.
func (m *MCP3008) Read() (int, error) {
	w := []byte{0x01, byte(0x80 | m.channel<<4), 0x00}
	r := make([]byte, len(w))
	if err := m.conn.Tx(w, r); err != nil {
		return 0, fmt.Errorf("mcp3008 transfer: %w", err)
	}
	return checkRange(int(r[1]&0x03)<<8 | int(r[2]))
}

// Close releases the SPI port.
func (m *MCP3008) Close() error {
	if m.port == nil {
		return nil
	}
	return m.port.Close()
}
