package scale

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/devices/v3/hx711"
	"periph.io/x/host/v3"
)

// DefaultHX711Timeout bounds the wait for one conversion (10 SPS mode needs ~100ms).
const DefaultHX711Timeout = 500 * time.Millisecond

// sampler is the part of *hx711.Dev the reader uses.
type sampler interface {
	ReadTimeout(timeout time.Duration) (int32, error)
	Halt() error
}

// clockPin is the SCK line, driven high to power the chip down.
type clockPin interface {
	Out(l gpio.Level) error
}

// HX711 reads raw conversions from an HX711 load-cell ADC, channel A, gain 128.
type HX711 struct {
	dev sampler
	clk clockPin

	// Timeout bounds the wait for a conversion.
	Timeout time.Duration
}

// OpenHX711 opens the ADC on BCM lines dout and sck.
func OpenHX711(dout, sck int) (*HX711, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init periph host: %w", err)
	}
	clk := gpioreg.ByName(pinName(sck))
	if clk == nil {
		return nil, fmt.Errorf("hx711 sck: no pin %s", pinName(sck))
	}
	data := gpioreg.ByName(pinName(dout))
	if data == nil {
		return nil, fmt.Errorf("hx711 dout: no pin %s", pinName(dout))
	}
	dev, err := hx711.New(clk, data)
	if err != nil {
		return nil, fmt.Errorf("hx711: %w", err)
	}
	return newHX711(dev, clk), nil
}

func newHX711(dev sampler, clk clockPin) *HX711 {
	return &HX711{dev: dev, clk: clk, Timeout: DefaultHX711Timeout}
}

func pinName(bcm int) string {
	return fmt.Sprintf("GPIO%d", bcm)
}

// ReadRaw waits for the next conversion.
func (h *HX711) ReadRaw() (int32, error) {
	v, err := h.dev.ReadTimeout(h.Timeout)
	if err != nil {
		return 0, fmt.Errorf("hx711 read: %w", err)
	}
	return v, nil
}

// Close stops the device and powers it down (SCK held high).
func (h *HX711) Close() error {
	var errs []error
	if err := h.dev.Halt(); err != nil {
		errs = append(errs, fmt.Errorf("halt: %w", err))
	}
	if err := h.clk.Out(gpio.High); err != nil {
		errs = append(errs, fmt.Errorf("power down: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
