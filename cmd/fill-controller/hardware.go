package main

import (
	"fmt"
	"log"

	"github.com/sweeney/fill-controller/internal/config"
	"github.com/sweeney/fill-controller/internal/gpio"
	"github.com/sweeney/fill-controller/internal/keypad"
	"github.com/sweeney/fill-controller/internal/lcd"
	"github.com/sweeney/fill-controller/internal/scale"
	"github.com/sweeney/fill-controller/internal/screen"
)

// devices are the peripherals the loop drives.
type devices struct {
	keys   keypad.Source
	sensor scale.Sensor
	relay  gpio.Relay
	pres   *screen.Presenter
}

// hardware owns everything opened from the device config.
type hardware struct {
	devices
	chip    *gpio.Chip
	display lcd.Display
}

// openSensor opens the HX711 and wraps it in a calibrated scale.
func openSensor(cfg config.HX711Config) (*scale.Scale, error) {
	adc, err := scale.OpenHX711(cfg.DOUT, cfg.SCK)
	if err != nil {
		return nil, err
	}
	s, err := scale.NewScale(adc, cfg.CalibrationFactor)
	if err != nil {
		adc.Close()
		return nil, err
	}
	return s, nil
}

func openDisplay(chip *gpio.Chip, cfg config.LCDConfig) (lcd.Display, error) {
	offsets := []int{cfg.RS, cfg.E, cfg.D4, cfg.D5, cfg.D6, cfg.D7}
	pins := make([]gpio.Pin, 0, len(offsets))
	for _, off := range offsets {
		p, err := chip.Output(off, 0)
		if err != nil {
			for _, opened := range pins {
				opened.Close()
			}
			return nil, fmt.Errorf("lcd line %d: %w", off, err)
		}
		pins = append(pins, p)
	}
	d, err := lcd.NewHD44780(lcd.Pins{
		RS: pins[0], E: pins[1],
		D4: pins[2], D5: pins[3], D6: pins[4], D7: pins[5],
	})
	if err != nil {
		for _, p := range pins {
			p.Close()
		}
		return nil, err
	}
	return d, nil
}

func openKeypad(cfg config.KeypadConfig) (keypad.Source, error) {
	switch cfg.Source {
	case config.SourceSerial:
		b, err := keypad.OpenSerialBridge(cfg.Serial, cfg.BaudRate)
		if err != nil {
			return nil, err
		}
		return b, nil
	case config.SourceSPI:
		m, err := keypad.OpenMCP3008(cfg.SPIDev, cfg.Channel)
		if err != nil {
			return nil, err
		}
		return m, nil
	}
	return nil, fmt.Errorf("unknown keypad source %q", cfg.Source)
}

// openHardware opens every peripheral. On error, whatever was opened is closed.
func openHardware(cfg *config.Config) (*hardware, error) {
	chip, err := gpio.OpenChip(cfg.GPIO.Chip)
	if err != nil {
		return nil, fmt.Errorf("init gpio: %w", err)
	}
	hw := &hardware{chip: chip}

	// The relay line is requested de-energized.
	relayPin, err := chip.Output(cfg.GPIO.Relay, relayLevel(false, cfg.GPIO.RelayActiveLow))
	if err != nil {
		hw.Close()
		return nil, fmt.Errorf("relay line: %w", err)
	}
	hw.relay = gpio.NewLineRelay(relayPin, cfg.GPIO.RelayActiveLow)

	display, err := openDisplay(chip, cfg.LCD)
	if err != nil {
		hw.Close()
		return nil, fmt.Errorf("init lcd: %w", err)
	}
	hw.display = display
	hw.pres = screen.New(display)

	sensor, err := openSensor(cfg.HX711)
	if err != nil {
		hw.Close()
		return nil, fmt.Errorf("init hx711: %w", err)
	}
	hw.sensor = sensor

	keys, err := openKeypad(cfg.Keypad)
	if err != nil {
		hw.Close()
		return nil, fmt.Errorf("init keypad: %w", err)
	}
	hw.keys = keys

	return hw, nil
}

func relayLevel(on, activeLow bool) int {
	if on != activeLow {
		return 1
	}
	return 0
}

// Close releases the peripherals, relay first.
func (hw *hardware) Close() error {
	var errs []error
	closers := []interface{ Close() error }{}
	if hw.relay != nil {
		closers = append(closers, hw.relay)
	}
	if hw.keys != nil {
		closers = append(closers, hw.keys)
	}
	if hw.sensor != nil {
		closers = append(closers, hw.sensor)
	}
	if hw.display != nil {
		closers = append(closers, hw.display)
	}
	if hw.chip != nil {
		closers = append(closers, hw.chip)
	}
	for _, c := range closers {
		if err := c.Close(); err != nil {
			log.Printf("close error: %v", err)
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
