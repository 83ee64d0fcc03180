// Package config loads the device description of the filler from YAML.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/fill-controller/internal/logic"
)

// Config represents the device configuration.
type Config struct {
	GPIO   GPIOConfig   `yaml:"gpio"`
	LCD    LCDConfig    `yaml:"lcd"`
	HX711  HX711Config  `yaml:"hx711"`
	Keypad KeypadConfig `yaml:"keypad"`
	Fill   FillConfig   `yaml:"fill"`
	Timing TimingConfig `yaml:"timing"`
}

// GPIOConfig selects the chip and the relay line.
type GPIOConfig struct {
	Chip           string `yaml:"chip"`
	Relay          int    `yaml:"relay"`
	RelayActiveLow bool   `yaml:"relay_active_low"`
}

// LCDConfig holds the HD44780 bus line offsets.
type LCDConfig struct {
	RS int `yaml:"rs"`
	E  int `yaml:"e"`
	D4 int `yaml:"d4"`
	D5 int `yaml:"d5"`
	D6 int `yaml:"d6"`
	D7 int `yaml:"d7"`
}

// HX711Config holds the load-cell ADC wiring and calibration.
type HX711Config struct {
	DOUT              int     `yaml:"dout"`
	SCK               int     `yaml:"sck"`
	CalibrationFactor float64 `yaml:"calibration_factor"` // raw counts per kg
}

// KeypadConfig selects the keypad sample source and its bands.
type KeypadConfig struct {
	Source   string       `yaml:"source"` // "spi" or "serial"
	SPIDev   string       `yaml:"spi_dev"`
	Channel  int          `yaml:"channel"`
	Serial   string       `yaml:"serial"`
	BaudRate int          `yaml:"baud_rate"`
	Bands    []BandConfig `yaml:"bands"`
}

// BandConfig maps raw samples below Below to Button.
type BandConfig struct {
	Below  int    `yaml:"below"`
	Button string `yaml:"button"`
}

// FillConfig contains stop thresholds and sampling.
type FillConfig struct {
	Stop20  float64 `yaml:"stop_20"`
	Stop25  float64 `yaml:"stop_25"`
	Samples int     `yaml:"samples"`
}

// TimingConfig contains UI dwell and settle times.
type TimingConfig struct {
	Blink       time.Duration `yaml:"blink"`
	TareDwell   time.Duration `yaml:"tare_dwell"`
	TareRedraw  time.Duration `yaml:"tare_redraw"`
	StartSettle time.Duration `yaml:"start_settle"`
	StopHold    time.Duration `yaml:"stop_hold"`
	FillTick    time.Duration `yaml:"fill_tick"`
}

// Keypad sources.
const (
	SourceSPI    = "spi"
	SourceSerial = "serial"
)

// Default returns the reference wiring: an LCD keypad shield on a Pi with
// an MCP3008 reading the button ladder.
func Default() *Config {
	lc := logic.DefaultConfig()
	bands := make([]BandConfig, len(lc.Bands))
	for i, b := range lc.Bands {
		bands[i] = BandConfig{Below: b.Below, Button: string(b.Button)}
	}

	return &Config{
		GPIO: GPIOConfig{
			Chip:  "gpiochip0",
			Relay: 17,
		},
		LCD: LCDConfig{RS: 25, E: 24, D4: 23, D5: 22, D6: 27, D7: 18},
		HX711: HX711Config{
			DOUT:              5,
			SCK:               6,
			CalibrationFactor: 13594,
		},
		Keypad: KeypadConfig{
			Source:   SourceSPI,
			SPIDev:   "",
			Channel:  0,
			Serial:   "/dev/ttyACM0",
			BaudRate: 9600,
			Bands:    bands,
		},
		Fill: FillConfig{
			Stop20:  lc.Stop20,
			Stop25:  lc.Stop25,
			Samples: lc.FillSamples,
		},
		Timing: TimingConfig{
			Blink:       lc.BlinkInterval,
			TareDwell:   lc.TareDwell,
			TareRedraw:  lc.TareRedraw,
			StartSettle: lc.StartSettle,
			StopHold:    lc.StopHold,
			FillTick:    lc.FillTick,
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()
	if filename == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ensureDefaults fills zero-valued fields from Default.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.GPIO.Chip == "" {
		c.GPIO.Chip = def.GPIO.Chip
	}
	if c.HX711.CalibrationFactor == 0 {
		c.HX711.CalibrationFactor = def.HX711.CalibrationFactor
	}
	if c.Keypad.Source == "" {
		c.Keypad.Source = def.Keypad.Source
	}
	if c.Keypad.BaudRate == 0 {
		c.Keypad.BaudRate = def.Keypad.BaudRate
	}
	if len(c.Keypad.Bands) == 0 {
		c.Keypad.Bands = def.Keypad.Bands
	}

	if c.Fill.Stop20 == 0 {
		c.Fill.Stop20 = def.Fill.Stop20
	}
	if c.Fill.Stop25 == 0 {
		c.Fill.Stop25 = def.Fill.Stop25
	}
	if c.Fill.Samples == 0 {
		c.Fill.Samples = def.Fill.Samples
	}

	if c.Timing.Blink == 0 {
		c.Timing.Blink = def.Timing.Blink
	}
	if c.Timing.TareDwell == 0 {
		c.Timing.TareDwell = def.Timing.TareDwell
	}
	if c.Timing.TareRedraw == 0 {
		c.Timing.TareRedraw = def.Timing.TareRedraw
	}
	if c.Timing.StartSettle == 0 {
		c.Timing.StartSettle = def.Timing.StartSettle
	}
	if c.Timing.StopHold == 0 {
		c.Timing.StopHold = def.Timing.StopHold
	}
	if c.Timing.FillTick == 0 {
		c.Timing.FillTick = def.Timing.FillTick
	}
}

var knownButtons = map[logic.Button]bool{
	logic.ButtonTare:        true,
	logic.ButtonStart20:     true,
	logic.ButtonStart25:     true,
	logic.ButtonStartManual: true,
	logic.ButtonStop:        true,
}

// Validate checks the keypad bands and the keypad source.
func (c *Config) Validate() error {
	prev := 0
	for i, b := range c.Keypad.Bands {
		if !knownButtons[logic.Button(b.Button)] {
			return fmt.Errorf("keypad band %d: unknown button %q", i, b.Button)
		}
		if b.Below <= prev {
			return fmt.Errorf("keypad band %d: limit %d must be above %d", i, b.Below, prev)
		}
		prev = b.Below
	}
	switch c.Keypad.Source {
	case SourceSPI, SourceSerial:
	default:
		return fmt.Errorf("keypad source %q: want %q or %q", c.Keypad.Source, SourceSPI, SourceSerial)
	}
	if c.Fill.Samples < 1 {
		return fmt.Errorf("fill samples must be positive, got %d", c.Fill.Samples)
	}
	return nil
}

// Logic returns the controller configuration.
func (c *Config) Logic() logic.Config {
	bands := make([]logic.Band, len(c.Keypad.Bands))
	for i, b := range c.Keypad.Bands {
		bands[i] = logic.Band{Below: b.Below, Button: logic.Button(b.Button)}
	}
	return logic.Config{
		Bands:         bands,
		Stop20:        c.Fill.Stop20,
		Stop25:        c.Fill.Stop25,
		FillSamples:   c.Fill.Samples,
		BlinkInterval: c.Timing.Blink,
		TareDwell:     c.Timing.TareDwell,
		TareRedraw:    c.Timing.TareRedraw,
		StartSettle:   c.Timing.StartSettle,
		StopHold:      c.Timing.StopHold,
		FillTick:      c.Timing.FillTick,
	}
}
