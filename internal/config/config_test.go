package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/sweeney/fill-controller/internal/logic"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "filler.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "gpiochip0", cfg.GPIO.Chip)
	assert.Equal(t, 17, cfg.GPIO.Relay)
	assert.False(t, cfg.GPIO.RelayActiveLow)
	assert.Equal(t, float64(13594), cfg.HX711.CalibrationFactor)
	assert.Equal(t, SourceSPI, cfg.Keypad.Source)
	assert.Len(t, cfg.Keypad.Bands, 5)
	assert.Equal(t, 19.5, cfg.Fill.Stop20)
	assert.Equal(t, 24.5, cfg.Fill.Stop25)
	assert.Equal(t, 10, cfg.Fill.Samples)
	assert.Equal(t, 600*time.Millisecond, cfg.Timing.TareDwell)
	assert.NoError(t, cfg.Validate())
}

func TestDefaultLogicMatchesControllerDefaults(t *testing.T) {
	assert.Equal(t, logic.DefaultConfig(), Default().Logic())
}

func TestLoad_EmptyPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_FileNotExists(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "gpiochip0", cfg.GPIO.Chip)
}

func TestLoad_ValidYAML(t *testing.T) {
	path := writeConfig(t, `
gpio:
  chip: gpiochip4
  relay: 21
  relay_active_low: true
hx711:
  dout: 12
  sck: 13
  calibration_factor: 21000
keypad:
  source: serial
  serial: /dev/ttyUSB0
  baud_rate: 115200
fill:
  stop_20: 19.2
timing:
  tare_dwell: 1s
  fill_tick: 40ms
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "gpiochip4", cfg.GPIO.Chip)
	assert.Equal(t, 21, cfg.GPIO.Relay)
	assert.True(t, cfg.GPIO.RelayActiveLow)
	assert.Equal(t, 12, cfg.HX711.DOUT)
	assert.Equal(t, float64(21000), cfg.HX711.CalibrationFactor)
	assert.Equal(t, SourceSerial, cfg.Keypad.Source)
	assert.Equal(t, "/dev/ttyUSB0", cfg.Keypad.Serial)
	assert.Equal(t, 115200, cfg.Keypad.BaudRate)
	assert.Equal(t, 19.2, cfg.Fill.Stop20)
	assert.Equal(t, time.Second, cfg.Timing.TareDwell)
	assert.Equal(t, 40*time.Millisecond, cfg.Timing.FillTick)

	// Untouched fields keep their defaults.
	assert.Equal(t, 24.5, cfg.Fill.Stop25)
	assert.Equal(t, 200*time.Millisecond, cfg.Timing.StartSettle)
	assert.Len(t, cfg.Keypad.Bands, 5)
}

func TestLoad_CustomBands(t *testing.T) {
	path := writeConfig(t, `
keypad:
  bands:
    - {below: 60, button: TARE}
    - {below: 210, button: START_MANUAL}
    - {below: 420, button: STOP}
    - {below: 630, button: START_25}
    - {below: 850, button: START_20}
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	lc := cfg.Logic()
	assert.Equal(t, logic.ButtonTare, logic.Decode(lc.Bands, 55))
	assert.Equal(t, logic.ButtonStart20, logic.Decode(lc.Bands, 820))
	assert.Equal(t, logic.ButtonNone, logic.Decode(lc.Bands, 850))
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "gpio: [unterminated")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_RejectsBadBands(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown button", "keypad:\n  bands:\n    - {below: 50, button: JUMP}\n"},
		{"not ascending", "keypad:\n  bands:\n    - {below: 200, button: TARE}\n    - {below: 100, button: STOP}\n"},
		{"bad source", "keypad:\n  source: i2c\n"},
		{"negative samples", "fill:\n  samples: -1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestMarshalledDefaultsRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.GPIO.Relay = 26
	cfg.Timing.Blink = 750 * time.Millisecond

	data, err := yaml.Marshal(cfg)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "out.yaml")
	require.NoError(t, os.WriteFile(path, data, 0644))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 26, loaded.GPIO.Relay)
	assert.Equal(t, 750*time.Millisecond, loaded.Timing.Blink)
}
