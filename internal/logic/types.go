// Package logic contains the pure fill-control state machine.
// This package has NO external dependencies (no GPIO, LCD, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters, and every delay the
// controller wants is returned to the caller as a Hold action.
package logic

import "time"

// Mode is the controller's operating state.
type Mode string

const (
	ModeIdle   Mode = "IDLE"
	ModeFill20 Mode = "FILL_20KG"
	ModeFill25 Mode = "FILL_25KG"
	ModeManual Mode = "FILL_MANUAL"
)

// Filling reports whether the relay should be energized in this mode.
func (m Mode) Filling() bool {
	return m != ModeIdle && m != ""
}

// Button is a decoded keypad event for a single tick.
type Button string

const (
	ButtonNone        Button = "NONE"
	ButtonTare        Button = "TARE"
	ButtonStart20     Button = "START_20"
	ButtonStart25     Button = "START_25"
	ButtonStartManual Button = "START_MANUAL"
	ButtonStop        Button = "STOP"
)

// Band maps raw keypad samples below Below to Button.
type Band struct {
	Below  int
	Button Button
}

// Screen identifies a full-screen layout.
type Screen string

const (
	ScreenMenu   Screen = "MENU"
	ScreenHeader Screen = "HEADER"
	ScreenTareOK Screen = "TARE_OK"
)

// ActionKind identifies what the caller must do for an Action.
type ActionKind int

const (
	ActionTare   ActionKind = iota // zero the sensor
	ActionRelay                    // drive the relay to On
	ActionScreen                   // render Screen
	ActionWeight                   // render Weight on the second line
	ActionBlink                    // draw corner markers according to On
	ActionHold                     // wait for Hold before continuing
)

func (k ActionKind) String() string {
	switch k {
	case ActionTare:
		return "tare"
	case ActionRelay:
		return "relay"
	case ActionScreen:
		return "screen"
	case ActionWeight:
		return "weight"
	case ActionBlink:
		return "blink"
	case ActionHold:
		return "hold"
	}
	return "unknown"
}

// Action is a single side effect requested by the controller.
// Actions must be applied in order.
type Action struct {
	Kind   ActionKind
	On     bool          // ActionRelay, ActionBlink
	Screen Screen        // ActionScreen
	Weight float64       // ActionWeight, kilograms, never negative
	Hold   time.Duration // ActionHold
}

// EventType represents a fill lifecycle event.
type EventType string

const (
	EventFillStarted  EventType = "FILL_STARTED"
	EventFillComplete EventType = "FILL_COMPLETE"
	EventFillAborted  EventType = "FILL_ABORTED"
	EventTare         EventType = "TARE"
)

// Event represents a transition to be published.
type Event struct {
	Timestamp time.Time
	Type      EventType
	Mode      Mode    // mode the event applies to (the fill mode for FILL_*)
	Weight    float64 // last known weight in kg
}

// Output is the result of a controller step.
type Output struct {
	Actions []Action
	Events  []Event
}

// FillCounts tracks the number of fill outcomes since startup.
type FillCounts struct {
	Started  int
	Complete int
	Aborted  int
	Tares    int
}

// Config holds every device-specific constant the controller needs.
type Config struct {
	// Bands are evaluated in order; the first band whose Below exceeds
	// the raw sample wins.
	Bands []Band

	// Stop thresholds in kg. Kept below the nominal target to absorb overrun.
	Stop20 float64
	Stop25 float64

	// FillSamples is the averaging window for weight reads while filling.
	FillSamples int

	BlinkInterval time.Duration
	TareDwell     time.Duration
	TareRedraw    time.Duration
	StartSettle   time.Duration
	StopHold      time.Duration
	FillTick      time.Duration
}

// DefaultBands matches the resistor ladder of the common 16x2 LCD keypad shield.
// The physical labels do not match the functions: right=tare, up=manual,
// down=stop, left=25kg, select=20kg.
func DefaultBands() []Band {
	return []Band{
		{Below: 50, Button: ButtonTare},
		{Below: 200, Button: ButtonStartManual},
		{Below: 400, Button: ButtonStop},
		{Below: 600, Button: ButtonStart25},
		{Below: 800, Button: ButtonStart20},
	}
}

// DefaultConfig returns the reference wiring and timing.
func DefaultConfig() Config {
	return Config{
		Bands:         DefaultBands(),
		Stop20:        19.5,
		Stop25:        24.5,
		FillSamples:   10,
		BlinkInterval: 500 * time.Millisecond,
		TareDwell:     600 * time.Millisecond,
		TareRedraw:    50 * time.Millisecond,
		StartSettle:   200 * time.Millisecond,
		StopHold:      100 * time.Millisecond,
		FillTick:      20 * time.Millisecond,
	}
}
