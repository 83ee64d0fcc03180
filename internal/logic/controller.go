package logic

import "time"

// Controller is the fill state machine. It owns the mode, the idle blinker
// and the fill statistics; everything else is returned as actions.
//
// A tick is Step followed, when NeedsWeight reports true, by Weigh with a
// fresh sensor reading.
type Controller struct {
	cfg        Config
	mode       Mode
	blink      *Blinker
	lastWeight float64
	counts     FillCounts
}

// NewController creates a controller in ModeIdle.
func NewController(cfg Config, start time.Time) *Controller {
	return &Controller{
		cfg:   cfg,
		mode:  ModeIdle,
		blink: NewBlinker(cfg.BlinkInterval, start),
	}
}

// Init returns the power-on actions: relay off and the menu screen.
func (c *Controller) Init() Output {
	var out Output
	out.relay(false)
	out.screen(ScreenMenu)
	return out
}

// Decode maps a raw keypad sample using the configured bands.
func (c *Controller) Decode(raw int) Button {
	return Decode(c.cfg.Bands, raw)
}

// Step handles the button pressed on this tick.
func (c *Controller) Step(b Button, now time.Time) Output {
	var out Output

	// Stop wins over everything and ends the tick.
	if b == ButtonStop {
		if c.mode.Filling() {
			c.counts.Aborted++
			out.event(Event{Timestamp: now, Type: EventFillAborted, Mode: c.mode, Weight: c.lastWeight})
		}
		c.mode = ModeIdle
		out.relay(false)
		out.screen(ScreenMenu)
		out.hold(c.cfg.StopHold)
		return out
	}

	if b == ButtonTare {
		c.counts.Tares++
		out.tare()
		out.screen(ScreenTareOK)
		out.hold(c.cfg.TareDwell)
		out.screen(c.currentScreen())
		out.hold(c.cfg.TareRedraw)
		out.event(Event{Timestamp: now, Type: EventTare, Mode: c.mode, Weight: c.lastWeight})
	}

	if c.mode != ModeIdle {
		return out
	}

	switch b {
	case ButtonStart20:
		c.start(&out, ModeFill20, now)
	case ButtonStart25:
		c.start(&out, ModeFill25, now)
	case ButtonStartManual:
		c.start(&out, ModeManual, now)
	}

	if c.mode == ModeIdle {
		if on, toggled := c.blink.Tick(now); toggled {
			out.Actions = append(out.Actions, Action{Kind: ActionBlink, On: on})
		}
	}

	return out
}

func (c *Controller) start(out *Output, m Mode, now time.Time) {
	c.mode = m
	c.lastWeight = 0
	c.counts.Started++
	out.tare()
	out.screen(ScreenHeader)
	out.relay(true)
	out.hold(c.cfg.StartSettle)
	out.event(Event{Timestamp: now, Type: EventFillStarted, Mode: m})
}

// NeedsWeight reports whether the caller must read the sensor and call Weigh.
func (c *Controller) NeedsWeight() bool {
	return c.mode.Filling()
}

// Weigh consumes a weight reading taken during a fill. Negative readings
// are clamped to zero before display and threshold checks. Calling Weigh
// while idle is a no-op.
func (c *Controller) Weigh(kg float64, now time.Time) Output {
	var out Output
	if !c.mode.Filling() {
		return out
	}

	w := Clamp(kg)
	c.lastWeight = w
	out.Actions = append(out.Actions, Action{Kind: ActionWeight, Weight: w})

	if limit, ok := c.stopAt(c.mode); ok && w >= limit {
		c.counts.Complete++
		out.event(Event{Timestamp: now, Type: EventFillComplete, Mode: c.mode, Weight: w})
		c.mode = ModeIdle
		out.relay(false)
		out.screen(ScreenMenu)
	}

	out.hold(c.cfg.FillTick)
	return out
}

// stopAt returns the automatic stop threshold for m. Manual fills have none.
func (c *Controller) stopAt(m Mode) (float64, bool) {
	switch m {
	case ModeFill20:
		return c.cfg.Stop20, true
	case ModeFill25:
		return c.cfg.Stop25, true
	}
	return 0, false
}

func (c *Controller) currentScreen() Screen {
	if c.mode == ModeIdle {
		return ScreenMenu
	}
	return ScreenHeader
}

// Mode returns the current mode.
func (c *Controller) Mode() Mode {
	return c.mode
}

// Relay returns the relay state implied by the current mode.
func (c *Controller) Relay() bool {
	return c.mode.Filling()
}

// LastWeight returns the most recent clamped reading of the current or last fill.
func (c *Controller) LastWeight() float64 {
	return c.lastWeight
}

// Counts returns a copy of the fill statistics.
func (c *Controller) Counts() FillCounts {
	return c.counts
}

// Config returns the controller configuration.
func (c *Controller) Config() Config {
	return c.cfg
}

func (o *Output) tare() {
	o.Actions = append(o.Actions, Action{Kind: ActionTare})
}

func (o *Output) relay(on bool) {
	o.Actions = append(o.Actions, Action{Kind: ActionRelay, On: on})
}

func (o *Output) screen(s Screen) {
	o.Actions = append(o.Actions, Action{Kind: ActionScreen, Screen: s})
}

func (o *Output) hold(d time.Duration) {
	if d <= 0 {
		return
	}
	o.Actions = append(o.Actions, Action{Kind: ActionHold, Hold: d})
}

func (o *Output) event(e Event) {
	o.Events = append(o.Events, e)
}
