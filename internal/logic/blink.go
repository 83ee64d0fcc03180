package logic

import "time"

// Blinker toggles a flag whenever Interval has elapsed since the last toggle.
type Blinker struct {
	interval   time.Duration
	on         bool
	lastToggle time.Time
}

// NewBlinker creates a Blinker that starts on, with its first toggle
// due one interval after start.
func NewBlinker(interval time.Duration, start time.Time) *Blinker {
	return &Blinker{
		interval:   interval,
		on:         true,
		lastToggle: start,
	}
}

// Tick returns the current flag and whether it changed on this call.
func (b *Blinker) Tick(now time.Time) (on bool, toggled bool) {
	if now.Sub(b.lastToggle) >= b.interval {
		b.lastToggle = now
		b.on = !b.on
		return b.on, true
	}
	return b.on, false
}

// On returns the current flag without advancing the timer.
func (b *Blinker) On() bool {
	return b.on
}
