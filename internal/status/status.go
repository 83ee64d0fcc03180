// Package status holds a thread-safe snapshot of the fill controller,
// shared by the HTTP handlers and the MQTT heartbeat.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/fill-controller/internal/logic"
)

// NetworkInfo describes the host network, as reported by pi-helper.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config is the daemon configuration shown on the status page.
type Config struct {
	PollMs      int64
	HeartbeatMs int64
	Broker      string
	HTTPPort    string
	Keypad      string
	Stop20      float64
	Stop25      float64
}

// Snapshot is a point-in-time copy of the controller state.
type Snapshot struct {
	Mode          logic.Mode
	Weight        float64
	Relay         bool
	Counts        logic.FillCounts
	Screen        string // readable top line of the LCD
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// NewTracker creates a Tracker starting in ModeIdle.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			Mode:      logic.ModeIdle,
			StartTime: startTime,
			Config:    cfg,
		},
		now: time.Now,
	}
}

// Update records the controller state after a tick.
func (t *Tracker) Update(mode logic.Mode, weight float64, relay bool, counts logic.FillCounts) {
	t.mu.Lock()
	t.snap.Mode = mode
	t.snap.Weight = weight
	t.snap.Relay = relay
	t.snap.Counts = counts
	t.mu.Unlock()
}

// SetScreen records the text currently on the display's top line.
func (t *Tracker) SetScreen(text string) {
	t.mu.Lock()
	t.snap.Screen = text
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a copy of the state with Now set to the current time.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = t.now()
	return s
}
