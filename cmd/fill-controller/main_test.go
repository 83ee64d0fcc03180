package main

import (
	"errors"
	"os"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/sweeney/fill-controller/internal/gpio"
	"github.com/sweeney/fill-controller/internal/keypad"
	"github.com/sweeney/fill-controller/internal/lcd"
	"github.com/sweeney/fill-controller/internal/logic"
	"github.com/sweeney/fill-controller/internal/mqtt"
	"github.com/sweeney/fill-controller/internal/scale"
	"github.com/sweeney/fill-controller/internal/screen"
	"github.com/sweeney/fill-controller/internal/status"
)

// Raw keypad samples inside each default band.
const (
	rawNone    = 1023
	rawTare    = 10
	rawManual  = 100
	rawStop    = 300
	rawStart25 = 550
	rawStart20 = 700
)

// TestEnvVarNames verifies the env var constants match what pi-helper writes
// to /run/pi-helper.env.
func TestEnvVarNames(t *testing.T) {
	want := map[string]string{
		"NETWORK_TYPE":        envNetworkType,
		"NETWORK_IP":          envNetworkIP,
		"NETWORK_STATUS":      envNetworkStatus,
		"NETWORK_GATEWAY":     envNetworkGateway,
		"NETWORK_WIFI_STATUS": envNetworkWifiStatus,
		"NETWORK_WIFI_SSID":   envNetworkWifiSSID,
	}
	for canonical, got := range want {
		if got != canonical {
			t.Errorf("env var constant: got %q, want %q", got, canonical)
		}
	}
}

func TestReadNetworkInfoAllSet(t *testing.T) {
	t.Setenv(envNetworkType, "wifi")
	t.Setenv(envNetworkIP, "192.168.1.100")
	t.Setenv(envNetworkStatus, "connected")
	t.Setenv(envNetworkGateway, "192.168.1.1")
	t.Setenv(envNetworkWifiStatus, "connected")
	t.Setenv(envNetworkWifiSSID, "Plant")

	info := readNetworkInfo()
	if info == nil {
		t.Fatal("expected non-nil NetworkInfo")
	}
	want := status.NetworkInfo{
		Type:       "wifi",
		IP:         "192.168.1.100",
		Status:     "connected",
		Gateway:    "192.168.1.1",
		WifiStatus: "connected",
		SSID:       "Plant",
	}
	if *info != want {
		t.Errorf("got %+v, want %+v", *info, want)
	}
}

func TestReadNetworkInfoNoneSet(t *testing.T) {
	t.Setenv(envNetworkStatus, "")
	if info := readNetworkInfo(); info != nil {
		t.Errorf("expected nil when NETWORK_STATUS is unset, got %+v", info)
	}
}

func TestRelayLevel(t *testing.T) {
	tests := []struct {
		on, activeLow bool
		want          int
	}{
		{false, false, 0},
		{true, false, 1},
		{false, true, 1},
		{true, true, 0},
	}
	for _, tt := range tests {
		if got := relayLevel(tt.on, tt.activeLow); got != tt.want {
			t.Errorf("relayLevel(%v, %v): got %d, want %d", tt.on, tt.activeLow, got, tt.want)
		}
	}
}

// --- runLoop tests ---

var t0 = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// fakeClock returns a function that yields start, start+step, start+2*step, ...
// on successive calls. Only called from runLoop's goroutine.
func fakeClock(start time.Time, step time.Duration) func() time.Time {
	n := 0
	return func() time.Time {
		t := start.Add(time.Duration(n) * step)
		n++
		return t
	}
}

// rig bundles the fakes behind a runLoop.
type rig struct {
	keys    keypad.Source
	sensor  *scale.FakeSensor
	relay   *gpio.FakeRelay
	display *lcd.Fake
	pub     *mqtt.FakePublisher
	tracker *status.Tracker
	ctrl    *logic.Controller
	sleeps  []time.Duration
}

func newRig(samples []int, weights ...float64) *rig {
	return &rig{
		keys:    keypad.NewFakeSource(samples...),
		sensor:  scale.NewFakeSensor(weights...),
		relay:   gpio.NewFakeRelay(),
		display: lcd.NewFake(),
		pub:     mqtt.NewFakePublisher(),
		tracker: status.NewTracker(t0, status.Config{}),
		ctrl:    logic.NewController(logic.DefaultConfig(), t0),
	}
}

// run drives runLoop for nTicks ticks, then delivers signal.
func (r *rig) run(t *testing.T, heartbeat time.Duration, clock func() time.Time, nTicks int, signal os.Signal) error {
	t.Helper()
	tick := make(chan time.Time)
	sig := make(chan os.Signal, 1)
	dev := devices{keys: r.keys, sensor: r.sensor, relay: r.relay, pres: screen.New(r.display)}
	sleep := func(d time.Duration) { r.sleeps = append(r.sleeps, d) }

	errCh := make(chan error, 1)
	go func() {
		errCh <- runLoop(dev, r.pub, r.pub, r.tracker, r.ctrl, heartbeat, clock, sleep, tick, sig)
	}()

	for i := 0; i < nTicks; i++ {
		tick <- time.Time{}
	}
	sig <- signal

	return <-errCh
}

// faultSource returns errors for a range of Read calls.
type faultSource struct {
	inner      keypad.Source
	call       int
	faultStart int // inclusive
	faultEnd   int // exclusive
}

func (s *faultSource) Read() (int, error) {
	i := s.call
	s.call++
	if i >= s.faultStart && i < s.faultEnd {
		return 0, errors.New("adc fault")
	}
	return s.inner.Read()
}

func (s *faultSource) Close() error { return s.inner.Close() }

func TestRunLoopIdleShowsMenu(t *testing.T) {
	r := newRig([]int{rawNone})

	err := r.run(t, 0, fakeClock(t0, 100*time.Millisecond), 3, syscall.SIGTERM)
	if err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	if len(r.pub.Events) != 0 {
		t.Errorf("expected no fill events, got %v", r.pub.EventTypes())
	}
	if names := r.pub.SystemNames(); len(names) != 1 || names[0] != "SHUTDOWN" {
		t.Errorf("system events: got %v, want [SHUTDOWN]", names)
	}
	if r.pub.SystemEvents[0].Reason != "SIGTERM" {
		t.Errorf("reason: got %q, want SIGTERM", r.pub.SystemEvents[0].Reason)
	}
	for i, on := range r.relay.States {
		if on {
			t.Errorf("relay state %d: energized while idle", i)
		}
	}
	if !r.display.Loaded[lcd.Slots-1] {
		t.Error("glyphs not loaded")
	}
	if !strings.HasPrefix(r.display.Row(1), "20L | 25L | PY") {
		t.Errorf("menu row 1: got %q", r.display.Row(1))
	}
	if r.sensor.Tares != 0 {
		t.Errorf("tares while idle: got %d", r.sensor.Tares)
	}
}

func TestRunLoopIdleBlink(t *testing.T) {
	r := newRig([]int{rawNone})

	// Ticks at 100ms steps: toggles off at 500ms and back on at 1000ms.
	if err := r.run(t, 0, fakeClock(t0, 100*time.Millisecond), 10, syscall.SIGTERM); err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}
	if r.display.At(0, 0) != '*' || r.display.At(15, 0) != '*' {
		t.Errorf("expected corner markers, got row 0 %q", r.display.Row(0))
	}
}

func TestRunLoopFill20Completes(t *testing.T) {
	r := newRig([]int{rawStart20, rawNone}, 5, 12.3, 19.62)

	err := r.run(t, 0, fakeClock(t0, 100*time.Millisecond), 3, syscall.SIGTERM)
	if err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	types := r.pub.EventTypes()
	if len(types) != 2 || types[0] != logic.EventFillStarted || types[1] != logic.EventFillComplete {
		t.Fatalf("events: got %v, want [FILL_STARTED FILL_COMPLETE]", types)
	}
	complete := r.pub.Events[1]
	if complete.Mode != logic.ModeFill20 || complete.Weight != 19.62 {
		t.Errorf("complete event: got %+v", complete)
	}

	// init off, start on, complete off, shutdown off
	want := []bool{false, true, false, false}
	if len(r.relay.States) != len(want) {
		t.Fatalf("relay states: got %v, want %v", r.relay.States, want)
	}
	for i := range want {
		if r.relay.States[i] != want[i] {
			t.Errorf("relay state %d: got %v, want %v", i, r.relay.States[i], want[i])
		}
	}

	if r.sensor.Tares != 1 {
		t.Errorf("tares: got %d, want 1", r.sensor.Tares)
	}
	for _, n := range r.sensor.Samples {
		if n != 10 {
			t.Errorf("fill read with %d samples, want 10", n)
		}
	}
	if len(r.sleeps) == 0 || r.sleeps[0] != 200*time.Millisecond {
		t.Errorf("expected start settle hold first, got %v", r.sleeps)
	}

	snap := r.tracker.Snapshot()
	if snap.Mode != logic.ModeIdle || snap.Counts.Complete != 1 || snap.Counts.Started != 1 {
		t.Errorf("tracker: got mode=%s counts=%+v", snap.Mode, snap.Counts)
	}
	if snap.Screen != "OБEPITЬ PEЖИM:" {
		t.Errorf("tracker screen: got %q, want menu title", snap.Screen)
	}
}

func TestRunLoopFill25IgnoresWeightBelowThreshold(t *testing.T) {
	r := newRig([]int{rawStart25, rawNone}, 19.6, 24.49)

	if err := r.run(t, 0, fakeClock(t0, 100*time.Millisecond), 4, syscall.SIGTERM); err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	if types := r.pub.EventTypes(); len(types) != 1 || types[0] != logic.EventFillStarted {
		t.Errorf("events: got %v, want [FILL_STARTED]", types)
	}
	if got := screen.Readable(r.display.Row(1)); !strings.HasPrefix(got, "24.49 kg") {
		t.Errorf("weight line: got %q", got)
	}
}

func TestRunLoopManualStoppedByButton(t *testing.T) {
	r := newRig([]int{rawManual, rawNone, rawNone, rawStop, rawNone}, 1, 40, 80)

	if err := r.run(t, 0, fakeClock(t0, 100*time.Millisecond), 5, syscall.SIGTERM); err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	types := r.pub.EventTypes()
	if len(types) != 2 || types[0] != logic.EventFillStarted || types[1] != logic.EventFillAborted {
		t.Fatalf("events: got %v, want [FILL_STARTED FILL_ABORTED]", types)
	}
	if r.pub.Events[1].Weight != 80 {
		t.Errorf("aborted weight: got %v, want 80", r.pub.Events[1].Weight)
	}
	if r.relay.On() {
		t.Error("relay still energized after stop")
	}
	if r.ctrl.Mode() != logic.ModeIdle {
		t.Errorf("mode: got %s, want IDLE", r.ctrl.Mode())
	}
}

func TestRunLoopTracksScreenTitle(t *testing.T) {
	r := newRig([]int{rawManual, rawNone}, 1, 2)

	if err := r.run(t, 0, fakeClock(t0, 100*time.Millisecond), 2, syscall.SIGTERM); err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	if got, want := r.tracker.Snapshot().Screen, "ПOTOЧHA BAГA:"; got != want {
		t.Errorf("tracker screen: got %q, want %q", got, want)
	}
}

func TestLastScreen(t *testing.T) {
	actions := []logic.Action{
		{Kind: logic.ActionScreen, Screen: logic.ScreenTareOK},
		{Kind: logic.ActionHold, Hold: time.Second},
		{Kind: logic.ActionScreen, Screen: logic.ScreenMenu},
		{Kind: logic.ActionTare},
	}
	if s, ok := lastScreen(actions); !ok || s != logic.ScreenMenu {
		t.Errorf("got %q %v, want MENU", s, ok)
	}
	if _, ok := lastScreen([]logic.Action{{Kind: logic.ActionTare}}); ok {
		t.Error("expected no screen")
	}
}

func TestRunLoopTareWhileIdle(t *testing.T) {
	r := newRig([]int{rawTare, rawNone})

	if err := r.run(t, 0, fakeClock(t0, 100*time.Millisecond), 2, syscall.SIGTERM); err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	if r.sensor.Tares != 1 {
		t.Errorf("tares: got %d, want 1", r.sensor.Tares)
	}
	if types := r.pub.EventTypes(); len(types) != 1 || types[0] != logic.EventTare {
		t.Errorf("events: got %v, want [TARE]", types)
	}
	if len(r.sleeps) < 2 || r.sleeps[0] != 600*time.Millisecond || r.sleeps[1] != 50*time.Millisecond {
		t.Errorf("holds: got %v, want [600ms 50ms]", r.sleeps)
	}
	if !strings.HasPrefix(r.display.Row(1), "20L") {
		t.Errorf("menu not redrawn after tare: %q", r.display.Row(1))
	}
}

func TestRunLoopKeypadFaultIgnoredWhileIdle(t *testing.T) {
	r := newRig([]int{rawStart20, rawNone}, 3)
	r.keys = &faultSource{inner: r.keys, faultStart: 0, faultEnd: 2}

	if err := r.run(t, 0, fakeClock(t0, 100*time.Millisecond), 3, syscall.SIGTERM); err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	// Only the third tick reads the keypad successfully.
	if types := r.pub.EventTypes(); len(types) != 1 || types[0] != logic.EventFillStarted {
		t.Errorf("events: got %v, want [FILL_STARTED]", types)
	}
	if len(r.sensor.Samples) != 1 {
		t.Errorf("sensor reads: got %d, want 1", len(r.sensor.Samples))
	}
}

func TestRunLoopKeypadFaultDuringFillStillStops(t *testing.T) {
	r := newRig([]int{rawStart20, rawNone}, 5, 30)
	r.keys = &faultSource{inner: r.keys, faultStart: 1, faultEnd: 100}

	if err := r.run(t, 0, fakeClock(t0, 100*time.Millisecond), 10, syscall.SIGTERM); err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	if r.ctrl.Mode() != logic.ModeIdle {
		t.Fatalf("mode: got %s, want IDLE after reaching 30kg", r.ctrl.Mode())
	}
	if len(r.sensor.Samples) != 2 {
		t.Errorf("sensor reads: got %d, want 2", len(r.sensor.Samples))
	}
	if r.relay.On() {
		t.Error("relay energized after the stop weight was reached")
	}
	types := r.pub.EventTypes()
	if len(types) != 2 || types[1] != logic.EventFillComplete {
		t.Errorf("events: got %v, want [FILL_STARTED FILL_COMPLETE]", types)
	}
}

func TestRunLoopSensorFaultKeepsFilling(t *testing.T) {
	r := newRig([]int{rawStart20, rawNone})
	r.sensor.ReadError = errors.New("hx711 not ready")

	if err := r.run(t, 0, fakeClock(t0, 100*time.Millisecond), 3, syscall.SIGTERM); err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	if r.ctrl.Mode() != logic.ModeFill20 {
		t.Errorf("mode: got %s, want FILL_20KG", r.ctrl.Mode())
	}
	if len(r.sensor.Samples) != 3 {
		t.Errorf("sensor reads: got %d, want 3", len(r.sensor.Samples))
	}
}

func TestRunLoopShutdownDeenergizesRelay(t *testing.T) {
	r := newRig([]int{rawStart20, rawNone}, 2)

	if err := r.run(t, 0, fakeClock(t0, 100*time.Millisecond), 2, syscall.SIGINT); err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	if r.relay.On() {
		t.Error("relay energized after shutdown")
	}
	ev := r.pub.SystemEvents[len(r.pub.SystemEvents)-1]
	if ev.Event != "SHUTDOWN" || ev.Reason != "SIGINT" || !ev.Retained {
		t.Errorf("shutdown event: got %+v", ev)
	}
	if !strings.Contains(string(ev.RawPayload), `"relay":false`) {
		t.Errorf("shutdown payload should report relay off: %s", ev.RawPayload)
	}
}

func TestRunLoopHeartbeat(t *testing.T) {
	r := newRig([]int{rawNone})

	// Ticks at 100..500ms; the 250ms heartbeat fires once, at 300ms.
	if err := r.run(t, 250*time.Millisecond, fakeClock(t0, 100*time.Millisecond), 5, syscall.SIGTERM); err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	names := r.pub.SystemNames()
	if len(names) != 2 || names[0] != "HEARTBEAT" || names[1] != "SHUTDOWN" {
		t.Fatalf("system events: got %v, want [HEARTBEAT SHUTDOWN]", names)
	}
	hb := r.pub.SystemEvents[0]
	if !hb.Timestamp.Equal(t0.Add(300 * time.Millisecond)) {
		t.Errorf("heartbeat timestamp: got %v", hb.Timestamp)
	}
	if !strings.Contains(string(hb.RawPayload), `"event":"HEARTBEAT"`) {
		t.Errorf("heartbeat payload: %s", hb.RawPayload)
	}
}

func TestRunLoopHeartbeatDisabled(t *testing.T) {
	r := newRig([]int{rawNone})

	if err := r.run(t, 0, fakeClock(t0, time.Hour), 5, syscall.SIGTERM); err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}
	if names := r.pub.SystemNames(); len(names) != 1 {
		t.Errorf("system events: got %v, want only SHUTDOWN", names)
	}
}

func TestRunLoopPublishFailureDoesNotStop(t *testing.T) {
	r := newRig([]int{rawStart20, rawNone}, 20)
	r.pub.PublishError = errors.New("broker down")

	if err := r.run(t, 0, fakeClock(t0, 100*time.Millisecond), 2, syscall.SIGTERM); err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}
	if r.ctrl.Counts().Complete != 1 {
		t.Errorf("fill should complete despite publish errors, counts %+v", r.ctrl.Counts())
	}
}

func TestApplyRunsEveryActionInOrder(t *testing.T) {
	relay := gpio.NewFakeRelay()
	relay.SetError = errors.New("line busy")
	sensor := scale.NewFakeSensor()
	display := lcd.NewFake()
	dev := devices{sensor: sensor, relay: relay, pres: screen.New(display)}

	var sleeps []time.Duration
	apply(dev, []logic.Action{
		{Kind: logic.ActionRelay, On: false},
		{Kind: logic.ActionTare},
		{Kind: logic.ActionScreen, Screen: logic.ScreenTareOK},
		{Kind: logic.ActionHold, Hold: 600 * time.Millisecond},
	}, func(d time.Duration) { sleeps = append(sleeps, d) })

	if sensor.Tares != 1 {
		t.Errorf("tare skipped after relay error")
	}
	if !strings.HasPrefix(display.Row(0), "   TAPA - OK!") {
		t.Errorf("row 0: got %q", display.Row(0))
	}
	if len(sleeps) != 1 || sleeps[0] != 600*time.Millisecond {
		t.Errorf("sleeps: got %v", sleeps)
	}
}
