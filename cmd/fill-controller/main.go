// Command fill-controller runs the filling scale: it reads the keypad, drives
// the fill valve relay until the target weight is reached, shows progress on
// the LCD and publishes fill events to MQTT.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweeney/fill-controller/internal/config"
	"github.com/sweeney/fill-controller/internal/logic"
	"github.com/sweeney/fill-controller/internal/mqtt"
	"github.com/sweeney/fill-controller/internal/screen"
	"github.com/sweeney/fill-controller/internal/status"
	"github.com/sweeney/fill-controller/internal/web"
)

type options struct {
	poll        time.Duration
	broker      string
	clientID    string
	heartbeat   time.Duration
	configPath  string
	keypad      string
	httpAddr    string
	printWeight bool
	tare        bool
}

func main() {
	var o options
	flag.DurationVar(&o.poll, "poll", 50*time.Millisecond, "Keypad polling interval")
	flag.StringVar(&o.broker, "broker", "tcp://192.168.1.200:1883", "MQTT broker address")
	flag.StringVar(&o.clientID, "client-id", "fill-controller", "MQTT client ID")
	flag.DurationVar(&o.heartbeat, "heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	flag.StringVar(&o.configPath, "config", "/etc/fill-controller.yaml", "Device config file (defaults if missing)")
	flag.StringVar(&o.keypad, "keypad", "", `Keypad source override ("spi" or "serial")`)
	flag.StringVar(&o.httpAddr, "http", ":80", "HTTP status address (empty to disable)")
	flag.BoolVar(&o.printWeight, "print-weight", false, "Print the current weight and exit")
	flag.BoolVar(&o.tare, "tare", false, "Tare before -print-weight")

	flag.Parse()

	if err := run(o); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(o options) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if o.keypad != "" {
		cfg.Keypad.Source = o.keypad
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("keypad override: %w", err)
		}
	}

	if o.printWeight {
		return printWeight(cfg, o.tare)
	}

	hw, err := openHardware(cfg)
	if err != nil {
		return err
	}
	defer hw.Close()

	publisher, err := mqtt.NewRealPublisher(o.broker, o.clientID)
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()

	tracker := status.NewTracker(time.Now(), status.Config{
		PollMs:      o.poll.Milliseconds(),
		HeartbeatMs: o.heartbeat.Milliseconds(),
		Broker:      o.broker,
		HTTPPort:    o.httpAddr,
		Keypad:      cfg.Keypad.Source,
		Stop20:      cfg.Fill.Stop20,
		Stop25:      cfg.Fill.Stop25,
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}
	tracker.SetMQTTConnected(publisher.IsConnected())

	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	} else {
		log.Printf("published startup event")
	}

	if o.httpAddr != "" {
		srv := web.New(o.httpAddr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", o.httpAddr)
	}

	log.Printf("started: poll=%v broker=%s heartbeat=%v keypad=%s stop20=%.2f stop25=%.2f",
		o.poll, o.broker, o.heartbeat, cfg.Keypad.Source, cfg.Fill.Stop20, cfg.Fill.Stop25)

	ticker := time.NewTicker(o.poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	ctrl := logic.NewController(cfg.Logic(), time.Now())
	return runLoop(hw.devices, publisher, publisher, tracker, ctrl, o.heartbeat, time.Now, time.Sleep, ticker.C, sigCh)
}

// printWeight reads the load cell once without touching the relay or LCD.
func printWeight(cfg *config.Config, tare bool) error {
	s, err := openSensor(cfg.HX711)
	if err != nil {
		return fmt.Errorf("init hx711: %w", err)
	}
	defer s.Close()

	if tare {
		if err := s.Tare(); err != nil {
			return fmt.Errorf("tare: %w", err)
		}
	}
	kg, err := s.ReadKilograms(cfg.Fill.Samples)
	if err != nil {
		return fmt.Errorf("read hx711: %w", err)
	}
	fmt.Printf("weight: %.2f kg (offset %.0f)\n", kg, s.Offset())
	return nil
}

func runLoop(dev devices, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, ctrl *logic.Controller, heartbeat time.Duration, now func() time.Time, sleep func(time.Duration), tick <-chan time.Time, sig <-chan os.Signal) error {
	if err := dev.pres.LoadGlyphs(); err != nil {
		return fmt.Errorf("load glyphs: %w", err)
	}
	var shown logic.Screen
	showScreen := func(actions []logic.Action) {
		s, ok := lastScreen(actions)
		if !ok || s == shown {
			return
		}
		shown = s
		title := screen.Title(s)
		log.Printf("screen: %s", title)
		if tracker != nil {
			tracker.SetScreen(title)
		}
	}

	initial := ctrl.Init().Actions
	apply(dev, initial, sleep)
	showScreen(initial)
	lastHeartbeat := now()

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			if err := dev.relay.Set(false); err != nil {
				log.Printf("relay off error: %v", err)
			}
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			event := mqtt.SystemEvent{
				Timestamp: now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if tracker != nil {
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
				tracker.Update(ctrl.Mode(), ctrl.LastWeight(), false, ctrl.Counts())
				event.RawPayload = status.FormatStatusEvent(tracker.Snapshot(), "SHUTDOWN", signalName)
			}
			if err := publisher.PublishSystem(event); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			} else {
				log.Printf("published shutdown event")
			}
			return nil

		case <-tick:
			t := now()
			// A keypad fault must not stop the weight check of a running fill.
			button := logic.ButtonNone
			if raw, err := dev.keys.Read(); err != nil {
				log.Printf("keypad read error: %v", err)
			} else {
				button = ctrl.Decode(raw)
			}

			out := ctrl.Step(button, t)
			apply(dev, out.Actions, sleep)
			showScreen(out.Actions)
			events := out.Events

			if ctrl.NeedsWeight() {
				kg, err := dev.sensor.ReadKilograms(ctrl.Config().FillSamples)
				if err != nil {
					log.Printf("hx711 read error: %v", err)
				} else {
					wout := ctrl.Weigh(kg, now())
					apply(dev, wout.Actions, sleep)
					showScreen(wout.Actions)
					events = append(events, wout.Events...)
				}
			}

			for _, event := range events {
				log.Printf("event: %s (mode=%s weight=%.2fkg)", event.Type, event.Mode, event.Weight)
				if err := publisher.Publish(event); err != nil {
					log.Printf("publish error: %v", err)
				}
			}

			if heartbeat > 0 && t.Sub(lastHeartbeat) >= heartbeat {
				lastHeartbeat = t
				counts := ctrl.Counts()
				log.Printf("heartbeat: mode=%s started=%d complete=%d aborted=%d tares=%d",
					ctrl.Mode(), counts.Started, counts.Complete, counts.Aborted, counts.Tares)

				hbEvent := mqtt.SystemEvent{
					Timestamp: t,
					Event:     "HEARTBEAT",
				}
				if tracker != nil {
					if mqttStatus != nil {
						tracker.SetMQTTConnected(mqttStatus.IsConnected())
					}
					if net := readNetworkInfo(); net != nil {
						tracker.SetNetwork(net)
					}
					tracker.Update(ctrl.Mode(), ctrl.LastWeight(), ctrl.Relay(), counts)
					hbEvent.RawPayload = status.FormatStatusEvent(tracker.Snapshot(), "HEARTBEAT", "")
				}
				if err := publisher.PublishSystem(hbEvent); err != nil {
					log.Printf("heartbeat publish error: %v", err)
				}
			}

			if tracker != nil {
				tracker.Update(ctrl.Mode(), ctrl.LastWeight(), ctrl.Relay(), ctrl.Counts())
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
			}
		}
	}
}

// apply performs the controller's actions in order. A failing action is
// logged and the rest still run, so a relay-off is never skipped.
func apply(dev devices, actions []logic.Action, sleep func(time.Duration)) {
	for _, a := range actions {
		var err error
		switch a.Kind {
		case logic.ActionTare:
			err = dev.sensor.Tare()
		case logic.ActionRelay:
			err = dev.relay.Set(a.On)
		case logic.ActionScreen:
			err = dev.pres.Show(a.Screen)
		case logic.ActionWeight:
			err = dev.pres.Weight(a.Weight)
		case logic.ActionBlink:
			err = dev.pres.Blink(a.On)
		case logic.ActionHold:
			sleep(a.Hold)
		}
		if err != nil {
			log.Printf("%s error: %v", a.Kind, err)
		}
	}
}

// lastScreen returns the screen left on the display by actions.
func lastScreen(actions []logic.Action) (logic.Screen, bool) {
	for i := len(actions) - 1; i >= 0; i-- {
		if actions[i].Kind == logic.ActionScreen {
			return actions[i].Screen, true
		}
	}
	return "", false
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}
