// Command power-supervisor sequences the power-on and power-off of a
// target single-board computer through five GPIO lines: a push-button
// and a target-alive input, and power-enable, shutdown-signal, and LED
// outputs. State transitions are published to MQTT and exposed on an
// HTTP status page.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/sweeney/power-supervisor/internal/config"
	"github.com/sweeney/power-supervisor/internal/gpio"
	"github.com/sweeney/power-supervisor/internal/logic"
	"github.com/sweeney/power-supervisor/internal/mqtt"
	"github.com/sweeney/power-supervisor/internal/status"
	"github.com/sweeney/power-supervisor/internal/web"
)

func main() {
	def := config.Default()

	cfgPath := flag.String("config", "", "YAML config file (flags override it)")
	bootTimeout := flag.Int("boot-timeout", def.BootTimeoutS, "Seconds to wait in BOOT before assuming the target is up")
	shutdownTimeout := flag.Int("shutdown-timeout", def.ShutdownTimeoutS, "Seconds to wait in SHUTDOWN before cutting power")
	bootTick := flag.Int("boot-tick", def.BootTickMs, "BOOT blink quantum in milliseconds")
	shutdownTick := flag.Int("shutdown-tick", def.ShutdownTickMs, "SHUTDOWN blink quantum in milliseconds")
	broker := flag.String("broker", def.Broker, "MQTT broker address (empty to disable MQTT)")
	heartbeat := flag.Duration("heartbeat", time.Duration(def.HeartbeatMs)*time.Millisecond, "Heartbeat interval (0 to disable)")
	httpAddr := flag.String("http", def.HTTPAddr, "HTTP status address (empty to disable)")
	pinButton := flag.Int("pin-button", def.Pins.Button, "BCM pin number for the push-button input")
	pinAlive := flag.Int("pin-alive", def.Pins.Alive, "BCM pin number for the target-alive input")
	pinPower := flag.Int("pin-power", def.Pins.Power, "BCM pin number for the power-enable output")
	pinSignal := flag.Int("pin-signal", def.Pins.Signal, "BCM pin number for the shutdown-signal output")
	pinLED := flag.Int("pin-led", def.Pins.LED, "BCM pin number for the status LED output")
	printState := flag.Bool("print-state", false, "Print current input levels and exit")

	flag.Parse()

	cfg := def
	if *cfgPath != "" {
		var err error
		cfg, err = config.Load(*cfgPath)
		if err != nil {
			log.Fatalf("fatal: %v", err)
		}
	}

	// Flags given explicitly on the command line win over the file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "boot-timeout":
			cfg.BootTimeoutS = *bootTimeout
		case "shutdown-timeout":
			cfg.ShutdownTimeoutS = *shutdownTimeout
		case "boot-tick":
			cfg.BootTickMs = *bootTick
		case "shutdown-tick":
			cfg.ShutdownTickMs = *shutdownTick
		case "broker":
			cfg.Broker = *broker
		case "heartbeat":
			cfg.HeartbeatMs = int(heartbeat.Milliseconds())
		case "http":
			cfg.HTTPAddr = *httpAddr
		case "pin-button":
			cfg.Pins.Button = *pinButton
		case "pin-alive":
			cfg.Pins.Alive = *pinAlive
		case "pin-power":
			cfg.Pins.Power = *pinPower
		case "pin-signal":
			cfg.Pins.Signal = *pinSignal
		case "pin-led":
			cfg.Pins.LED = *pinLED
		}
	})

	if err := cfg.Validate(); err != nil {
		log.Fatalf("fatal: invalid config: %v", err)
	}

	if err := run(cfg, *printState); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(cfg config.Config, printState bool) error {
	// Print state mode reads just the inputs; it must not claim the
	// output lines of a possibly live supervisor.
	if printState {
		snap, err := gpio.ReadInputs(cfg.GPIOPins())
		if err != nil {
			return fmt.Errorf("read gpio: %w", err)
		}
		fmt.Printf("button: %s, alive: %s\n", levelString(snap.Button), levelString(snap.Alive))
		return nil
	}

	// Initialize GPIO. Opening the port drives the fail-safe output
	// levels: power-enable asserted, signal and LED clear.
	port, err := gpio.NewRealPort(cfg.GPIOPins())
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer port.Close()

	// Initialize MQTT
	var publisher mqtt.Publisher = mqtt.NopPublisher{}
	var mqttStatus mqtt.ConnectionStatus
	if cfg.Broker != "" {
		real := mqtt.NewRealPublisher(cfg.Broker, cfg.BufferCap)
		publisher = real
		mqttStatus = real
	}
	defer publisher.Close()

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		BootTimeoutS:     int64(cfg.BootTimeoutS),
		ShutdownTimeoutS: int64(cfg.ShutdownTimeoutS),
		BootTickMs:       int64(cfg.BootTickMs),
		ShutdownTickMs:   int64(cfg.ShutdownTickMs),
		HeartbeatMs:      int64(cfg.HeartbeatMs),
		Broker:           cfg.Broker,
		HTTPAddr:         cfg.HTTPAddr,
		PinButton:        cfg.Pins.Button,
		PinAlive:         cfg.Pins.Alive,
		PinPower:         cfg.Pins.Power,
		PinSignal:        cfg.Pins.Signal,
		PinLED:           cfg.Pins.LED,
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	// Seed the edge-detection snapshot so a line already high at boot
	// does not register as a rising edge.
	initial, err := port.Read()
	if err != nil {
		return fmt.Errorf("read gpio: %w", err)
	}

	drv := gpio.NewOutputDriver(port)
	sup := logic.New(cfg.Logic(), drv, initial.Bits(), nil)

	// Start HTTP status server
	if cfg.HTTPAddr != "" {
		srv := web.New(cfg.HTTPAddr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.HTTPAddr)
	}

	// Force the fail-safe initial state.
	tr := sup.Start()
	tracker.RecordTransition(tr, time.Now())
	refreshTracker(tracker, sup, drv, mqttStatus)

	// Publish startup event with full status snapshot
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

	log.Printf("started: state=%s boot=%ds/%dms shutdown=%ds/%dms broker=%s heartbeat=%v",
		sup.State(), cfg.BootTimeoutS, cfg.BootTickMs, cfg.ShutdownTimeoutS, cfg.ShutdownTickMs,
		cfg.Broker, cfg.Heartbeat())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(context.Background(), sup, drv, port.Events(), publisher, mqttStatus, tracker, cfg.Heartbeat(), time.Now, sigCh)
}

// runLoop drives the supervisor until a shutdown signal arrives. The main
// goroutine dispatches per-state ticks; a second goroutine plays the
// pin-change interrupt, feeding edge snapshots into the state machine.
func runLoop(ctx context.Context, sup *logic.Supervisor, drv *gpio.OutputDriver, events <-chan gpio.Snapshot, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, heartbeat time.Duration, now func() time.Time, sig <-chan os.Signal) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup

	// Interrupt context: edge snapshots force transitions that must be
	// visible to the very next tick dispatch.
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case snap := <-events:
				if tr := sup.HandleInputs(snap.Bits()); tr != nil {
					onTransition(*tr, now(), drv, publisher, tracker)
				}
				refreshTracker(tracker, sup, drv, mqttStatus)
			}
		}
	}()

	// Heartbeat, with a network info refresh per beat.
	if heartbeat > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ticker := time.NewTicker(heartbeat)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if net := readNetworkInfo(); net != nil {
						tracker.SetNetwork(net)
					}
					refreshTracker(tracker, sup, drv, mqttStatus)
					snap := tracker.Snapshot()
					log.Printf("heartbeat: state=%s uptime=%v boots=%d shutdowns=%d",
						snap.State, snap.Uptime().Truncate(time.Second), snap.Counts.Boots, snap.Counts.Shutdowns)
					hbEvent := mqtt.SystemEvent{
						Timestamp:  snap.Now,
						Event:      "HEARTBEAT",
						RawPayload: status.FormatStatusEvent(snap, "HEARTBEAT", ""),
					}
					if err := publisher.PublishSystem(hbEvent); err != nil {
						log.Printf("heartbeat publish error: %v", err)
					}
				}
			}
		}()
	}

	// Signal handler: publish a retained SHUTDOWN event, then stop the
	// loop. The target board is left exactly as it was.
	wg.Add(1)
	go func() {
		defer wg.Done()
		select {
		case <-ctx.Done():
			return
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			refreshTracker(tracker, sup, drv, mqttStatus)
			snap := tracker.Snapshot()
			event := mqtt.SystemEvent{
				Timestamp:  now(),
				Event:      "SHUTDOWN",
				Reason:     signalName,
				Retained:   true,
				RawPayload: status.FormatStatusEvent(snap, "SHUTDOWN", signalName),
			}
			if err := publisher.PublishSystem(event); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			} else {
				log.Printf("published shutdown event")
			}
			cancel()
		}
	}()

	// Main loop: one per-state tick per iteration. Ticks in IDLE and
	// POWEROFF block until an edge or cancellation wakes them.
	for ctx.Err() == nil {
		if tr := sup.Tick(ctx); tr != nil {
			onTransition(*tr, now(), drv, publisher, tracker)
		}
		refreshTracker(tracker, sup, drv, mqttStatus)
	}

	wg.Wait()
	return nil
}

// onTransition records and publishes one completed state change.
func onTransition(tr logic.Transition, at time.Time, drv *gpio.OutputDriver, publisher mqtt.Publisher, tracker *status.Tracker) {
	power, signalOut, _ := drv.Levels()
	log.Printf("transition: %s -> %s (%s)", tr.From, tr.To, tr.Trigger)
	tracker.RecordTransition(tr, at)
	err := publisher.Publish(mqtt.Event{
		Timestamp:   at,
		From:        tr.From,
		To:          tr.To,
		Trigger:     tr.Trigger,
		PowerEnable: power,
		SignalOut:   signalOut,
	})
	if err != nil {
		log.Printf("publish error: %v", err)
		// Don't crash on publish failure
	}
}

// refreshTracker pushes the supervisor's current view into the tracker
// for HTTP and MQTT snapshot consumers.
func refreshTracker(tracker *status.Tracker, sup *logic.Supervisor, drv *gpio.OutputDriver, mqttStatus mqtt.ConnectionStatus) {
	seconds, millis := sup.Elapsed()
	tracker.Update(sup.State(), seconds, millis, sup.CountsSnapshot())
	tracker.SetOutputs(drv.Levels())
	if mqttStatus != nil {
		tracker.SetMQTTConnected(mqttStatus.IsConnected())
	}
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

func levelString(high bool) string {
	if high {
		return "HIGH"
	}
	return "LOW"
}
