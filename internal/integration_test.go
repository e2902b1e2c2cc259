package internal

import (
	"context"
	"testing"
	"time"

	"github.com/sweeney/power-supervisor/internal/gpio"
	"github.com/sweeney/power-supervisor/internal/logic"
	"github.com/sweeney/power-supervisor/internal/mqtt"
)

// TestIntegrationPowerCycle drives a complete power cycle through the
// real wiring with fakes: button press boots the target, the alive edge
// shortcuts the boot window, a second press requests shutdown, and the
// shutdown timeout cuts power.
func TestIntegrationPowerCycle(t *testing.T) {
	port := gpio.NewFakePort()
	publisher := mqtt.NewFakePublisher()
	drv := gpio.NewOutputDriver(port)

	sup := logic.New(logic.DefaultConfig(), drv, 0, func(time.Duration) {})
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	publish := func(tr *logic.Transition) {
		t.Helper()
		if tr == nil {
			return
		}
		power, signal, _ := drv.Levels()
		if err := publisher.Publish(mqtt.Event{
			Timestamp:   now,
			From:        tr.From,
			To:          tr.To,
			Trigger:     tr.Trigger,
			PowerEnable: power,
			SignalOut:   signal,
		}); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}

	// Startup forces the fail-safe POWEROFF.
	start := sup.Start()
	publish(&start)
	if sup.State() != logic.StatePowerOff {
		t.Fatalf("state after start: %s", sup.State())
	}
	if power, _, _ := port.Outputs(); !power {
		t.Fatal("power-enable should be asserted in POWEROFF")
	}

	// Button press: target powers up.
	port.Inject(true, false)
	publish(sup.HandleInputs((<-port.Events()).Bits()))
	if sup.State() != logic.StateBoot {
		t.Fatalf("state after button: %s", sup.State())
	}
	if power, signal, _ := port.Outputs(); power || signal {
		t.Fatal("BOOT entry should release power-enable and clear signal")
	}

	// Button released, then 5 seconds of boot ticking.
	port.Inject(false, false)
	publish(sup.HandleInputs((<-port.Events()).Bits()))
	for i := 0; i < 25; i++ {
		publish(sup.Tick(ctx))
	}
	if seconds, _ := sup.Elapsed(); seconds != 5 {
		t.Fatalf("boot elapsed: got %ds, want 5s", seconds)
	}

	// Target reports alive: the next boot tick completes the boot.
	port.Inject(false, true)
	publish(sup.HandleInputs((<-port.Events()).Bits()))
	if sup.State() != logic.StateBoot {
		t.Fatalf("alive edge must not transition directly, state: %s", sup.State())
	}
	publish(sup.Tick(ctx))
	if sup.State() != logic.StateIdle {
		t.Fatalf("state after boot completion: %s", sup.State())
	}
	if _, _, led := port.Outputs(); !led {
		t.Fatal("LED should be steady on in IDLE")
	}

	// Second press: orderly shutdown requested.
	port.Inject(true, true)
	publish(sup.HandleInputs((<-port.Events()).Bits()))
	if sup.State() != logic.StateShutdown {
		t.Fatalf("state after idle button: %s", sup.State())
	}
	if _, signal, _ := port.Outputs(); !signal {
		t.Fatal("signal-out should be asserted in SHUTDOWN")
	}

	// 40 seconds of shutdown ticking at 500ms: power is cut on tick 80.
	for i := 0; i < 80; i++ {
		publish(sup.Tick(ctx))
	}
	if sup.State() != logic.StatePowerOff {
		t.Fatalf("state after shutdown window: %s", sup.State())
	}
	power, signal, led := port.Outputs()
	if !power || signal || led {
		t.Fatalf("POWEROFF outputs: power=%v signal=%v led=%v", power, signal, led)
	}

	// The published transition sequence tells the whole story.
	want := []struct {
		to      logic.State
		trigger logic.Trigger
	}{
		{logic.StatePowerOff, logic.TriggerStartup},
		{logic.StateBoot, logic.TriggerButton},
		{logic.StateIdle, logic.TriggerBootTimeout},
		{logic.StateShutdown, logic.TriggerButton},
		{logic.StatePowerOff, logic.TriggerShutdownTimeout},
	}
	if len(publisher.Events) != len(want) {
		t.Fatalf("published events: got %d, want %d", len(publisher.Events), len(want))
	}
	for i, w := range want {
		if publisher.Events[i].To != w.to || publisher.Events[i].Trigger != w.trigger {
			t.Errorf("event %d: got -> %s (%s), want -> %s (%s)",
				i, publisher.Events[i].To, publisher.Events[i].Trigger, w.to, w.trigger)
		}
	}

	counts := sup.CountsSnapshot()
	if counts.Boots != 1 || counts.Shutdowns != 1 || counts.ButtonPresses != 2 || counts.AliveEdges != 1 {
		t.Errorf("counts: got %+v", counts)
	}
}

// TestIntegrationBounceIsRealEdge documents the accepted limitation:
// the button is not debounced, so a bounce that produces two distinct
// rising edges acts twice.
func TestIntegrationBounceIsRealEdge(t *testing.T) {
	port := gpio.NewFakePort()
	drv := gpio.NewOutputDriver(port)
	sup := logic.New(logic.DefaultConfig(), drv, 0, func(time.Duration) {})
	sup.Start()

	// Press, release, press again before anyone looks: two edges.
	port.Inject(true, false)
	sup.HandleInputs((<-port.Events()).Bits())
	port.Inject(false, false)
	sup.HandleInputs((<-port.Events()).Bits())
	port.Inject(true, false)
	sup.HandleInputs((<-port.Events()).Bits())

	if got := sup.CountsSnapshot().ButtonPresses; got != 2 {
		t.Errorf("button presses: got %d, want 2", got)
	}
	// State stays BOOT: the second press has no rule there.
	if sup.State() != logic.StateBoot {
		t.Errorf("state: got %s, want BOOT", sup.State())
	}
}
