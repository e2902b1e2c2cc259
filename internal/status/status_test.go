package status

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/sweeney/power-supervisor/internal/logic"
)

func TestNewTracker(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := Config{BootTimeoutS: 40, ShutdownTimeoutS: 40, Broker: "tcp://localhost:1883", HTTPAddr: ":80"}
	tr := NewTracker(start, cfg)

	snap := tr.Snapshot()
	if !snap.StartTime.Equal(start) {
		t.Errorf("StartTime: got %v, want %v", snap.StartTime, start)
	}
	if snap.State != logic.StateUnknown {
		t.Errorf("State: got %q, want UNKNOWN", snap.State)
	}
	if snap.Config.BootTimeoutS != 40 {
		t.Errorf("Config.BootTimeoutS: got %d, want 40", snap.Config.BootTimeoutS)
	}
	if snap.MQTTConnected {
		t.Error("expected MQTTConnected=false initially")
	}
	if snap.TimeInState() != 0 {
		t.Errorf("TimeInState before any transition: got %v, want 0", snap.TimeInState())
	}
}

func TestUpdateAndSnapshot(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	tr.Update(logic.StateBoot, 12, 400, logic.Counts{Boots: 3, ButtonPresses: 4})

	snap := tr.Snapshot()
	if snap.State != logic.StateBoot {
		t.Errorf("State: got %q, want BOOT", snap.State)
	}
	if snap.ElapsedS != 12 || snap.ElapsedMS != 400 {
		t.Errorf("elapsed: got %ds %dms, want 12s 400ms", snap.ElapsedS, snap.ElapsedMS)
	}
	if snap.Counts.Boots != 3 {
		t.Errorf("Counts.Boots: got %d, want 3", snap.Counts.Boots)
	}
	if snap.Counts.ButtonPresses != 4 {
		t.Errorf("Counts.ButtonPresses: got %d, want 4", snap.Counts.ButtonPresses)
	}
}

func TestRecordTransition(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	at := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)

	tr.RecordTransition(logic.Transition{
		From:    logic.StatePowerOff,
		To:      logic.StateBoot,
		Trigger: logic.TriggerButton,
	}, at)

	snap := tr.Snapshot()
	if snap.State != logic.StateBoot {
		t.Errorf("State: got %q, want BOOT", snap.State)
	}
	if snap.LastTrigger != logic.TriggerButton {
		t.Errorf("LastTrigger: got %q, want BUTTON", snap.LastTrigger)
	}
	if !snap.LastTransition.Equal(at) {
		t.Errorf("LastTransition: got %v, want %v", snap.LastTransition, at)
	}
	if snap.TimeInState() <= 0 {
		t.Error("TimeInState should be positive after a past transition")
	}
}

func TestSetOutputs(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	tr.SetOutputs(false, true, true)

	snap := tr.Snapshot()
	if snap.PowerEnable {
		t.Error("PowerEnable: got true, want false")
	}
	if !snap.SignalOut {
		t.Error("SignalOut: got false, want true")
	}
	if !snap.LED {
		t.Error("LED: got false, want true")
	}
}

func TestSetMQTTConnected(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	tr.SetMQTTConnected(true)
	if !tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=true")
	}

	tr.SetMQTTConnected(false)
	if tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=false")
	}
}

func TestSnapshotIsValueCopy(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	tr.Update(logic.StateIdle, 0, 0, logic.Counts{})

	snap := tr.Snapshot()
	tr.Update(logic.StateShutdown, 1, 0, logic.Counts{Shutdowns: 1})

	if snap.State != logic.StateIdle {
		t.Error("snapshot mutated by later update")
	}
}

func TestConcurrentAccess(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			tr.Update(logic.StateBoot, uint8(n), 0, logic.Counts{Boots: n})
		}(i)
		go func() {
			defer wg.Done()
			_ = tr.Snapshot()
		}()
	}
	wg.Wait()
}

func TestFormatJSON(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tr := NewTracker(start, Config{
		BootTimeoutS: 40,
		Broker:       "tcp://broker:1883",
		PinButton:    17,
	})
	tr.Update(logic.StateBoot, 7, 200, logic.Counts{Boots: 1})
	tr.SetOutputs(false, false, true)

	var sj StatusJSON
	if err := json.Unmarshal(FormatJSON(tr.Snapshot()), &sj); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if sj.Status.State != "BOOT" {
		t.Errorf("state: got %q, want BOOT", sj.Status.State)
	}
	if sj.Status.ElapsedSeconds != 7 || sj.Status.ElapsedMillis != 200 {
		t.Errorf("elapsed: got %d/%d", sj.Status.ElapsedSeconds, sj.Status.ElapsedMillis)
	}
	if sj.Status.Outputs.PowerEnable {
		t.Error("power_enable should be false")
	}
	if !sj.Status.Outputs.LED {
		t.Error("led should be true")
	}
	if sj.Status.Event != "" {
		t.Errorf("web JSON should omit event, got %q", sj.Status.Event)
	}
	if sj.Status.Config.PinButton != 17 {
		t.Errorf("pin_button: got %d, want 17", sj.Status.Config.PinButton)
	}
}

func TestFormatStatusEvent(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	var sj StatusJSON
	if err := json.Unmarshal(FormatStatusEvent(tr.Snapshot(), "SHUTDOWN", "SIGTERM"), &sj); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if sj.Status.Event != "SHUTDOWN" {
		t.Errorf("event: got %q, want SHUTDOWN", sj.Status.Event)
	}
	if sj.Status.Reason != "SIGTERM" {
		t.Errorf("reason: got %q, want SIGTERM", sj.Status.Reason)
	}
	if sj.Status.State != "UNKNOWN" {
		t.Errorf("state: got %q, want UNKNOWN", sj.Status.State)
	}
}
