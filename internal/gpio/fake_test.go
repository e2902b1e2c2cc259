package gpio

import (
	"errors"
	"testing"
)

func TestFakePortDefaults(t *testing.T) {
	f := NewFakePort()

	snap, err := f.Read()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if snap.Button || snap.Alive {
		t.Errorf("inputs should start low, got %+v", snap)
	}

	power, signal, led := f.Outputs()
	if !power {
		t.Error("power-enable should start asserted (fail-safe)")
	}
	if signal || led {
		t.Error("signal and LED should start low")
	}
}

func TestFakePortInject(t *testing.T) {
	f := NewFakePort()

	f.Inject(true, false)

	select {
	case snap := <-f.Events():
		if !snap.Button || snap.Alive {
			t.Errorf("event snapshot: got %+v, want button high", snap)
		}
	default:
		t.Fatal("expected an event after Inject")
	}

	snap, err := f.Read()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !snap.Button {
		t.Error("Read should see the injected level")
	}
}

func TestFakePortRecordsOutputs(t *testing.T) {
	f := NewFakePort()

	f.SetPowerEnable(false)
	f.SetSignalOut(true)
	f.SetLED(true)

	power, signal, led := f.Outputs()
	if power {
		t.Error("power-enable should be deasserted")
	}
	if !signal {
		t.Error("signal-out should be asserted")
	}
	if !led {
		t.Error("LED should be on")
	}

	f.ToggleLED()
	if _, _, led := f.Outputs(); led {
		t.Error("LED should be off after toggle")
	}
	if f.LEDToggles != 1 {
		t.Errorf("toggle count: got %d, want 1", f.LEDToggles)
	}
}

func TestFakePortReadError(t *testing.T) {
	f := NewFakePort()
	f.ReadError = errors.New("boom")

	if _, err := f.Read(); err == nil {
		t.Error("expected configured read error")
	}
}

func TestFakePortClose(t *testing.T) {
	f := NewFakePort()
	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !f.Closed {
		t.Error("Closed should be set")
	}
}
