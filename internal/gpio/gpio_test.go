package gpio

import (
	"testing"

	"github.com/sweeney/power-supervisor/internal/logic"
)

func TestSnapshotBits(t *testing.T) {
	tests := []struct {
		snap Snapshot
		want logic.InputBits
	}{
		{Snapshot{}, 0},
		{Snapshot{Button: true}, logic.BitButton},
		{Snapshot{Alive: true}, logic.BitTargetAlive},
		{Snapshot{Button: true, Alive: true}, logic.BitButton | logic.BitTargetAlive},
	}
	for _, tt := range tests {
		if got := tt.snap.Bits(); got != tt.want {
			t.Errorf("Bits(%+v): got %b, want %b", tt.snap, got, tt.want)
		}
	}
}

func TestOutputDriverMirrorsPort(t *testing.T) {
	f := NewFakePort()
	d := NewOutputDriver(f)

	d.SetPowerEnable(false)
	d.SetSignalOut(true)
	d.SetLED(true)

	power, signal, led := f.Outputs()
	if power || !signal || !led {
		t.Errorf("port levels: power=%v signal=%v led=%v", power, signal, led)
	}

	cp, cs, cl := d.Levels()
	if cp != power || cs != signal || cl != led {
		t.Errorf("cached levels diverge from port: %v %v %v", cp, cs, cl)
	}
}

func TestOutputDriverToggleTracksLevel(t *testing.T) {
	f := NewFakePort()
	d := NewOutputDriver(f)

	d.ToggleLED()
	if _, _, led := d.Levels(); !led {
		t.Error("LED cache should be on after first toggle")
	}
	d.ToggleLED()
	if _, _, led := d.Levels(); led {
		t.Error("LED cache should be off after second toggle")
	}
}

func TestDefaultPinsDistinct(t *testing.T) {
	p := DefaultPins()
	seen := map[int]bool{}
	for _, pin := range []int{p.Button, p.Alive, p.Power, p.Signal, p.LED} {
		if seen[pin] {
			t.Fatalf("pin %d assigned twice", pin)
		}
		seen[pin] = true
	}
}
