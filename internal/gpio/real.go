//go:build linux

package gpio

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/warthog618/go-gpiocdev"
)

// eventBuf bounds the edge-event queue. The consumer is the edge
// goroutine; if it stalls, further snapshots are dropped and counted
// rather than blocking the kernel event handler.
const eventBuf = 16

// RealPort drives actual hardware through the Linux GPIO character
// device. The kernel's edge detection delivers input events, standing in
// for a pin-change interrupt: on every edge both input levels are
// snapshotted and queued for the state machine.
type RealPort struct {
	chip   *gpiocdev.Chip
	button *gpiocdev.Line
	alive  *gpiocdev.Line
	power  *gpiocdev.Line
	signal *gpiocdev.Line
	led    *gpiocdev.Line

	pins   Pins
	events chan Snapshot
	drops  uint32

	mu          sync.Mutex
	buttonLevel bool
	aliveLevel  bool
	ledLevel    bool
}

// NewRealPort opens gpiochip0 and requests all five lines. Outputs are
// claimed first so the fail-safe levels (power-enable asserted, signal
// and LED clear) are driven before edge reporting begins.
func NewRealPort(pins Pins) (*RealPort, error) {
	chip, err := gpiocdev.NewChip("gpiochip0")
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	p := &RealPort{
		chip:   chip,
		pins:   pins,
		events: make(chan Snapshot, eventBuf),
	}

	p.power, err = chip.RequestLine(pins.Power, gpiocdev.AsOutput(1))
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("request power pin %d: %w", pins.Power, err)
	}
	p.signal, err = chip.RequestLine(pins.Signal, gpiocdev.AsOutput(0))
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("request signal pin %d: %w", pins.Signal, err)
	}
	p.led, err = chip.RequestLine(pins.LED, gpiocdev.AsOutput(0))
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("request led pin %d: %w", pins.LED, err)
	}

	// Inputs with pull-down to match Pi boot defaults. Both edges are
	// watched so the level snapshot stays accurate; the state machine
	// picks out rising edges itself.
	p.button, err = chip.RequestLine(pins.Button,
		gpiocdev.AsInput, gpiocdev.WithPullDown,
		gpiocdev.WithBothEdges, gpiocdev.WithEventHandler(p.onEdge))
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("request button pin %d: %w", pins.Button, err)
	}
	p.alive, err = chip.RequestLine(pins.Alive,
		gpiocdev.AsInput, gpiocdev.WithPullDown,
		gpiocdev.WithBothEdges, gpiocdev.WithEventHandler(p.onEdge))
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("request alive pin %d: %w", pins.Alive, err)
	}

	// Seed the level cache from the lines as requested.
	snap, err := p.Read()
	if err != nil {
		p.Close()
		return nil, err
	}
	p.mu.Lock()
	p.buttonLevel = snap.Button
	p.aliveLevel = snap.Alive
	p.mu.Unlock()

	return p, nil
}

// onEdge runs on the gpiocdev event goroutine. It updates the cached
// level for the line that fired, snapshots both levels, and queues the
// snapshot without ever blocking.
func (p *RealPort) onEdge(evt gpiocdev.LineEvent) {
	level := evt.Type == gpiocdev.LineEventRisingEdge

	p.mu.Lock()
	switch evt.Offset {
	case p.pins.Button:
		p.buttonLevel = level
	case p.pins.Alive:
		p.aliveLevel = level
	}
	snap := Snapshot{Button: p.buttonLevel, Alive: p.aliveLevel}
	p.mu.Unlock()

	select {
	case p.events <- snap:
	default:
		atomic.AddUint32(&p.drops, 1)
	}
}

// Read returns the current input levels straight from the hardware.
func (p *RealPort) Read() (Snapshot, error) {
	btn, err := p.button.Value()
	if err != nil {
		return Snapshot{}, fmt.Errorf("read button pin: %w", err)
	}
	alive, err := p.alive.Value()
	if err != nil {
		return Snapshot{}, fmt.Errorf("read alive pin: %w", err)
	}
	return Snapshot{Button: btn != 0, Alive: alive != 0}, nil
}

// Events returns the edge-snapshot channel.
func (p *RealPort) Events() <-chan Snapshot {
	return p.events
}

// SetPowerEnable drives the power-enable line. Asserted cuts target power.
func (p *RealPort) SetPowerEnable(asserted bool) error {
	if err := p.power.SetValue(boolToValue(asserted)); err != nil {
		return fmt.Errorf("set power pin: %w", err)
	}
	return nil
}

// SetSignalOut drives the shutdown-request line.
func (p *RealPort) SetSignalOut(asserted bool) error {
	if err := p.signal.SetValue(boolToValue(asserted)); err != nil {
		return fmt.Errorf("set signal pin: %w", err)
	}
	return nil
}

// SetLED sets the status LED level.
func (p *RealPort) SetLED(on bool) error {
	p.mu.Lock()
	p.ledLevel = on
	p.mu.Unlock()
	if err := p.led.SetValue(boolToValue(on)); err != nil {
		return fmt.Errorf("set led pin: %w", err)
	}
	return nil
}

// ToggleLED inverts the status LED level.
func (p *RealPort) ToggleLED() error {
	p.mu.Lock()
	p.ledLevel = !p.ledLevel
	on := p.ledLevel
	p.mu.Unlock()
	if err := p.led.SetValue(boolToValue(on)); err != nil {
		return fmt.Errorf("toggle led pin: %w", err)
	}
	return nil
}

// Drops returns the number of edge snapshots discarded because the
// consumer was not keeping up.
func (p *RealPort) Drops() uint32 {
	return atomic.LoadUint32(&p.drops)
}

// Close releases all GPIO resources. Output levels are left as last
// driven; what the lines do after release is up to the platform, so the
// external power-enable pull should default to asserted in hardware.
func (p *RealPort) Close() error {
	var errs []error
	for _, l := range []*gpiocdev.Line{p.button, p.alive, p.power, p.signal, p.led} {
		if l == nil {
			continue
		}
		if err := l.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if p.chip != nil {
		if err := p.chip.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// ReadInputs requests only the two input lines, reads them once, and
// releases them. Used by -print-state so a status query never claims the
// output lines (claiming them would drive the fail-safe levels and cut a
// running target's power).
func ReadInputs(pins Pins) (Snapshot, error) {
	chip, err := gpiocdev.NewChip("gpiochip0")
	if err != nil {
		return Snapshot{}, fmt.Errorf("open gpio chip: %w", err)
	}
	defer chip.Close()

	var snap Snapshot
	for _, in := range []struct {
		pin   int
		level *bool
	}{
		{pins.Button, &snap.Button},
		{pins.Alive, &snap.Alive},
	} {
		line, err := chip.RequestLine(in.pin, gpiocdev.AsInput, gpiocdev.WithPullDown)
		if err != nil {
			return Snapshot{}, fmt.Errorf("request pin %d: %w", in.pin, err)
		}
		v, err := line.Value()
		line.Close()
		if err != nil {
			return Snapshot{}, fmt.Errorf("read pin %d: %w", in.pin, err)
		}
		*in.level = v != 0
	}
	return snap, nil
}

func boolToValue(b bool) int {
	if b {
		return 1
	}
	return 0
}
