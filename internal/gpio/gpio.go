// Package gpio provides the supervisor's hardware boundary: two
// edge-monitored inputs and three outputs. The real implementation uses
// the Linux GPIO character device; the fake allows testing without
// hardware.
package gpio

import (
	"log"
	"sync"

	"github.com/sweeney/power-supervisor/internal/logic"
)

// Default pin assignments (BCM numbering).
const (
	DefaultPinButton = 17 // momentary push-button, rising = pressed
	DefaultPinAlive  = 27 // target board's alive signal
	DefaultPinPower  = 22 // power-enable: high = target power cut
	DefaultPinSignal = 23 // shutdown request toward the target
	DefaultPinLED    = 24 // status LED
)

// Pins holds the BCM line offsets for one supervisor instance.
type Pins struct {
	Button int
	Alive  int
	Power  int
	Signal int
	LED    int
}

// DefaultPins returns the stock pin assignment.
func DefaultPins() Pins {
	return Pins{
		Button: DefaultPinButton,
		Alive:  DefaultPinAlive,
		Power:  DefaultPinPower,
		Signal: DefaultPinSignal,
		LED:    DefaultPinLED,
	}
}

// Snapshot is one reading of both input lines, taken at edge time.
type Snapshot struct {
	Button bool // true = button line high
	Alive  bool // true = target-alive line high
}

// Bits converts the snapshot to the state machine's input bitmask.
func (s Snapshot) Bits() logic.InputBits {
	var b logic.InputBits
	if s.Button {
		b |= logic.BitButton
	}
	if s.Alive {
		b |= logic.BitTargetAlive
	}
	return b
}

// Port is the supervisor's view of the GPIO lines.
type Port interface {
	// Read returns the current input levels.
	Read() (Snapshot, error)

	// Events returns the channel on which snapshots are delivered
	// after each detected edge on either input line.
	Events() <-chan Snapshot

	// SetPowerEnable drives the power-enable line.
	// Asserted (high) cuts the target board's power.
	SetPowerEnable(asserted bool) error

	// SetSignalOut drives the shutdown-request line.
	SetSignalOut(asserted bool) error

	// SetLED sets the status LED level.
	SetLED(on bool) error

	// ToggleLED inverts the status LED level.
	ToggleLED() error

	// Close releases GPIO resources.
	Close() error
}

// OutputDriver adapts a Port to logic.Outputs and caches the last level
// driven on each line for status reporting. A failed pin write is logged
// and otherwise ignored: the state machine must keep running even if a
// single write is refused.
type OutputDriver struct {
	port Port

	mu          sync.Mutex
	powerEnable bool
	signalOut   bool
	led         bool
}

// NewOutputDriver wraps the given port. The cache starts at the
// fail-safe levels the real port drives on open.
func NewOutputDriver(p Port) *OutputDriver {
	return &OutputDriver{port: p, powerEnable: true}
}

func (d *OutputDriver) SetPowerEnable(asserted bool) {
	d.mu.Lock()
	d.powerEnable = asserted
	d.mu.Unlock()
	if err := d.port.SetPowerEnable(asserted); err != nil {
		log.Printf("gpio: power-enable write: %v", err)
	}
}

func (d *OutputDriver) SetSignalOut(asserted bool) {
	d.mu.Lock()
	d.signalOut = asserted
	d.mu.Unlock()
	if err := d.port.SetSignalOut(asserted); err != nil {
		log.Printf("gpio: signal-out write: %v", err)
	}
}

func (d *OutputDriver) SetLED(on bool) {
	d.mu.Lock()
	d.led = on
	d.mu.Unlock()
	if err := d.port.SetLED(on); err != nil {
		log.Printf("gpio: led write: %v", err)
	}
}

func (d *OutputDriver) ToggleLED() {
	d.mu.Lock()
	d.led = !d.led
	d.mu.Unlock()
	if err := d.port.ToggleLED(); err != nil {
		log.Printf("gpio: led toggle: %v", err)
	}
}

// Levels returns the last driven level of each output line.
func (d *OutputDriver) Levels() (powerEnable, signalOut, led bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.powerEnable, d.signalOut, d.led
}
