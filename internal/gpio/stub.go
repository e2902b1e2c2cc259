//go:build !linux

package gpio

import "errors"

var errUnsupported = errors.New("gpio: not supported on this platform (requires Linux)")

// RealPort is not available on non-Linux platforms.
type RealPort struct{}

// NewRealPort returns an error on non-Linux platforms.
func NewRealPort(Pins) (*RealPort, error) {
	return nil, errUnsupported
}

// Read is not implemented on non-Linux platforms.
func (p *RealPort) Read() (Snapshot, error) { return Snapshot{}, errUnsupported }

// Events is not implemented on non-Linux platforms.
func (p *RealPort) Events() <-chan Snapshot { return nil }

// SetPowerEnable is not implemented on non-Linux platforms.
func (p *RealPort) SetPowerEnable(bool) error { return errUnsupported }

// SetSignalOut is not implemented on non-Linux platforms.
func (p *RealPort) SetSignalOut(bool) error { return errUnsupported }

// SetLED is not implemented on non-Linux platforms.
func (p *RealPort) SetLED(bool) error { return errUnsupported }

// ToggleLED is not implemented on non-Linux platforms.
func (p *RealPort) ToggleLED() error { return errUnsupported }

// Drops is not implemented on non-Linux platforms.
func (p *RealPort) Drops() uint32 { return 0 }

// Close is a no-op on non-Linux platforms.
func (p *RealPort) Close() error { return nil }

// ReadInputs is not implemented on non-Linux platforms.
func ReadInputs(Pins) (Snapshot, error) { return Snapshot{}, errUnsupported }
