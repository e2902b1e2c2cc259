package gpio

import "sync"

// FakePort is a test double that records output writes and lets tests
// inject input levels and edge events. Safe for concurrent use.
type FakePort struct {
	mu sync.Mutex

	// Input levels returned by Read and delivered with injected edges.
	button bool
	alive  bool

	// Output levels as last driven.
	PowerEnable bool
	SignalOut   bool
	LED         bool

	// LEDToggles counts ToggleLED calls.
	LEDToggles int

	// ReadError, if set, is returned by Read.
	ReadError error

	// Closed tracks if Close was called.
	Closed bool

	events chan Snapshot
}

// NewFakePort creates a FakePort with both inputs low and all outputs
// at their fail-safe levels (power-enable asserted).
func NewFakePort() *FakePort {
	return &FakePort{
		PowerEnable: true,
		events:      make(chan Snapshot, 16),
	}
}

// SetInputs sets the input levels without delivering an edge event.
func (f *FakePort) SetInputs(button, alive bool) {
	f.mu.Lock()
	f.button = button
	f.alive = alive
	f.mu.Unlock()
}

// Inject sets the input levels and delivers a snapshot on the event
// channel, as the real port does after a detected edge.
func (f *FakePort) Inject(button, alive bool) {
	f.SetInputs(button, alive)
	f.events <- Snapshot{Button: button, Alive: alive}
}

// Read returns the current input levels.
func (f *FakePort) Read() (Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ReadError != nil {
		return Snapshot{}, f.ReadError
	}
	return Snapshot{Button: f.button, Alive: f.alive}, nil
}

// Events returns the injected-edge channel.
func (f *FakePort) Events() <-chan Snapshot {
	return f.events
}

// SetPowerEnable records the power-enable level.
func (f *FakePort) SetPowerEnable(asserted bool) error {
	f.mu.Lock()
	f.PowerEnable = asserted
	f.mu.Unlock()
	return nil
}

// SetSignalOut records the signal-out level.
func (f *FakePort) SetSignalOut(asserted bool) error {
	f.mu.Lock()
	f.SignalOut = asserted
	f.mu.Unlock()
	return nil
}

// SetLED records the LED level.
func (f *FakePort) SetLED(on bool) error {
	f.mu.Lock()
	f.LED = on
	f.mu.Unlock()
	return nil
}

// ToggleLED inverts the recorded LED level.
func (f *FakePort) ToggleLED() error {
	f.mu.Lock()
	f.LED = !f.LED
	f.LEDToggles++
	f.mu.Unlock()
	return nil
}

// Outputs returns the recorded output levels.
func (f *FakePort) Outputs() (powerEnable, signalOut, led bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.PowerEnable, f.SignalOut, f.LED
}

// Close marks the port as closed.
func (f *FakePort) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}
