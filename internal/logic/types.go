// Package logic contains the pure power-sequencing state machine.
// This package has NO hardware dependencies (no GPIO, MQTT, or OS).
// Physical waiting is injectable via a wait function so tests run instantly.
package logic

import "time"

// State represents the supervisor's operating state.
type State string

const (
	StateUnknown  State = "UNKNOWN"
	StateBoot     State = "BOOT"
	StateIdle     State = "IDLE"
	StateShutdown State = "SHUTDOWN"
	StatePowerOff State = "POWEROFF"
)

// InputBits is a one-byte snapshot of the monitored input lines.
// Edges are computed by XOR against the previous snapshot.
type InputBits uint8

const (
	// BitButton is set while the push-button reads high.
	BitButton InputBits = 1 << iota
	// BitTargetAlive is set while the target board's alive line reads high.
	BitTargetAlive
)

// Trigger identifies what caused a state transition.
type Trigger string

const (
	TriggerStartup         Trigger = "STARTUP"
	TriggerButton          Trigger = "BUTTON"
	TriggerBootTimeout     Trigger = "BOOT_TIMEOUT"
	TriggerShutdownTimeout Trigger = "SHUTDOWN_TIMEOUT"
)

// Transition describes a completed state change. Entry actions have
// already been applied to the outputs by the time a Transition is returned.
type Transition struct {
	From    State
	To      State
	Trigger Trigger
}

// Outputs drives the supervisor's three output lines. Implementations must
// tolerate calls from both the tick loop and the edge goroutine, and must
// not call back into the Supervisor.
type Outputs interface {
	// SetPowerEnable drives the power-enable line.
	// Asserted means the target board's power is cut.
	SetPowerEnable(asserted bool)

	// SetSignalOut drives the shutdown-request line toward the target.
	SetSignalOut(asserted bool)

	// SetLED sets the status LED level.
	SetLED(on bool)

	// ToggleLED inverts the status LED level.
	ToggleLED()
}

// Config holds the supervisor's timing constants.
type Config struct {
	// BootTimeout is the number of whole seconds to remain in BOOT
	// before assuming the target board is up.
	BootTimeout uint8

	// ShutdownTimeout is the number of whole seconds to remain in
	// SHUTDOWN before cutting power.
	ShutdownTimeout uint8

	// BootTick is the per-iteration wait while booting. Must be
	// shorter than one second.
	BootTick time.Duration

	// ShutdownTick is the per-iteration wait while shutting down.
	// Must be shorter than one second.
	ShutdownTick time.Duration

	// ErrorTick is the blink delay used by the UNKNOWN-state
	// diagnostic pattern.
	ErrorTick time.Duration
}

// DefaultConfig returns the stock timing constants: 40 second boot and
// shutdown windows, 200ms boot blink, 500ms shutdown blink.
func DefaultConfig() Config {
	return Config{
		BootTimeout:     40,
		ShutdownTimeout: 40,
		BootTick:        200 * time.Millisecond,
		ShutdownTick:    500 * time.Millisecond,
		ErrorTick:       10 * time.Millisecond,
	}
}

// Counts tracks edge and transition totals since startup.
type Counts struct {
	Boots         int
	Shutdowns     int
	PowerOffs     int
	ButtonPresses int
	AliveEdges    int
}
