package logic

import (
	"context"
	"sync"
	"time"
)

const msPerSecond = 1000

// Supervisor is the power-sequencing state machine. It owns the current
// state, the timed-state counters, and the last input snapshot.
//
// Two callers touch it concurrently: the main loop (Tick) and the edge
// goroutine (HandleInputs). A mutex is held for the duration of each state
// access, never across a physical wait, so an edge-requested transition is
// always visible to the next tick dispatch.
type Supervisor struct {
	cfg  Config
	out  Outputs
	wait func(time.Duration)

	mu         sync.Mutex
	state      State
	elapsedMS  uint16
	elapsedS   uint8
	lastInputs InputBits
	counts     Counts

	wake chan struct{}
}

// New creates a Supervisor in the UNKNOWN state. initialInputs seeds the
// edge-detection snapshot with the levels read at startup, so a line that
// is already high does not register as a rising edge. A nil wait function
// defaults to time.Sleep.
//
// The caller must invoke Start before ticking.
func New(cfg Config, out Outputs, initialInputs InputBits, wait func(time.Duration)) *Supervisor {
	if wait == nil {
		wait = time.Sleep
	}
	return &Supervisor{
		cfg:        cfg,
		out:        out,
		wait:       wait,
		state:      StateUnknown,
		lastInputs: initialInputs,
		wake:       make(chan struct{}, 1),
	}
}

// Start drives the supervisor from UNKNOWN to POWEROFF, applying the
// fail-safe entry actions (power-enable asserted, signal and LED clear).
func (s *Supervisor) Start() Transition {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.changeState(StatePowerOff, TriggerStartup)
}

// State returns the current state.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Elapsed returns the whole seconds and sub-second milliseconds
// accumulated since the current state was entered. Meaningful only in
// BOOT and SHUTDOWN.
func (s *Supervisor) Elapsed() (seconds uint8, millis uint16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.elapsedS, s.elapsedMS
}

// CountsSnapshot returns a copy of the edge and transition totals.
func (s *Supervisor) CountsSnapshot() Counts {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts
}

// Tick runs one main-loop iteration for the current state:
//
//   - BOOT: toggle the LED, wait one boot quantum, transition to IDLE
//     once the boot timeout is reached.
//   - SHUTDOWN: toggle the LED, wait one shutdown quantum, transition to
//     POWEROFF once the shutdown timeout is reached.
//   - IDLE / POWEROFF: block until an edge wakes the supervisor or ctx is
//     cancelled. The low-power wait of the system.
//   - UNKNOWN: rapid double-blink diagnostic. Never self-heals.
//
// Returns the transition performed during this tick, or nil.
func (s *Supervisor) Tick(ctx context.Context) *Transition {
	switch s.State() {
	case StateBoot:
		return s.timedTick(StateBoot, s.cfg.BootTick, s.cfg.BootTimeout, StateIdle, TriggerBootTimeout)
	case StateShutdown:
		return s.timedTick(StateShutdown, s.cfg.ShutdownTick, s.cfg.ShutdownTimeout, StatePowerOff, TriggerShutdownTimeout)
	case StateIdle, StatePowerOff:
		select {
		case <-ctx.Done():
		case <-s.wake:
		}
		return nil
	default:
		s.errorTick()
		return nil
	}
}

// timedTick is the shared BOOT/SHUTDOWN tick body: blink, wait, account,
// check the timeout. The state is re-checked after the wait; if an edge
// moved the machine elsewhere in the meantime the timeout check is skipped.
func (s *Supervisor) timedTick(in State, quantum time.Duration, timeout uint8, next State, trig Trigger) *Transition {
	s.out.ToggleLED()
	s.Delay(quantum)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != in {
		return nil
	}
	if s.elapsedS >= timeout {
		return s.changeState(next, trig)
	}
	return nil
}

// errorTick emits the UNKNOWN-state diagnostic: a rapid double toggle.
// Raw waits, no timer accounting.
func (s *Supervisor) errorTick() {
	s.out.ToggleLED()
	s.wait(s.cfg.ErrorTick)
	s.out.ToggleLED()
	s.wait(2 * s.cfg.ErrorTick)
}

// Delay physically waits d and then, only while in a timed state, credits
// it to the counters: the sub-second accumulator advances by d, and on
// crossing 1000ms the whole-seconds counter increments once. Tick quanta
// are always well under a second, so at most one boundary is crossed per
// call. In all other states this is a pure wait.
func (s *Supervisor) Delay(d time.Duration) {
	s.wait(d)

	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateBoot, StateShutdown:
		s.elapsedMS += uint16(d / time.Millisecond)
		if s.elapsedMS >= msPerSecond {
			s.elapsedS++
			s.elapsedMS -= msPerSecond
		}
	}
}

// HandleInputs processes one input snapshot from the edge goroutine,
// the moral equivalent of the pin-change interrupt. Rising edges are
// computed by XOR against the previous snapshot; the snapshot is stored
// before any transition logic runs.
//
// Both lines are checked on every call; a single invocation may observe
// edges on both. An edge that has no rule for the current state is a
// silent no-op, never an error.
func (s *Supervisor) HandleInputs(in InputBits) *Transition {
	s.mu.Lock()
	changed := in ^ s.lastInputs
	s.lastInputs = in

	var tr *Transition

	if changed&BitTargetAlive != 0 && in&BitTargetAlive != 0 {
		s.counts.AliveEdges++
		if s.state == StateBoot {
			// The target reported in early: force the boot timeout
			// so the next boot tick completes the transition.
			s.elapsedS = s.cfg.BootTimeout
		}
	}

	if changed&BitButton != 0 && in&BitButton != 0 {
		s.counts.ButtonPresses++
		switch s.state {
		case StateIdle:
			tr = s.changeState(StateShutdown, TriggerButton)
		case StatePowerOff:
			tr = s.changeState(StateBoot, TriggerButton)
		}
	}
	s.mu.Unlock()

	if tr != nil {
		// Interrupt the low-power wait so the next tick dispatches
		// on the new state immediately.
		select {
		case s.wake <- struct{}{}:
		default:
		}
	}
	return tr
}

// changeState enters a new state: both counters reset, entry actions
// drive the outputs. Caller must hold s.mu.
func (s *Supervisor) changeState(to State, trig Trigger) *Transition {
	from := s.state
	s.state = to
	s.elapsedMS = 0
	s.elapsedS = 0

	switch to {
	case StateBoot:
		s.counts.Boots++
		s.out.SetLED(false)
		s.out.SetPowerEnable(false) // release the kill line; target powers up
		s.out.SetSignalOut(false)

	case StateIdle:
		s.out.SetLED(true)

	case StateShutdown:
		s.counts.Shutdowns++
		s.out.SetSignalOut(true) // ask the target to shut down cleanly
		s.out.SetLED(false)

	case StatePowerOff:
		s.counts.PowerOffs++
		s.out.SetPowerEnable(true)
		s.out.SetLED(false)
		s.out.SetSignalOut(false)
	}

	return &Transition{From: from, To: to, Trigger: trig}
}
