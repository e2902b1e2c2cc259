// Package status provides a thread-safe status tracker for the
// power-supervisor daemon. It is read by HTTP handlers and feeds the
// MQTT system-event snapshots.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/power-supervisor/internal/logic"
)

// NetworkInfo contains network state. This is a local copy to avoid
// importing internal/mqtt from status.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	BootTimeoutS     int64
	ShutdownTimeoutS int64
	BootTickMs       int64
	ShutdownTickMs   int64
	HeartbeatMs      int64
	Broker           string
	HTTPAddr         string
	PinButton        int
	PinAlive         int
	PinPower         int
	PinSignal        int
	PinLED           int
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	State          logic.State
	ElapsedS       uint8
	ElapsedMS      uint16
	PowerEnable    bool
	SignalOut      bool
	LED            bool
	Counts         logic.Counts
	LastTrigger    logic.Trigger
	LastTransition time.Time
	StartTime      time.Time
	Now            time.Time
	MQTTConnected  bool
	Network        *NetworkInfo
	Config         Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// TimeInState returns the duration since the last state transition.
func (s Snapshot) TimeInState() time.Duration {
	if s.LastTransition.IsZero() {
		return 0
	}
	return s.Now.Sub(s.LastTransition)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			State:     logic.StateUnknown,
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update refreshes the state machine view. Called from the main loop
// after every tick.
func (t *Tracker) Update(state logic.State, elapsedS uint8, elapsedMS uint16, counts logic.Counts) {
	t.mu.Lock()
	t.snap.State = state
	t.snap.ElapsedS = elapsedS
	t.snap.ElapsedMS = elapsedMS
	t.snap.Counts = counts
	t.mu.Unlock()
}

// RecordTransition notes a completed transition and its wall-clock time.
func (t *Tracker) RecordTransition(tr logic.Transition, at time.Time) {
	t.mu.Lock()
	t.snap.State = tr.To
	t.snap.LastTrigger = tr.Trigger
	t.snap.LastTransition = at
	t.mu.Unlock()
}

// SetOutputs records the output line levels.
func (t *Tracker) SetOutputs(powerEnable, signalOut, led bool) {
	t.mu.Lock()
	t.snap.PowerEnable = powerEnable
	t.snap.SignalOut = signalOut
	t.snap.LED = led
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
