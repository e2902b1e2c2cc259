// Package mqtt publishes supervisor events to a broker, with abstraction
// for testing and an offline buffer for broker outages.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/power-supervisor/internal/logic"
)

// Topic is the MQTT topic for state transition events.
const Topic = "power/supervisor/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "power/supervisor/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a transition event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// NopPublisher discards all events. Used when MQTT is disabled.
type NopPublisher struct{}

// Publish discards the event.
func (NopPublisher) Publish(Event) error { return nil }

// PublishSystem discards the event.
func (NopPublisher) PublishSystem(SystemEvent) error { return nil }

// Close is a no-op.
func (NopPublisher) Close() error { return nil }

// Event represents a state transition to be published.
type Event struct {
	Timestamp   time.Time
	From        logic.State
	To          logic.State
	Trigger     logic.Trigger
	PowerEnable bool // power-enable level after entry actions
	SignalOut   bool // signal-out level after entry actions
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Supervisor SupervisorPayload `json:"supervisor"`
}

// SupervisorPayload contains the transition details.
type SupervisorPayload struct {
	Timestamp string         `json:"timestamp"`
	From      string         `json:"from"`
	To        string         `json:"to"`
	Trigger   string         `json:"trigger"`
	Outputs   OutputsPayload `json:"outputs"`
}

// OutputsPayload reports the output line levels after the transition.
type OutputsPayload struct {
	PowerEnable bool `json:"power_enable"`
	SignalOut   bool `json:"signal_out"`
}

// FormatPayload creates the JSON payload for a transition event.
func FormatPayload(event Event) ([]byte, error) {
	payload := Payload{
		Supervisor: SupervisorPayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			From:      string(event.From),
			To:        string(event.To),
			Trigger:   string(event.Trigger),
			Outputs: OutputsPayload{
				PowerEnable: event.PowerEnable,
				SignalOut:   event.SignalOut,
			},
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
