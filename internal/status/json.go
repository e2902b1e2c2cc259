package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event          string       `json:"event,omitempty"`
	Reason         string       `json:"reason,omitempty"`
	State          string       `json:"state"`
	ElapsedSeconds int          `json:"elapsed_seconds"`
	ElapsedMillis  int          `json:"elapsed_millis"`
	Outputs        OutputsJSON  `json:"outputs"`
	LastTrigger    string       `json:"last_trigger,omitempty"`
	TimeInStateSec int64        `json:"time_in_state_seconds"`
	UptimeSeconds  int64        `json:"uptime_seconds"`
	StartTime      string       `json:"start_time"`
	Timestamp      string       `json:"timestamp"`
	MQTT           MQTTStatus   `json:"mqtt"`
	Counts         CountsJSON   `json:"counts"`
	Network        *NetworkJSON `json:"network,omitempty"`
	Config         ConfigJSON   `json:"config"`
}

// OutputsJSON is the JSON representation of the output line levels.
type OutputsJSON struct {
	PowerEnable bool `json:"power_enable"`
	SignalOut   bool `json:"signal_out"`
	LED         bool `json:"led"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of edge and transition counts.
type CountsJSON struct {
	Boots         int `json:"boots"`
	Shutdowns     int `json:"shutdowns"`
	PowerOffs     int `json:"power_offs"`
	ButtonPresses int `json:"button_presses"`
	AliveEdges    int `json:"alive_edges"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	BootTimeoutS     int64  `json:"boot_timeout_s"`
	ShutdownTimeoutS int64  `json:"shutdown_timeout_s"`
	BootTickMs       int64  `json:"boot_tick_ms"`
	ShutdownTickMs   int64  `json:"shutdown_tick_ms"`
	HeartbeatMs      int64  `json:"heartbeat_ms"`
	Broker           string `json:"broker"`
	HTTPAddr         string `json:"http_addr"`
	PinButton        int    `json:"pin_button"`
	PinAlive         int    `json:"pin_alive"`
	PinPower         int    `json:"pin_power"`
	PinSignal        int    `json:"pin_signal"`
	PinLED           int    `json:"pin_led"`
}

func buildInner(snap Snapshot) StatusInner {
	state := string(snap.State)
	if state == "" {
		state = "UNKNOWN"
	}

	return StatusInner{
		State:          state,
		ElapsedSeconds: int(snap.ElapsedS),
		ElapsedMillis:  int(snap.ElapsedMS),
		Outputs: OutputsJSON{
			PowerEnable: snap.PowerEnable,
			SignalOut:   snap.SignalOut,
			LED:         snap.LED,
		},
		LastTrigger:    string(snap.LastTrigger),
		TimeInStateSec: int64(snap.TimeInState().Truncate(time.Second).Seconds()),
		UptimeSeconds:  int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:      snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:      snap.Now.UTC().Format(time.RFC3339),
		MQTT:           MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Boots:         snap.Counts.Boots,
			Shutdowns:     snap.Counts.Shutdowns,
			PowerOffs:     snap.Counts.PowerOffs,
			ButtonPresses: snap.Counts.ButtonPresses,
			AliveEdges:    snap.Counts.AliveEdges,
		},
		Config: ConfigJSON{
			BootTimeoutS:     snap.Config.BootTimeoutS,
			ShutdownTimeoutS: snap.Config.ShutdownTimeoutS,
			BootTickMs:       snap.Config.BootTickMs,
			ShutdownTickMs:   snap.Config.ShutdownTickMs,
			HeartbeatMs:      snap.Config.HeartbeatMs,
			Broker:           snap.Config.Broker,
			HTTPAddr:         snap.Config.HTTPAddr,
			PinButton:        snap.Config.PinButton,
			PinAlive:         snap.Config.PinAlive,
			PinPower:         snap.Config.PinPower,
			PinSignal:        snap.Config.PinSignal,
			PinLED:           snap.Config.PinLED,
		},
	}
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
