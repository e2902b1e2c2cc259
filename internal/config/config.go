// Package config holds the supervisor's tunable settings: timing
// constants, pin assignments, and service endpoints. Defaults can be
// overlaid from a YAML file, and the command line overrides both.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/power-supervisor/internal/gpio"
	"github.com/sweeney/power-supervisor/internal/logic"
)

// Pins holds BCM line offsets.
type Pins struct {
	Button int `yaml:"button"`
	Alive  int `yaml:"alive"`
	Power  int `yaml:"power"`
	Signal int `yaml:"signal"`
	LED    int `yaml:"led"`
}

// Config is the full daemon configuration.
type Config struct {
	BootTimeoutS     int    `yaml:"boot_timeout_s"`
	ShutdownTimeoutS int    `yaml:"shutdown_timeout_s"`
	BootTickMs       int    `yaml:"boot_tick_ms"`
	ShutdownTickMs   int    `yaml:"shutdown_tick_ms"`
	ErrorTickMs      int    `yaml:"error_tick_ms"`
	HeartbeatMs      int    `yaml:"heartbeat_ms"`
	Broker           string `yaml:"broker"`
	HTTPAddr         string `yaml:"http_addr"`
	BufferCap        int    `yaml:"buffer_cap"`
	Pins             Pins   `yaml:"pins"`
}

// Default returns the stock configuration: the classic 40 second
// boot/shutdown windows with 200/500ms blink quanta.
func Default() Config {
	lc := logic.DefaultConfig()
	return Config{
		BootTimeoutS:     int(lc.BootTimeout),
		ShutdownTimeoutS: int(lc.ShutdownTimeout),
		BootTickMs:       int(lc.BootTick / time.Millisecond),
		ShutdownTickMs:   int(lc.ShutdownTick / time.Millisecond),
		ErrorTickMs:      int(lc.ErrorTick / time.Millisecond),
		HeartbeatMs:      int(15 * time.Minute / time.Millisecond),
		Broker:           "tcp://192.168.1.200:1883",
		HTTPAddr:         ":80",
		BufferCap:        64,
		Pins: Pins{
			Button: gpio.DefaultPinButton,
			Alive:  gpio.DefaultPinAlive,
			Power:  gpio.DefaultPinPower,
			Signal: gpio.DefaultPinSignal,
			LED:    gpio.DefaultPinLED,
		},
	}
}

// Load reads a YAML file over the defaults. Fields absent from the file
// keep their default values.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for values the state machine cannot
// operate with.
func (c Config) Validate() error {
	if c.BootTimeoutS <= 0 || c.BootTimeoutS > 255 {
		return fmt.Errorf("boot_timeout_s must be in 1..255, got %d", c.BootTimeoutS)
	}
	if c.ShutdownTimeoutS <= 0 || c.ShutdownTimeoutS > 255 {
		return fmt.Errorf("shutdown_timeout_s must be in 1..255, got %d", c.ShutdownTimeoutS)
	}
	// Tick quanta must stay under a second so the delay accounting
	// crosses at most one second boundary per call.
	if c.BootTickMs <= 0 || c.BootTickMs >= 1000 {
		return fmt.Errorf("boot_tick_ms must be in 1..999, got %d", c.BootTickMs)
	}
	if c.ShutdownTickMs <= 0 || c.ShutdownTickMs >= 1000 {
		return fmt.Errorf("shutdown_tick_ms must be in 1..999, got %d", c.ShutdownTickMs)
	}
	if c.ErrorTickMs <= 0 {
		return fmt.Errorf("error_tick_ms must be positive, got %d", c.ErrorTickMs)
	}
	if c.HeartbeatMs < 0 {
		return fmt.Errorf("heartbeat_ms must not be negative, got %d", c.HeartbeatMs)
	}
	if c.BufferCap <= 0 {
		return fmt.Errorf("buffer_cap must be positive, got %d", c.BufferCap)
	}
	pins := map[string]int{
		"button": c.Pins.Button,
		"alive":  c.Pins.Alive,
		"power":  c.Pins.Power,
		"signal": c.Pins.Signal,
		"led":    c.Pins.LED,
	}
	seen := make(map[int]string, len(pins))
	for name, pin := range pins {
		if pin < 0 {
			return fmt.Errorf("pin %s must not be negative, got %d", name, pin)
		}
		if other, dup := seen[pin]; dup {
			return fmt.Errorf("pins %s and %s both assigned to line %d", other, name, pin)
		}
		seen[pin] = name
	}
	return nil
}

// Logic converts to the state machine's timing constants.
func (c Config) Logic() logic.Config {
	return logic.Config{
		BootTimeout:     uint8(c.BootTimeoutS),
		ShutdownTimeout: uint8(c.ShutdownTimeoutS),
		BootTick:        time.Duration(c.BootTickMs) * time.Millisecond,
		ShutdownTick:    time.Duration(c.ShutdownTickMs) * time.Millisecond,
		ErrorTick:       time.Duration(c.ErrorTickMs) * time.Millisecond,
	}
}

// GPIOPins converts to the gpio package's pin set.
func (c Config) GPIOPins() gpio.Pins {
	return gpio.Pins{
		Button: c.Pins.Button,
		Alive:  c.Pins.Alive,
		Power:  c.Pins.Power,
		Signal: c.Pins.Signal,
		LED:    c.Pins.LED,
	}
}

// Heartbeat returns the heartbeat interval (0 = disabled).
func (c Config) Heartbeat() time.Duration {
	return time.Duration(c.HeartbeatMs) * time.Millisecond
}
