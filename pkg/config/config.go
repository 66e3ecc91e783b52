// Package config defines the configuration of the receiver binaries.
// Values come from built-in defaults, a TOML file, env and flags, in
// increasing precedence.
package config

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/robotalks/dbus.go/pkg/dbus"
	"github.com/robotalks/dbus.go/pkg/env"
	"github.com/robotalks/dbus.go/pkg/serial"
)

// Env variables.
const (
	EnvMQTTURL = "DBUS_MQTT_URL"
	EnvDevice  = "DBUS_DEVICE"
)

// ReceiverConfig tunes the receiver.
type ReceiverConfig struct {
	BufferSize     int           `toml:"buffer_size"`
	SyncTimeout    time.Duration `toml:"sync_timeout"`
	SyncMaxDiscard int           `toml:"sync_max_discard"`
	FrameCheck     bool          `toml:"frame_check"`
	Revalidate     bool          `toml:"revalidate"`
}

// WiringConfig maps stick channel names (e.g. left_x) to routes.
type WiringConfig map[string]dbus.AxisRoute

// MQTTConfig defines the telemetry publisher.
type MQTTConfig struct {
	// URL of the broker, e.g. mqtt://host:port/topic-prefix.
	URL      string        `toml:"url"`
	Interval time.Duration `toml:"interval"`
}

// HTTPConfig defines the websocket server.
type HTTPConfig struct {
	Listen   string        `toml:"listen"`
	Path     string        `toml:"path"`
	Interval time.Duration `toml:"interval"`
}

// Config is the complete configuration.
type Config struct {
	File     string         `toml:"-"`
	ID       string         `toml:"id"`
	Replay   string         `toml:"replay"`
	Simulate bool           `toml:"simulate"`
	Serial   serial.Config  `toml:"serial"`
	Receiver ReceiverConfig `toml:"receiver"`
	Wiring   WiringConfig   `toml:"wiring"`
	MQTT     MQTTConfig     `toml:"mqtt"`
	HTTP     HTTPConfig     `toml:"http"`
}

// Builtin returns the built-in defaults with env overrides applied.
func Builtin() Config {
	conf := Config{
		Serial: serial.DefaultConfig(),
		Receiver: ReceiverConfig{
			BufferSize: dbus.DefaultStreamBufferSize,
			FrameCheck: true,
		},
		MQTT: MQTTConfig{
			Interval: 20 * time.Millisecond,
		},
		HTTP: HTTPConfig{
			Path:     "/ws",
			Interval: 20 * time.Millisecond,
		},
	}
	if val := os.Getenv(EnvMQTTURL); val != "" {
		conf.MQTT.URL = val
	}
	if val := os.Getenv(EnvDevice); val != "" {
		conf.Serial.Device = val
	}
	return conf
}

var defaultConfig = Builtin()

type flagSetter func(dst, src *Config)

var flagSetters = map[string]flagSetter{
	"id":         func(d, s *Config) { d.ID = s.ID },
	"device":     func(d, s *Config) { d.Serial.Device = s.Serial.Device },
	"replay":     func(d, s *Config) { d.Replay = s.Replay },
	"sim":        func(d, s *Config) { d.Simulate = s.Simulate },
	"mqtt":       func(d, s *Config) { d.MQTT.URL = s.MQTT.URL },
	"http":       func(d, s *Config) { d.HTTP.Listen = s.HTTP.Listen },
	"revalidate": func(d, s *Config) { d.Receiver.Revalidate = s.Receiver.Revalidate },
	"sync-timeout": func(d, s *Config) {
		d.Receiver.SyncTimeout = s.Receiver.SyncTimeout
	},
}

func bindFlags(fs *flag.FlagSet, c *Config) {
	fs.StringVar(&c.File, "config", c.File, "Config file in TOML")
	fs.StringVar(&c.ID, "id", c.ID, "Receiver ID, default is derived from machine ID")
	fs.StringVar(&c.Serial.Device, "device", c.Serial.Device, "Serial device")
	fs.StringVar(&c.Replay, "replay", c.Replay, "Replay raw bytes from file instead of serial device")
	fs.BoolVar(&c.Simulate, "sim", c.Simulate, "Use built-in simulated transmitter")
	fs.StringVar(&c.MQTT.URL, "mqtt", c.MQTT.URL, "MQTT broker URL, empty to disable")
	fs.StringVar(&c.HTTP.Listen, "http", c.HTTP.Listen, "Websocket listen address, empty to disable")
	fs.BoolVar(&c.Receiver.Revalidate, "revalidate", c.Receiver.Revalidate, "Resync on frames with invalid switches")
	fs.DurationVar(&c.Receiver.SyncTimeout, "sync-timeout", c.Receiver.SyncTimeout, "Give up synchronization after the duration, 0 for never")
}

// SetupFlags sets command line flags.
func SetupFlags() {
	bindFlags(flag.CommandLine, &defaultConfig)
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config from the flags parsed by the command line.
func NewConfig() (*Config, error) {
	return resolve(flag.CommandLine, &defaultConfig)
}

func resolve(fs *flag.FlagSet, flagged *Config) (*Config, error) {
	conf := Builtin()
	if flagged.File != "" {
		if err := conf.LoadFile(flagged.File); err != nil {
			return nil, err
		}
	}
	fs.Visit(func(f *flag.Flag) {
		if set := flagSetters[f.Name]; set != nil {
			set(&conf, flagged)
		}
	})
	if conf.ID == "" {
		conf.ID = env.ReceiverID()
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return &conf, nil
}

// LoadFile decodes the TOML file into c. Keys absent from the file are
// left unchanged.
func (c *Config) LoadFile(path string) error {
	md, err := toml.DecodeFile(path, c)
	if err != nil {
		return fmt.Errorf("load config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for n, key := range undecoded {
			keys[n] = key.String()
		}
		return fmt.Errorf("load config %s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	c.File = path
	return nil
}

// Validate checks the config.
func (c *Config) Validate() error {
	if c.Replay != "" && c.Simulate {
		return fmt.Errorf("replay and sim are exclusive")
	}
	if _, err := c.Serial.Mode(); err != nil {
		return err
	}
	if _, err := c.Wiring.Resolve(); err != nil {
		return err
	}
	return nil
}

// Resolve applies the routes on top of DefaultWiring.
func (w WiringConfig) Resolve() (dbus.Wiring, error) {
	wiring := dbus.DefaultWiring
	for name, route := range w {
		ch, err := dbus.ParseChannel(name)
		if err != nil {
			return wiring, fmt.Errorf("wiring: %w", err)
		}
		if !ch.IsStick() {
			return wiring, fmt.Errorf("wiring: %s is not a stick channel", ch)
		}
		wiring[ch] = route
	}
	return wiring, wiring.Validate()
}

// Apply configures the receiver.
func (c *ReceiverConfig) Apply(r *dbus.Receiver) {
	r.SyncTimeout = c.SyncTimeout
	r.SyncMaxDiscard = c.SyncMaxDiscard
	r.FrameCheck = c.FrameCheck
	r.Revalidate = c.Revalidate
}
