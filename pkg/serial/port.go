// Package serial opens the UART carrying the DBUS signal.
package serial

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang/glog"
	"go.bug.st/serial"
)

// DBUS line settings.
const (
	DefaultDevice      = "/dev/ttyUSB0"
	DefaultBaudRate    = 100000
	DefaultDataBits    = 8
	DefaultParity      = "even"
	DefaultStopBits    = 2
	DefaultReadTimeout = 100 * time.Millisecond
)

// Config defines the serial port settings.
type Config struct {
	Device      string        `toml:"device"`
	BaudRate    int           `toml:"baud_rate"`
	DataBits    int           `toml:"data_bits"`
	Parity      string        `toml:"parity"`
	StopBits    int           `toml:"stop_bits"`
	ReadTimeout time.Duration `toml:"read_timeout"`
}

// DefaultConfig returns 8E2 at 100000 baud on DefaultDevice.
func DefaultConfig() Config {
	return Config{
		Device:      DefaultDevice,
		BaudRate:    DefaultBaudRate,
		DataBits:    DefaultDataBits,
		Parity:      DefaultParity,
		StopBits:    DefaultStopBits,
		ReadTimeout: DefaultReadTimeout,
	}
}

// Mode converts the config into serial.Mode.
func (c Config) Mode() (*serial.Mode, error) {
	mode := &serial.Mode{BaudRate: c.BaudRate, DataBits: c.DataBits}
	switch strings.ToLower(c.Parity) {
	case "", "none", "n":
		mode.Parity = serial.NoParity
	case "even", "e":
		mode.Parity = serial.EvenParity
	case "odd", "o":
		mode.Parity = serial.OddParity
	default:
		return nil, fmt.Errorf("invalid parity %q", c.Parity)
	}
	switch c.StopBits {
	case 0, 1:
		mode.StopBits = serial.OneStopBit
	case 2:
		mode.StopBits = serial.TwoStopBits
	default:
		return nil, fmt.Errorf("invalid stop bits %d", c.StopBits)
	}
	return mode, nil
}

var parityNames = map[serial.Parity]string{
	serial.NoParity:   "N",
	serial.EvenParity: "E",
	serial.OddParity:  "O",
}

// Open opens the serial port.
func Open(c Config) (serial.Port, error) {
	mode, err := c.Mode()
	if err != nil {
		return nil, err
	}
	port, err := serial.Open(c.Device, mode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", c.Device, err)
	}
	if c.ReadTimeout > 0 {
		if err := port.SetReadTimeout(c.ReadTimeout); err != nil {
			port.Close()
			return nil, err
		}
	}
	glog.Infof("serial %s opened: %d baud %d%s%d",
		c.Device, c.BaudRate, c.DataBits, parityNames[mode.Parity], c.StopBits)
	return port, nil
}

// Ports lists available serial ports.
func Ports() ([]string, error) {
	return serial.GetPortsList()
}
