package config

import (
	"fmt"
	"io"
	"os"

	"github.com/golang/glog"

	"github.com/robotalks/dbus.go/pkg/dbus"
	"github.com/robotalks/dbus.go/pkg/serial"
)

// OpenSource opens the byte source selected by the config: the
// simulator, a replay file or the serial device. The returned name
// describes the source.
func (c *Config) OpenSource() (io.ReadCloser, string, error) {
	switch {
	case c.Simulate:
		return dbus.NewSimulator(0), "simulator", nil
	case c.Replay != "":
		f, err := os.Open(c.Replay)
		if err != nil {
			return nil, "", fmt.Errorf("open replay: %w", err)
		}
		return f, "replay:" + c.Replay, nil
	default:
		port, err := serial.Open(c.Serial)
		if err != nil {
			return nil, "", err
		}
		return port, c.Serial.Device, nil
	}
}

// NewReceiver opens the source and creates a receiver publishing to
// store. Closing the returned stream closes the source.
func (c *Config) NewReceiver(store *dbus.Store) (*dbus.Receiver, *dbus.ReaderStream, error) {
	src, name, err := c.OpenSource()
	if err != nil {
		return nil, nil, err
	}
	size := c.Receiver.BufferSize
	if size <= 0 {
		size = dbus.DefaultStreamBufferSize
	}
	stream := dbus.NewReaderStreamSize(src, size)
	r := dbus.NewReceiver(stream, store)
	c.Receiver.Apply(r)
	glog.Infof("receiving from %s", name)
	return r, stream, nil
}
