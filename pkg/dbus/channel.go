package dbus

import (
	"fmt"
	"strings"
)

// Channel identifies a logical control value.
type Channel int

// Channels, in the order of the receiver's channel table.
const (
	LeftX Channel = iota
	LeftY
	RightX
	RightY
	S1
	S2
	MouseX
	MouseY
	MouseZ
	MouseLeft
	MouseRight
	KeyW
	KeyS
	KeyA
	KeyD
	KeyQ
	KeyE
	KeyShift
	KeyCtrl

	// NumChannels is the number of channels.
	NumChannels
)

var channelNames = [NumChannels]string{
	"LEFT_X", "LEFT_Y", "RIGHT_X", "RIGHT_Y",
	"S1", "S2",
	"MOUSE_X", "MOUSE_Y", "MOUSE_Z",
	"MOUSE_LEFT", "MOUSE_RIGHT",
	"KEY_W", "KEY_S", "KEY_A", "KEY_D", "KEY_Q", "KEY_E", "KEY_SHIFT", "KEY_CTRL",
}

// String implements fmt.Stringer.
func (c Channel) String() string {
	if c < 0 || c >= NumChannels {
		return fmt.Sprintf("CHANNEL(%d)", int(c))
	}
	return channelNames[c]
}

// IsStick indicates the channel is one of the four stick axes.
func (c Channel) IsStick() bool {
	return c >= LeftX && c <= RightY
}

// ParseChannel parses a channel name (case-insensitive).
func ParseChannel(name string) (Channel, error) {
	name = strings.ToUpper(strings.TrimSpace(name))
	for n, s := range channelNames {
		if s == name {
			return Channel(n), nil
		}
	}
	return 0, fmt.Errorf("unknown channel %q", name)
}

// PointerAxis identifies a pointer-device delta.
type PointerAxis int

// Pointer axes.
const (
	PointerX PointerAxis = iota
	PointerY
	PointerZ
)

// AxisRoute routes a stick channel to a raw axis slot.
type AxisRoute struct {
	Slot   int  `toml:"slot" json:"slot"`
	Invert bool `toml:"invert" json:"invert,omitempty"`
}

// Wiring maps stick channels (LeftX..RightY) to raw axis slots.
// It is a fixed table determined by how the receiver is wired.
type Wiring [4]AxisRoute

// DefaultWiring is the wiring of the reference receiver.
var DefaultWiring = Wiring{
	LeftX:  {Slot: 2},
	LeftY:  {Slot: 3},
	RightX: {Slot: 0},
	RightY: {Slot: 1},
}

// Validate checks every slot is in range.
func (w Wiring) Validate() error {
	for ch, r := range w {
		if r.Slot < 0 || r.Slot > 3 {
			return fmt.Errorf("wiring %s: slot %d out of range", Channel(ch), r.Slot)
		}
	}
	return nil
}
