package dbus

import "encoding/binary"

// FrameSize is the size of a DBUS frame in bytes.
const FrameSize = 18

// AxisCenter is the raw axis value with the stick centered.
const AxisCenter = 1024

// Frame is a raw DBUS frame.
type Frame [FrameSize]byte

// Switch is the position of a three-state switch.
type Switch uint8

// Switch positions. SwitchInvalid is the sentinel before any valid frame.
const (
	SwitchInvalid Switch = 0
	SwitchUp      Switch = 1
	SwitchDown    Switch = 2
	SwitchMiddle  Switch = 3
)

// Valid indicates the switch value is a real position.
func (s Switch) Valid() bool {
	return s > 0 && s < 4
}

// String implements fmt.Stringer.
func (s Switch) String() string {
	switch s {
	case SwitchUp:
		return "UP"
	case SwitchDown:
		return "DOWN"
	case SwitchMiddle:
		return "MID"
	}
	return "INVALID"
}

// Buttons is the bitset of 8 keyboard buttons, bit0 (W) to bit7 (Ctrl).
type Buttons uint8

// Pressed checks button at index (0-7).
func (b Buttons) Pressed(index int) bool {
	if index < 0 || index > 7 {
		return false
	}
	return b&(1<<uint(index)) != 0
}

// Set returns the bitset with the button at index pressed or released.
func (b Buttons) Set(index int, pressed bool) Buttons {
	if index < 0 || index > 7 {
		return b
	}
	if pressed {
		return b | (1 << uint(index))
	}
	return b &^ (1 << uint(index))
}

// State is the decoded content of one frame.
type State struct {
	// Axes are the raw 11-bit stick values in wire order.
	Axes [4]uint16
	S1   Switch
	S2   Switch

	PointerX     int16
	PointerY     int16
	PointerZ     int16
	PointerLeft  bool
	PointerRight bool

	Buttons Buttons
}

// switchA extracts the switch field at bits 4-5 (S2).
func switchA(b byte) Switch {
	return Switch((b >> 4) & 0x03)
}

// switchB extracts the switch field at bits 6-7 (S1).
func switchB(b byte) Switch {
	return Switch((b >> 6) & 0x03)
}

// Decode unpacks a frame. It never fails: garbage in gives garbage out,
// with every axis masked to 11 bits.
func Decode(f Frame) (s State) {
	s.Axes[0] = (uint16(f[0]) | uint16(f[1])<<8) & 0x07ff
	s.Axes[1] = (uint16(f[1])>>3 | uint16(f[2])<<5) & 0x07ff
	s.Axes[2] = (uint16(f[2])>>6 | uint16(f[3])<<2 | uint16(f[4])<<10) & 0x07ff
	s.Axes[3] = (uint16(f[4])>>1 | uint16(f[5])<<7) & 0x07ff
	s.S1, s.S2 = switchB(f[5]), switchA(f[5])

	s.PointerX = int16(binary.LittleEndian.Uint16(f[6:8]))
	s.PointerY = int16(binary.LittleEndian.Uint16(f[8:10]))
	s.PointerZ = int16(binary.LittleEndian.Uint16(f[10:12]))
	s.PointerLeft = f[12] != 0
	s.PointerRight = f[13] != 0
	s.Buttons = Buttons(f[14])
	return
}

// DecodeBytes decodes the first FrameSize bytes of b.
func DecodeBytes(b []byte) State {
	var f Frame
	copy(f[:], b)
	return Decode(f)
}

// Encode packs the state into a frame, the inverse of Decode.
// Axis values are truncated to 11 bits and switches to 2 bits.
func (s State) Encode() (f Frame) {
	a0, a1, a2, a3 := s.Axes[0]&0x07ff, s.Axes[1]&0x07ff, s.Axes[2]&0x07ff, s.Axes[3]&0x07ff
	f[0] = byte(a0)
	f[1] = byte(a0>>8) | byte(a1<<3)
	f[2] = byte(a1>>5) | byte(a2<<6)
	f[3] = byte(a2 >> 2)
	f[4] = byte(a2>>10) | byte(a3<<1)
	f[5] = byte(a3>>7) | byte(s.S2&0x03)<<4 | byte(s.S1&0x03)<<6
	binary.LittleEndian.PutUint16(f[6:8], uint16(s.PointerX))
	binary.LittleEndian.PutUint16(f[8:10], uint16(s.PointerY))
	binary.LittleEndian.PutUint16(f[10:12], uint16(s.PointerZ))
	if s.PointerLeft {
		f[12] = 1
	}
	if s.PointerRight {
		f[13] = 1
	}
	f[14] = byte(s.Buttons)
	return
}

// Valid checks both switch fields carry a real position, which is the
// only redundancy in the frame.
func (f Frame) Valid() bool {
	return switchA(f[5]).Valid() && switchB(f[5]).Valid()
}
