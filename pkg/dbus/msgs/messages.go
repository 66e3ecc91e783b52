package msgs

import (
	"github.com/golang/protobuf/proto"

	"github.com/robotalks/dbus.go/pkg/dbus"
)

// RCState is the telemetry message carrying one published snapshot.
type RCState struct {
	Seq          uint64    `protobuf:"varint,1,opt,name=seq,proto3" json:"seq,omitempty"`
	Axes         []uint32  `protobuf:"varint,2,rep,packed,name=axes,proto3" json:"axes,omitempty"`
	S1           uint32    `protobuf:"varint,3,opt,name=s1,proto3" json:"s1,omitempty"`
	S2           uint32    `protobuf:"varint,4,opt,name=s2,proto3" json:"s2,omitempty"`
	Pointer      []int32   `protobuf:"zigzag32,5,rep,packed,name=pointer,proto3" json:"pointer,omitempty"`
	PointerLeft  bool      `protobuf:"varint,6,opt,name=pointer_left,proto3" json:"pointer_left,omitempty"`
	PointerRight bool      `protobuf:"varint,7,opt,name=pointer_right,proto3" json:"pointer_right,omitempty"`
	Buttons      uint32    `protobuf:"varint,8,opt,name=buttons,proto3" json:"buttons,omitempty"`
	Values       []float64 `protobuf:"fixed64,9,rep,packed,name=values,proto3" json:"values,omitempty"`
	Session      string    `protobuf:"bytes,10,opt,name=session,proto3" json:"session,omitempty"`
	Time         int64     `protobuf:"varint,11,opt,name=time,proto3" json:"time,omitempty"`
}

// ProtoMessage implements proto.Message.
func (m *RCState) ProtoMessage() {}

// Reset implements proto.Message.
func (m *RCState) Reset() { *m = RCState{} }

// String implements proto.Message.
func (m *RCState) String() string { return proto.CompactTextString(m) }

// FromSnapshot builds RCState from a snapshot. Values holds every
// Channel in order, resolved with wiring.
func FromSnapshot(snap *dbus.Snapshot, wiring dbus.Wiring, session string) *RCState {
	m := &RCState{
		Seq:          snap.Seq,
		Axes:         make([]uint32, len(snap.Axes)),
		S1:           uint32(snap.S1),
		S2:           uint32(snap.S2),
		Pointer:      []int32{int32(snap.PointerX), int32(snap.PointerY), int32(snap.PointerZ)},
		PointerLeft:  snap.PointerLeft,
		PointerRight: snap.PointerRight,
		Buttons:      uint32(snap.Buttons),
		Values:       make([]float64, dbus.NumChannels),
		Session:      session,
	}
	if !snap.Time.IsZero() {
		m.Time = snap.Time.UnixNano()
	}
	for n, v := range snap.Axes {
		m.Axes[n] = uint32(v)
	}
	for ch := dbus.Channel(0); ch < dbus.NumChannels; ch++ {
		m.Values[ch] = snap.State.Value(ch, wiring)
	}
	return m
}

// State converts the message back to the raw state.
func (m *RCState) State() dbus.State {
	var s dbus.State
	for n := 0; n < len(s.Axes) && n < len(m.Axes); n++ {
		s.Axes[n] = uint16(m.Axes[n])
	}
	s.S1, s.S2 = dbus.Switch(m.S1), dbus.Switch(m.S2)
	if len(m.Pointer) == 3 {
		s.PointerX = int16(m.Pointer[0])
		s.PointerY = int16(m.Pointer[1])
		s.PointerZ = int16(m.Pointer[2])
	}
	s.PointerLeft, s.PointerRight = m.PointerLeft, m.PointerRight
	s.Buttons = dbus.Buttons(m.Buttons)
	return s
}
