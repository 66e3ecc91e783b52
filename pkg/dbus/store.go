package dbus

import (
	"sync/atomic"
	"time"
)

// Axis normalization constants.
const (
	AxisScale    = 1320.0
	PointerScale = 32767.0
)

// Snapshot is a published State with its metadata.
// A Snapshot is never modified after publication.
type Snapshot struct {
	State
	// Seq is the number of states published, 0 before the first frame.
	Seq  uint64
	Time time.Time
}

// Store holds the latest decoded State. There must be a single writer
// calling Publish; any number of readers may call the accessors
// concurrently. Publication is a single atomic pointer swap so a reader
// never sees fields from two different frames, and neither side blocks
// the other.
type Store struct {
	current atomic.Value // *Snapshot
	wiring  atomic.Value // *Wiring
}

// NewStore creates a Store with a zeroed State and DefaultWiring.
func NewStore() *Store {
	s := &Store{}
	s.current.Store(&Snapshot{})
	w := DefaultWiring
	s.wiring.Store(&w)
	return s
}

// Publish replaces the current snapshot.
func (s *Store) Publish(state State) *Snapshot {
	snap := &Snapshot{
		State: state,
		Seq:   s.snapshot().Seq + 1,
		Time:  time.Now(),
	}
	s.current.Store(snap)
	return snap
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	return *s.snapshot()
}

// State returns a copy of the current State.
func (s *Store) State() State {
	return s.snapshot().State
}

// Seq returns the sequence of the current snapshot.
func (s *Store) Seq() uint64 {
	return s.snapshot().Seq
}

func (s *Store) snapshot() *Snapshot {
	return s.current.Load().(*Snapshot)
}

// Wiring returns the current wiring table.
func (s *Store) Wiring() Wiring {
	return *s.wiring.Load().(*Wiring)
}

// SetWiring replaces the wiring table.
func (s *Store) SetWiring(w Wiring) error {
	if err := w.Validate(); err != nil {
		return err
	}
	s.wiring.Store(&w)
	return nil
}

// Axis returns the normalized value of a stick channel, roughly within
// [-1, 1]. Non-stick channels return 0.
func (s *Store) Axis(ch Channel) float64 {
	return s.Snapshot().Axis(ch, s.Wiring())
}

// PointerAxis returns the normalized pointer delta.
func (s *Store) PointerAxis(ax PointerAxis) float64 {
	return s.snapshot().PointerAxis(ax)
}

// Button returns the state of keyboard button 0-7.
func (s *Store) Button(index int) bool {
	return s.snapshot().Buttons.Pressed(index)
}

// PointerButton returns the state of the left (0) or right (1) pointer button.
func (s *Store) PointerButton(index int) bool {
	snap := s.snapshot()
	switch index {
	case 0:
		return snap.PointerLeft
	case 1:
		return snap.PointerRight
	}
	return false
}

// Switch returns switch 1 or 2; SwitchInvalid before a valid frame.
func (s *Store) Switch(id int) Switch {
	snap := s.snapshot()
	switch id {
	case 1:
		return snap.S1
	case 2:
		return snap.S2
	}
	return SwitchInvalid
}

// Value returns any channel as float64: normalized sticks and pointer
// deltas, raw switch positions, and 0/1 for buttons.
func (s *Store) Value(ch Channel) float64 {
	return s.Snapshot().Value(ch, s.Wiring())
}

// Axis normalizes a stick channel using the wiring.
func (st State) Axis(ch Channel, w Wiring) float64 {
	if !ch.IsStick() {
		return 0
	}
	r := w[ch]
	if r.Slot < 0 || r.Slot > 3 {
		return 0
	}
	v := (float64(st.Axes[r.Slot]) - AxisCenter) / AxisScale
	if r.Invert {
		v = -v
	}
	return v
}

// PointerAxis normalizes a pointer delta.
func (st State) PointerAxis(ax PointerAxis) float64 {
	switch ax {
	case PointerX:
		return float64(st.PointerX) / PointerScale
	case PointerY:
		return float64(st.PointerY) / PointerScale
	case PointerZ:
		return float64(st.PointerZ) / PointerScale
	}
	return 0
}

// Value returns any channel as float64, see Store.Value.
func (st State) Value(ch Channel, w Wiring) float64 {
	switch {
	case ch.IsStick():
		return st.Axis(ch, w)
	case ch == S1:
		return float64(st.S1)
	case ch == S2:
		return float64(st.S2)
	case ch >= MouseX && ch <= MouseZ:
		return st.PointerAxis(PointerAxis(ch - MouseX))
	case ch == MouseLeft:
		return boolValue(st.PointerLeft)
	case ch == MouseRight:
		return boolValue(st.PointerRight)
	case ch >= KeyW && ch <= KeyCtrl:
		return boolValue(st.Buttons.Pressed(int(ch - KeyW)))
	}
	return 0
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
