package dbus

import (
	"io"
	"math"
	"sync"
	"time"
)

// DefaultFrameInterval is the frame period of the receiver.
const DefaultFrameInterval = 14 * time.Millisecond

// Simulator is an io.Reader producing an endless DBUS byte stream: the
// sticks sweep, the switches cycle and one button walks through the
// button byte. The first frame starts at an arbitrary offset so readers
// must synchronize.
type Simulator struct {
	Interval time.Duration

	seq     int
	pending []byte
	closeCh chan struct{}
	once    sync.Once
}

// NewSimulator creates a Simulator whose stream starts at byte offset of
// the first frame.
func NewSimulator(offset int) *Simulator {
	s := &Simulator{Interval: DefaultFrameInterval, closeCh: make(chan struct{})}
	f := s.State(0).Encode()
	s.pending = append(s.pending, f[offset%FrameSize:]...)
	s.seq = 1
	return s
}

// State returns the state encoded in frame seq.
func (s *Simulator) State(seq int) (st State) {
	phase := float64(seq) * 2 * math.Pi / 200
	for n := range st.Axes {
		v := AxisCenter + 660*math.Sin(phase*float64(n+1))
		st.Axes[n] = uint16(v)
	}
	st.S1 = Switch(seq/100%3 + 1)
	st.S2 = Switch(seq/50%3 + 1)
	st.PointerX = int16(100 * math.Cos(phase))
	st.PointerY = int16(100 * math.Sin(phase))
	st.PointerLeft = seq/25%2 == 1
	st.Buttons = st.Buttons.Set(seq/10%8, true)
	return
}

// Read implements io.Reader.
func (s *Simulator) Read(p []byte) (int, error) {
	if len(s.pending) == 0 {
		select {
		case <-s.closeCh:
			return 0, io.EOF
		case <-time.After(s.Interval):
		}
		f := s.State(s.seq).Encode()
		s.seq++
		s.pending = append(s.pending, f[:]...)
	}
	select {
	case <-s.closeCh:
		return 0, io.EOF
	default:
	}
	n := copy(p, s.pending)
	s.pending = s.pending[n:]
	return n, nil
}

// Close implements io.Closer.
func (s *Simulator) Close() error {
	s.once.Do(func() { close(s.closeCh) })
	return nil
}
