package dbus

import (
	"context"
	"io"
	"sync"
	"time"
)

// ByteStream is the byte source consumed by Synchronizer and Receiver.
// It must be owned by a single consumer: concurrent readers corrupt
// frame boundaries.
type ByteStream interface {
	// Available returns the number of bytes readable without blocking.
	Available() int
	// Peek returns the next byte without consuming it.
	Peek() (byte, error)
	// ReadByte consumes one byte. It returns ErrNoData when nothing is buffered.
	ReadByte() (byte, error)
	// ReadExact blocks until n bytes are buffered and consumes them.
	ReadExact(n int) ([]byte, error)
}

// Lookahead is implemented by streams able to peek beyond the next byte.
type Lookahead interface {
	PeekAt(offset int) (byte, error)
}

// Terminator is implemented by streams which can report no more bytes
// will ever arrive (e.g. port closed, end of replay file).
type Terminator interface {
	Err() error
}

// DefaultStreamBufferSize holds 20 frames.
const DefaultStreamBufferSize = FrameSize * 20

// ReaderStream adapts an io.Reader (serial port, file, pipe) to ByteStream.
// A background goroutine keeps reading into a bounded buffer; when the
// buffer is full the oldest bytes are dropped.
type ReaderStream struct {
	reader  io.Reader
	size    int
	data    []byte
	dropped uint64
	err     error
	lock    sync.Mutex
	cond    *sync.Cond
}

// NewReaderStream creates a ReaderStream with the default buffer size and
// starts reading.
func NewReaderStream(r io.Reader) *ReaderStream {
	return NewReaderStreamSize(r, DefaultStreamBufferSize)
}

// NewReaderStreamSize creates a ReaderStream with specified buffer size
// and starts reading.
func NewReaderStreamSize(r io.Reader, size int) *ReaderStream {
	if size < FrameSize*2 {
		size = FrameSize * 2
	}
	s := &ReaderStream{reader: r, size: size}
	s.cond = sync.NewCond(&s.lock)
	go s.readLoop()
	return s
}

func (s *ReaderStream) readLoop() {
	buf := make([]byte, 64)
	for {
		n, err := s.reader.Read(buf)
		s.lock.Lock()
		if n > 0 && s.err == nil {
			s.data = append(s.data, buf[:n]...)
			if over := len(s.data) - s.size; over > 0 {
				s.data = s.data[over:]
				s.dropped += uint64(over)
			}
		}
		if err != nil && s.err == nil {
			s.err = err
		}
		stop := s.err != nil
		s.cond.Broadcast()
		s.lock.Unlock()
		if stop {
			return
		}
	}
}

// Available implements ByteStream.
func (s *ReaderStream) Available() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return len(s.data)
}

// Peek implements ByteStream.
func (s *ReaderStream) Peek() (byte, error) {
	return s.PeekAt(0)
}

// PeekAt implements Lookahead.
func (s *ReaderStream) PeekAt(offset int) (byte, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if offset < len(s.data) {
		return s.data[offset], nil
	}
	return 0, s.noDataErr()
}

// ReadByte implements ByteStream.
func (s *ReaderStream) ReadByte() (byte, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if len(s.data) == 0 {
		return 0, s.noDataErr()
	}
	b := s.data[0]
	s.data = s.data[1:]
	return b, nil
}

// ReadExact implements ByteStream.
func (s *ReaderStream) ReadExact(n int) ([]byte, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	for len(s.data) < n && s.err == nil {
		s.cond.Wait()
	}
	if len(s.data) < n {
		return nil, s.err
	}
	out := make([]byte, n)
	copy(out, s.data)
	s.data = s.data[n:]
	return out, nil
}

// Err implements Terminator.
func (s *ReaderStream) Err() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.err
}

// Dropped returns the number of bytes dropped due to buffer overflow.
func (s *ReaderStream) Dropped() uint64 {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.dropped
}

// Close stops the stream. Buffered bytes are discarded and the wrapped
// reader is closed if it implements io.Closer.
func (s *ReaderStream) Close() error {
	s.lock.Lock()
	if s.err == nil {
		s.err = ErrClosed
	}
	s.data = nil
	s.cond.Broadcast()
	s.lock.Unlock()
	if closer, ok := s.reader.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func (s *ReaderStream) noDataErr() error {
	if s.err != nil {
		return s.err
	}
	return ErrNoData
}

// waitAvailable blocks until at least n bytes are buffered, polling with
// the interval. It aborts on context cancellation and on stream termination.
func waitAvailable(ctx context.Context, s ByteStream, n int, interval time.Duration) error {
	for s.Available() < n {
		if t, ok := s.(Terminator); ok {
			if err := t.Err(); err != nil {
				return err
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
	return ctx.Err()
}
