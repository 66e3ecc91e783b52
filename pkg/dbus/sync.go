package dbus

import (
	"context"
	"time"

	"github.com/golang/glog"
)

// TailSkip is the number of bytes skipped after the byte carrying the
// S1 field is detected, landing on the start of the next frame.
const TailSkip = 13

// switchByteOffset is the offset of the byte carrying both switch fields.
const switchByteOffset = 5

// DefaultPollInterval is the wait between checks for more bytes.
const DefaultPollInterval = time.Millisecond

// Synchronizer aligns a ByteStream to a frame boundary.
//
// The wire format carries no delimiter, so alignment is guessed from the
// switch fields which are only valid within {1,2,3}:
//   - the current byte is accepted as frame start if bits 4-5 are valid;
//   - otherwise it is discarded, and if the next byte has valid bits 6-7
//     it is taken as the switch byte: TailSkip more bytes are discarded.
//
// With FrameCheck, a position rejected by the first rule is still accepted
// when the second rule does not apply and a whole buffered frame has a
// valid switch byte.
//
// This is a heuristic and may lock onto a wrong boundary.
type Synchronizer struct {
	Stream       ByteStream
	PollInterval time.Duration
	// Timeout gives up with ErrSyncFailed if non-zero.
	Timeout time.Duration
	// MaxDiscard gives up with ErrSyncFailed after discarding more bytes
	// than this if non-zero.
	MaxDiscard int
	// FrameCheck additionally accepts the current position when a whole
	// frame is buffered and its switch byte validates. Requires Lookahead.
	FrameCheck bool
}

// NewSynchronizer creates a Synchronizer with defaults.
func NewSynchronizer(s ByteStream) *Synchronizer {
	return &Synchronizer{Stream: s, PollInterval: DefaultPollInterval}
}

// Sync consumes bytes until the stream is aligned. It returns the number
// of bytes discarded.
func (s *Synchronizer) Sync(ctx context.Context) (discarded int, err error) {
	interval := s.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	start := time.Now()
	parent := ctx
	if s.Timeout > 0 {
		var cancel func()
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	giveUp := func(cause error) error {
		if cause == context.DeadlineExceeded && s.Timeout > 0 && parent.Err() == nil {
			return &SyncError{Discarded: discarded, Elapsed: time.Since(start)}
		}
		return cause
	}

	var b byte
	for {
		if err = waitAvailable(ctx, s.Stream, 1, interval); err != nil {
			return discarded, giveUp(err)
		}
		if b, err = s.Stream.Peek(); err != nil {
			return discarded, err
		}
		if switchA(b).Valid() {
			glog.V(4).Infof("sync: aligned after %d bytes", discarded)
			return discarded, nil
		}
		if err = waitAvailable(ctx, s.Stream, 2, interval); err != nil {
			return discarded, giveUp(err)
		}
		if s.frameAligned() {
			glog.V(4).Infof("sync: whole frame aligned after %d bytes", discarded)
			return discarded, nil
		}
		if _, err = s.Stream.ReadByte(); err != nil {
			return discarded, err
		}
		discarded++
		if next, err := s.Stream.Peek(); err == nil && switchB(next).Valid() {
			if err = waitAvailable(ctx, s.Stream, TailSkip, interval); err != nil {
				return discarded, giveUp(err)
			}
			if _, err = s.Stream.ReadExact(TailSkip); err != nil {
				return discarded, err
			}
			discarded += TailSkip
			glog.V(4).Infof("sync: frame tail skipped, %d bytes discarded", discarded)
			return discarded, nil
		}
		if s.MaxDiscard > 0 && discarded > s.MaxDiscard {
			return discarded, &SyncError{Discarded: discarded, Elapsed: time.Since(start)}
		}
	}
}

// frameAligned reports whether the current position starts a buffered
// frame whose switch byte validates. It never overrides the tail rule:
// when the next byte passes the bits 6-7 check, it returns false.
func (s *Synchronizer) frameAligned() bool {
	if !s.FrameCheck || s.Stream.Available() < FrameSize {
		return false
	}
	la, ok := s.Stream.(Lookahead)
	if !ok {
		return false
	}
	if next, err := la.PeekAt(1); err != nil || switchB(next).Valid() {
		return false
	}
	b, err := la.PeekAt(switchByteOffset)
	return err == nil && switchA(b).Valid() && switchB(b).Valid()
}
