package dbus

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/golang/glog"
)

// ReceiverState is the state of the ingestion loop.
type ReceiverState int32

// Receiver states.
const (
	StateUnsynced ReceiverState = iota
	StateSyncing
	StateStreaming
)

// String implements fmt.Stringer.
func (s ReceiverState) String() string {
	switch s {
	case StateSyncing:
		return "SYNCING"
	case StateStreaming:
		return "STREAMING"
	}
	return "UNSYNCED"
}

// StateNotifier is called when the receiver state changes.
type StateNotifier interface {
	StateChanged(context.Context, ReceiverState)
}

// StateChangedFunc is func type of StateNotifier.
type StateChangedFunc func(context.Context, ReceiverState)

// StateChanged implements StateNotifier.
func (f StateChangedFunc) StateChanged(ctx context.Context, state ReceiverState) {
	f(ctx, state)
}

// Stats are the counters of a Receiver.
type Stats struct {
	Frames    uint64
	Rejected  uint64
	Syncs     uint64
	Discarded uint64
}

// Receiver is the ingestion loop: it owns the ByteStream, synchronizes,
// then decodes frames forever and publishes them to the Store.
type Receiver struct {
	stats Stats // first for 64-bit atomic alignment on 32-bit platforms

	Stream       ByteStream
	Store        *Store
	Notifier     StateNotifier
	PollInterval time.Duration
	// SyncTimeout and SyncMaxDiscard bound each synchronization,
	// see Synchronizer.
	SyncTimeout    time.Duration
	SyncMaxDiscard int
	// FrameCheck enables Synchronizer.FrameCheck.
	FrameCheck bool
	// Revalidate checks the switch fields of every frame; an invalid frame
	// is dropped and the receiver goes back to synchronization.
	Revalidate bool

	state int32
}

// NewReceiver creates a Receiver publishing into store.
func NewReceiver(s ByteStream, store *Store) *Receiver {
	return &Receiver{
		Stream:       s,
		Store:        store,
		PollInterval: DefaultPollInterval,
		FrameCheck:   true,
	}
}

// State gets the current state.
func (r *Receiver) State() ReceiverState {
	return ReceiverState(atomic.LoadInt32(&r.state))
}

// Stats returns a copy of the counters.
func (r *Receiver) Stats() Stats {
	return Stats{
		Frames:    atomic.LoadUint64(&r.stats.Frames),
		Rejected:  atomic.LoadUint64(&r.stats.Rejected),
		Syncs:     atomic.LoadUint64(&r.stats.Syncs),
		Discarded: atomic.LoadUint64(&r.stats.Discarded),
	}
}

// Name implements framework.Named.
func (r *Receiver) Name() string {
	return "dbus-receiver"
}

// Run implements Runnable. It only returns on cancellation, stream
// termination, or when synchronization gives up.
func (r *Receiver) Run(ctx context.Context) error {
	interval := r.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	syncer := &Synchronizer{
		Stream:       r.Stream,
		PollInterval: interval,
		Timeout:      r.SyncTimeout,
		MaxDiscard:   r.SyncMaxDiscard,
		FrameCheck:   r.FrameCheck,
	}
	for {
		r.setState(ctx, StateSyncing)
		discarded, err := syncer.Sync(ctx)
		atomic.AddUint64(&r.stats.Discarded, uint64(discarded))
		if err != nil {
			r.setState(ctx, StateUnsynced)
			return err
		}
		atomic.AddUint64(&r.stats.Syncs, 1)
		if discarded > 0 {
			glog.V(2).Infof("synchronized after discarding %d bytes", discarded)
		}
		r.setState(ctx, StateStreaming)
		if err = r.stream(ctx, interval); err != nil {
			r.setState(ctx, StateUnsynced)
			return err
		}
	}
}

// stream decodes frames until an error, or returns nil when
// revalidation requires resynchronization.
func (r *Receiver) stream(ctx context.Context, interval time.Duration) error {
	for {
		if err := waitAvailable(ctx, r.Stream, FrameSize, interval); err != nil {
			return err
		}
		data, err := r.Stream.ReadExact(FrameSize)
		if err != nil {
			return err
		}
		var frame Frame
		copy(frame[:], data)
		if r.Revalidate && !frame.Valid() {
			atomic.AddUint64(&r.stats.Rejected, 1)
			glog.Warningf("invalid switch fields in frame % x, resync", frame[:])
			return nil
		}
		r.Store.Publish(Decode(frame))
		atomic.AddUint64(&r.stats.Frames, 1)
	}
}

func (r *Receiver) setState(ctx context.Context, state ReceiverState) {
	if ReceiverState(atomic.SwapInt32(&r.state, int32(state))) == state {
		return
	}
	glog.V(2).Infof("receiver %s", state)
	if n := r.Notifier; n != nil {
		n.StateChanged(ctx, state)
	}
}
