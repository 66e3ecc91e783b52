package dbus

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type receiverTestCtx struct {
	t        *testing.T
	receiver *Receiver
	store    *Store
	states   []ReceiverState
	lock     sync.Mutex
}

func newReceiverTestCtx(t *testing.T, r io.Reader) *receiverTestCtx {
	tctx := &receiverTestCtx{t: t, store: NewStore()}
	tctx.receiver = NewReceiver(NewReaderStream(r), tctx.store)
	tctx.receiver.Notifier = StateChangedFunc(func(ctx context.Context, state ReceiverState) {
		tctx.lock.Lock()
		tctx.states = append(tctx.states, state)
		tctx.lock.Unlock()
	})
	return tctx
}

func (c *receiverTestCtx) expectStates(expected ...ReceiverState) {
	c.lock.Lock()
	defer c.lock.Unlock()
	require.Equal(c.t, expected, c.states)
}

func TestReceiverEndToEnd(t *testing.T) {
	frame := State{
		Axes:     [4]uint16{AxisCenter, AxisCenter, AxisCenter, AxisCenter},
		S1:       SwitchUp,
		S2:       SwitchMiddle,
		PointerX: 100,
		Buttons:  Buttons(0).Set(3, true),
	}.Encode()
	input := append([]byte{0x01, 0x02, 0x03}, frame[:]...)

	tctx := newReceiverTestCtx(t, bytes.NewReader(input))
	err := tctx.receiver.Run(context.Background())
	require.Equal(t, io.EOF, err)

	stats := tctx.receiver.Stats()
	require.Equal(t, Stats{Frames: 1, Syncs: 1, Discarded: 3}, stats)
	tctx.expectStates(StateSyncing, StateStreaming, StateUnsynced)

	s := tctx.store
	require.Equal(t, uint64(1), s.Seq())
	require.Equal(t, 0.0, s.Axis(LeftX))
	require.InDelta(t, 0.00305, s.PointerAxis(PointerX), 1e-5)
	require.True(t, s.Button(3))
	require.Equal(t, SwitchUp, s.Switch(1))
	require.Equal(t, SwitchMiddle, s.Switch(2))
}

func TestReceiverRevalidate(t *testing.T) {
	valid := centeredFrame()
	invalid := State{Axes: [4]uint16{AxisCenter, 1, 2, 3}}.Encode()
	input := bytes.Join([][]byte{valid[:], invalid[:], valid[:], valid[:]}, nil)

	tctx := newReceiverTestCtx(t, bytes.NewReader(input))
	tctx.receiver.Revalidate = true
	require.Equal(t, io.EOF, tctx.receiver.Run(context.Background()))
	require.Equal(t, Stats{Frames: 3, Rejected: 1, Syncs: 2}, tctx.receiver.Stats())
	tctx.expectStates(StateSyncing, StateStreaming, StateSyncing, StateStreaming, StateUnsynced)
}

func TestReceiverWithoutRevalidatePublishesEverything(t *testing.T) {
	valid := centeredFrame()
	invalid := State{Axes: [4]uint16{AxisCenter, 1, 2, 3}}.Encode()
	input := bytes.Join([][]byte{valid[:], invalid[:], valid[:]}, nil)

	tctx := newReceiverTestCtx(t, bytes.NewReader(input))
	require.Equal(t, io.EOF, tctx.receiver.Run(context.Background()))
	require.Equal(t, Stats{Frames: 3, Syncs: 1}, tctx.receiver.Stats())
}

func TestReceiverSimulator(t *testing.T) {
	sim := NewSimulator(0)
	sim.Interval = time.Millisecond
	tctx := newReceiverTestCtx(t, sim)
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- tctx.receiver.Run(ctx)
	}()

	require.Eventually(t, func() bool {
		return tctx.store.Seq() >= 5
	}, 2*time.Second, time.Millisecond)
	snap := tctx.store.Snapshot()
	require.Equal(t, sim.State(int(snap.Seq)-1), snap.State)
	require.Equal(t, StateStreaming, tctx.receiver.State())

	cancel()
	select {
	case err := <-errCh:
		require.Equal(t, context.Canceled, err)
	case <-time.After(time.Second):
		t.Fatal("receiver not stopped")
	}
	require.Equal(t, StateUnsynced, tctx.receiver.State())
	sim.Close()
}

func TestReceiverSyncFailed(t *testing.T) {
	tctx := newReceiverTestCtx(t, bytes.NewReader(make([]byte, 64)))
	tctx.receiver.SyncMaxDiscard = 20
	err := tctx.receiver.Run(context.Background())
	require.ErrorIs(t, err, ErrSyncFailed)
	require.Equal(t, uint64(21), tctx.receiver.Stats().Discarded)
	tctx.expectStates(StateSyncing, StateUnsynced)
}

func TestReceiverStateString(t *testing.T) {
	require.Equal(t, "UNSYNCED", StateUnsynced.String())
	require.Equal(t, "SYNCING", StateSyncing.String())
	require.Equal(t, "STREAMING", StateStreaming.String())
}
