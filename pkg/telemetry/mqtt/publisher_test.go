package mqtt

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/golang/protobuf/proto"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/dbus.go/pkg/dbus"
	"github.com/robotalks/dbus.go/pkg/dbus/msgs"
)

type testControlContext struct {
	iteration uint64
}

func (c *testControlContext) Context() context.Context { return context.Background() }
func (c *testControlContext) Time() time.Time          { return time.Now() }
func (c *testControlContext) Iteration() uint64        { return c.iteration }

func TestTopics(t *testing.T) {
	require.Equal(t, "rc/r1/state", StateTopic("r1"))
	require.Equal(t, "rc/r1/meta", MetaTopic("r1"))
	id, ok := receiverID("rc/r1/state", "state")
	require.True(t, ok)
	require.Equal(t, "r1", id)
	_, ok = receiverID("rc/r1/meta", "state")
	require.False(t, ok)
}

func TestPublisherPublishesOnSeqChange(t *testing.T) {
	q, fc := newFakeQueue("robo/")
	store := dbus.NewStore()
	p := NewPublisherWith(q, "r1", store)
	cc := &testControlContext{}

	require.NoError(t, p.Control(cc))
	require.Empty(t, fc.messages())

	store.Publish(dbus.State{S1: dbus.SwitchUp, S2: dbus.SwitchDown, PointerY: -5})
	require.NoError(t, p.Control(cc))
	require.NoError(t, p.Control(cc))
	msgList := fc.messages()
	require.Len(t, msgList, 1)
	require.Equal(t, "robo/rc/r1/state", msgList[0].topic)
	require.False(t, msgList[0].retain)

	var m msgs.RCState
	require.NoError(t, proto.Unmarshal(msgList[0].payload, &m))
	require.Equal(t, uint64(1), m.Seq)
	require.Equal(t, p.Session, m.Session)
	require.Equal(t, int16(-5), m.State().PointerY)
	require.Equal(t, dbus.SwitchDown, m.State().S2)
	require.Equal(t, uint64(1), p.Published())

	fc.connected = false
	store.Publish(dbus.State{})
	require.NoError(t, p.Control(cc))
	require.Len(t, fc.messages(), 1)
}

func TestPublisherMeta(t *testing.T) {
	q, fc := newFakeQueue("")
	p := NewPublisherWith(q, "r1", dbus.NewStore())
	require.NotEmpty(t, p.Session)

	q.OnConnect(q)
	msgList := fc.messages()
	require.Len(t, msgList, 1)
	require.Equal(t, "rc/r1/meta", msgList[0].topic)
	require.True(t, msgList[0].retain)
	require.Equal(t, byte(1), msgList[0].qos)

	var meta Meta
	require.NoError(t, json.Unmarshal(msgList[0].payload, &meta))
	require.Equal(t, "r1", meta.ID)
	require.Equal(t, p.Session, meta.Session)
	require.Equal(t, dbus.DefaultWiring, meta.Wiring)
	require.Len(t, meta.Channels, int(dbus.NumChannels))
	require.Equal(t, "LEFT_X", meta.Channels[0])
}

func TestSubscribeStates(t *testing.T) {
	q, fc := newFakeQueue("")
	var ids []string
	var seqs []uint64
	SubscribeStates(q, "", func(id string, state *msgs.RCState) {
		ids = append(ids, id)
		seqs = append(seqs, state.Seq)
	})
	payload, err := proto.Marshal(&msgs.RCState{Seq: 7})
	require.NoError(t, err)
	q.dispatch(fc, &fakeMessage{topic: "rc/r2/state", payload: payload})
	q.dispatch(fc, &fakeMessage{topic: "rc/r3/state", payload: []byte{0xff}})
	require.Equal(t, []string{"r2"}, ids)
	require.Equal(t, []uint64{7}, seqs)
}

func TestDiscover(t *testing.T) {
	q, fc := newFakeQueue("")
	resultCh := make(chan []Meta, 1)
	go func() {
		res, err := Discover(context.Background(), q, 100*time.Millisecond)
		require.NoError(t, err)
		resultCh <- res
	}()
	require.Eventually(t, func() bool {
		return len(fc.subscribed()) == 1
	}, time.Second, time.Millisecond)
	data, err := json.Marshal(&Meta{ID: "r1"})
	require.NoError(t, err)
	q.dispatch(fc, &fakeMessage{topic: "rc/r1/meta", payload: data})
	q.dispatch(fc, &fakeMessage{topic: "rc/r2/meta", payload: nil})

	res := <-resultCh
	require.Len(t, res, 1)
	require.Equal(t, "r1", res[0].ID)
}
