package msgs

import (
	"testing"
	"time"

	"github.com/golang/protobuf/proto"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/dbus.go/pkg/dbus"
)

func TestFromSnapshot(t *testing.T) {
	state := dbus.State{
		Axes:         [4]uint16{1024, 1684, 364, 1354},
		S1:           dbus.SwitchDown,
		S2:           dbus.SwitchUp,
		PointerX:     -120,
		PointerY:     32767,
		PointerRight: true,
		Buttons:      dbus.Buttons(0).Set(2, true),
	}
	snap := &dbus.Snapshot{State: state, Seq: 42, Time: time.Unix(1, 5)}
	m := FromSnapshot(snap, dbus.DefaultWiring, "session-1")
	require.Equal(t, uint64(42), m.Seq)
	require.Equal(t, int64(1000000005), m.Time)
	require.Len(t, m.Values, int(dbus.NumChannels))
	// LeftX, LeftY, RightX, RightY are wired to slots 2, 3, 0, 1.
	require.InDelta(t, -0.5, m.Values[dbus.LeftX], 1e-9)
	require.InDelta(t, 0.25, m.Values[dbus.LeftY], 1e-9)
	require.InDelta(t, 0.0, m.Values[dbus.RightX], 1e-9)
	require.InDelta(t, 0.5, m.Values[dbus.RightY], 1e-9)
	require.Equal(t, 2.0, m.Values[dbus.S1])
	require.Equal(t, 1.0, m.Values[dbus.MouseRight])

	data, err := proto.Marshal(m)
	require.NoError(t, err)
	var decoded RCState
	require.NoError(t, proto.Unmarshal(data, &decoded))
	require.Equal(t, state, decoded.State())
	require.Equal(t, "session-1", decoded.Session)
	require.Equal(t, m.Values, decoded.Values)
}
