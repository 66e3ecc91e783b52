package sh

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/dbus.go/pkg/config"
	"github.com/robotalks/dbus.go/pkg/dbus"
)

func newTestShell(t *testing.T) *Shell {
	conf := config.Builtin()
	s := &Shell{Config: &conf}
	t.Cleanup(s.Close)
	return s
}

func TestCommandsRequireSession(t *testing.T) {
	s := newTestShell(t)
	_, err := s.Exec(&StateCmd, nil)
	require.Error(t, err)
	_, err = s.Exec(&CloseCmd, nil)
	require.NoError(t, err)
}

func TestOpenSimulator(t *testing.T) {
	s := newTestShell(t)
	_, err := s.Exec(&OpenCmd, []string{"sim"})
	require.NoError(t, err)
	require.NotNil(t, s.Session)
	require.Equal(t, "sim", s.Session.Name)

	_, err = s.Exec(&WaitCmd, []string{"3"})
	require.NoError(t, err)
	require.True(t, s.Session.Store.Seq() >= 3)

	result, err := s.Exec(&StatsCmd, nil)
	require.NoError(t, err)
	stats := result.(*StatsResult)
	require.Equal(t, "STREAMING", stats.State)
	require.True(t, stats.Frames >= 3)

	_, err = s.Exec(&CloseCmd, nil)
	require.NoError(t, err)
	require.Nil(t, s.Session)
}

func TestQueryCommands(t *testing.T) {
	s := newTestShell(t)
	store := dbus.NewStore()
	s.Session = &Session{Name: "test", Store: store}
	store.Publish(dbus.State{
		Axes:         [4]uint16{1024, 1024, 1684, 1024},
		S1:           dbus.SwitchDown,
		S2:           dbus.SwitchUp,
		PointerZ:     32767,
		PointerRight: true,
		Buttons:      dbus.Buttons(0).Set(6, true),
	})

	result, err := s.Exec(&StateCmd, nil)
	require.NoError(t, err)
	state := result.(*StateResult)
	require.Equal(t, uint64(1), state.Seq)
	require.Equal(t, "DOWN", state.S1)
	require.Equal(t, uint8(0x40), state.Buttons)

	testCases := []struct {
		cmd    *Cmd
		args   []string
		expect string
	}{
		{&AxisCmd, []string{"left_x"}, "LEFT_X 0.5000"},
		{&AxisCmd, []string{"RIGHT_Y"}, "RIGHT_Y 0.0000"},
		{&AxisCmd, []string{"s1"}, "S1 2.0000"},
		{&ButtonCmd, []string{"6"}, "KEY_SHIFT true"},
		{&ButtonCmd, []string{"0"}, "KEY_W false"},
		{&SwitchCmd, []string{"2"}, "S2 UP"},
		{&PointerCmd, nil, "x=0.0000 y=0.0000 z=1.0000 left=false right=true"},
	}
	for _, tc := range testCases {
		t.Run(tc.cmd.Name, func(t *testing.T) {
			result, err := s.Exec(tc.cmd, tc.args)
			require.NoError(t, err)
			require.Equal(t, tc.expect, result.(interface{ String() string }).String())
		})
	}

	errCases := []struct {
		cmd  *Cmd
		args []string
	}{
		{&AxisCmd, nil},
		{&AxisCmd, []string{"throttle"}},
		{&ButtonCmd, []string{"8"}},
		{&ButtonCmd, []string{"x"}},
		{&SwitchCmd, []string{"3"}},
		{&WiringCmd, []string{"s1", "0"}},
		{&WiringCmd, []string{"left_x", "4"}},
		{&WiringCmd, []string{"left_x", "1", "flip"}},
	}
	for _, tc := range errCases {
		_, err := s.Exec(tc.cmd, tc.args)
		require.Error(t, err, "%s %v", tc.cmd.Name, tc.args)
	}
}

func TestWiringCommand(t *testing.T) {
	s := newTestShell(t)
	store := dbus.NewStore()
	s.Session = &Session{Name: "test", Store: store}

	result, err := s.Exec(&WiringCmd, nil)
	require.NoError(t, err)
	require.Equal(t, dbus.AxisRoute{Slot: 2}, result.(WiringResult)["LEFT_X"])

	result, err = s.Exec(&WiringCmd, []string{"left_x", "0", "invert"})
	require.NoError(t, err)
	require.Equal(t, dbus.AxisRoute{Slot: 0, Invert: true}, result.(WiringResult)["LEFT_X"])
	require.Equal(t, dbus.AxisRoute{Slot: 0, Invert: true}, store.Wiring()[dbus.LeftX])
	require.Contains(t, result.(WiringResult).String(), "LEFT_X   slot 0 inverted")
}

func TestOpenReplayMissing(t *testing.T) {
	s := newTestShell(t)
	_, err := s.Exec(&OpenCmd, []string{"replay", "/nonexistent/capture.bin"})
	require.Error(t, err)
	require.Nil(t, s.Session)
	_, err = s.Exec(&OpenCmd, []string{"a", "b", "c"})
	require.Error(t, err)
}

func TestWaitTimeout(t *testing.T) {
	s := newTestShell(t)
	s.Session = &Session{Name: "test", Store: dbus.NewStore()}
	start := time.Now()
	_, err := s.Exec(&WaitCmd, []string{"1"})
	require.Error(t, err)
	require.True(t, time.Since(start) >= time.Second)
}
