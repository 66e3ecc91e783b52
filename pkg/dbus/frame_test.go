package dbus

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeLayout(t *testing.T) {
	testCases := []struct {
		name   string
		frame  Frame
		expect State
	}{
		{
			name:   "zero",
			expect: State{},
		},
		{
			name:  "all bits set",
			frame: Frame{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff},
			expect: State{
				Axes:         [4]uint16{2047, 2047, 2047, 2047},
				S1:           SwitchMiddle,
				S2:           SwitchMiddle,
				PointerX:     -1,
				PointerY:     -1,
				PointerZ:     -1,
				PointerLeft:  true,
				PointerRight: true,
				Buttons:      0xff,
			},
		},
		{
			name: "centered sticks",
			// 1024 = 0b100_0000_0000 for all four axes, S1=UP S2=DOWN.
			frame: Frame{0x00, 0x04, 0x20, 0x00, 0x01, 0x08 | 0x20 | 0x40},
			expect: State{
				Axes: [4]uint16{1024, 1024, 1024, 1024},
				S1:   SwitchUp,
				S2:   SwitchDown,
			},
		},
		{
			name:  "pointer little endian",
			frame: Frame{6: 0x64, 7: 0x00, 8: 0x9c, 9: 0xff, 10: 0x00, 11: 0x80, 12: 2, 13: 0, 14: 0x81},
			expect: State{
				PointerX:    100,
				PointerY:    -100,
				PointerZ:    -32768,
				PointerLeft: true,
				Buttons:     0x81,
			},
		},
		{
			name:   "single axis bits across bytes",
			frame:  Frame{2: 0xc0, 3: 0xff, 4: 0x01},
			expect: State{Axes: [4]uint16{0, 0, 2047, 0}},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expect, Decode(tc.frame))
		})
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	axisValues := []uint16{0, 1, 7, 8, 255, 256, 1023, 1024, 1025, 1320, 2046, 2047}
	rnd := rand.New(rand.NewSource(1))
	for _, a0 := range axisValues {
		for _, a3 := range axisValues {
			state := State{
				Axes:         [4]uint16{a0, uint16(rnd.Intn(2048)), uint16(rnd.Intn(2048)), a3},
				S1:           Switch(rnd.Intn(4)),
				S2:           Switch(rnd.Intn(4)),
				PointerX:     int16(rnd.Intn(65536) - 32768),
				PointerY:     int16(rnd.Intn(65536) - 32768),
				PointerZ:     int16(rnd.Intn(65536) - 32768),
				PointerLeft:  rnd.Intn(2) == 1,
				PointerRight: rnd.Intn(2) == 1,
				Buttons:      Buttons(rnd.Intn(256)),
			}
			frame := state.Encode()
			require.Equal(t, state, Decode(frame))
			require.Equal(t, state, DecodeBytes(frame[:]))
		}
	}
}

func TestDecodeMasksGarbage(t *testing.T) {
	rnd := rand.New(rand.NewSource(2))
	for i := 0; i < 1000; i++ {
		var f Frame
		rnd.Read(f[:])
		s := Decode(f)
		for n, v := range s.Axes {
			require.Truef(t, v < 2048, "axis %d = %d", n, v)
		}
		require.True(t, s.S1 < 4)
		require.True(t, s.S2 < 4)
	}
}

func TestButtons(t *testing.T) {
	b := Buttons(1 << 5)
	var pressed []int
	for i := 0; i < 8; i++ {
		if b.Pressed(i) {
			pressed = append(pressed, i)
		}
	}
	require.Equal(t, []int{5}, pressed)
	require.False(t, b.Pressed(-1))
	require.False(t, b.Pressed(8))

	b = b.Set(0, true).Set(5, false)
	require.Equal(t, Buttons(1), b)
	require.Equal(t, b, b.Set(9, true))
}

func TestFrameValid(t *testing.T) {
	for s1 := Switch(0); s1 < 4; s1++ {
		for s2 := Switch(0); s2 < 4; s2++ {
			f := State{S1: s1, S2: s2}.Encode()
			require.Equal(t, s1.Valid() && s2.Valid(), f.Valid())
		}
	}
}

func TestSwitchString(t *testing.T) {
	require.Equal(t, "UP", SwitchUp.String())
	require.Equal(t, "DOWN", SwitchDown.String())
	require.Equal(t, "MID", SwitchMiddle.String())
	require.Equal(t, "INVALID", SwitchInvalid.String())
}
