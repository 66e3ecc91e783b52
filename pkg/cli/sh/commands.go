package sh

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/dbus.go/pkg/dbus"
	"github.com/robotalks/dbus.go/pkg/serial"
)

// Cmd is a shell command producing a printable result.
type Cmd struct {
	Name    string
	Aliases []string
	Help    string
	// NoSession allows the command to run without an open session.
	NoSession bool
	Func      func(s *Shell, args []string) (interface{}, error)
}

func (cmd *Cmd) ishellCmd() *ishell.Cmd {
	return &ishell.Cmd{
		Name:    cmd.Name,
		Aliases: cmd.Aliases,
		Help:    cmd.Help,
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			result, err := s.Exec(cmd, c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			if result != nil {
				s.Print(c, result)
			}
		},
	}
}

// Exec runs cmd with args.
func (s *Shell) Exec(cmd *Cmd, args []string) (interface{}, error) {
	if !cmd.NoSession && s.Session == nil {
		return nil, fmt.Errorf("no source opened")
	}
	return cmd.Func(s, args)
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*Cmd) {
	commands = append(commands, cmds...)
}

// StateResult is printed by the state command.
type StateResult struct {
	Seq          uint64    `json:"seq"`
	Axes         [4]uint16 `json:"axes"`
	S1           string    `json:"s1"`
	S2           string    `json:"s2"`
	Pointer      [3]int16  `json:"pointer"`
	PointerLeft  bool      `json:"pointer_left"`
	PointerRight bool      `json:"pointer_right"`
	Buttons      uint8     `json:"buttons"`
}

func (r *StateResult) String() string {
	return fmt.Sprintf("#%d axes=%v S1=%s S2=%s pointer=%v L=%v R=%v buttons=%08b",
		r.Seq, r.Axes, r.S1, r.S2, r.Pointer, r.PointerLeft, r.PointerRight, r.Buttons)
}

// ValueResult is a named value.
type ValueResult struct {
	Name  string      `json:"name"`
	Value interface{} `json:"value"`
}

func (r *ValueResult) String() string {
	if f, ok := r.Value.(float64); ok {
		return fmt.Sprintf("%s %.4f", r.Name, f)
	}
	return fmt.Sprintf("%s %v", r.Name, r.Value)
}

// PointerResult is printed by the pointer command.
type PointerResult struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Z     float64 `json:"z"`
	Left  bool    `json:"left"`
	Right bool    `json:"right"`
}

func (r *PointerResult) String() string {
	return fmt.Sprintf("x=%.4f y=%.4f z=%.4f left=%v right=%v", r.X, r.Y, r.Z, r.Left, r.Right)
}

// StatsResult is printed by the stats command.
type StatsResult struct {
	State   string `json:"state"`
	Seq     uint64 `json:"seq"`
	Dropped uint64 `json:"dropped"`
	dbus.Stats
}

func (r *StatsResult) String() string {
	return fmt.Sprintf("%s seq=%d frames=%d rejected=%d syncs=%d discarded=%d dropped=%d",
		r.State, r.Seq, r.Frames, r.Rejected, r.Syncs, r.Discarded, r.Dropped)
}

// WiringResult is printed by the wiring command.
type WiringResult map[string]dbus.AxisRoute

func (r WiringResult) String() string {
	lines := make([]string, 0, len(r))
	for ch := dbus.LeftX; ch <= dbus.RightY; ch++ {
		route := r[ch.String()]
		line := fmt.Sprintf("%-8s slot %d", ch, route.Slot)
		if route.Invert {
			line += " inverted"
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func parseIndex(args []string, usage string) (int, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("usage: %s", usage)
	}
	return strconv.Atoi(args[0])
}

var (
	// OpenCmd opens a source.
	OpenCmd = Cmd{
		Name:      "open",
		Aliases:   []string{"o"},
		Help:      "sim | replay FILE | DEVICE",
		NoSession: true,
		Func: func(s *Shell, args []string) (interface{}, error) {
			conf := *s.Config
			conf.Simulate, conf.Replay = false, ""
			switch {
			case len(args) == 1 && args[0] == "sim":
				conf.Simulate = true
			case len(args) == 2 && args[0] == "replay":
				conf.Replay = args[1]
			case len(args) == 1:
				conf.Serial.Device = args[0]
			case len(args) != 0:
				return nil, fmt.Errorf("usage: open sim | replay FILE | DEVICE")
			}
			return nil, s.Open(&conf)
		},
	}

	// CloseCmd closes the current source.
	CloseCmd = Cmd{
		Name:      "close",
		NoSession: true,
		Func: func(s *Shell, args []string) (interface{}, error) {
			s.Close()
			return nil, nil
		},
	}

	// PortsCmd lists serial ports.
	PortsCmd = Cmd{
		Name:      "ports",
		Aliases:   []string{"list", "l"},
		NoSession: true,
		Func: func(s *Shell, args []string) (interface{}, error) {
			ports, err := serial.Ports()
			if err != nil {
				return nil, err
			}
			if ports == nil {
				ports = []string{}
			}
			return strings.Join(ports, "\n"), nil
		},
	}

	// WaitCmd waits until frames are received.
	WaitCmd = Cmd{
		Name: "wait",
		Help: "[FRAMES]",
		Func: func(s *Shell, args []string) (interface{}, error) {
			frames := 1
			if len(args) > 0 {
				n, err := strconv.Atoi(args[0])
				if err != nil {
					return nil, err
				}
				frames = n
			}
			store := s.Session.Store
			target := store.Seq() + uint64(frames)
			timeout := time.After(time.Second + time.Duration(frames)*dbus.DefaultFrameInterval)
			for store.Seq() < target {
				select {
				case <-timeout:
					return nil, fmt.Errorf("timeout, %d frames received", frames-int(target-store.Seq()))
				case <-time.After(time.Millisecond):
				}
			}
			return nil, nil
		},
	}

	// StateCmd prints the raw state.
	StateCmd = Cmd{
		Name:    "state",
		Aliases: []string{"s"},
		Func: func(s *Shell, args []string) (interface{}, error) {
			snap := s.Session.Store.Snapshot()
			return &StateResult{
				Seq:          snap.Seq,
				Axes:         snap.Axes,
				S1:           snap.S1.String(),
				S2:           snap.S2.String(),
				Pointer:      [3]int16{snap.PointerX, snap.PointerY, snap.PointerZ},
				PointerLeft:  snap.PointerLeft,
				PointerRight: snap.PointerRight,
				Buttons:      uint8(snap.Buttons),
			}, nil
		},
	}

	// AxisCmd prints the normalized value of a channel.
	AxisCmd = Cmd{
		Name:    "axis",
		Aliases: []string{"a"},
		Help:    "CHANNEL",
		Func: func(s *Shell, args []string) (interface{}, error) {
			if len(args) != 1 {
				return nil, fmt.Errorf("usage: axis CHANNEL")
			}
			ch, err := dbus.ParseChannel(args[0])
			if err != nil {
				return nil, err
			}
			return &ValueResult{Name: ch.String(), Value: s.Session.Store.Value(ch)}, nil
		},
	}

	// ButtonCmd prints a keyboard button.
	ButtonCmd = Cmd{
		Name:    "button",
		Aliases: []string{"b"},
		Help:    "0-7",
		Func: func(s *Shell, args []string) (interface{}, error) {
			index, err := parseIndex(args, "button 0-7")
			if err != nil {
				return nil, err
			}
			if index < 0 || index > 7 {
				return nil, fmt.Errorf("button %d out of range", index)
			}
			return &ValueResult{
				Name:  (dbus.KeyW + dbus.Channel(index)).String(),
				Value: s.Session.Store.Button(index),
			}, nil
		},
	}

	// SwitchCmd prints a switch.
	SwitchCmd = Cmd{
		Name:    "switch",
		Aliases: []string{"sw"},
		Help:    "1|2",
		Func: func(s *Shell, args []string) (interface{}, error) {
			id, err := parseIndex(args, "switch 1|2")
			if err != nil {
				return nil, err
			}
			if id != 1 && id != 2 {
				return nil, fmt.Errorf("switch %d out of range", id)
			}
			return &ValueResult{
				Name:  "S" + strconv.Itoa(id),
				Value: s.Session.Store.Switch(id).String(),
			}, nil
		},
	}

	// PointerCmd prints the pointer.
	PointerCmd = Cmd{
		Name:    "pointer",
		Aliases: []string{"p"},
		Func: func(s *Shell, args []string) (interface{}, error) {
			store := s.Session.Store
			return &PointerResult{
				X:     store.PointerAxis(dbus.PointerX),
				Y:     store.PointerAxis(dbus.PointerY),
				Z:     store.PointerAxis(dbus.PointerZ),
				Left:  store.PointerButton(0),
				Right: store.PointerButton(1),
			}, nil
		},
	}

	// StatsCmd prints receiver counters.
	StatsCmd = Cmd{
		Name: "stats",
		Func: func(s *Shell, args []string) (interface{}, error) {
			sess := s.Session
			return &StatsResult{
				State:   sess.Receiver.State().String(),
				Seq:     sess.Store.Seq(),
				Dropped: sess.Stream.Dropped(),
				Stats:   sess.Receiver.Stats(),
			}, nil
		},
	}

	// WiringCmd prints or changes the wiring.
	WiringCmd = Cmd{
		Name:    "wiring",
		Aliases: []string{"w"},
		Help:    "[CHANNEL SLOT [invert]]",
		Func: func(s *Shell, args []string) (interface{}, error) {
			store := s.Session.Store
			if len(args) > 0 {
				if len(args) < 2 || len(args) > 3 || (len(args) == 3 && args[2] != "invert") {
					return nil, fmt.Errorf("usage: wiring CHANNEL SLOT [invert]")
				}
				ch, err := dbus.ParseChannel(args[0])
				if err != nil {
					return nil, err
				}
				if !ch.IsStick() {
					return nil, fmt.Errorf("%s is not a stick channel", ch)
				}
				slot, err := strconv.Atoi(args[1])
				if err != nil {
					return nil, err
				}
				wiring := store.Wiring()
				wiring[ch] = dbus.AxisRoute{Slot: slot, Invert: len(args) == 3}
				if err := store.SetWiring(wiring); err != nil {
					return nil, err
				}
			}
			wiring := store.Wiring()
			result := make(WiringResult, len(wiring))
			for ch, route := range wiring {
				result[dbus.Channel(ch).String()] = route
			}
			return result, nil
		},
	}

	commands = []*Cmd{
		&OpenCmd,
		&CloseCmd,
		&PortsCmd,
		&WaitCmd,
		&StateCmd,
		&AxisCmd,
		&ButtonCmd,
		&SwitchCmd,
		&PointerCmd,
		&StatsCmd,
		&WiringCmd,
	}
)
