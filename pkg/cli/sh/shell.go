package sh

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/dbus.go/pkg/config"
	"github.com/robotalks/dbus.go/pkg/dbus"
	fx "github.com/robotalks/dbus.go/pkg/framework"
)

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool
	AutoOpen    bool

	Shell   *ishell.Shell
	Config  *config.Config
	Session *Session
}

// Session is a receiver running in-process.
type Session struct {
	Name     string
	Store    *dbus.Store
	Receiver *dbus.Receiver
	Stream   *dbus.ReaderStream

	runner *fx.Runner
}

const (
	shellKey     = "$shell"
	closedPrompt = "[none] > "
)

var (
	evalOnly   bool
	outputJSON bool
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
}

// New creates a new shell.
func New(conf *config.Config) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,

		Shell:  ishell.New(),
		Config: conf,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(closedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd.ishellCmd())
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// WithAutoOpen sets AutoOpen.
func (s *Shell) WithAutoOpen(en bool) *Shell {
	s.AutoOpen = en
	return s
}

// Open starts a receiver on the source selected by conf, replacing the
// current session.
func (s *Shell) Open(conf *config.Config) error {
	store := dbus.NewStore()
	wiring, err := conf.Wiring.Resolve()
	if err != nil {
		return err
	}
	if err := store.SetWiring(wiring); err != nil {
		return err
	}
	receiver, stream, err := conf.NewReceiver(store)
	if err != nil {
		return err
	}
	sess := &Session{
		Name:     sourceName(conf),
		Store:    store,
		Receiver: receiver,
		Stream:   stream,
		runner:   fx.NewRunnerWith(context.Background()),
	}
	s.Close()
	s.Session = sess
	sess.runner.Go(receiver)
	s.setPrompt(fmt.Sprintf("%s > ", sess.Name))
	return nil
}

func (s *Shell) setPrompt(prompt string) {
	if s.Shell != nil {
		s.Shell.SetPrompt(prompt)
	}
}

// Close stops the current session.
func (s *Shell) Close() {
	if sess := s.Session; sess != nil {
		if sess.runner != nil {
			sess.runner.Stop()
			sess.Stream.Close()
			sess.runner.Wait()
		}
		s.Session = nil
		s.setPrompt(closedPrompt)
	}
}

func sourceName(conf *config.Config) string {
	switch {
	case conf.Simulate:
		return "sim"
	case conf.Replay != "":
		return conf.Replay
	default:
		return conf.Serial.Device
	}
}

// Print writes the result of a command.
func (s *Shell) Print(c *ishell.Context, result interface{}) {
	if s.OutputJSON {
		out, err := json.Marshal(result)
		if err != nil {
			c.Err(err)
			return
		}
		c.Println(string(out))
		return
	}
	c.Println(result)
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if s.AutoOpen {
		if err := s.Open(s.Config); err != nil {
			log.Fatalf("open %q failed: %v", sourceName(s.Config), err)
		}
		defer s.Close()
	}

	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	conf, err := config.NewConfig()
	if err != nil {
		log.Fatalln(err)
	}
	New(conf).WithAutoOpen(true).Run(flag.Args()...)
}
