package mqtt

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/golang/glog"
	"github.com/golang/protobuf/proto"
	"github.com/google/uuid"

	"github.com/robotalks/dbus.go/pkg/dbus"
	"github.com/robotalks/dbus.go/pkg/dbus/msgs"
	fx "github.com/robotalks/dbus.go/pkg/framework"
)

// TopicRoot is the first level of all receiver topics.
const TopicRoot = "rc"

// StateTopic returns the topic for state messages of a receiver.
func StateTopic(id string) string {
	return TopicRoot + "/" + id + "/state"
}

// MetaTopic returns the retained topic describing a receiver.
func MetaTopic(id string) string {
	return TopicRoot + "/" + id + "/meta"
}

// Meta is published retained to MetaTopic while the publisher is online.
type Meta struct {
	ID       string      `json:"id"`
	Session  string      `json:"session"`
	Started  time.Time   `json:"started"`
	Channels []string    `json:"channels"`
	Wiring   dbus.Wiring `json:"wiring"`
}

// Publisher publishes the latest snapshot of a Store whenever its
// sequence advances.
type Publisher struct {
	Queue   *Queue
	Store   *dbus.Store
	ID      string
	Session string

	started   time.Time
	lastSeq   uint64
	published uint64
}

// NewPublisher creates a Publisher connecting to brokerURL.
func NewPublisher(brokerURL, id string, store *dbus.Store) (*Publisher, error) {
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	opts.SetBinaryWill(topicPrefix+MetaTopic(id), nil, 1, true)
	if opts.ClientID == "" {
		opts.SetClientID("dbus:" + id)
	}
	return NewPublisherWith(NewQueue(opts, topicPrefix), id, store), nil
}

// NewPublisherWith creates a Publisher on an existing Queue.
func NewPublisherWith(q *Queue, id string, store *dbus.Store) *Publisher {
	p := &Publisher{
		Queue:   q,
		Store:   store,
		ID:      id,
		Session: uuid.New().String(),
		started: time.Now(),
	}
	q.OnConnect = func(*Queue) { p.publishMeta() }
	return p
}

// Name implements Named.
func (p *Publisher) Name() string {
	return "mqtt-publisher"
}

// Published returns the number of state messages published.
func (p *Publisher) Published() uint64 {
	return atomic.LoadUint64(&p.published)
}

// AddToLoop implements LoopAdder.
func (p *Publisher) AddToLoop(loop *fx.Loop) {
	loop.AddController(fx.PrLvPublish, p)
}

// Meta returns the current meta information.
func (p *Publisher) Meta() Meta {
	meta := Meta{
		ID:       p.ID,
		Session:  p.Session,
		Started:  p.started,
		Channels: make([]string, dbus.NumChannels),
		Wiring:   p.Store.Wiring(),
	}
	for ch := dbus.Channel(0); ch < dbus.NumChannels; ch++ {
		meta.Channels[ch] = ch.String()
	}
	return meta
}

// Control implements Controller.
func (p *Publisher) Control(cc fx.ControlContext) error {
	snap := p.Store.Snapshot()
	if snap.Seq == p.lastSeq || !p.Queue.Client.IsConnected() {
		return nil
	}
	p.lastSeq = snap.Seq
	payload, err := proto.Marshal(msgs.FromSnapshot(&snap, p.Store.Wiring(), p.Session))
	if err != nil {
		return err
	}
	p.Queue.Pub(StateTopic(p.ID), payload)
	atomic.AddUint64(&p.published, 1)
	return nil
}

// Run implements Runnable.
func (p *Publisher) Run(ctx context.Context) error {
	glog.Infof("publishing receiver %s session %s", p.ID, p.Session)
	p.Queue.Connect()
	<-ctx.Done()
	p.Queue.PubWith(MetaTopic(p.ID), nil, 1, true).WaitTimeout(time.Second)
	p.Queue.Close()
	return nil
}

// WiringChanged republishes meta after the wiring is updated.
func (p *Publisher) WiringChanged(dbus.Wiring) {
	if p.Queue.Client.IsConnected() {
		p.publishMeta()
	}
}

func (p *Publisher) publishMeta() {
	data, err := json.Marshal(p.Meta())
	if err != nil {
		glog.Errorf("encode meta error: %v", err)
		return
	}
	p.Queue.PubWith(MetaTopic(p.ID), data, 1, true)
}
