package mqtt

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/golang/glog"
	"github.com/golang/protobuf/proto"

	"github.com/robotalks/dbus.go/pkg/dbus/msgs"
)

// DefaultDiscoverTimeout defines the default timeout value of discovery.
const DefaultDiscoverTimeout = 500 * time.Millisecond

// StateHandler receives decoded state messages.
type StateHandler func(id string, state *msgs.RCState)

// receiverID extracts the ID from rc/<id>/<kind>.
func receiverID(topic, kind string) (string, bool) {
	items := strings.Split(topic, "/")
	if len(items) != 3 || items[0] != TopicRoot || items[2] != kind {
		return "", false
	}
	return items[1], true
}

// SubscribeStates subscribes state messages from the receiver id, or
// all receivers if id is empty.
func SubscribeStates(q *Queue, id string, handler StateHandler) *Subscription {
	if id == "" {
		id = "+"
	}
	return q.Sub(StateTopic(id), func(topic string, payload []byte) {
		rid, ok := receiverID(topic, "state")
		if !ok {
			return
		}
		var state msgs.RCState
		if err := proto.Unmarshal(payload, &state); err != nil {
			glog.Warningf("decode state from %s error: %v", topic, err)
			return
		}
		handler(rid, &state)
	})
}

// Discover collects the retained meta of online receivers until timeout
// or ctx is done.
func Discover(ctx context.Context, q *Queue, timeout time.Duration) (res []Meta, err error) {
	metaCh := make(chan Meta, 1)
	sub := q.Sub(MetaTopic("+"), func(topic string, payload []byte) {
		if _, ok := receiverID(topic, "meta"); !ok || len(payload) == 0 {
			return
		}
		var meta Meta
		if err := json.Unmarshal(payload, &meta); err != nil {
			glog.Warningf("decode meta from %s error: %v", topic, err)
			return
		}
		select {
		case metaCh <- meta:
		case <-time.After(time.Second):
		}
	})
	defer sub.Close()

	if timeout <= 0 {
		timeout = DefaultDiscoverTimeout
	}
	timer := time.After(timeout)
	for {
		select {
		case meta := <-metaCh:
			res = append(res, meta)
		case <-timer:
			return
		case <-ctx.Done():
			err = ctx.Err()
			return
		}
	}
}
