package websocket

import (
	"net/http"
	"time"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"

	"github.com/robotalks/dbus.go/pkg/dbus"
)

// DefaultInterval is the default polling interval of the store.
const DefaultInterval = 20 * time.Millisecond

// Message is the JSON document sent for each new snapshot.
type Message struct {
	Seq          uint64             `json:"seq"`
	Time         time.Time          `json:"time"`
	Axes         [4]uint16          `json:"axes"`
	S1           string             `json:"s1"`
	S2           string             `json:"s2"`
	Pointer      [3]int16           `json:"pointer"`
	PointerLeft  bool               `json:"pointer_left"`
	PointerRight bool               `json:"pointer_right"`
	Buttons      uint8              `json:"buttons"`
	Values       map[string]float64 `json:"values"`
}

// NewMessage converts a snapshot to Message.
func NewMessage(snap *dbus.Snapshot, wiring dbus.Wiring) *Message {
	m := &Message{
		Seq:          snap.Seq,
		Time:         snap.Time,
		Axes:         snap.Axes,
		S1:           snap.S1.String(),
		S2:           snap.S2.String(),
		Pointer:      [3]int16{snap.PointerX, snap.PointerY, snap.PointerZ},
		PointerLeft:  snap.PointerLeft,
		PointerRight: snap.PointerRight,
		Buttons:      uint8(snap.Buttons),
		Values:       make(map[string]float64, dbus.NumChannels),
	}
	for ch := dbus.Channel(0); ch < dbus.NumChannels; ch++ {
		m.Values[ch.String()] = snap.State.Value(ch, wiring)
	}
	return m
}

// Handler streams snapshots of store to websocket clients. A message is
// sent whenever the sequence advances, checked every interval.
func Handler(store *dbus.Store, interval time.Duration) http.Handler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return websocket.Handler(func(conn *websocket.Conn) {
		defer conn.Close()
		remote := conn.Request().RemoteAddr
		glog.V(2).Infof("websocket %s connected", remote)
		closeCh := make(chan struct{})
		go func() {
			defer close(closeCh)
			var discard []byte
			for {
				if err := websocket.Message.Receive(conn, &discard); err != nil {
					return
				}
			}
		}()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		var lastSeq uint64
		for {
			if snap := store.Snapshot(); snap.Seq != lastSeq {
				lastSeq = snap.Seq
				if err := websocket.JSON.Send(conn, NewMessage(&snap, store.Wiring())); err != nil {
					glog.V(2).Infof("websocket %s send error: %v", remote, err)
					return
				}
			}
			select {
			case <-closeCh:
				glog.V(2).Infof("websocket %s disconnected", remote)
				return
			case <-ticker.C:
			}
		}
	})
}
