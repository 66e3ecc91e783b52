package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/robotalks/dbus.go/pkg/config"
	"github.com/robotalks/dbus.go/pkg/dbus"
	"github.com/robotalks/dbus.go/pkg/dbus/msgs"
	"github.com/robotalks/dbus.go/pkg/telemetry/mqtt"
)

var (
	mqttURL  = "mqtt://localhost:1883/"
	id       string
	discover bool
	values   bool
)

func init() {
	if val := os.Getenv(config.EnvMQTTURL); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
	flag.StringVar(&id, "id", id, "Receiver ID, empty for all.")
	flag.BoolVar(&discover, "discover", discover, "List online receivers and exit.")
	flag.BoolVar(&values, "values", values, "Print normalized channel values.")
}

func formatValues(m *msgs.RCState) string {
	items := make([]string, 0, len(m.Values))
	for n, v := range m.Values {
		items = append(items, fmt.Sprintf("%s=%.3f", dbus.Channel(n), v))
	}
	return strings.Join(items, " ")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	q, err := mqtt.NewQueueFromURL(mqttURL)
	if err != nil {
		log.Fatalln(err)
	}
	if token := q.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalln(token.Error())
	}
	defer q.Close()

	if discover {
		metas, err := mqtt.Discover(context.Background(), q, time.Second)
		if err != nil {
			log.Fatalln(err)
		}
		for _, meta := range metas {
			log.Printf("%s: session %s since %s", meta.ID, meta.Session, meta.Started.Format(time.RFC3339))
		}
		return
	}

	q.Sub(mqtt.MetaTopic("+"), func(topic string, payload []byte) {
		log.Printf("%s: %s", topic, string(payload))
	})
	mqtt.SubscribeStates(q, id, func(rid string, m *msgs.RCState) {
		if values {
			log.Printf("%s #%d %s", rid, m.Seq, formatValues(m))
			return
		}
		s := m.State()
		log.Printf("%s #%d axes=%v S1=%s S2=%s pointer=(%d,%d,%d) L=%v R=%v buttons=%08b",
			rid, m.Seq, s.Axes, s.S1, s.S2, s.PointerX, s.PointerY, s.PointerZ,
			s.PointerLeft, s.PointerRight, uint8(s.Buttons))
	})
	<-(chan struct{})(nil)
}
