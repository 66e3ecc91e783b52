package main

//go-build: CGO_ENABLED=0

import (
	"context"
	"flag"
	"io"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/dbus.go/pkg/config"
	"github.com/robotalks/dbus.go/pkg/dbus"
	fx "github.com/robotalks/dbus.go/pkg/framework"
	"github.com/robotalks/dbus.go/pkg/telemetry/mqtt"
	"github.com/robotalks/dbus.go/pkg/telemetry/websocket"
)

const statsInterval = 10 * time.Second

func init() {
	config.SetupFlags()
}

func statsLogger(r *dbus.Receiver, s *dbus.ReaderStream) fx.Controller {
	var last time.Time
	return fx.ControlFunc(func(cc fx.ControlContext) error {
		if cc.Time().Sub(last) < statsInterval {
			return nil
		}
		last = cc.Time()
		stats := r.Stats()
		glog.V(1).Infof("%s frames=%d rejected=%d syncs=%d discarded=%d dropped=%d",
			r.State(), stats.Frames, stats.Rejected, stats.Syncs, stats.Discarded, s.Dropped())
		return nil
	})
}

func main() {
	flag.Parse()

	conf, err := config.NewConfig()
	if err != nil {
		glog.Exitln(err)
	}
	wiring, err := conf.Wiring.Resolve()
	if err != nil {
		glog.Exitln(err)
	}
	store := dbus.NewStore()
	if err := store.SetWiring(wiring); err != nil {
		glog.Exitln(err)
	}
	receiver, stream, err := conf.NewReceiver(store)
	if err != nil {
		glog.Exitln(err)
	}
	defer stream.Close()

	loop := fx.NewLoop()
	loop.AddRunnable(fx.NamedRun(receiver.Name(), fx.RunFunc(func(ctx context.Context) error {
		if err := receiver.Run(ctx); err != io.EOF {
			return err
		}
		glog.Info("end of input")
		return nil
	})))
	loop.AddController(fx.PrLvIdle, statsLogger(receiver, stream))

	var watcher *config.Watcher
	if conf.File != "" {
		watcher = config.NewWatcher(conf.File, store)
		loop.AddRunnable(watcher)
	}
	if conf.MQTT.URL != "" {
		pub, err := mqtt.NewPublisher(conf.MQTT.URL, conf.ID, store)
		if err != nil {
			glog.Exitln(err)
		}
		if conf.MQTT.Interval > 0 {
			loop.Interval = conf.MQTT.Interval
		}
		loop.Add(pub)
		if watcher != nil {
			watcher.OnChange = pub.WiringChanged
		}
	}
	if conf.HTTP.Listen != "" {
		loop.AddRunnable(&websocket.Server{
			Addr:     conf.HTTP.Listen,
			Path:     conf.HTTP.Path,
			Store:    store,
			Interval: conf.HTTP.Interval,
		})
	}

	glog.Infof("receiver %s started", conf.ID)
	loop.RunOrFail()
}
