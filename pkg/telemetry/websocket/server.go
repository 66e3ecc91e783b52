package websocket

import (
	"context"
	"net/http"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/dbus.go/pkg/dbus"
	fx "github.com/robotalks/dbus.go/pkg/framework"
)

// Server serves Handler over HTTP.
type Server struct {
	Addr     string
	Path     string
	Store    *dbus.Store
	Interval time.Duration
}

// Name implements Named.
func (s *Server) Name() string {
	return "websocket-server"
}

// Run implements Runnable.
func (s *Server) Run(ctx context.Context) error {
	path := s.Path
	if path == "" {
		path = "/"
	}
	mux := http.NewServeMux()
	mux.Handle(path, Handler(s.Store, s.Interval))
	srv := &http.Server{Addr: s.Addr, Handler: mux}
	glog.Infof("websocket listening on %s%s", s.Addr, path)
	return fx.RunWithContextCancel(ctx, func() { srv.Close() }, srv.ListenAndServe)
}
