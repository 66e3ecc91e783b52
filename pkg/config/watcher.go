package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/golang/glog"

	"github.com/robotalks/dbus.go/pkg/dbus"
)

// DefaultDebounce is the quiet period after the last file event before
// the config is reloaded.
const DefaultDebounce = 200 * time.Millisecond

// WiringFunc receives reloaded wiring.
type WiringFunc func(dbus.Wiring)

// Watcher reloads the [wiring] section when the config file changes.
// Other sections take effect only on restart.
type Watcher struct {
	Path     string
	Debounce time.Duration
	Store    *dbus.Store
	OnChange WiringFunc
}

// NewWatcher creates a Watcher applying reloaded wiring to store.
func NewWatcher(path string, store *dbus.Store) *Watcher {
	return &Watcher{Path: path, Debounce: DefaultDebounce, Store: store}
}

// Name implements Named.
func (w *Watcher) Name() string {
	return "config-watcher"
}

// Run implements Runnable.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	// Editors often replace the file, so the directory is watched.
	if err := watcher.Add(filepath.Dir(w.Path)); err != nil {
		return err
	}
	name := filepath.Clean(w.Path)

	debounce := w.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
				glog.V(2).Infof("config event %s", event)
				timer.Reset(debounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			glog.Warningf("config watcher error: %v", err)
		case <-timer.C:
			w.Reload()
		}
	}
}

// Reload reads the file and applies the wiring. The current wiring is
// kept if the file is invalid.
func (w *Watcher) Reload() error {
	var conf Config
	if err := conf.LoadFile(w.Path); err != nil {
		glog.Errorf("reload config: %v", err)
		return err
	}
	wiring, err := conf.Wiring.Resolve()
	if err == nil {
		err = w.Store.SetWiring(wiring)
	}
	if err != nil {
		glog.Errorf("reload config %s: %v", w.Path, err)
		return err
	}
	glog.Infof("wiring reloaded from %s", w.Path)
	if w.OnChange != nil {
		w.OnChange(wiring)
	}
	return nil
}
