// Package env provides information about the running host.
package env

import (
	"os"

	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"
)

// AppID is mixed into the machine ID so the raw ID is never published.
const AppID = "dbus.go"

// ReceiverID returns a stable ID of this host for telemetry topics.
// The hostname is used when the machine ID is unavailable.
func ReceiverID() string {
	id, err := machineid.ProtectedID(AppID)
	if err == nil {
		return id[:12]
	}
	glog.Warningf("machine id unavailable: %v", err)
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "unknown"
}
