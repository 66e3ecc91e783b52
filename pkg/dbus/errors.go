package dbus

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNoData indicates a read was attempted with nothing buffered.
	ErrNoData = errors.New("no data available")
	// ErrClosed indicates the stream is closed.
	ErrClosed = errors.New("stream closed")
	// ErrSyncFailed indicates frame alignment could not be found within
	// the configured limits.
	ErrSyncFailed = errors.New("sync failed")
)

// SyncError provides details when synchronization gives up.
type SyncError struct {
	Discarded int
	Elapsed   time.Duration
}

// Error implements error.
func (e *SyncError) Error() string {
	return fmt.Sprintf("%v after discarding %d bytes in %v", ErrSyncFailed, e.Discarded, e.Elapsed)
}

// Unwrap makes errors.Is(err, ErrSyncFailed) work.
func (e *SyncError) Unwrap() error {
	return ErrSyncFailed
}
