package offlinecache

import (
	"errors"
	"fmt"

	"inspectra.app/offline-gateway/app/utils/duplex"
)

var (
	ErrNoClients           = errors.New("offlinecache: no clients available")
	ErrSyncTimeout         = fmt.Errorf("offlinecache: sync handshake: %w", duplex.ErrTimeout)
	ErrInvalidSyncResponse = errors.New("offlinecache: invalid sync response")
	ErrNoActiveWorker      = errors.New("offlinecache: no active worker")
	ErrInstallInProgress   = errors.New("offlinecache: another worker is installing")
)

// PartialSyncError reports a sync round in which some queued writes failed.
// The whole round is retried.
type PartialSyncError struct {
	Success int
	Failed  int
}

func (e *PartialSyncError) Error() string {
	return fmt.Sprintf("offlinecache: sync partially failed: %d succeeded, %d failed", e.Success, e.Failed)
}

// SyncError carries the error reported by the page.
type SyncError struct {
	Message string
}

func (e *SyncError) Error() string {
	return "offlinecache: page reported sync error: " + e.Message
}
