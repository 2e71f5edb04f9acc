package offlinecache

import (
	"context"
	"errors"
	"fmt"

	"inspectra.app/offline-gateway/app/utils/duplex"
)

// OnSync runs the deferred-sync handshake for tag with a client of scope.
// Any returned error means the sync did not complete and should be retried
// later.
func (w *Worker) OnSync(ctx context.Context, scope, tag string) error {
	if tag != w.config.SyncTag {
		w.log().Debugf("sync: ignoring tag %q", tag)
		return nil
	}

	clients, err := w.clients.MatchAll(ctx, MatchOptions{
		IncludeUncontrolled: true,
		Type:                ClientTypeWindow,
		Scope:               scope,
	})
	if err != nil {
		w.metrics.sync("error")
		return fmt.Errorf("sync: list clients: %w", err)
	}
	if len(clients) == 0 {
		w.metrics.sync("no_clients")
		return ErrNoClients
	}

	target := clients[0]
	reply, err := duplex.CallWithTimeout(ctx, w.clock, w.config.SyncTimeout,
		func(ctx context.Context, remote *duplex.Port[Message]) error {
			return target.PostMessage(ctx, Message{Type: MessageRequestSync}, remote)
		})
	if err != nil {
		if errors.Is(err, duplex.ErrTimeout) {
			w.metrics.sync("timeout")
			return ErrSyncTimeout
		}
		w.metrics.sync("error")
		return fmt.Errorf("sync: request client %s: %w", target.ID(), err)
	}

	if err := interpretSyncReply(reply); err != nil {
		w.metrics.sync("rejected")
		w.log().Warnf("sync: client %s: %v", target.ID(), err)
		return err
	}
	w.metrics.sync("completed")
	w.log().Infof("sync: client %s replayed %d queued writes", target.ID(), *reply.Success)
	return nil
}

func interpretSyncReply(msg Message) error {
	switch msg.Type {
	case MessageSyncResult:
		if msg.Success == nil || msg.Failed == nil || *msg.Success < 0 || *msg.Failed < 0 {
			return ErrInvalidSyncResponse
		}
		if *msg.Failed > 0 {
			return &PartialSyncError{Success: *msg.Success, Failed: *msg.Failed}
		}
		return nil
	case MessageSyncError:
		return &SyncError{Message: msg.Error}
	default:
		return ErrInvalidSyncResponse
	}
}
