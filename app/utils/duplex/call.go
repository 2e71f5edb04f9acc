package duplex

import (
	"context"
	"errors"
	"time"

	"k8s.io/utils/clock"
)

var ErrTimeout = errors.New("duplex: timed out waiting for reply")

// CallWithTimeout opens a channel, passes its remote end to send and waits
// for the first message posted back on it. The channel is closed on return.
func CallWithTimeout[T any](
	ctx context.Context,
	clk clock.Clock,
	timeout time.Duration,
	send func(ctx context.Context, remote *Port[T]) error,
) (T, error) {
	var zero T
	local, remote := NewChannel[T]()
	defer local.Close()

	// Armed before send so a fake clock observes the waiter as soon as the
	// request is out.
	timer := clk.NewTimer(timeout)
	defer timer.Stop()

	if err := send(ctx, remote); err != nil {
		return zero, err
	}

	select {
	case msg := <-local.Receive():
		return msg, nil
	case <-timer.C():
		return zero, ErrTimeout
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
