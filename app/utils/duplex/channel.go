// Package duplex provides a two-ended message channel and a request/response
// helper on top of it. Either end can be handed to another component, which
// then answers on it without knowing who is waiting.
package duplex

import (
	"context"
	"errors"
	"sync"
)

var ErrClosed = errors.New("duplex: channel closed")

// Port is one end of a channel created by NewChannel.
type Port[T any] struct {
	inbox  chan T
	peer   chan T
	done   chan struct{}
	closer *sync.Once
}

// NewChannel returns both ends of a new channel. Each end buffers a single
// message so a reply posted before the other side starts waiting is kept.
func NewChannel[T any]() (*Port[T], *Port[T]) {
	a := make(chan T, 1)
	b := make(chan T, 1)
	done := make(chan struct{})
	once := &sync.Once{}
	return &Port[T]{inbox: a, peer: b, done: done, closer: once},
		&Port[T]{inbox: b, peer: a, done: done, closer: once}
}

// Post delivers msg to the other end.
func (p *Port[T]) Post(ctx context.Context, msg T) error {
	select {
	case <-p.done:
		return ErrClosed
	default:
	}
	select {
	case <-p.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	case p.peer <- msg:
		return nil
	}
}

// Receive returns the channel on which messages posted by the other end arrive.
func (p *Port[T]) Receive() <-chan T {
	return p.inbox
}

// Done is closed once either end has been closed.
func (p *Port[T]) Done() <-chan struct{} {
	return p.done
}

// Close closes both ends. Safe to call more than once.
func (p *Port[T]) Close() {
	p.closer.Do(func() { close(p.done) })
}
