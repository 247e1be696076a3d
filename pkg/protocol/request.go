package protocol

import (
	"context"
	"sync"
)

// completion is the single-writer, single-transition indicator carried by
// request kinds. Closing the channel is the synchronization point: anything
// the resolver wrote before Complete is visible to a waiter that observed
// ready. It never appears on the wire.
type completion struct {
	once sync.Once
	done chan struct{}
}

func newCompletion() *completion {
	return &completion{done: make(chan struct{})}
}

// Complete flips pending→ready. Safe to call more than once; only the first
// call has effect. The transition never reverses.
func (c *completion) Complete() {
	c.once.Do(func() { close(c.done) })
}

// Completed reports whether the indicator is ready.
func (c *completion) Completed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Done returns a channel closed once the indicator is ready.
func (c *completion) Done() <-chan struct{} {
	return c.done
}

// Await blocks until the request completes or ctx is cancelled. A cancelled
// waiter simply stops waiting; a resolver completing an abandoned request is
// harmless.
func Await(ctx context.Context, req Request) error {
	select {
	case <-req.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
