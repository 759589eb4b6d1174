package watchdog

import (
	"context"
	"errors"
)

// ErrStopped is returned when work is submitted to a loop that is not running.
var ErrStopped = errors.New("watchdog loop stopped")

// Loop is the watchdog's single logical thread. Everything that touches the
// registry is funneled through it, so the core needs no locks.
type Loop struct {
	queue chan func()
	done  chan struct{}
}

// NewLoop returns a loop with the given queue depth.
func NewLoop(depth int) *Loop {
	if depth <= 0 {
		depth = 64
	}
	return &Loop{queue: make(chan func(), depth), done: make(chan struct{})}
}

// Run drains the queue until ctx is cancelled. Pending work is dropped.
func (l *Loop) Run(ctx context.Context) {
	defer close(l.done)
	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-l.queue:
			fn()
		}
	}
}

// Done is closed once Run returns.
func (l *Loop) Done() <-chan struct{} { return l.done }

// Post enqueues fn. It reports false once the loop has exited. Post must not
// be called from the loop itself when the queue may be full.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.queue <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Call runs fn on the loop and waits for its result.
func (l *Loop) Call(ctx context.Context, fn func() error) error {
	reply := make(chan error, 1)
	if !l.Post(func() { reply <- fn() }) {
		return ErrStopped
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrStopped
	}
}
